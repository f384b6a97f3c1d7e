// Package bytecode defines the instruction set the bootstrap compiler
// (pkg/compiler) emits and the virtual machine (pkg/vm) executes, plus the
// small descriptor types (arity, upvalue capture) a compiled Chunk carries.
// Opcode encoding follows pkg/vm/opcodes.go's original shape: single-byte
// mnemonics named by an Opcode(byte) switch, with fixed-width operands
// encoded big-endian immediately after the opcode byte.
package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Op is a single VM instruction's opcode byte.
type Op byte

// Instruction set. Operands are byte-immediate (local/upvalue slot, small
// counts) or pool-index immediates (uint16, constant/global/chunk indices)
// or 32-bit jump targets: absolute offsets into the chunk's code, always
// forward of the jump instruction (not displacements relative to it).
const (
	OpConst        Op = iota // k(u16)        push constants[k]
	OpPop                    //               drop top
	OpGetLocal               // i(u8)         push stack[frame_base+i]
	OpSetLocal               // i(u8)         write top into stack[frame_base+i]; top remains
	OpGetUpvalue             // u(u8)         push dereference of closure.upvalues[u]
	OpSetUpvalue             // u(u8)         write top into closure.upvalues[u]'s referent
	OpGetGlobal              // s(u16)        push value bound to symbol s; error if unbound
	OpDefineGlobal           // s(u16)        bind top to symbol s globally; pops
	OpSetGlobal              // s(u16)        mutate existing global; error if unbound
	OpJmp                    // d(u32)        jump to absolute code offset d (forward only)
	OpJmpIfFalse             // d(u32)        pop; if false, jump to absolute code offset d
	OpCall                   // n(u8)         call procedure at stack[top-n] with n args
	OpTailCall               // n(u8)         like CALL but replaces the current frame
	OpReturn                 //               return top of stack to caller
	OpClosure                // k(u16)        build a Closure from chunk.Children[k]
	OpHalt                   //               terminate the chunk; return top of stack
)

var opcodeNames = map[Op]string{
	OpConst:        "CONST",
	OpPop:          "POP",
	OpGetLocal:     "GET_LOCAL",
	OpSetLocal:     "SET_LOCAL",
	OpGetUpvalue:   "GET_UPVALUE",
	OpSetUpvalue:   "SET_UPVALUE",
	OpGetGlobal:    "GET_GLOBAL",
	OpDefineGlobal: "DEFINE_GLOBAL",
	OpSetGlobal:    "SET_GLOBAL",
	OpJmp:          "JMP",
	OpJmpIfFalse:   "JMP_IF_FALSE",
	OpCall:         "CALL",
	OpTailCall:     "TAIL_CALL",
	OpReturn:       "RETURN",
	OpClosure:      "CLOSURE",
	OpHalt:         "HALT",
}

// OpcodeName returns the human-readable mnemonic for an opcode, matching
// the shape of the original OpcodeName(byte) string helper.
func OpcodeName(op Op) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))
}

// OperandWidth reports how many bytes of operand immediately follow the
// opcode byte, used by both the compiler's jump-patching and the
// disassembler.
func OperandWidth(op Op) int {
	switch op {
	case OpConst, OpGetGlobal, OpDefineGlobal, OpSetGlobal, OpClosure:
		return 2
	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall, OpTailCall:
		return 1
	case OpJmp, OpJmpIfFalse:
		return 4
	default:
		return 0
	}
}

// EncodeUint16 encodes a pool index as big-endian bytes.
func EncodeUint16(v uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return buf
}

// DecodeUint16 decodes a big-endian pool index.
func DecodeUint16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }

// EncodeUint32 encodes a jump target offset as big-endian bytes.
func EncodeUint32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

// DecodeUint32 decodes a big-endian jump target offset.
func DecodeUint32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

// UpvalueDesc describes how a chunk captures one enclosing variable: either
// a direct capture of the parent frame's local slot (IsLocal=true) or a
// re-capture of one of the parent's own upvalues (IsLocal=false).
type UpvalueDesc struct {
	ParentIndex uint8
	IsLocal     bool
}

// Arity records a chunk's parameter-list shape: Min==Max for a fixed-arity
// proper list, Max<0 with Rest=true for an improper/bare-symbol parameter
// list (or both for "at least Min, rest collects the remainder").
type Arity struct {
	Min  int
	Max  int // -1 when Rest is true and there is no fixed upper bound
	Rest bool
}

// Accepts reports whether n arguments satisfy this arity.
func (a Arity) Accepts(n int) bool {
	if n < a.Min {
		return false
	}
	if a.Rest {
		return true
	}
	return n <= a.Max
}

func (a Arity) String() string {
	switch {
	case a.Rest && a.Min == 0:
		return "any number of arguments"
	case a.Rest:
		return fmt.Sprintf("at least %d argument(s)", a.Min)
	case a.Min == a.Max:
		return fmt.Sprintf("exactly %d argument(s)", a.Min)
	default:
		return fmt.Sprintf("between %d and %d arguments", a.Min, a.Max)
	}
}
