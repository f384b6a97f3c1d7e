package primitives

import (
	"fmt"
	"os"

	"github.com/rmay/goscheme/pkg/bytecode"
	"github.com/rmay/goscheme/pkg/compiler"
	"github.com/rmay/goscheme/pkg/datum"
	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/value"
)

func init() { register(metaBuiltins) }

var metaBuiltins = map[string]heap.PrimitiveFunc{
	"compile":     primCompile,
	"disassemble": primDisassemble,
	"load":        primLoad,
	"read":        primRead,
}

// primCompile converts a quoted Datum (typically the result of `read`, or
// data built at runtime with cons/list) into bytecode and runs it
// immediately as a zero-argument thunk, the way the REPL compiles and runs
// one top-level form. For a quoted lambda expression this evaluates to the
// Closure that expression denotes, letting `((compile '(lambda (x) (* x
// x))) 7)` work in one step rather than requiring a separate "call the
// thunk, then call its result" dance.
func primCompile(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("compile", args, 1); err != nil {
		return value.Value{}, err
	}
	d, err := compiler.ValueToDatum(caller.Symbols(), args[0])
	if err != nil {
		return value.Value{}, fmt.Errorf("compile: %w", err)
	}
	chunk, err := compiler.New(caller.Heap(), caller.Symbols()).CompileDatum(d)
	if err != nil {
		return value.Value{}, fmt.Errorf("compile: %w", err)
	}
	thunk := caller.Heap().NewClosure(chunk, nil)
	return caller.Apply(value.FromObject(thunk), nil)
}

// primDisassemble prints a closure's chunk one instruction per line, with
// PC, opcode mnemonic, and operand lined up in fixed columns.
func primDisassemble(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("disassemble", args, 1); err != nil {
		return value.Value{}, err
	}
	c, ok := args[0].AsObject().(*heap.Closure)
	if !ok {
		return value.Value{}, fmt.Errorf("disassemble: expects a procedure produced by lambda or compile")
	}
	disassembleChunk(caller, c.Chunk, "")
	return value.Unspecified_(), nil
}

func disassembleChunk(caller heap.VMFace, chunk *heap.Chunk, indent string) {
	name := chunk.Name
	if name == "" {
		name = "anonymous"
	}
	fmt.Fprintf(caller.Stdout(), "%s; chunk %s (arity %s)\n", indent, name, chunk.Arity)
	code := chunk.Code
	for ip := 0; ip < len(code); {
		op := bytecode.Op(code[ip])
		width := bytecode.OperandWidth(op)
		line := fmt.Sprintf("%s%04d  %-14s", indent, ip, bytecode.OpcodeName(op))
		switch width {
		case 1:
			line += fmt.Sprintf(" %-8d", code[ip+1])
		case 2:
			k := bytecode.DecodeUint16(code[ip+1 : ip+3])
			line += fmt.Sprintf(" %-8d", k)
			if op == bytecode.OpConst && int(k) < len(chunk.Constants) {
				line += "  ; " + writeString(caller.Symbols(), chunk.Constants[k])
			}
		case 4:
			d := bytecode.DecodeUint32(code[ip+1 : ip+5])
			line += fmt.Sprintf(" %-8d", d)
		default:
			line += "         "
		}
		fmt.Fprintln(caller.Stdout(), line)
		ip += 1 + width
	}
	for i, child := range chunk.Children {
		fmt.Fprintf(caller.Stdout(), "%s; child chunk %d:\n", indent, i)
		disassembleChunk(caller, child, indent+"  ")
	}
}

// primLoad reads a whole file, compiles every top-level form into one
// chunk, and runs it, the same pipeline cmd/schemec drives for a whole
// program, reused here so a running program can pull in another source
// file.
func primLoad(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("load", args, 1); err != nil {
		return value.Value{}, err
	}
	s, err := wantString("load", args[0])
	if err != nil {
		return value.Value{}, err
	}
	source, err := os.ReadFile(string(s.Runes))
	if err != nil {
		return value.Value{}, fmt.Errorf("load: %w", err)
	}
	chunk, err := compiler.New(caller.Heap(), caller.Symbols()).Compile(string(source))
	if err != nil {
		return value.Value{}, fmt.Errorf("load: %w", err)
	}
	thunk := caller.Heap().NewClosure(chunk, nil)
	return caller.Apply(value.FromObject(thunk), nil)
}

// primRead reads one Datum from a port (default current-input-port) and
// returns the runtime Value it quotes to, or the eof-object at end of
// input. It drains the port to end of input to hand the reader a
// contiguous string, since pkg/datum reads from text, not a rune stream:
// fine for the string ports `open-input-string` produces, the common case
// for reading back data a program wrote itself.
func primRead(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantRange("read", args, 0, 1); err != nil {
		return value.Value{}, err
	}
	p, err := inputPort(caller, args, 0, "read")
	if err != nil {
		return value.Value{}, err
	}
	var buf []rune
	for {
		r, ok, err := p.Reader()
		if err != nil {
			return value.Value{}, err
		}
		if !ok {
			break
		}
		buf = append(buf, r)
	}
	d, err := datum.NewReader(string(buf)).Read()
	if err != nil {
		return value.Value{}, fmt.Errorf("read: %w", err)
	}
	if d == nil {
		return value.FromObject(theEOF), nil
	}
	return compiler.New(caller.Heap(), caller.Symbols()).QuoteDatum(d)
}
