package compiler

import (
	"github.com/rmay/goscheme/pkg/bytecode"
	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/value"
)

// localBinding records one lexically-scoped name bound to a value-stack
// slot relative to the enclosing call frame's base.
type localBinding struct {
	name string
	slot int
}

// upvalueBinding records one captured-from-an-enclosing-scope variable and
// how the VM should materialize it when building a Closure over this
// scope's chunk: either directly from the parent frame's local slot, or by
// re-threading one of the parent's own upvalues.
type upvalueBinding struct {
	name string
	desc bytecode.UpvalueDesc
}

// scope tracks the compile-time lexical environment for one chunk under
// construction (the top level, or one lambda body), chained to its
// enclosing scope so a nested lambda can resolve names outward through
// local slots and upvalue capture.
type scope struct {
	enclosing *scope
	builder   *bytecode.Builder
	locals    []localBinding
	upvalues  []upvalueBinding
	isGlobal  bool
	name      string

	constants []value.Value
	children  []*heap.Chunk
}

func newScope(enclosing *scope) *scope {
	return &scope{enclosing: enclosing, builder: bytecode.NewBuilder()}
}

// addConstant appends v to this chunk's constant pool and returns its pool
// index. No deduplication: repeated quoted literals get distinct entries,
// each occurrence compiling independently.
func (s *scope) addConstant(v value.Value) uint16 {
	s.constants = append(s.constants, v)
	return uint16(len(s.constants) - 1)
}

// addChild registers a nested chunk (a lambda compiled within this scope)
// and returns its index for a CLOSURE instruction's operand.
func (s *scope) addChild(c *heap.Chunk) uint16 {
	s.children = append(s.children, c)
	return uint16(len(s.children) - 1)
}

// declareLocal binds name to the next free stack slot in this scope and
// returns that slot.
func (s *scope) declareLocal(name string) int {
	slot := len(s.locals)
	s.locals = append(s.locals, localBinding{name: name, slot: slot})
	return slot
}

// resolveLocal searches this scope's own bindings only, most-recent first
// so inner shadowing wins.
func (s *scope) resolveLocal(name string) (int, bool) {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if s.locals[i].name == name {
			return s.locals[i].slot, true
		}
	}
	return 0, false
}

// resolveUpvalue looks for name in every enclosing scope, adding a capture
// descriptor to this scope (and, transitively, to every scope in between)
// on first use. Repeated references to the same name reuse the same
// upvalue index.
func (s *scope) resolveUpvalue(name string) (int, bool) {
	if s.enclosing == nil {
		return 0, false
	}
	for i, uv := range s.upvalues {
		if uv.name == name {
			return i, true
		}
	}
	if slot, ok := s.enclosing.resolveLocal(name); ok {
		return s.addUpvalue(name, bytecode.UpvalueDesc{ParentIndex: uint8(slot), IsLocal: true}), true
	}
	if idx, ok := s.enclosing.resolveUpvalue(name); ok {
		return s.addUpvalue(name, bytecode.UpvalueDesc{ParentIndex: uint8(idx), IsLocal: false}), true
	}
	return 0, false
}

func (s *scope) addUpvalue(name string, desc bytecode.UpvalueDesc) int {
	s.upvalues = append(s.upvalues, upvalueBinding{name: name, desc: desc})
	return len(s.upvalues) - 1
}

func (s *scope) upvalueDescs() []bytecode.UpvalueDesc {
	descs := make([]bytecode.UpvalueDesc, len(s.upvalues))
	for i, uv := range s.upvalues {
		descs[i] = uv.desc
	}
	return descs
}
