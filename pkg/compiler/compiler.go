// Package compiler implements the bootstrap compiler: a single recursive
// walk over a read Datum tree that resolves every variable reference to a
// local slot, an upvalue, or a global, detects tail position, and emits
// bytecode directly into a Chunk with no separate intermediate
// representation. Special forms dispatch through one table, and scope
// tracking is split from bytecode emission so each stays simple on its own.
package compiler

import (
	"fmt"

	"github.com/rmay/goscheme/pkg/bytecode"
	"github.com/rmay/goscheme/pkg/datum"
	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/symtab"
	"github.com/rmay/goscheme/pkg/value"
)

// Option configures a Compiler at construction, following the functional
// options shape used throughout this codebase for VM and compiler
// configuration alike.
type Option func(*Compiler)

// WithTrace enables step-by-step diagnostics to stderr while reading the
// source; the flag is passed on to the reader and lexer, and compilation
// itself prints nothing.
func WithTrace(trace bool) Option {
	return func(c *Compiler) { c.trace = trace }
}

// Compiler turns Scheme source text into a heap-resident Chunk ready for
// the virtual machine to execute. One Compiler is bound to one symbol
// table and one heap for its whole lifetime; it does not hold any
// compiled-program state between calls to Compile.
type Compiler struct {
	heap  *heap.Heap
	syms  *symtab.Table
	trace bool
}

// New constructs a Compiler sharing syms (so compiled GET_GLOBAL/
// DEFINE_GLOBAL operands agree with the VM's global environment) and h (so
// every Chunk/Closure it builds is tracked by the same collector).
func New(h *heap.Heap, syms *symtab.Table, opts ...Option) *Compiler {
	c := &Compiler{heap: h, syms: syms}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// specialForms names the symbols this compiler recognizes and handles
// itself rather than treating as a procedure call.
var specialForms = map[string]bool{
	"quote": true, "if": true, "lambda": true, "set!": true, "define": true,
	"begin": true, "let": true, "let*": true, "letrec": true,
	"and": true, "or": true,
	"quasiquote": true, "unquote": true, "unquote-splicing": true,
}

// Compile reads every top-level form in source and compiles them into one
// top-level Chunk: an implicit zero-argument procedure whose body is the
// program, evaluated left to right, whose final value (or the unspecified
// value, for an empty program) reaches HALT.
func (c *Compiler) Compile(source string) (*heap.Chunk, error) {
	forms, err := datum.NewReader(source, c.trace).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}
	return c.compileTopLevel(forms)
}

// CompileDatum compiles a single already-read form into a top-level Chunk,
// the same shape Compile produces for a whole file, for callers (the `load`
// and `compile` primitives) that already hold a Datum rather than source
// text.
func (c *Compiler) CompileDatum(d *datum.Datum) (*heap.Chunk, error) {
	return c.compileTopLevel([]*datum.Datum{d})
}

// QuoteDatum converts a read-time Datum into the runtime Value it denotes
// under quote, the same conversion `(quote d)` compiles to a constant. The
// `read` primitive uses this to hand back data the compiler can later
// `compile`.
func (c *Compiler) QuoteDatum(d *datum.Datum) (value.Value, error) {
	return c.quotedValue(d)
}

func (c *Compiler) compileTopLevel(forms []*datum.Datum) (*heap.Chunk, error) {
	sc := newScope(nil)
	sc.isGlobal = true
	sc.name = "toplevel"

	if len(forms) == 0 {
		idx := sc.addConstant(value.Unspecified_())
		sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
	}
	for i, f := range forms {
		if i > 0 {
			sc.builder.Emit0(bytecode.OpPop, -1)
		}
		if err := c.compileExpr(sc, f, false); err != nil {
			return nil, err
		}
	}
	sc.builder.Emit0(bytecode.OpHalt, 0)

	return c.heap.NewChunk(&heap.Chunk{
		Name:          sc.name,
		Code:          sc.builder.Code(),
		Constants:     sc.constants,
		Children:      sc.children,
		Upvalues:      nil,
		Arity:         bytecode.Arity{Min: 0, Max: 0},
		MaxStackDepth: sc.builder.MaxDepth(),
	}), nil
}

// compileExpr compiles one expression, leaving exactly one value on the
// stack. tail reports whether this expression occupies tail position in
// its enclosing procedure body, and is threaded through if/begin/and/or/let
// bodies and call compilation per the tail-call invariants.
func (c *Compiler) compileExpr(sc *scope, d *datum.Datum, tail bool) error {
	switch d.Tag() {
	case datum.TagNumber:
		idx := sc.addConstant(value.Number(d.AsNumber()))
		sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
		return nil
	case datum.TagBool:
		idx := sc.addConstant(value.Bool_(d.AsBool()))
		sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
		return nil
	case datum.TagChar:
		idx := sc.addConstant(value.Char(d.AsChar()))
		sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
		return nil
	case datum.TagString:
		idx := sc.addConstant(value.FromObject(c.heap.NewString(d.AsString())))
		sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
		return nil
	case datum.TagEmptyList:
		idx := sc.addConstant(value.EmptyList_())
		sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
		return nil
	case datum.TagVector:
		return c.compileVectorLiteral(sc, d)
	case datum.TagSymbol:
		return c.compileVariableRef(sc, d.Name())
	case datum.TagAbbreviation:
		return c.compileAbbreviation(sc, d, tail)
	case datum.TagPair:
		return c.compileForm(sc, d, tail)
	default:
		return fmt.Errorf("compiler: cannot compile datum of tag %s", d.Tag())
	}
}

func unspecifiedConst() value.Value { return value.Unspecified_() }
func trueConst() value.Value        { return value.Bool_(true) }
func falseConst() value.Value       { return value.Bool_(false) }

// finishChunk assembles a compiled Chunk from a scope once its body has
// been fully emitted (including its trailing RETURN/HALT).
func (c *Compiler) finishChunk(sc *scope, arity bytecode.Arity) *heap.Chunk {
	return c.heap.NewChunk(&heap.Chunk{
		Name:          sc.name,
		Code:          sc.builder.Code(),
		Constants:     sc.constants,
		Children:      sc.children,
		Upvalues:      sc.upvalueDescs(),
		Arity:         arity,
		MaxStackDepth: sc.builder.MaxDepth(),
	})
}

func chunkArity(min, max int, rest bool) bytecode.Arity {
	return bytecode.Arity{Min: min, Max: max, Rest: rest}
}

// emitImmediateCall emits, into sc, a CLOSURE over children[chunkIdx]
// followed by each binding's init expression (compiled in sc, the outer
// scope) and a CALL/TAIL_CALL — the "apply a freshly built lambda to these
// arguments" pattern that let desugars to.
func (c *Compiler) emitImmediateCall(sc *scope, chunkIdx uint16, bindings []binding, tail bool) error {
	sc.builder.EmitUint16Operand(bytecode.OpClosure, chunkIdx, 1)
	for _, b := range bindings {
		if err := c.compileExpr(sc, b.init, false); err != nil {
			return err
		}
	}
	return c.emitCallChunk(sc, len(bindings), tail)
}

// emitCallChunk assumes a closure and argc arguments are already on the
// stack (pushed by the caller) and emits only the trailing CALL/TAIL_CALL.
func (c *Compiler) emitCallChunk(sc *scope, argc int, tail bool) error {
	if argc > 255 {
		return fmt.Errorf("compiler: too many let bindings (%d), max 255", argc)
	}
	netEffect := -argc
	if tail {
		sc.builder.EmitByteOperand(bytecode.OpTailCall, byte(argc), netEffect)
	} else {
		sc.builder.EmitByteOperand(bytecode.OpCall, byte(argc), netEffect)
	}
	return nil
}

func (c *Compiler) compileVectorLiteral(sc *scope, d *datum.Datum) error {
	// Vector literals are self-evaluating, like numbers and strings: build
	// the heap vector once at read time is not possible (no heap access
	// during reading), so its elements are recursively quoted constants
	// assembled once, here, at compile time, and stored as a single
	// constant-pool entry.
	elems := make([]value.Value, len(d.Elements()))
	for i, e := range d.Elements() {
		v, err := c.quotedValue(e)
		if err != nil {
			return err
		}
		elems[i] = v
	}
	idx := sc.addConstant(value.FromObject(c.heap.NewVector(elems)))
	sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
	return nil
}

func (c *Compiler) compileVariableRef(sc *scope, name string) error {
	if slot, ok := sc.resolveLocal(name); ok {
		sc.builder.EmitByteOperand(bytecode.OpGetLocal, byte(slot), 1)
		return nil
	}
	if idx, ok := sc.resolveUpvalue(name); ok {
		sc.builder.EmitByteOperand(bytecode.OpGetUpvalue, byte(idx), 1)
		return nil
	}
	id := c.syms.Intern(name)
	sc.builder.EmitUint16Operand(bytecode.OpGetGlobal, uint16(id), 1)
	return nil
}

func (c *Compiler) compileAbbreviation(sc *scope, d *datum.Datum, tail bool) error {
	switch d.AbbrevKind() {
	case datum.AbbrevQuote:
		v, err := c.quotedValue(d.Child())
		if err != nil {
			return err
		}
		idx := sc.addConstant(v)
		sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
		return nil
	case datum.AbbrevQuasiquote:
		return fmt.Errorf("compiler: quasiquote is not supported outside quote")
	case datum.AbbrevUnquote:
		return fmt.Errorf("compiler: unquote used outside quasiquote")
	case datum.AbbrevUnquoteSplicing:
		return fmt.Errorf("compiler: unquote-splicing used outside quasiquote")
	default:
		return fmt.Errorf("compiler: unknown abbreviation kind %d", d.AbbrevKind())
	}
}

// quotedValue converts a Datum into the runtime Value it denotes under
// quote, recursively building heap pairs/vectors/strings as needed. The
// compiler treats only quote specially among the four abbreviations;
// quasiquote/unquote/unquote-splicing are rejected wherever they are met
// directly, since expanding quasiquote into cons/list chains is out of
// scope here.
func (c *Compiler) quotedValue(d *datum.Datum) (value.Value, error) {
	switch d.Tag() {
	case datum.TagNumber:
		return value.Number(d.AsNumber()), nil
	case datum.TagBool:
		return value.Bool_(d.AsBool()), nil
	case datum.TagChar:
		return value.Char(d.AsChar()), nil
	case datum.TagString:
		return value.FromObject(c.heap.NewString(d.AsString())), nil
	case datum.TagSymbol:
		return value.SymbolID(c.syms.Intern(d.Name())), nil
	case datum.TagEmptyList:
		return value.EmptyList_(), nil
	case datum.TagVector:
		elems := make([]value.Value, len(d.Elements()))
		for i, e := range d.Elements() {
			v, err := c.quotedValue(e)
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = v
		}
		return value.FromObject(c.heap.NewVector(elems)), nil
	case datum.TagPair:
		car, err := c.quotedValue(d.Car())
		if err != nil {
			return value.Value{}, err
		}
		cdr, err := c.quotedValue(d.Cdr())
		if err != nil {
			return value.Value{}, err
		}
		return value.FromObject(c.heap.NewPair(car, cdr)), nil
	case datum.TagAbbreviation:
		// `'x inside a quoted datum is itself just data: (quote (quasiquote
		// x)), not a nested abbreviation to expand.
		pair := datum.Cons(datum.Symbol(d.AbbrevKind().Symbol()), datum.Cons(d.Child(), datum.EmptyList()))
		return c.quotedValue(pair)
	default:
		return value.Value{}, fmt.Errorf("compiler: cannot quote datum of tag %s", d.Tag())
	}
}
