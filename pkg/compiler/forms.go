package compiler

import (
	"fmt"

	"github.com/rmay/goscheme/pkg/bytecode"
	"github.com/rmay/goscheme/pkg/datum"
	"github.com/rmay/goscheme/pkg/heap"
)

// compileForm compiles a parenthesized form: either a recognized special
// form, or a procedure call (operator followed by argument expressions).
func (c *Compiler) compileForm(sc *scope, d *datum.Datum, tail bool) error {
	if d.IsEmptyList() {
		return fmt.Errorf("compiler: cannot evaluate ()")
	}
	elems, proper := d.ListElements()
	if !proper {
		return fmt.Errorf("compiler: cannot evaluate improper list %s", d)
	}
	head := elems[0]
	if head.IsSymbol() && specialForms[head.Name()] {
		return c.compileSpecialForm(sc, head.Name(), elems[1:], tail)
	}
	return c.compileCall(sc, elems[0], elems[1:], tail)
}

func (c *Compiler) compileSpecialForm(sc *scope, name string, args []*datum.Datum, tail bool) error {
	switch name {
	case "quote":
		if len(args) != 1 {
			return fmt.Errorf("compiler: quote takes exactly 1 argument, got %d", len(args))
		}
		v, err := c.quotedValue(args[0])
		if err != nil {
			return err
		}
		idx := sc.addConstant(v)
		sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
		return nil
	case "quasiquote", "unquote", "unquote-splicing":
		return fmt.Errorf("compiler: %s is not supported outside quote", name)
	case "if":
		return c.compileIf(sc, args, tail)
	case "lambda":
		return c.compileLambda(sc, args)
	case "set!":
		return c.compileSet(sc, args)
	case "define":
		return c.compileDefine(sc, args)
	case "begin":
		return c.compileBody(sc, args, tail)
	case "and":
		return c.compileAnd(sc, args, tail)
	case "or":
		return c.compileOr(sc, args, tail)
	case "let":
		return c.compileLet(sc, args, tail)
	case "let*":
		return c.compileLetStar(sc, args, tail)
	case "letrec":
		return c.compileLetrec(sc, args, tail)
	default:
		return fmt.Errorf("compiler: unimplemented special form %s", name)
	}
}

// compileBody compiles a sequence of expressions for effect, leaving only
// the last one's value on the stack; every expression but the last is
// popped. An empty body evaluates to the unspecified value. Only the final
// expression is in tail position.
func (c *Compiler) compileBody(sc *scope, body []*datum.Datum, tail bool) error {
	if len(body) == 0 {
		idx := sc.addConstant(unspecifiedConst())
		sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
		return nil
	}
	for i, expr := range body {
		if i > 0 {
			sc.builder.Emit0(bytecode.OpPop, -1)
		}
		isLast := i == len(body)-1
		if err := c.compileExpr(sc, expr, tail && isLast); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileIf(sc *scope, args []*datum.Datum, tail bool) error {
	if len(args) != 2 && len(args) != 3 {
		return fmt.Errorf("compiler: if takes 2 or 3 arguments, got %d", len(args))
	}
	if err := c.compileExpr(sc, args[0], false); err != nil {
		return err
	}
	elseJump := sc.builder.EmitJump(bytecode.OpJmpIfFalse, -1)
	if err := c.compileExpr(sc, args[1], tail); err != nil {
		return err
	}
	endJump := sc.builder.EmitJump(bytecode.OpJmp, 0)
	sc.builder.PatchJump(elseJump)
	if len(args) == 3 {
		if err := c.compileExpr(sc, args[2], tail); err != nil {
			return err
		}
	} else {
		idx := sc.addConstant(unspecifiedConst())
		sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
	}
	sc.builder.PatchJump(endJump)
	return nil
}

// compileAnd desugars (and e1 e2 ... en) to (if e1 (and e2 ... en) #f),
// bottoming out at a bare e1 for n=1 and #t for n=0. Expressed as nested
// ifs rather than hand-rolled jump patching, tail position and short
// circuiting both fall out of compileIf for free — and and's false case is
// always exactly #f, so no value needs preserving across the branch the
// way or's does.
func (c *Compiler) compileAnd(sc *scope, args []*datum.Datum, tail bool) error {
	switch len(args) {
	case 0:
		idx := sc.addConstant(trueConst())
		sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
		return nil
	case 1:
		return c.compileExpr(sc, args[0], tail)
	default:
		rest := datum.Cons(datum.Symbol("and"), datum.List(args[1:]...))
		ifForm := datum.List(datum.Symbol("if"), args[0], rest, datum.Bool(false))
		return c.compileExpr(sc, ifForm, tail)
	}
}

// compileOr desugars (or e1 e2 ... en) to (let ((t e1)) (if t t (or e2 ...
// en))): a let binding, rather than a bare if, because or must return the
// actual value of whichever operand was truthy (e.g. (or #f 5) => 5, not
// #t), and this VM has no stack-duplicate opcode to re-push e1's value
// after testing it.
func (c *Compiler) compileOr(sc *scope, args []*datum.Datum, tail bool) error {
	switch len(args) {
	case 0:
		idx := sc.addConstant(falseConst())
		sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
		return nil
	case 1:
		return c.compileExpr(sc, args[0], tail)
	default:
		tmp := datum.Symbol("%or-tmp")
		rest := datum.Cons(datum.Symbol("or"), datum.List(args[1:]...))
		ifForm := datum.List(datum.Symbol("if"), tmp, tmp, rest)
		binding := datum.List(datum.List(tmp, args[0]))
		letForm := datum.Cons(datum.Symbol("let"), datum.Cons(binding, datum.List(ifForm)))
		return c.compileExpr(sc, letForm, tail)
	}
}

// compileSet handles (set! name expr). A local or captured variable is
// mutated in place; a global must already be bound.
func (c *Compiler) compileSet(sc *scope, args []*datum.Datum) error {
	if len(args) != 2 || !args[0].IsSymbol() {
		return fmt.Errorf("compiler: set! takes (set! symbol expr)")
	}
	name := args[0].Name()
	if err := c.compileExpr(sc, args[1], false); err != nil {
		return err
	}
	if slot, ok := sc.resolveLocal(name); ok {
		sc.builder.EmitByteOperand(bytecode.OpSetLocal, byte(slot), 0)
		return nil
	}
	if idx, ok := sc.resolveUpvalue(name); ok {
		sc.builder.EmitByteOperand(bytecode.OpSetUpvalue, byte(idx), 0)
		return nil
	}
	id := c.syms.Intern(name)
	sc.builder.EmitUint16Operand(bytecode.OpSetGlobal, uint16(id), 0)
	return nil
}

// compileDefine handles both (define name expr) and the procedure-definition
// shorthand (define (name . params) body...). At the top level this binds a
// global; inside a lambda body, it introduces a new local (R5RS internal
// define).
func (c *Compiler) compileDefine(sc *scope, args []*datum.Datum) error {
	if len(args) < 1 {
		return fmt.Errorf("compiler: define requires at least a name")
	}
	if args[0].IsSymbol() {
		name := args[0].Name()
		var valueExpr *datum.Datum
		if len(args) >= 2 {
			valueExpr = args[1]
		}
		return c.compileDefineValue(sc, name, valueExpr)
	}
	if args[0].IsPair() {
		header, proper := args[0].ListElements()
		var rest *datum.Datum
		if !proper {
			header, rest = properPrefixAndTail(args[0])
		}
		if len(header) == 0 || !header[0].IsSymbol() {
			return fmt.Errorf("compiler: malformed define header")
		}
		name := header[0].Name()
		lambdaArgs := append([]*datum.Datum{buildParamList(header[1:], rest)}, args[1:]...)
		return c.compileDefineValue(sc, name, datum.Cons(datum.Symbol("lambda"), datum.List(lambdaArgs...)))
	}
	return fmt.Errorf("compiler: malformed define")
}

func (c *Compiler) compileDefineValue(sc *scope, name string, valueExpr *datum.Datum) error {
	if valueExpr == nil {
		idx := sc.addConstant(unspecifiedConst())
		sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
	} else if err := c.compileExpr(sc, valueExpr, false); err != nil {
		return err
	}
	if sc.isGlobal {
		id := c.syms.Intern(name)
		sc.builder.EmitUint16Operand(bytecode.OpDefineGlobal, uint16(id), -1)
		idx := sc.addConstant(unspecifiedConst())
		sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
		return nil
	}
	// The value stays in the new local's slot; define's own result goes
	// above it, for the enclosing body to pop like any other expression.
	sc.declareLocal(name)
	idx := sc.addConstant(unspecifiedConst())
	sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
	return nil
}

// properPrefixAndTail splits an improper list's pairs into the leading
// proper elements and the final dotted tail symbol, for `(name a b . rest)`
// style lambda headers.
func properPrefixAndTail(d *datum.Datum) ([]*datum.Datum, *datum.Datum) {
	var elems []*datum.Datum
	cur := d
	for cur.IsPair() {
		elems = append(elems, cur.Car())
		cur = cur.Cdr()
	}
	return elems, cur
}

func buildParamList(params []*datum.Datum, rest *datum.Datum) *datum.Datum {
	if rest == nil {
		return datum.List(params...)
	}
	return datum.ImproperList(rest, params...)
}

// compileLambda compiles (lambda formals body...) into a nested Chunk and
// emits a CLOSURE instruction referencing it.
func (c *Compiler) compileLambda(sc *scope, args []*datum.Datum) error {
	if len(args) < 1 {
		return fmt.Errorf("compiler: lambda requires a parameter list and a body")
	}
	chunk, err := c.compileLambdaChunk(sc, args[0], args[1:], "")
	if err != nil {
		return err
	}
	idx := sc.addChild(chunk)
	sc.builder.EmitUint16Operand(bytecode.OpClosure, idx, 1)
	return nil
}

func (c *Compiler) compileLambdaChunk(enclosing *scope, formals *datum.Datum, body []*datum.Datum, name string) (*heap.Chunk, error) {
	inner := newScope(enclosing)
	inner.name = name

	params, rest := properPrefixAndTail(formals)
	if formals.IsSymbol() {
		// A single bare symbol formal list (lambda args body...) collects
		// every argument into one rest parameter.
		rest = formals
		params = nil
	}
	for _, p := range params {
		if !p.IsSymbol() {
			return nil, fmt.Errorf("compiler: lambda parameter must be a symbol, got %s", p)
		}
		inner.declareLocal(p.Name())
	}
	arity := bytecode.Arity{Min: len(params), Max: len(params)}
	if rest != nil && !rest.IsEmptyList() {
		if !rest.IsSymbol() {
			return nil, fmt.Errorf("compiler: lambda rest parameter must be a symbol, got %s", rest)
		}
		inner.declareLocal(rest.Name())
		arity.Rest = true
		arity.Max = -1
	}

	if err := c.compileBody(inner, body, true); err != nil {
		return nil, err
	}
	inner.builder.Emit0(bytecode.OpReturn, -1)

	return c.heap.NewChunk(&heap.Chunk{
		Name:          name,
		Code:          inner.builder.Code(),
		Constants:     inner.constants,
		Children:      inner.children,
		Upvalues:      inner.upvalueDescs(),
		Arity:         arity,
		MaxStackDepth: inner.builder.MaxDepth(),
	}), nil
}

// compileCall compiles a procedure call: operator, then arguments left to
// right, then CALL or (in tail position) TAIL_CALL with the argument count
// as its operand.
func (c *Compiler) compileCall(sc *scope, operator *datum.Datum, args []*datum.Datum, tail bool) error {
	if err := c.compileExpr(sc, operator, false); err != nil {
		return err
	}
	for _, a := range args {
		if err := c.compileExpr(sc, a, false); err != nil {
			return err
		}
	}
	if len(args) > 255 {
		return fmt.Errorf("compiler: too many arguments (%d), max 255", len(args))
	}
	netEffect := -len(args) // operator and args collapse to one result
	if tail {
		sc.builder.EmitByteOperand(bytecode.OpTailCall, byte(len(args)), netEffect)
	} else {
		sc.builder.EmitByteOperand(bytecode.OpCall, byte(len(args)), netEffect)
	}
	return nil
}
