package compiler

import (
	"fmt"

	"github.com/rmay/goscheme/pkg/bytecode"
	"github.com/rmay/goscheme/pkg/datum"
)

// binding is one (name init-expr) clause shared by let/let*/letrec.
type binding struct {
	name string
	init *datum.Datum
}

func parseBindings(d *datum.Datum) ([]binding, error) {
	elems, proper := d.ListElements()
	if !proper {
		return nil, fmt.Errorf("compiler: malformed binding list %s", d)
	}
	bindings := make([]binding, len(elems))
	for i, e := range elems {
		clause, ok := e.ListElements()
		if !ok || len(clause) != 2 || !clause[0].IsSymbol() {
			return nil, fmt.Errorf("compiler: malformed binding clause %s", e)
		}
		bindings[i] = binding{name: clause[0].Name(), init: clause[1]}
	}
	return bindings, nil
}

// compileLet handles (let ((n1 e1) (n2 e2) ...) body...) by desugaring to
// an immediately-applied lambda: ((lambda (n1 n2 ...) body...) e1 e2 ...).
// Every init expression is evaluated in the *outer* scope, matching R5RS
// let (as opposed to let*'s sequential visibility). The named variant,
// (let loop ((n1 e1) ...) body...), is dispatched to compileNamedLet.
func (c *Compiler) compileLet(sc *scope, args []*datum.Datum, tail bool) error {
	if len(args) < 1 {
		return fmt.Errorf("compiler: let requires a binding list")
	}
	if args[0].IsSymbol() {
		return c.compileNamedLet(sc, args[0].Name(), args[1:], tail)
	}
	bindings, err := parseBindings(args[0])
	if err != nil {
		return err
	}
	body := args[1:]

	names := make([]*datum.Datum, len(bindings))
	for i, b := range bindings {
		names[i] = datum.Symbol(b.name)
	}
	chunk, err := c.compileLambdaChunk(sc, datum.List(names...), body, "let")
	if err != nil {
		return err
	}
	idx := sc.addChild(chunk)
	return c.emitImmediateCall(sc, idx, bindings, tail)
}

// compileNamedLet handles (let loop ((n1 e1) ...) body...), R5RS's looping
// variant: loop is bound, within body only, to a procedure of (n1 ...) that
// re-enters the loop when called. It desugars the same way the language
// report does, to a self-referential letrec immediately applied to the
// initial values:
//
//	(letrec ((loop (lambda (n1 ...) body...))) (loop e1 ...))
//
// which is exactly compileLetrec's one-binding case with the trailing call
// replaced by an application of the bound name instead of the letrec body —
// built directly here rather than by constructing and re-walking a
// synthetic Datum tree.
func (c *Compiler) compileNamedLet(sc *scope, name string, rest []*datum.Datum, tail bool) error {
	if len(rest) < 1 {
		return fmt.Errorf("compiler: named let requires a binding list")
	}
	bindings, err := parseBindings(rest[0])
	if err != nil {
		return err
	}
	body := rest[1:]

	params := make([]*datum.Datum, len(bindings))
	for i, b := range bindings {
		params[i] = datum.Symbol(b.name)
	}

	inner := newScope(sc)
	inner.name = "let"
	inner.declareLocal(name)

	loopChunk, err := c.compileLambdaChunk(inner, datum.List(params...), body, name)
	if err != nil {
		return err
	}
	loopIdx := inner.addChild(loopChunk)
	inner.builder.EmitUint16Operand(bytecode.OpClosure, loopIdx, 1)
	inner.builder.EmitByteOperand(bytecode.OpSetLocal, 0, 0)
	inner.builder.Emit0(bytecode.OpPop, -1)

	inner.builder.EmitByteOperand(bytecode.OpGetLocal, 0, 1)
	for _, b := range bindings {
		if err := c.compileExpr(inner, b.init, false); err != nil {
			return err
		}
	}
	if err := c.emitCallChunk(inner, len(bindings), true); err != nil {
		return err
	}
	inner.builder.Emit0(bytecode.OpReturn, -1)

	chunkIdx := sc.addChild(c.finishChunk(inner, chunkArity(1, 1, false)))
	sc.builder.EmitUint16Operand(bytecode.OpClosure, chunkIdx, 1)
	idx := sc.addConstant(unspecifiedConst())
	sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
	return c.emitCallChunk(sc, 1, tail)
}

// compileLetStar handles (let* ((n1 e1) (n2 e2) ...) body...), where each
// init expression sees the bindings before it. It desugars to nested
// single-binding lambda applications: ((lambda (n1) ((lambda (n2) ... body)
// e2)) e1).
func (c *Compiler) compileLetStar(sc *scope, args []*datum.Datum, tail bool) error {
	if len(args) < 1 {
		return fmt.Errorf("compiler: let* requires a binding list")
	}
	bindings, err := parseBindings(args[0])
	if err != nil {
		return err
	}
	return c.compileLetStarBindings(sc, bindings, args[1:], tail)
}

func (c *Compiler) compileLetStarBindings(sc *scope, bindings []binding, body []*datum.Datum, tail bool) error {
	if len(bindings) == 0 {
		return c.compileBody(sc, body, tail)
	}
	first := bindings[0]

	inner := newScope(sc)
	inner.name = "let*"
	inner.declareLocal(first.name)
	if err := c.compileLetStarBindings(inner, bindings[1:], body, true); err != nil {
		return err
	}
	inner.builder.Emit0(bytecode.OpReturn, -1)

	chunkIdx := sc.addChild(c.finishChunk(inner, chunkArity(1, 1, false)))
	sc.builder.EmitUint16Operand(bytecode.OpClosure, chunkIdx, 1)
	if err := c.compileExpr(sc, first.init, false); err != nil {
		return err
	}
	return c.emitCallChunk(sc, 1, tail)
}

// compileLetrec handles (letrec ((n1 e1) ...) body...): every name is bound
// (to the unspecified value) before any init expression runs, so the init
// expressions — almost always lambdas — can refer to each other and to
// themselves. It desugars to applying a lambda of n parameters (all
// initially unspecified) whose body assigns each in turn via SET_LOCAL
// before running the real body.
func (c *Compiler) compileLetrec(sc *scope, args []*datum.Datum, tail bool) error {
	if len(args) < 1 {
		return fmt.Errorf("compiler: letrec requires a binding list")
	}
	bindings, err := parseBindings(args[0])
	if err != nil {
		return err
	}
	body := args[1:]

	inner := newScope(sc)
	inner.name = "letrec"
	for _, b := range bindings {
		inner.declareLocal(b.name)
	}
	for i, b := range bindings {
		if err := c.compileExpr(inner, b.init, false); err != nil {
			return err
		}
		inner.builder.EmitByteOperand(bytecode.OpSetLocal, byte(i), 0)
		inner.builder.Emit0(bytecode.OpPop, -1)
	}
	if err := c.compileBody(inner, body, true); err != nil {
		return err
	}
	inner.builder.Emit0(bytecode.OpReturn, -1)

	chunkIdx := sc.addChild(c.finishChunk(inner, chunkArity(len(bindings), len(bindings), false)))
	sc.builder.EmitUint16Operand(bytecode.OpClosure, chunkIdx, 1)
	for range bindings {
		idx := sc.addConstant(unspecifiedConst())
		sc.builder.EmitUint16Operand(bytecode.OpConst, idx, 1)
	}
	return c.emitCallChunk(sc, len(bindings), tail)
}
