package vm

import (
	"strings"
	"testing"

	"github.com/rmay/goscheme/pkg/compiler"
	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/primitives"
	"github.com/rmay/goscheme/pkg/symtab"
	"github.com/rmay/goscheme/pkg/value"
)

// eval compiles and runs source against a fresh heap/VM pair with the
// builtins installed, the way cmd/schemec sets up and runs a program.
func eval(t *testing.T, source string) (value.Value, error) {
	t.Helper()
	h := heap.New()
	syms := symtab.New()
	machine := New(h, syms)
	primitives.Install(h, syms, machine)
	chunk, err := compiler.New(h, syms).Compile(source)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return machine.Run(chunk)
}

func mustEval(t *testing.T, source string) value.Value {
	t.Helper()
	v, err := eval(t, source)
	if err != nil {
		t.Fatalf("runtime error for %q: %v", source, err)
	}
	return v
}

// ==========================================
// ARITHMETIC AND CONTROL FLOW
// ==========================================

func TestRunArithmetic(t *testing.T) {
	v := mustEval(t, "(+ 1 2 3)")
	if !v.IsNumber() || v.AsNumber() != 6 {
		t.Errorf("expected 6, got %v", v)
	}
}

func TestRunIf(t *testing.T) {
	v := mustEval(t, `(if (> 3 2) "yes" "no")`)
	s, ok := v.AsObject().(*heap.Str)
	if !ok || string(s.Runes) != "yes" {
		t.Errorf("expected \"yes\", got %v", v)
	}
}

func TestRunDefineAndCall(t *testing.T) {
	v := mustEval(t, `
		(define (square x) (* x x))
		(square 7)
	`)
	if !v.IsNumber() || v.AsNumber() != 49 {
		t.Errorf("expected 49, got %v", v)
	}
}

// ==========================================
// RECURSION AND TAIL CALLS
// ==========================================

func TestRunRecursiveFactorial(t *testing.T) {
	v := mustEval(t, `
		(define (fact n)
		  (if (= n 0) 1 (* n (fact (- n 1)))))
		(fact 10)
	`)
	if !v.IsNumber() || v.AsNumber() != 3628800 {
		t.Errorf("expected 3628800, got %v", v)
	}
}

// TestRunDeepTailLoop would overflow the VM's fixed-capacity value stack if
// tail calls grew frames instead of reusing the current one.
func TestRunDeepTailLoop(t *testing.T) {
	v := mustEval(t, `
		(define (loop n acc)
		  (if (= n 0) acc (loop (- n 1) (+ acc 1))))
		(loop 200000 0)
	`)
	if !v.IsNumber() || v.AsNumber() != 200000 {
		t.Errorf("expected 200000, got %v", v)
	}
}

// TestRunNamedLetTailLoop exercises the canonical named-let loop form
// directly, rather than the equivalent define-based rewrite above: named
// let desugars to a self-referential letrec whose recursive call is in
// tail position, so this should run in O(1) VM frames exactly like the
// define/loop version.
func TestRunNamedLetTailLoop(t *testing.T) {
	v := mustEval(t, `
		(let loop ((i 0))
		  (if (= i 200000) 'done (loop (+ i 1))))
	`)
	if !v.IsSymbol() {
		t.Fatalf("expected a symbol, got %v", v)
	}
}

// ==========================================
// CLOSURES
// ==========================================

func TestRunClosureCapturesUpvalue(t *testing.T) {
	v := mustEval(t, `
		(define (make-adder n)
		  (lambda (x) (+ x n)))
		(define add5 (make-adder 5))
		(add5 10)
	`)
	if !v.IsNumber() || v.AsNumber() != 15 {
		t.Errorf("expected 15, got %v", v)
	}
}

func TestRunClosureSharesMutableUpvalue(t *testing.T) {
	v := mustEval(t, `
		(define (make-counter)
		  (define n 0)
		  (lambda ()
		    (set! n (+ n 1))
		    n))
		(define c (make-counter))
		(c)
		(c)
		(c)
	`)
	if !v.IsNumber() || v.AsNumber() != 3 {
		t.Errorf("expected 3, got %v", v)
	}
}

// ==========================================
// CALL/CC
// ==========================================

func TestRunCallCCEscapeReturnsImmediately(t *testing.T) {
	v := mustEval(t, `(+ 1 (call/cc (lambda (k) (k 41) 999)))`)
	if !v.IsNumber() || v.AsNumber() != 42 {
		t.Errorf("expected 42, got %v", v)
	}
}

func TestRunCallCCUnusedContinuationFallsThrough(t *testing.T) {
	v := mustEval(t, `(call/cc (lambda (k) (+ 1 2)))`)
	if !v.IsNumber() || v.AsNumber() != 3 {
		t.Errorf("expected 3, got %v", v)
	}
}

// TestRunInvokeEscapedContinuationErrors exercises a continuation invoked
// after its capturing call/cc has already returned — two successive Run
// calls against the same VM, the way a REPL evaluates one line at a time.
// The first line captures and stashes k as a global without calling it; the
// second calls it with no enclosing CallCC left on the Go stack. This must
// come back as an ordinary error, not a panic that takes the process down.
func TestRunInvokeEscapedContinuationErrors(t *testing.T) {
	h := heap.New()
	syms := symtab.New()
	machine := New(h, syms)
	primitives.Install(h, syms, machine)
	c := compiler.New(h, syms)

	chunk, err := c.Compile(`(define saved (call/cc (lambda (k) k)))`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if _, err := machine.Run(chunk); err != nil {
		t.Fatalf("runtime error: %v", err)
	}

	chunk, err = c.Compile(`(saved 'too-late)`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if _, err := machine.Run(chunk); err == nil {
		t.Fatalf("expected an error invoking a continuation outside its call/cc's extent")
	}

	// The VM must still be usable afterward.
	v := mustEvalOn(t, machine, c, `(+ 1 1)`)
	if !v.IsNumber() || v.AsNumber() != 2 {
		t.Errorf("expected 2, got %v", v)
	}
}

func mustEvalOn(t *testing.T, machine *VM, c *compiler.Compiler, source string) value.Value {
	t.Helper()
	chunk, err := c.Compile(source)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	v, err := machine.Run(chunk)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return v
}

// ==========================================
// ERROR CASES
// ==========================================

func TestRunUnboundVariable(t *testing.T) {
	_, err := eval(t, "(+ 1 unbound-name)")
	if err == nil {
		t.Fatalf("expected an error for an unbound variable")
	}
}

func TestRunWrongArgCount(t *testing.T) {
	_, err := eval(t, `
		(define (f x y) (+ x y))
		(f 1)
	`)
	if err == nil {
		t.Fatalf("expected an arity error")
	}
}

// ==========================================
// STDOUT WIRING
// ==========================================

func TestRunDisplayWritesToConfiguredStdout(t *testing.T) {
	var out strings.Builder
	h := heap.New()
	syms := symtab.New()
	machine := New(h, syms, WithStdout(&out))
	primitives.Install(h, syms, machine)
	chunk, err := compiler.New(h, syms).Compile(`(display "hello") (display 42)`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if _, err := machine.Run(chunk); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out.String() != "hello42" {
		t.Errorf("expected %q, got %q", "hello42", out.String())
	}
}

// MaxStackSize sanity: confirms the constant did not drift out of sync with
// the fixed-capacity allocation Upvalue.Location depends on.
func TestMaxStackSizeAllocatesUpfront(t *testing.T) {
	h := heap.New()
	syms := symtab.New()
	machine := New(h, syms)
	if cap(machine.stack) != MaxStackSize {
		t.Errorf("expected stack capacity %d, got %d", MaxStackSize, cap(machine.stack))
	}
}
