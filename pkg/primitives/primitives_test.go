package primitives

import (
	"strings"
	"testing"

	"github.com/rmay/goscheme/pkg/compiler"
	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/symtab"
	"github.com/rmay/goscheme/pkg/value"
	"github.com/rmay/goscheme/pkg/vm"
)

// eval wires a fresh heap/VM/compiler triple with every builtin installed,
// the shape cmd/schemec uses to run a whole program, then compiles and
// runs source in one shot.
func eval(t *testing.T, source string) (value.Value, *symtab.Table, error) {
	t.Helper()
	h := heap.New()
	syms := symtab.New()
	machine := vm.New(h, syms)
	Install(h, syms, machine)
	chunk, err := compiler.New(h, syms).Compile(source)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	v, err := machine.Run(chunk)
	return v, syms, err
}

func mustEval(t *testing.T, source string) value.Value {
	t.Helper()
	v, _, err := eval(t, source)
	if err != nil {
		t.Fatalf("runtime error for %q: %v", source, err)
	}
	return v
}

func evalWrite(t *testing.T, source string) string {
	t.Helper()
	v, syms, err := eval(t, source)
	if err != nil {
		t.Fatalf("runtime error for %q: %v", source, err)
	}
	return WriteString(syms, v)
}

func wantNum(t *testing.T, v value.Value, want float64) {
	t.Helper()
	if !v.IsNumber() || v.AsNumber() != want {
		t.Errorf("expected %v, got %v", want, v)
	}
}

func wantBool(t *testing.T, v value.Value, want bool) {
	t.Helper()
	if !v.IsBool() || v.AsBool() != want {
		t.Errorf("expected %v, got %v", want, v)
	}
}

// ==========================================
// NUMERIC
// ==========================================

func TestNumericArithmetic(t *testing.T) {
	wantNum(t, mustEval(t, "(+ 1 2 3)"), 6)
	wantNum(t, mustEval(t, "(- 10 3 2)"), 5)
	wantNum(t, mustEval(t, "(* 2 3 4)"), 24)
	wantNum(t, mustEval(t, "(/ 12 3 2)"), 2)
	wantNum(t, mustEval(t, "(quotient 7 2)"), 3)
	wantNum(t, mustEval(t, "(remainder 7 2)"), 1)
	wantNum(t, mustEval(t, "(modulo -7 2)"), 1)
	wantNum(t, mustEval(t, "(abs -5)"), 5)
	wantNum(t, mustEval(t, "(min 3 1 2)"), 1)
	wantNum(t, mustEval(t, "(max 3 1 2)"), 3)
	wantNum(t, mustEval(t, "(expt 2 10)"), 1024)
}

func TestNumericComparisons(t *testing.T) {
	wantBool(t, mustEval(t, "(= 1 1 1)"), true)
	wantBool(t, mustEval(t, "(< 1 2 3)"), true)
	wantBool(t, mustEval(t, "(> 3 2 1)"), true)
	wantBool(t, mustEval(t, "(zero? 0)"), true)
	wantBool(t, mustEval(t, "(even? 4)"), true)
	wantBool(t, mustEval(t, "(odd? 3)"), true)
}

func TestNumericDivideByZeroErrors(t *testing.T) {
	_, _, err := eval(t, "(/ 1 0)")
	if err == nil {
		t.Fatalf("expected a division-by-zero error")
	}
}

func TestNumberToStringRoundTrip(t *testing.T) {
	if got := evalWrite(t, `(number->string 42)`); got != `"42"` {
		t.Errorf("expected quoted \"42\", got %s", got)
	}
	wantNum(t, mustEval(t, `(string->number "3.5")`), 3.5)
}

// ==========================================
// PAIRS AND LISTS
// ==========================================

func TestPairsConsCarCdr(t *testing.T) {
	wantNum(t, mustEval(t, "(car (cons 1 2))"), 1)
	wantNum(t, mustEval(t, "(cdr (cons 1 2))"), 2)
}

func TestListOperations(t *testing.T) {
	wantNum(t, mustEval(t, "(length (list 1 2 3 4))"), 4)
	wantBool(t, mustEval(t, "(list? (list 1 2 3))"), true)
	wantBool(t, mustEval(t, "(null? (list))"), true)
	if got := evalWrite(t, "(reverse (list 1 2 3))"); got != "(3 2 1)" {
		t.Errorf("expected (3 2 1), got %s", got)
	}
	if got := evalWrite(t, "(append (list 1 2) (list 3 4))"); got != "(1 2 3 4)" {
		t.Errorf("expected (1 2 3 4), got %s", got)
	}
}

func TestListDetectsCircularStructure(t *testing.T) {
	// (define l (list 1 2 3)) (set-cdr! (cddr l) l) builds a 3-cycle.
	wantBool(t, mustEval(t, `
		(define l (list 1 2 3))
		(set-cdr! (cdr (cdr l)) l)
		(list? l)
	`), false)
}

func TestMapAndForEach(t *testing.T) {
	if got := evalWrite(t, "(map (lambda (x) (* x x)) (list 1 2 3))"); got != "(1 4 9)" {
		t.Errorf("expected (1 4 9), got %s", got)
	}
	wantNum(t, mustEval(t, `
		(define total 0)
		(for-each (lambda (x) (set! total (+ total x))) (list 1 2 3))
		total
	`), 6)
}

func TestAssocFamily(t *testing.T) {
	if got := evalWrite(t, `(assoc 2 (list (list 1 'a) (list 2 'b)))`); got != "(2 b)" {
		t.Errorf("expected (2 b), got %s", got)
	}
	wantBool(t, mustEval(t, `(assoc 9 (list (list 1 'a)))`), false)
}

// ==========================================
// EQUALITY
// ==========================================

func TestEqualityLevels(t *testing.T) {
	wantBool(t, mustEval(t, "(eq? 'a 'a)"), true)
	wantBool(t, mustEval(t, "(equal? (list 1 2) (list 1 2))"), true)
	wantBool(t, mustEval(t, "(eq? (list 1 2) (list 1 2))"), false)
}

func TestEqualHandlesCircularStructure(t *testing.T) {
	// equal? on a pair of self-referential lists must terminate, not loop.
	wantBool(t, mustEval(t, `
		(define a (list 1 2 3))
		(set-cdr! (cdr (cdr a)) a)
		(define b (list 1 2 3))
		(set-cdr! (cdr (cdr b)) b)
		(equal? a b)
	`), true)
}

// ==========================================
// STRINGS AND CHARS
// ==========================================

func TestStringOperations(t *testing.T) {
	wantNum(t, mustEval(t, `(string-length "hello")`), 5)
	if got := evalWrite(t, `(string-append "foo" "bar")`); got != `"foobar"` {
		t.Errorf("expected \"foobar\", got %s", got)
	}
	if got := evalWrite(t, `(substring "hello world" 0 5)`); got != `"hello"` {
		t.Errorf("expected \"hello\", got %s", got)
	}
	wantBool(t, mustEval(t, `(string=? "abc" "abc")`), true)
}

func TestCharOperations(t *testing.T) {
	wantNum(t, mustEval(t, `(char->integer #\A)`), 65)
	wantBool(t, mustEval(t, `(char-alphabetic? #\a)`), true)
	wantBool(t, mustEval(t, `(char-numeric? #\5)`), true)
}

func TestSymbolStringConversion(t *testing.T) {
	if got := evalWrite(t, `(symbol->string 'hello)`); got != `"hello"` {
		t.Errorf("expected \"hello\", got %s", got)
	}
	wantBool(t, mustEval(t, `(eq? (string->symbol "world") 'world)`), true)
}

// ==========================================
// VECTORS
// ==========================================

func TestVectorOperations(t *testing.T) {
	wantNum(t, mustEval(t, `(vector-length (vector 1 2 3))`), 3)
	wantNum(t, mustEval(t, `(vector-ref (vector 10 20 30) 1)`), 20)
	if got := evalWrite(t, `(vector->list (vector 1 2 3))`); got != "(1 2 3)" {
		t.Errorf("expected (1 2 3), got %s", got)
	}
	if got := evalWrite(t, `(vector-map (lambda (x) (+ x 1)) (vector 1 2 3))`); got != "#(2 3 4)" {
		t.Errorf("expected #(2 3 4), got %s", got)
	}
}

// ==========================================
// CONTROL
// ==========================================

func TestApplySpreadsFinalList(t *testing.T) {
	wantNum(t, mustEval(t, `(apply + 1 2 (list 3 4))`), 10)
}

func TestErrorCarriesIrritants(t *testing.T) {
	_, _, err := eval(t, `(error "bad value:" 42 'foo)`)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(err.Error(), "bad value:") || !strings.Contains(err.Error(), "42") {
		t.Errorf("expected message and irritants in error text, got %q", err.Error())
	}
}

// ==========================================
// I/O
// ==========================================

func TestDisplayWritesToStdout(t *testing.T) {
	var out strings.Builder
	h := heap.New()
	syms := symtab.New()
	machine := vm.New(h, syms, vm.WithStdout(&out))
	Install(h, syms, machine)
	chunk, err := compiler.New(h, syms).Compile(`(display "abc") (display 1) (newline)`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if _, err := machine.Run(chunk); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out.String() != "abc1\n" {
		t.Errorf("expected %q, got %q", "abc1\n", out.String())
	}
}

func TestStringPortRoundTrip(t *testing.T) {
	wantBool(t, mustEval(t, `
		(define out (open-output-string))
		(display "hi" out)
		(string=? (get-output-string out) "hi")
	`), true)
}

func TestReadCharFromStringPort(t *testing.T) {
	if got := evalWrite(t, `
		(define in (open-input-string "ab"))
		(list (read-char in) (read-char in) (eof-object? (read-char in)))
	`); got != `(#\a #\b #t)` {
		t.Errorf("expected (#\\a #\\b #t), got %s", got)
	}
}

// ==========================================
// PREDICATES AND PRINTER
// ==========================================

func TestProcedurePredicate(t *testing.T) {
	wantBool(t, mustEval(t, `(procedure? car)`), true)
	wantBool(t, mustEval(t, `(procedure? (lambda (x) x))`), true)
	wantBool(t, mustEval(t, `(procedure? 5)`), false)
}

func TestWriteQuotesStringsDisplayDoesNot(t *testing.T) {
	if got := evalWrite(t, `"hi"`); got != `"hi"` {
		t.Errorf("expected quoted string from write, got %s", got)
	}
	var out strings.Builder
	h := heap.New()
	syms := symtab.New()
	machine := vm.New(h, syms, vm.WithStdout(&out))
	Install(h, syms, machine)
	chunk, _ := compiler.New(h, syms).Compile(`(display "hi")`)
	if _, err := machine.Run(chunk); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out.String() != "hi" {
		t.Errorf("expected unquoted hi from display, got %q", out.String())
	}
}

// ==========================================
// META: compile / disassemble / read
// ==========================================

func TestCompileRoundTripsCallableClosure(t *testing.T) {
	wantNum(t, mustEval(t, `((compile '(lambda (x) (* x x))) 7)`), 49)
}

func TestCompileOfPlainExpressionEvaluatesIt(t *testing.T) {
	wantNum(t, mustEval(t, `(compile '(+ 1 2 3))`), 6)
}

func TestDisassembleWritesToStdout(t *testing.T) {
	var out strings.Builder
	h := heap.New()
	syms := symtab.New()
	machine := vm.New(h, syms, vm.WithStdout(&out))
	Install(h, syms, machine)
	chunk, err := compiler.New(h, syms).Compile(`(disassemble (lambda (x) (+ x 1)))`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if _, err := machine.Run(chunk); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if !strings.Contains(out.String(), "GET_LOCAL") {
		t.Errorf("expected disassembly to mention GET_LOCAL, got %q", out.String())
	}
}

func TestReadFromStringPortReturnsQuotedData(t *testing.T) {
	if got := evalWrite(t, `(read (open-input-string "(1 2 three)"))`); got != "(1 2 three)" {
		t.Errorf("expected (1 2 three), got %s", got)
	}
}

func TestReadAtEOFReturnsEOFObject(t *testing.T) {
	wantBool(t, mustEval(t, `(eof-object? (read (open-input-string "")))`), true)
}
