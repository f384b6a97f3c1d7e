package datum

import "testing"

// ==========================================
// ATOMS
// ==========================================

func TestReadNumber(t *testing.T) {
	d, err := NewReader("42").Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if d.Tag() != TagNumber || d.AsNumber() != 42 {
		t.Errorf("expected number 42, got %v", d)
	}
}

func TestReadNegativeNumber(t *testing.T) {
	d, err := NewReader("-17.5").Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if d.Tag() != TagNumber || d.AsNumber() != -17.5 {
		t.Errorf("expected -17.5, got %v", d)
	}
}

func TestReadBooleans(t *testing.T) {
	tru, err := NewReader("#t").Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if tru.Tag() != TagBool || tru.AsBool() != true {
		t.Errorf("expected #t, got %v", tru)
	}
	fal, err := NewReader("#f").Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if fal.Tag() != TagBool || fal.AsBool() != false {
		t.Errorf("expected #f, got %v", fal)
	}
}

func TestReadCharNamed(t *testing.T) {
	d, err := NewReader(`#\space`).Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if d.Tag() != TagChar || d.AsChar() != ' ' {
		t.Errorf("expected #\\space, got %v", d)
	}
}

func TestReadCharLiteral(t *testing.T) {
	d, err := NewReader(`#\a`).Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if d.Tag() != TagChar || d.AsChar() != 'a' {
		t.Errorf("expected #\\a, got %v", d)
	}
}

func TestReadString(t *testing.T) {
	d, err := NewReader(`"hello\nworld"`).Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if d.Tag() != TagString || d.AsString() != "hello\nworld" {
		t.Errorf("expected escaped string, got %q", d.AsString())
	}
}

func TestReadSymbol(t *testing.T) {
	d, err := NewReader("list->vector").Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if d.Tag() != TagSymbol || d.Name() != "list->vector" {
		t.Errorf("expected symbol list->vector, got %v", d)
	}
}

// ==========================================
// LISTS AND VECTORS
// ==========================================

func TestReadProperList(t *testing.T) {
	d, err := NewReader("(1 2 3)").Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	elems, proper := d.ListElements()
	if !proper {
		t.Fatalf("expected proper list")
	}
	if len(elems) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(elems))
	}
	for i, want := range []float64{1, 2, 3} {
		if elems[i].AsNumber() != want {
			t.Errorf("element %d: expected %v, got %v", i, want, elems[i].AsNumber())
		}
	}
}

func TestReadEmptyList(t *testing.T) {
	d, err := NewReader("()").Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if !d.IsEmptyList() {
		t.Errorf("expected empty list, got %v", d)
	}
}

func TestReadDottedPair(t *testing.T) {
	d, err := NewReader("(1 . 2)").Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if !d.IsPair() || d.Car().AsNumber() != 1 || d.Cdr().AsNumber() != 2 {
		t.Errorf("expected (1 . 2), got %v", d)
	}
}

func TestReadNestedList(t *testing.T) {
	d, err := NewReader("(define (f x) (+ x 1))").Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	elems, proper := d.ListElements()
	if !proper || len(elems) != 3 {
		t.Fatalf("expected 3-element define form, got %v", d)
	}
	if elems[0].Name() != "define" {
		t.Errorf("expected leading symbol define, got %v", elems[0])
	}
}

func TestReadVector(t *testing.T) {
	d, err := NewReader("#(1 2 3)").Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if d.Tag() != TagVector || len(d.Elements()) != 3 {
		t.Errorf("expected 3-element vector, got %v", d)
	}
}

// ==========================================
// ABBREVIATIONS
// ==========================================

func TestReadQuoteAbbreviation(t *testing.T) {
	d, err := NewReader("'foo").Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if d.Tag() != TagAbbreviation || d.AbbrevKind() != AbbrevQuote || d.Child().Name() != "foo" {
		t.Errorf("expected 'foo abbreviation, got %v", d)
	}
}

func TestReadQuasiquoteAndUnquote(t *testing.T) {
	d, err := NewReader("`(a ,b ,@c)").Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if d.Tag() != TagAbbreviation || d.AbbrevKind() != AbbrevQuasiquote {
		t.Fatalf("expected quasiquote wrapper, got %v", d)
	}
	elems, proper := d.Child().ListElements()
	if !proper || len(elems) != 3 {
		t.Fatalf("expected 3-element body, got %v", d.Child())
	}
	if elems[1].AbbrevKind() != AbbrevUnquote {
		t.Errorf("expected unquote at position 1, got %v", elems[1])
	}
	if elems[2].AbbrevKind() != AbbrevUnquoteSplicing {
		t.Errorf("expected unquote-splicing at position 2, got %v", elems[2])
	}
}

// ==========================================
// MULTIPLE TOP-LEVEL FORMS
// ==========================================

func TestReadAllMultipleForms(t *testing.T) {
	data, err := NewReader("(define x 1) (define y 2) (+ x y)").ReadAll()
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("expected 3 top-level forms, got %d", len(data))
	}
}

func TestReadAllSkipsComments(t *testing.T) {
	data, err := NewReader("; a leading comment\n(+ 1 2) ; trailing").ReadAll()
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if len(data) != 1 {
		t.Fatalf("expected 1 form, got %d", len(data))
	}
}

// ==========================================
// ERROR CASES
// ==========================================

func TestReadUnclosedList(t *testing.T) {
	_, err := NewReader("(1 2 3").Read()
	if err == nil {
		t.Fatalf("expected error for unclosed list")
	}
}

func TestReadUnclosedString(t *testing.T) {
	_, err := NewReader(`"abc`).Read()
	if err == nil {
		t.Fatalf("expected error for unclosed string")
	}
}

func TestReadUnexpectedCloseParen(t *testing.T) {
	_, err := NewReader(")").Read()
	if err == nil {
		t.Fatalf("expected error for unexpected )")
	}
}

func TestReadDanglingAbbreviation(t *testing.T) {
	_, err := NewReader("'").Read()
	if err == nil {
		t.Fatalf("expected error for dangling quote")
	}
}
