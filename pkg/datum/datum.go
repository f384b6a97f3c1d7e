// Package datum implements the read-time data model: an immutable tree of
// Datum nodes produced once by the reader and thereafter referenced by the
// compiler's constant pool. Datums are not GC-managed — they live as
// ordinary Go values for the lifetime of the Chunk(s) that reference them.
package datum

import "fmt"

// Tag discriminates the kind of a Datum.
type Tag uint8

const (
	TagBool Tag = iota
	TagChar
	TagString
	TagNumber
	TagSymbol
	TagEmptyList
	TagPair // proper or improper list cell
	TagVector
	TagAbbreviation
)

func (t Tag) String() string {
	names := [...]string{"bool", "char", "string", "number", "symbol", "empty-list", "pair", "vector", "abbreviation"}
	if int(t) < len(names) {
		return names[t]
	}
	return fmt.Sprintf("tag(%d)", t)
}

// AbbrevKind names which of the four reader abbreviations a TagAbbreviation
// Datum stands for.
type AbbrevKind uint8

const (
	AbbrevQuote AbbrevKind = iota
	AbbrevQuasiquote
	AbbrevUnquote
	AbbrevUnquoteSplicing
)

func (k AbbrevKind) Symbol() string {
	switch k {
	case AbbrevQuote:
		return "quote"
	case AbbrevQuasiquote:
		return "quasiquote"
	case AbbrevUnquote:
		return "unquote"
	case AbbrevUnquoteSplicing:
		return "unquote-splicing"
	default:
		return fmt.Sprintf("abbrev(%d)", k)
	}
}

// Datum is an immutable read-time tree node: one of boolean, character,
// string literal, number (always float64 — no numeric tower beyond double
// precision), symbol, proper/improper list, vector, or abbreviation.
type Datum struct {
	tag    Tag
	b      bool
	ch     rune
	str    string
	num    float64
	sym    string
	car    *Datum // TagPair
	cdr    *Datum // TagPair
	elems  []*Datum
	abbrev AbbrevKind
	child  *Datum
}

var empty = &Datum{tag: TagEmptyList}

func Bool(b bool) *Datum           { return &Datum{tag: TagBool, b: b} }
func Char(r rune) *Datum           { return &Datum{tag: TagChar, ch: r} }
func String(s string) *Datum       { return &Datum{tag: TagString, str: s} }
func Number(f float64) *Datum      { return &Datum{tag: TagNumber, num: f} }
func Symbol(name string) *Datum    { return &Datum{tag: TagSymbol, sym: name} }
func EmptyList() *Datum            { return empty }
func Cons(car, cdr *Datum) *Datum  { return &Datum{tag: TagPair, car: car, cdr: cdr} }
func Vector(elems []*Datum) *Datum { return &Datum{tag: TagVector, elems: elems} }
func Abbreviation(kind AbbrevKind, child *Datum) *Datum {
	return &Datum{tag: TagAbbreviation, abbrev: kind, child: child}
}

// List builds a proper list from elems, terminated by the empty list.
func List(elems ...*Datum) *Datum {
	result := EmptyList()
	for i := len(elems) - 1; i >= 0; i-- {
		result = Cons(elems[i], result)
	}
	return result
}

// ImproperList builds elems terminated by tail instead of the empty list
// (a dotted list, e.g. `(a b . c)`).
func ImproperList(tail *Datum, elems ...*Datum) *Datum {
	result := tail
	for i := len(elems) - 1; i >= 0; i-- {
		result = Cons(elems[i], result)
	}
	return result
}

func (d *Datum) Tag() Tag { return d.tag }

func (d *Datum) IsPair() bool      { return d.tag == TagPair }
func (d *Datum) IsEmptyList() bool { return d.tag == TagEmptyList }
func (d *Datum) IsSymbol() bool    { return d.tag == TagSymbol }

func (d *Datum) AsBool() bool      { return d.b }
func (d *Datum) AsChar() rune      { return d.ch }
func (d *Datum) AsString() string  { return d.str }
func (d *Datum) AsNumber() float64 { return d.num }
func (d *Datum) Name() string      { return d.sym }

func (d *Datum) Car() *Datum { return d.car }
func (d *Datum) Cdr() *Datum { return d.cdr }

func (d *Datum) Elements() []*Datum { return d.elems }

func (d *Datum) AbbrevKind() AbbrevKind { return d.abbrev }
func (d *Datum) Child() *Datum          { return d.child }

// ListElements walks a proper list, returning its elements. The second
// return value is false if d is not a proper (empty-list-terminated) list.
func (d *Datum) ListElements() ([]*Datum, bool) {
	var elems []*Datum
	cur := d
	for cur.tag == TagPair {
		elems = append(elems, cur.car)
		cur = cur.cdr
	}
	return elems, cur.tag == TagEmptyList
}

// String renders a Datum the way `write` would, for error messages and
// debugging (not for REPL output — see pkg/primitives for that).
func (d *Datum) String() string {
	switch d.tag {
	case TagBool:
		if d.b {
			return "#t"
		}
		return "#f"
	case TagChar:
		return fmt.Sprintf("#\\%c", d.ch)
	case TagString:
		return fmt.Sprintf("%q", d.str)
	case TagNumber:
		return formatNumber(d.num)
	case TagSymbol:
		return d.sym
	case TagEmptyList:
		return "()"
	case TagPair:
		return listString(d)
	case TagVector:
		s := "#("
		for i, e := range d.elems {
			if i > 0 {
				s += " "
			}
			s += e.String()
		}
		return s + ")"
	case TagAbbreviation:
		prefix := map[AbbrevKind]string{
			AbbrevQuote: "'", AbbrevQuasiquote: "`", AbbrevUnquote: ",", AbbrevUnquoteSplicing: ",@",
		}[d.abbrev]
		return prefix + d.child.String()
	default:
		return "#<unknown-datum>"
	}
}

func listString(d *Datum) string {
	s := "("
	cur := d
	first := true
	for cur.tag == TagPair {
		if !first {
			s += " "
		}
		first = false
		s += cur.car.String()
		cur = cur.cdr
	}
	if cur.tag != TagEmptyList {
		s += " . " + cur.String()
	}
	return s + ")"
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) && f < 1e15 && f > -1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
