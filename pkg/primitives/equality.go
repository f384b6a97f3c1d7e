package primitives

import (
	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/value"
)

func init() { register(equalityBuiltins) }

var equalityBuiltins = map[string]heap.PrimitiveFunc{
	"eq?":    primEqP,
	"eqv?":   primEqvP,
	"equal?": primEqualP,
	"not":    primNot,
}

func primEqP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("eq?", args, 2); err != nil {
		return value.Value{}, err
	}
	return value.Bool_(eqValues(args[0], args[1])), nil
}

func primEqvP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("eqv?", args, 2); err != nil {
		return value.Value{}, err
	}
	return value.Bool_(eqvValues(args[0], args[1])), nil
}

func primEqualP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("equal?", args, 2); err != nil {
		return value.Value{}, err
	}
	return value.Bool_(equalValues(args[0], args[1])), nil
}

func primNot(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("not", args, 1); err != nil {
		return value.Value{}, err
	}
	return value.Bool_(!args[0].IsTruthy()), nil
}

// eqValues is identity comparison: atoms of the same tag and bit pattern,
// or object/box values sharing the same heap pointer.
func eqValues(a, b value.Value) bool {
	if a.Tag() != b.Tag() {
		return false
	}
	switch a.Tag() {
	case value.TagUnspecified, value.TagEmptyList:
		return true
	case value.TagBool:
		return a.AsBool() == b.AsBool()
	case value.TagChar:
		return a.AsChar() == b.AsChar()
	case value.TagNumber:
		return a.AsNumber() == b.AsNumber()
	case value.TagSymbol:
		return a.AsSymbolID() == b.AsSymbolID()
	case value.TagObj:
		return a.AsObject() == b.AsObject()
	default:
		return false
	}
}

// eqvValues matches R5RS eqv?: like eq? but numbers and characters compare
// by value rather than identity — which for this interpreter's
// representation (Value is a small struct, not a boxed pointer for those
// tags) eq? already does, so the two coincide here.
func eqvValues(a, b value.Value) bool { return eqValues(a, b) }

// equalValues is structural equality: recurses through pairs and vectors,
// compares strings rune-by-rune, and otherwise falls back to eqv?. Guards
// against circular pairs with a visited-pointer set so a self-referential
// list compared against itself terminates instead of recursing forever.
func equalValues(a, b value.Value) bool {
	return equalWithSeen(a, b, map[[2]*heap.Pair]bool{})
}

func equalWithSeen(a, b value.Value, seen map[[2]*heap.Pair]bool) bool {
	if pa, ok := asPair(a); ok {
		pb, ok := asPair(b)
		if !ok {
			return false
		}
		key := [2]*heap.Pair{pa, pb}
		if seen[key] {
			return true
		}
		seen[key] = true
		return equalWithSeen(pa.Car, pb.Car, seen) && equalWithSeen(pa.Cdr, pb.Cdr, seen)
	}
	if va, ok := asVector(a); ok {
		vb, ok := asVector(b)
		if !ok || len(va.Elems) != len(vb.Elems) {
			return false
		}
		for i := range va.Elems {
			if !equalWithSeen(va.Elems[i], vb.Elems[i], seen) {
				return false
			}
		}
		return true
	}
	if sa, ok := asString(a); ok {
		sb, ok := asString(b)
		if !ok || len(sa.Runes) != len(sb.Runes) {
			return false
		}
		for i := range sa.Runes {
			if sa.Runes[i] != sb.Runes[i] {
				return false
			}
		}
		return true
	}
	return eqvValues(a, b)
}
