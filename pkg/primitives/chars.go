package primitives

import (
	"unicode"

	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/value"
)

func init() { register(charBuiltins) }

var charBuiltins = map[string]heap.PrimitiveFunc{
	"char?":          primCharP,
	"char->integer":  primCharToInteger,
	"integer->char":  primIntegerToChar,
	"char=?":         primCharEq,
	"char<?":         primCharLt,
	"char>?":         primCharGt,
	"char<=?":        primCharLe,
	"char>=?":        primCharGe,
	"char-ci=?":      primCharCiEq,
	"char-upcase":    primCharUpcase,
	"char-downcase":  primCharDowncase,
	"char-alphabetic?": primCharAlphabetic,
	"char-numeric?":  primCharNumeric,
	"char-whitespace?": primCharWhitespace,
	"char-upper-case?": primCharUpperCase,
	"char-lower-case?": primCharLowerCase,
}

func primCharP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("char?", args, 1); err != nil {
		return value.Value{}, err
	}
	return value.Bool_(args[0].IsChar()), nil
}

func primCharToInteger(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("char->integer", args, 1); err != nil {
		return value.Value{}, err
	}
	c, err := wantChar("char->integer", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Number(float64(c)), nil
}

func primIntegerToChar(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("integer->char", args, 1); err != nil {
		return value.Value{}, err
	}
	n, err := wantNumber("integer->char", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Char(rune(int32(n))), nil
}

func charChainCompare(name string, args []value.Value, ok func(a, b rune) bool) (value.Value, error) {
	if err := wantAtLeast(name, args, 1); err != nil {
		return value.Value{}, err
	}
	runes := make([]rune, len(args))
	for i, a := range args {
		c, err := wantChar(name, a)
		if err != nil {
			return value.Value{}, err
		}
		runes[i] = c
	}
	for i := 0; i+1 < len(runes); i++ {
		if !ok(runes[i], runes[i+1]) {
			return value.Bool_(false), nil
		}
	}
	return value.Bool_(true), nil
}

func primCharEq(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return charChainCompare("char=?", args, func(a, b rune) bool { return a == b })
}
func primCharLt(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return charChainCompare("char<?", args, func(a, b rune) bool { return a < b })
}
func primCharGt(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return charChainCompare("char>?", args, func(a, b rune) bool { return a > b })
}
func primCharLe(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return charChainCompare("char<=?", args, func(a, b rune) bool { return a <= b })
}
func primCharGe(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return charChainCompare("char>=?", args, func(a, b rune) bool { return a >= b })
}
func primCharCiEq(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return charChainCompare("char-ci=?", args, func(a, b rune) bool {
		return unicode.ToLower(a) == unicode.ToLower(b)
	})
}

func primCharUpcase(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("char-upcase", args, 1); err != nil {
		return value.Value{}, err
	}
	c, err := wantChar("char-upcase", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Char(unicode.ToUpper(c)), nil
}

func primCharDowncase(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("char-downcase", args, 1); err != nil {
		return value.Value{}, err
	}
	c, err := wantChar("char-downcase", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Char(unicode.ToLower(c)), nil
}

func oneCharPredicate(name string, args []value.Value, pred func(rune) bool) (value.Value, error) {
	if err := wantExact(name, args, 1); err != nil {
		return value.Value{}, err
	}
	c, err := wantChar(name, args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool_(pred(c)), nil
}

func primCharAlphabetic(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return oneCharPredicate("char-alphabetic?", args, unicode.IsLetter)
}
func primCharNumeric(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return oneCharPredicate("char-numeric?", args, unicode.IsDigit)
}
func primCharWhitespace(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return oneCharPredicate("char-whitespace?", args, unicode.IsSpace)
}
func primCharUpperCase(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return oneCharPredicate("char-upper-case?", args, unicode.IsUpper)
}
func primCharLowerCase(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return oneCharPredicate("char-lower-case?", args, unicode.IsLower)
}
