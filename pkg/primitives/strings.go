package primitives

import (
	"fmt"
	"strings"

	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/value"
)

func init() { register(stringBuiltins) }

var stringBuiltins = map[string]heap.PrimitiveFunc{
	"string?":        primStringP,
	"string-length":  primStringLength,
	"string-ref":     primStringRef,
	"string-set!":    primStringSet,
	"string-append":  primStringAppend,
	"substring":      primSubstring,
	"string->list":   primStringToList,
	"list->string":   primListToString,
	"string->symbol": primStringToSymbol,
	"symbol->string": primSymbolToString,
	"string=?":       primStringEq,
	"string<?":       primStringLt,
	"string>?":       primStringGt,
	"string<=?":      primStringLe,
	"string>=?":      primStringGe,
	"string-ci=?":    primStringCiEq,
	"make-string":    primMakeString,
	"string-copy":    primStringCopy,
	"string-upcase":  primStringUpcase,
	"string-downcase": primStringDowncase,
	"string":         primStringFromChars,
	"symbol?":        primSymbolP,
}

func primStringP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("string?", args, 1); err != nil {
		return value.Value{}, err
	}
	return value.Bool_(args[0].Is(value.ObjString)), nil
}

func primSymbolP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("symbol?", args, 1); err != nil {
		return value.Value{}, err
	}
	return value.Bool_(args[0].IsSymbol()), nil
}

func primStringLength(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("string-length", args, 1); err != nil {
		return value.Value{}, err
	}
	s, err := wantString("string-length", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Number(float64(len(s.Runes))), nil
}

func stringIndex(name string, s *heap.Str, idx value.Value) (int, error) {
	n, err := wantNumber(name, idx)
	if err != nil {
		return 0, err
	}
	i := int(n)
	if i < 0 || i >= len(s.Runes) {
		return 0, fmt.Errorf("%s: index %d out of range for string of length %d", name, i, len(s.Runes))
	}
	return i, nil
}

func primStringRef(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("string-ref", args, 2); err != nil {
		return value.Value{}, err
	}
	s, err := wantString("string-ref", args[0])
	if err != nil {
		return value.Value{}, err
	}
	i, err := stringIndex("string-ref", s, args[1])
	if err != nil {
		return value.Value{}, err
	}
	return value.Char(s.Runes[i]), nil
}

func primStringSet(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("string-set!", args, 3); err != nil {
		return value.Value{}, err
	}
	s, err := wantString("string-set!", args[0])
	if err != nil {
		return value.Value{}, err
	}
	i, err := stringIndex("string-set!", s, args[1])
	if err != nil {
		return value.Value{}, err
	}
	c, err := wantChar("string-set!", args[2])
	if err != nil {
		return value.Value{}, err
	}
	s.Runes[i] = c
	return value.Unspecified_(), nil
}

func primStringAppend(caller heap.VMFace, args []value.Value) (value.Value, error) {
	var buf []rune
	for i, a := range args {
		s, err := wantString("string-append", a)
		if err != nil {
			return value.Value{}, fmt.Errorf("string-append (argument %d): %w", i+1, err)
		}
		buf = append(buf, s.Runes...)
	}
	return value.FromObject(caller.Heap().NewString(string(buf))), nil
}

func primSubstring(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantRange("substring", args, 2, 3); err != nil {
		return value.Value{}, err
	}
	s, err := wantString("substring", args[0])
	if err != nil {
		return value.Value{}, err
	}
	start, err := wantNumber("substring", args[1])
	if err != nil {
		return value.Value{}, err
	}
	end := float64(len(s.Runes))
	if len(args) == 3 {
		end, err = wantNumber("substring", args[2])
		if err != nil {
			return value.Value{}, err
		}
	}
	si, ei := int(start), int(end)
	if si < 0 || ei > len(s.Runes) || si > ei {
		return value.Value{}, fmt.Errorf("substring: range [%d,%d) out of bounds for string of length %d", si, ei, len(s.Runes))
	}
	return value.FromObject(caller.Heap().NewString(string(s.Runes[si:ei]))), nil
}

func primStringToList(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("string->list", args, 1); err != nil {
		return value.Value{}, err
	}
	s, err := wantString("string->list", args[0])
	if err != nil {
		return value.Value{}, err
	}
	elems := make([]value.Value, len(s.Runes))
	for i, r := range s.Runes {
		elems[i] = value.Char(r)
	}
	return sliceToList(caller.Heap(), elems), nil
}

func primListToString(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("list->string", args, 1); err != nil {
		return value.Value{}, err
	}
	elems, err := listToSlice("list->string", args[0])
	if err != nil {
		return value.Value{}, err
	}
	runes := make([]rune, len(elems))
	for i, e := range elems {
		c, err := wantChar("list->string", e)
		if err != nil {
			return value.Value{}, err
		}
		runes[i] = c
	}
	return value.FromObject(caller.Heap().NewString(string(runes))), nil
}

func primStringFromChars(caller heap.VMFace, args []value.Value) (value.Value, error) {
	runes := make([]rune, len(args))
	for i, a := range args {
		c, err := wantChar("string", a)
		if err != nil {
			return value.Value{}, err
		}
		runes[i] = c
	}
	return value.FromObject(caller.Heap().NewString(string(runes))), nil
}

func primStringToSymbol(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("string->symbol", args, 1); err != nil {
		return value.Value{}, err
	}
	s, err := wantString("string->symbol", args[0])
	if err != nil {
		return value.Value{}, err
	}
	id := caller.Symbols().Intern(string(s.Runes))
	return value.SymbolID(id), nil
}

func primSymbolToString(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("symbol->string", args, 1); err != nil {
		return value.Value{}, err
	}
	id, err := wantSymbol("symbol->string", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.FromObject(caller.Heap().NewString(caller.Symbols().Name(id))), nil
}

func stringChainCompare(name string, args []value.Value, ok func(a, b string) bool) (value.Value, error) {
	if err := wantAtLeast(name, args, 1); err != nil {
		return value.Value{}, err
	}
	strs := make([]string, len(args))
	for i, a := range args {
		s, err := wantString(name, a)
		if err != nil {
			return value.Value{}, err
		}
		strs[i] = string(s.Runes)
	}
	for i := 0; i+1 < len(strs); i++ {
		if !ok(strs[i], strs[i+1]) {
			return value.Bool_(false), nil
		}
	}
	return value.Bool_(true), nil
}

func primStringEq(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return stringChainCompare("string=?", args, func(a, b string) bool { return a == b })
}
func primStringLt(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return stringChainCompare("string<?", args, func(a, b string) bool { return a < b })
}
func primStringGt(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return stringChainCompare("string>?", args, func(a, b string) bool { return a > b })
}
func primStringLe(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return stringChainCompare("string<=?", args, func(a, b string) bool { return a <= b })
}
func primStringGe(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return stringChainCompare("string>=?", args, func(a, b string) bool { return a >= b })
}
func primStringCiEq(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return stringChainCompare("string-ci=?", args, func(a, b string) bool {
		return strings.EqualFold(a, b)
	})
}

func primMakeString(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantRange("make-string", args, 1, 2); err != nil {
		return value.Value{}, err
	}
	n, err := wantNumber("make-string", args[0])
	if err != nil {
		return value.Value{}, err
	}
	fill := ' '
	if len(args) == 2 {
		fill, err = wantChar("make-string", args[1])
		if err != nil {
			return value.Value{}, err
		}
	}
	runes := make([]rune, int(n))
	for i := range runes {
		runes[i] = fill
	}
	return value.FromObject(caller.Heap().NewString(string(runes))), nil
}

func primStringCopy(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("string-copy", args, 1); err != nil {
		return value.Value{}, err
	}
	s, err := wantString("string-copy", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.FromObject(caller.Heap().NewString(string(s.Runes))), nil
}

func primStringUpcase(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("string-upcase", args, 1); err != nil {
		return value.Value{}, err
	}
	s, err := wantString("string-upcase", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.FromObject(caller.Heap().NewString(strings.ToUpper(string(s.Runes)))), nil
}

func primStringDowncase(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("string-downcase", args, 1); err != nil {
		return value.Value{}, err
	}
	s, err := wantString("string-downcase", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.FromObject(caller.Heap().NewString(strings.ToLower(string(s.Runes)))), nil
}
