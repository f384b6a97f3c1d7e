// Package primitives registers every Go-implemented procedure the virtual
// machine's global environment starts with: arithmetic, pair/list/vector/
// string/char operations, equality predicates, apply/call-cc, and I/O.
// Each one is a heap.PrimitiveFunc wrapped into a heap.Primitive by Install,
// binding it as a first-class procedure value in the global environment
// rather than inlining it into the instruction stream.
package primitives

import (
	"fmt"

	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/symtab"
	"github.com/rmay/goscheme/pkg/value"
)

// Definer is the slice of *vm.VM Install needs: enough to bind a symbol id
// to a global value. Kept as a small interface, the same way
// heap.VMFace decouples pkg/heap from pkg/vm, so this package need not
// import pkg/vm either.
type Definer interface {
	DefineGlobal(id int32, v value.Value)
}

// Install allocates one heap.Primitive per registered builtin and binds it
// under its Scheme name in the global environment.
func Install(h *heap.Heap, syms *symtab.Table, def Definer) {
	for name, fn := range builtins {
		p := h.NewPrimitive(name, fn)
		def.DefineGlobal(syms.Intern(name), value.FromObject(p))
	}
}

// builtins is assembled from each concern's own file-local map via init,
// rather than one giant literal, so each file reads as a self-contained
// unit — arithmetic, then pairs, then strings, and so on.
var builtins = map[string]heap.PrimitiveFunc{}

func register(group map[string]heap.PrimitiveFunc) {
	for name, fn := range group {
		if _, dup := builtins[name]; dup {
			panic(fmt.Sprintf("primitives: duplicate registration for %q", name))
		}
		builtins[name] = fn
	}
}

// arity-checking helpers shared by every primitive.

func wantExact(name string, args []value.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func wantAtLeast(name string, args []value.Value, n int) error {
	if len(args) < n {
		return fmt.Errorf("%s: expects at least %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func wantRange(name string, args []value.Value, min, max int) error {
	if len(args) < min || len(args) > max {
		return fmt.Errorf("%s: expects between %d and %d argument(s), got %d", name, min, max, len(args))
	}
	return nil
}

func wantNumber(name string, v value.Value) (float64, error) {
	if !v.IsNumber() {
		return 0, fmt.Errorf("%s: expects a number, got %s", name, typeName(v))
	}
	return v.AsNumber(), nil
}

func wantPair(name string, v value.Value) (*heap.Pair, error) {
	p, ok := asPair(v)
	if !ok {
		return nil, fmt.Errorf("%s: expects a pair, got %s", name, typeName(v))
	}
	return p, nil
}

func wantString(name string, v value.Value) (*heap.Str, error) {
	s, ok := asString(v)
	if !ok {
		return nil, fmt.Errorf("%s: expects a string, got %s", name, typeName(v))
	}
	return s, nil
}

func wantVector(name string, v value.Value) (*heap.Vector, error) {
	vec, ok := asVector(v)
	if !ok {
		return nil, fmt.Errorf("%s: expects a vector, got %s", name, typeName(v))
	}
	return vec, nil
}

func wantChar(name string, v value.Value) (rune, error) {
	if !v.IsChar() {
		return 0, fmt.Errorf("%s: expects a character, got %s", name, typeName(v))
	}
	return v.AsChar(), nil
}

func wantSymbol(name string, v value.Value) (int32, error) {
	if !v.IsSymbol() {
		return 0, fmt.Errorf("%s: expects a symbol, got %s", name, typeName(v))
	}
	return v.AsSymbolID(), nil
}

func asPair(v value.Value) (*heap.Pair, bool) {
	if !v.Is(value.ObjPair) {
		return nil, false
	}
	return v.AsObject().(*heap.Pair), true
}

func asVector(v value.Value) (*heap.Vector, bool) {
	if !v.Is(value.ObjVector) {
		return nil, false
	}
	return v.AsObject().(*heap.Vector), true
}

func asString(v value.Value) (*heap.Str, bool) {
	if !v.Is(value.ObjString) {
		return nil, false
	}
	return v.AsObject().(*heap.Str), true
}

func asPort(v value.Value) (*heap.Port, bool) {
	if !v.Is(value.ObjPort) {
		return nil, false
	}
	return v.AsObject().(*heap.Port), true
}

// typeName renders a Value's type for error messages the way a REPL user
// would name it, not the internal Tag/ObjectTag spelling.
func typeName(v value.Value) string {
	switch v.Tag() {
	case value.TagUnspecified:
		return "unspecified"
	case value.TagBool:
		return "boolean"
	case value.TagChar:
		return "character"
	case value.TagNumber:
		return "number"
	case value.TagSymbol:
		return "symbol"
	case value.TagEmptyList:
		return "empty list"
	case value.TagObj:
		tag, _ := v.ObjectTag()
		switch tag {
		case value.ObjPair:
			return "pair"
		case value.ObjVector:
			return "vector"
		case value.ObjString:
			return "string"
		case value.ObjPort:
			return "port"
		case value.ObjClosure, value.ObjPrimitive, value.ObjContinuation:
			return "procedure"
		case value.ObjChunk:
			return "chunk"
		}
	}
	return "value"
}

// listToSlice walks a proper list into a Go slice, erroring on any
// improper tail.
func listToSlice(name string, v value.Value) ([]value.Value, error) {
	var out []value.Value
	for {
		if v.IsEmptyList() {
			return out, nil
		}
		p, ok := asPair(v)
		if !ok {
			return nil, fmt.Errorf("%s: expects a proper list", name)
		}
		out = append(out, p.Car)
		v = p.Cdr
	}
}

// sliceToList builds a proper list from a Go slice, right to left.
func sliceToList(h *heap.Heap, elems []value.Value) value.Value {
	result := value.EmptyList_()
	for i := len(elems) - 1; i >= 0; i-- {
		result = value.FromObject(h.NewPair(elems[i], result))
	}
	return result
}
