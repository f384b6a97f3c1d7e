package compiler

import (
	"fmt"

	"github.com/rmay/goscheme/pkg/datum"
	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/symtab"
	"github.com/rmay/goscheme/pkg/value"
)

// ValueToDatum is QuoteDatum's inverse: it turns a runtime Value — typically
// program text read back with the `read` primitive, or built with `list`/
// `cons` at runtime — into the Datum tree `compile` feeds the compiler.
// Unlike QuoteDatum this needs no Heap (it only reads heap objects, never
// allocates one), so it takes the symbol table directly rather than
// hanging off a *Compiler.
func ValueToDatum(syms *symtab.Table, v value.Value) (*datum.Datum, error) {
	switch v.Tag() {
	case value.TagNumber:
		return datum.Number(v.AsNumber()), nil
	case value.TagBool:
		return datum.Bool(v.AsBool()), nil
	case value.TagChar:
		return datum.Char(v.AsChar()), nil
	case value.TagSymbol:
		return datum.Symbol(syms.Name(v.AsSymbolID())), nil
	case value.TagEmptyList:
		return datum.EmptyList(), nil
	case value.TagObj:
		return objectToDatum(syms, v)
	default:
		return nil, fmt.Errorf("compiler: cannot compile a value of tag %s", v.Tag())
	}
}

func objectToDatum(syms *symtab.Table, v value.Value) (*datum.Datum, error) {
	tag, _ := v.ObjectTag()
	switch tag {
	case value.ObjString:
		s := v.AsObject().(*heap.Str)
		return datum.String(string(s.Runes)), nil
	case value.ObjPair:
		p := v.AsObject().(*heap.Pair)
		car, err := ValueToDatum(syms, p.Car)
		if err != nil {
			return nil, err
		}
		cdr, err := ValueToDatum(syms, p.Cdr)
		if err != nil {
			return nil, err
		}
		return datum.Cons(car, cdr), nil
	case value.ObjVector:
		vec := v.AsObject().(*heap.Vector)
		elems := make([]*datum.Datum, len(vec.Elems))
		for i, e := range vec.Elems {
			d, err := ValueToDatum(syms, e)
			if err != nil {
				return nil, err
			}
			elems[i] = d
		}
		return datum.Vector(elems), nil
	default:
		return nil, fmt.Errorf("compiler: cannot compile an opaque %s value", tag)
	}
}
