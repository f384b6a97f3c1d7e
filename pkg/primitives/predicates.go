package primitives

import (
	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/value"
)

func init() { register(predicateBuiltins) }

var predicateBuiltins = map[string]heap.PrimitiveFunc{
	"boolean?":   primBooleanP,
	"procedure?": primProcedureP,
}

func primBooleanP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("boolean?", args, 1); err != nil {
		return value.Value{}, err
	}
	return value.Bool_(args[0].IsBool()), nil
}

func primProcedureP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("procedure?", args, 1); err != nil {
		return value.Value{}, err
	}
	tag, ok := args[0].ObjectTag()
	if !ok {
		return value.Bool_(false), nil
	}
	switch tag {
	case value.ObjClosure, value.ObjPrimitive, value.ObjContinuation:
		return value.Bool_(true), nil
	default:
		return value.Bool_(false), nil
	}
}
