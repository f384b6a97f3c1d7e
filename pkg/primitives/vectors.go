package primitives

import (
	"fmt"

	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/value"
)

func init() { register(vectorBuiltins) }

var vectorBuiltins = map[string]heap.PrimitiveFunc{
	"vector":        primVector,
	"make-vector":   primMakeVector,
	"vector-ref":    primVectorRef,
	"vector-set!":   primVectorSet,
	"vector-length": primVectorLength,
	"vector?":       primVectorP,
	"vector->list":  primVectorToList,
	"list->vector":  primListToVector,
	"vector-fill!":  primVectorFill,
	"vector-copy":   primVectorCopy,
	"vector-map":    primVectorMap,
	"vector-for-each": primVectorForEach,
}

func primVector(caller heap.VMFace, args []value.Value) (value.Value, error) {
	elems := append([]value.Value(nil), args...)
	return value.FromObject(caller.Heap().NewVector(elems)), nil
}

func primMakeVector(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantRange("make-vector", args, 1, 2); err != nil {
		return value.Value{}, err
	}
	n, err := wantNumber("make-vector", args[0])
	if err != nil {
		return value.Value{}, err
	}
	fill := value.Unspecified_()
	if len(args) == 2 {
		fill = args[1]
	}
	elems := make([]value.Value, int(n))
	for i := range elems {
		elems[i] = fill
	}
	return value.FromObject(caller.Heap().NewVector(elems)), nil
}

func vectorIndex(name string, vec *heap.Vector, idx value.Value) (int, error) {
	n, err := wantNumber(name, idx)
	if err != nil {
		return 0, err
	}
	i := int(n)
	if i < 0 || i >= len(vec.Elems) {
		return 0, fmt.Errorf("%s: index %d out of range for vector of length %d", name, i, len(vec.Elems))
	}
	return i, nil
}

func primVectorRef(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("vector-ref", args, 2); err != nil {
		return value.Value{}, err
	}
	vec, err := wantVector("vector-ref", args[0])
	if err != nil {
		return value.Value{}, err
	}
	i, err := vectorIndex("vector-ref", vec, args[1])
	if err != nil {
		return value.Value{}, err
	}
	return vec.Elems[i], nil
}

func primVectorSet(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("vector-set!", args, 3); err != nil {
		return value.Value{}, err
	}
	vec, err := wantVector("vector-set!", args[0])
	if err != nil {
		return value.Value{}, err
	}
	i, err := vectorIndex("vector-set!", vec, args[1])
	if err != nil {
		return value.Value{}, err
	}
	vec.Elems[i] = args[2]
	return value.Unspecified_(), nil
}

func primVectorLength(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("vector-length", args, 1); err != nil {
		return value.Value{}, err
	}
	vec, err := wantVector("vector-length", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Number(float64(len(vec.Elems))), nil
}

func primVectorP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("vector?", args, 1); err != nil {
		return value.Value{}, err
	}
	return value.Bool_(args[0].Is(value.ObjVector)), nil
}

func primVectorToList(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("vector->list", args, 1); err != nil {
		return value.Value{}, err
	}
	vec, err := wantVector("vector->list", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return sliceToList(caller.Heap(), vec.Elems), nil
}

func primListToVector(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("list->vector", args, 1); err != nil {
		return value.Value{}, err
	}
	elems, err := listToSlice("list->vector", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.FromObject(caller.Heap().NewVector(elems)), nil
}

func primVectorFill(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("vector-fill!", args, 2); err != nil {
		return value.Value{}, err
	}
	vec, err := wantVector("vector-fill!", args[0])
	if err != nil {
		return value.Value{}, err
	}
	for i := range vec.Elems {
		vec.Elems[i] = args[1]
	}
	return value.Unspecified_(), nil
}

func primVectorCopy(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("vector-copy", args, 1); err != nil {
		return value.Value{}, err
	}
	vec, err := wantVector("vector-copy", args[0])
	if err != nil {
		return value.Value{}, err
	}
	cp := append([]value.Value(nil), vec.Elems...)
	return value.FromObject(caller.Heap().NewVector(cp)), nil
}

func primVectorMap(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantAtLeast("vector-map", args, 2); err != nil {
		return value.Value{}, err
	}
	proc := args[0]
	vecs := make([]*heap.Vector, len(args)-1)
	n := -1
	for i, v := range args[1:] {
		vec, err := wantVector("vector-map", v)
		if err != nil {
			return value.Value{}, err
		}
		vecs[i] = vec
		if n == -1 || len(vec.Elems) < n {
			n = len(vec.Elems)
		}
	}
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		call := make([]value.Value, len(vecs))
		for j, vec := range vecs {
			call[j] = vec.Elems[i]
		}
		r, err := caller.Apply(proc, call)
		if err != nil {
			return value.Value{}, err
		}
		out[i] = r
	}
	return value.FromObject(caller.Heap().NewVector(out)), nil
}

func primVectorForEach(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantAtLeast("vector-for-each", args, 2); err != nil {
		return value.Value{}, err
	}
	proc := args[0]
	vecs := make([]*heap.Vector, len(args)-1)
	n := -1
	for i, v := range args[1:] {
		vec, err := wantVector("vector-for-each", v)
		if err != nil {
			return value.Value{}, err
		}
		vecs[i] = vec
		if n == -1 || len(vec.Elems) < n {
			n = len(vec.Elems)
		}
	}
	for i := 0; i < n; i++ {
		call := make([]value.Value, len(vecs))
		for j, vec := range vecs {
			call[j] = vec.Elems[i]
		}
		if _, err := caller.Apply(proc, call); err != nil {
			return value.Value{}, err
		}
	}
	return value.Unspecified_(), nil
}
