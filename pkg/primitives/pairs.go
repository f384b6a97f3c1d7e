package primitives

import (
	"fmt"

	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/value"
)

func init() { register(pairBuiltins) }

var pairBuiltins = map[string]heap.PrimitiveFunc{
	"cons":     primCons,
	"car":      primCar,
	"cdr":      primCdr,
	"set-car!": primSetCar,
	"set-cdr!": primSetCdr,
	"pair?":    primPairP,
	"null?":    primNullP,
	"list":     primList,
	"list?":    primListP,
	"length":   primLength,
	"append":   primAppend,
	"reverse":  primReverse,
	"map":      primMap,
	"for-each": primForEach,
	"member":   primMember,
	"memq":     primMemq,
	"memv":     primMemq,
	"assoc":    primAssoc,
	"assq":     primAssq,
	"assv":     primAssq,
	"list-tail": primListTail,
	"list-ref":  primListRef,
}

func primCons(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("cons", args, 2); err != nil {
		return value.Value{}, err
	}
	return value.FromObject(caller.Heap().NewPair(args[0], args[1])), nil
}

func primCar(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("car", args, 1); err != nil {
		return value.Value{}, err
	}
	p, err := wantPair("car", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return p.Car, nil
}

func primCdr(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("cdr", args, 1); err != nil {
		return value.Value{}, err
	}
	p, err := wantPair("cdr", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return p.Cdr, nil
}

func primSetCar(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("set-car!", args, 2); err != nil {
		return value.Value{}, err
	}
	p, err := wantPair("set-car!", args[0])
	if err != nil {
		return value.Value{}, err
	}
	p.Car = args[1]
	return value.Unspecified_(), nil
}

func primSetCdr(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("set-cdr!", args, 2); err != nil {
		return value.Value{}, err
	}
	p, err := wantPair("set-cdr!", args[0])
	if err != nil {
		return value.Value{}, err
	}
	p.Cdr = args[1]
	return value.Unspecified_(), nil
}

func primPairP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("pair?", args, 1); err != nil {
		return value.Value{}, err
	}
	return value.Bool_(args[0].Is(value.ObjPair)), nil
}

func primNullP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("null?", args, 1); err != nil {
		return value.Value{}, err
	}
	return value.Bool_(args[0].IsEmptyList()), nil
}

func primList(caller heap.VMFace, args []value.Value) (value.Value, error) {
	return sliceToList(caller.Heap(), args), nil
}

func primListP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("list?", args, 1); err != nil {
		return value.Value{}, err
	}
	// Floyd's cycle detection: a circular list is not a proper list either.
	slow, fast := args[0], args[0]
	for {
		if fast.IsEmptyList() {
			return value.Bool_(true), nil
		}
		fp, ok := asPair(fast)
		if !ok {
			return value.Bool_(false), nil
		}
		fast = fp.Cdr
		if fast.IsEmptyList() {
			return value.Bool_(true), nil
		}
		fp2, ok := asPair(fast)
		if !ok {
			return value.Bool_(false), nil
		}
		fast = fp2.Cdr
		sp, _ := asPair(slow)
		slow = sp.Cdr
		if samePair(slow, fast) {
			return value.Bool_(false), nil
		}
	}
}

func samePair(a, b value.Value) bool {
	pa, ok := asPair(a)
	if !ok {
		return false
	}
	pb, ok := asPair(b)
	if !ok {
		return false
	}
	return pa == pb
}

func primLength(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("length", args, 1); err != nil {
		return value.Value{}, err
	}
	elems, err := listToSlice("length", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Number(float64(len(elems))), nil
}

func primAppend(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.EmptyList_(), nil
	}
	var all []value.Value
	for i, a := range args[:len(args)-1] {
		elems, err := listToSlice(fmt.Sprintf("append (argument %d)", i+1), a)
		if err != nil {
			return value.Value{}, err
		}
		all = append(all, elems...)
	}
	last := args[len(args)-1]
	result := last
	for i := len(all) - 1; i >= 0; i-- {
		result = value.FromObject(caller.Heap().NewPair(all[i], result))
	}
	return result, nil
}

func primReverse(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("reverse", args, 1); err != nil {
		return value.Value{}, err
	}
	elems, err := listToSlice("reverse", args[0])
	if err != nil {
		return value.Value{}, err
	}
	result := value.EmptyList_()
	for _, e := range elems {
		result = value.FromObject(caller.Heap().NewPair(e, result))
	}
	return result, nil
}

func primMap(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantAtLeast("map", args, 2); err != nil {
		return value.Value{}, err
	}
	proc := args[0]
	lists := make([][]value.Value, len(args)-1)
	n := -1
	for i, l := range args[1:] {
		elems, err := listToSlice("map", l)
		if err != nil {
			return value.Value{}, err
		}
		lists[i] = elems
		if n == -1 || len(elems) < n {
			n = len(elems)
		}
	}
	out := make([]value.Value, 0, n)
	for i := 0; i < n; i++ {
		call := make([]value.Value, len(lists))
		for j, l := range lists {
			call[j] = l[i]
		}
		r, err := caller.Apply(proc, call)
		if err != nil {
			return value.Value{}, err
		}
		out = append(out, r)
	}
	return sliceToList(caller.Heap(), out), nil
}

func primForEach(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantAtLeast("for-each", args, 2); err != nil {
		return value.Value{}, err
	}
	proc := args[0]
	lists := make([][]value.Value, len(args)-1)
	n := -1
	for i, l := range args[1:] {
		elems, err := listToSlice("for-each", l)
		if err != nil {
			return value.Value{}, err
		}
		lists[i] = elems
		if n == -1 || len(elems) < n {
			n = len(elems)
		}
	}
	for i := 0; i < n; i++ {
		call := make([]value.Value, len(lists))
		for j, l := range lists {
			call[j] = l[i]
		}
		if _, err := caller.Apply(proc, call); err != nil {
			return value.Value{}, err
		}
	}
	return value.Unspecified_(), nil
}

func searchList(name string, lst value.Value, found func(v value.Value) (bool, error)) (value.Value, error) {
	for !lst.IsEmptyList() {
		p, ok := asPair(lst)
		if !ok {
			return value.Value{}, fmt.Errorf("%s: expects a proper list", name)
		}
		ok2, err := found(p.Car)
		if err != nil {
			return value.Value{}, err
		}
		if ok2 {
			return lst, nil
		}
		lst = p.Cdr
	}
	return value.Bool_(false), nil
}

func primMember(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("member", args, 2); err != nil {
		return value.Value{}, err
	}
	return searchList("member", args[1], func(v value.Value) (bool, error) { return equalValues(args[0], v), nil })
}

func primMemq(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("memq", args, 2); err != nil {
		return value.Value{}, err
	}
	return searchList("memq", args[1], func(v value.Value) (bool, error) { return eqValues(args[0], v), nil })
}

func searchAlist(name string, lst value.Value, match func(key value.Value) bool) (value.Value, error) {
	for !lst.IsEmptyList() {
		p, ok := asPair(lst)
		if !ok {
			return value.Value{}, fmt.Errorf("%s: expects a proper list", name)
		}
		entry, ok := asPair(p.Car)
		if !ok {
			return value.Value{}, fmt.Errorf("%s: expects an association list", name)
		}
		if match(entry.Car) {
			return p.Car, nil
		}
		lst = p.Cdr
	}
	return value.Bool_(false), nil
}

func primAssoc(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("assoc", args, 2); err != nil {
		return value.Value{}, err
	}
	return searchAlist("assoc", args[1], func(k value.Value) bool { return equalValues(args[0], k) })
}

func primAssq(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("assq", args, 2); err != nil {
		return value.Value{}, err
	}
	return searchAlist("assq", args[1], func(k value.Value) bool { return eqValues(args[0], k) })
}

func primListTail(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("list-tail", args, 2); err != nil {
		return value.Value{}, err
	}
	k, err := wantNumber("list-tail", args[1])
	if err != nil {
		return value.Value{}, err
	}
	lst := args[0]
	for i := 0; i < int(k); i++ {
		p, ok := asPair(lst)
		if !ok {
			return value.Value{}, fmt.Errorf("list-tail: list too short")
		}
		lst = p.Cdr
	}
	return lst, nil
}

func primListRef(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("list-ref", args, 2); err != nil {
		return value.Value{}, err
	}
	k, err := wantNumber("list-ref", args[1])
	if err != nil {
		return value.Value{}, err
	}
	lst := args[0]
	for i := 0; i < int(k); i++ {
		p, ok := asPair(lst)
		if !ok {
			return value.Value{}, fmt.Errorf("list-ref: index out of range")
		}
		lst = p.Cdr
	}
	p, ok := asPair(lst)
	if !ok {
		return value.Value{}, fmt.Errorf("list-ref: index out of range")
	}
	return p.Car, nil
}
