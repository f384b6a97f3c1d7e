package primitives

import (
	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/value"
)

func init() { register(controlBuiltins) }

var controlBuiltins = map[string]heap.PrimitiveFunc{
	"apply":                           primApply,
	"call/cc":                         primCallCC,
	"call-with-current-continuation":  primCallCC,
	"error":                           primError,
}

// primApply flattens (apply proc a b ... (list c d)) into one procedure
// call: every argument but the last is passed as-is, the last must be a
// proper list and is spread.
func primApply(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantAtLeast("apply", args, 2); err != nil {
		return value.Value{}, err
	}
	proc := args[0]
	fixed := args[1 : len(args)-1]
	spread, err := listToSlice("apply", args[len(args)-1])
	if err != nil {
		return value.Value{}, err
	}
	call := make([]value.Value, 0, len(fixed)+len(spread))
	call = append(call, fixed...)
	call = append(call, spread...)
	return caller.Apply(proc, call)
}

func primCallCC(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("call/cc", args, 1); err != nil {
		return value.Value{}, err
	}
	return caller.CallCC(args[0])
}

// schemeError carries a Scheme-level error's irritants so a future
// exception-handling primitive can recover them instead of seeing only a
// flattened Go error string.
type schemeError struct {
	Message   string
	Irritants []value.Value
}

func (e *schemeError) Error() string {
	s := e.Message
	for _, irritant := range e.Irritants {
		s += " " + writeString(nil, irritant)
	}
	return s
}

func primError(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantAtLeast("error", args, 1); err != nil {
		return value.Value{}, err
	}
	msg, err := wantString("error", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Value{}, &schemeError{Message: string(msg.Runes), Irritants: args[1:]}
}
