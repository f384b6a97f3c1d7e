package primitives

import (
	"fmt"
	"math"

	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/value"
)

func init() { register(numericBuiltins) }

var numericBuiltins = map[string]heap.PrimitiveFunc{
	"+":           primAdd,
	"-":           primSub,
	"*":           primMul,
	"/":           primDiv,
	"quotient":    primQuotient,
	"remainder":   primRemainder,
	"modulo":      primModulo,
	"abs":         primAbs,
	"min":         primMin,
	"max":         primMax,
	"=":           primNumEq,
	"<":           primNumLt,
	">":           primNumGt,
	"<=":          primNumLe,
	">=":          primNumGe,
	"zero?":       primZeroP,
	"positive?":   primPositiveP,
	"negative?":   primNegativeP,
	"even?":       primEvenP,
	"odd?":        primOddP,
	"number?":     primNumberP,
	"integer?":    primIntegerP,
	"1+":          primAdd1,
	"1-":          primSub1,
	"expt":        primExpt,
	"sqrt":        primSqrt,
	"floor":       primFloor,
	"ceiling":     primCeiling,
	"truncate":    primTruncate,
	"round":       primRound,
	"exact->inexact": primIdentityNumber,
	"inexact->exact": primIdentityNumber,
	"number->string": primNumberToString,
	"string->number": primStringToNumber,
}

func nums(name string, args []value.Value) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		n, err := wantNumber(name, a)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func primAdd(_ heap.VMFace, args []value.Value) (value.Value, error) {
	ns, err := nums("+", args)
	if err != nil {
		return value.Value{}, err
	}
	sum := 0.0
	for _, n := range ns {
		sum += n
	}
	return value.Number(sum), nil
}

func primSub(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantAtLeast("-", args, 1); err != nil {
		return value.Value{}, err
	}
	ns, err := nums("-", args)
	if err != nil {
		return value.Value{}, err
	}
	if len(ns) == 1 {
		return value.Number(-ns[0]), nil
	}
	result := ns[0]
	for _, n := range ns[1:] {
		result -= n
	}
	return value.Number(result), nil
}

func primMul(_ heap.VMFace, args []value.Value) (value.Value, error) {
	ns, err := nums("*", args)
	if err != nil {
		return value.Value{}, err
	}
	product := 1.0
	for _, n := range ns {
		product *= n
	}
	return value.Number(product), nil
}

func primDiv(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantAtLeast("/", args, 1); err != nil {
		return value.Value{}, err
	}
	ns, err := nums("/", args)
	if err != nil {
		return value.Value{}, err
	}
	if len(ns) == 1 {
		if ns[0] == 0 {
			return value.Value{}, fmt.Errorf("/: division by zero")
		}
		return value.Number(1 / ns[0]), nil
	}
	result := ns[0]
	for _, n := range ns[1:] {
		if n == 0 {
			return value.Value{}, fmt.Errorf("/: division by zero")
		}
		result /= n
	}
	return value.Number(result), nil
}

func primQuotient(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("quotient", args, 2); err != nil {
		return value.Value{}, err
	}
	ns, err := nums("quotient", args)
	if err != nil {
		return value.Value{}, err
	}
	if ns[1] == 0 {
		return value.Value{}, fmt.Errorf("quotient: division by zero")
	}
	return value.Number(math.Trunc(ns[0] / ns[1])), nil
}

func primRemainder(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("remainder", args, 2); err != nil {
		return value.Value{}, err
	}
	ns, err := nums("remainder", args)
	if err != nil {
		return value.Value{}, err
	}
	if ns[1] == 0 {
		return value.Value{}, fmt.Errorf("remainder: division by zero")
	}
	return value.Number(math.Mod(ns[0], ns[1])), nil
}

func primModulo(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("modulo", args, 2); err != nil {
		return value.Value{}, err
	}
	ns, err := nums("modulo", args)
	if err != nil {
		return value.Value{}, err
	}
	if ns[1] == 0 {
		return value.Value{}, fmt.Errorf("modulo: division by zero")
	}
	m := math.Mod(ns[0], ns[1])
	if m != 0 && (m < 0) != (ns[1] < 0) {
		m += ns[1]
	}
	return value.Number(m), nil
}

func primAbs(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("abs", args, 1); err != nil {
		return value.Value{}, err
	}
	n, err := wantNumber("abs", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Number(math.Abs(n)), nil
}

func primMin(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantAtLeast("min", args, 1); err != nil {
		return value.Value{}, err
	}
	ns, err := nums("min", args)
	if err != nil {
		return value.Value{}, err
	}
	m := ns[0]
	for _, n := range ns[1:] {
		if n < m {
			m = n
		}
	}
	return value.Number(m), nil
}

func primMax(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantAtLeast("max", args, 1); err != nil {
		return value.Value{}, err
	}
	ns, err := nums("max", args)
	if err != nil {
		return value.Value{}, err
	}
	m := ns[0]
	for _, n := range ns[1:] {
		if n > m {
			m = n
		}
	}
	return value.Number(m), nil
}

func chainCompare(name string, args []value.Value, ok func(a, b float64) bool) (value.Value, error) {
	if err := wantAtLeast(name, args, 1); err != nil {
		return value.Value{}, err
	}
	ns, err := nums(name, args)
	if err != nil {
		return value.Value{}, err
	}
	for i := 0; i+1 < len(ns); i++ {
		if !ok(ns[i], ns[i+1]) {
			return value.Bool_(false), nil
		}
	}
	return value.Bool_(true), nil
}

func primNumEq(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return chainCompare("=", args, func(a, b float64) bool { return a == b })
}
func primNumLt(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return chainCompare("<", args, func(a, b float64) bool { return a < b })
}
func primNumGt(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return chainCompare(">", args, func(a, b float64) bool { return a > b })
}
func primNumLe(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return chainCompare("<=", args, func(a, b float64) bool { return a <= b })
}
func primNumGe(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return chainCompare(">=", args, func(a, b float64) bool { return a >= b })
}

func oneNumPredicate(name string, args []value.Value, pred func(float64) bool) (value.Value, error) {
	if err := wantExact(name, args, 1); err != nil {
		return value.Value{}, err
	}
	n, err := wantNumber(name, args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool_(pred(n)), nil
}

func primZeroP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return oneNumPredicate("zero?", args, func(n float64) bool { return n == 0 })
}
func primPositiveP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return oneNumPredicate("positive?", args, func(n float64) bool { return n > 0 })
}
func primNegativeP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return oneNumPredicate("negative?", args, func(n float64) bool { return n < 0 })
}
func primEvenP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return oneNumPredicate("even?", args, func(n float64) bool { return math.Mod(n, 2) == 0 })
}
func primOddP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return oneNumPredicate("odd?", args, func(n float64) bool { return math.Mod(n, 2) != 0 })
}

func primNumberP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("number?", args, 1); err != nil {
		return value.Value{}, err
	}
	return value.Bool_(args[0].IsNumber()), nil
}

func primIntegerP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("integer?", args, 1); err != nil {
		return value.Value{}, err
	}
	if !args[0].IsNumber() {
		return value.Bool_(false), nil
	}
	n := args[0].AsNumber()
	return value.Bool_(n == math.Trunc(n)), nil
}

func primAdd1(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("1+", args, 1); err != nil {
		return value.Value{}, err
	}
	n, err := wantNumber("1+", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Number(n + 1), nil
}

func primSub1(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("1-", args, 1); err != nil {
		return value.Value{}, err
	}
	n, err := wantNumber("1-", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Number(n - 1), nil
}

func primExpt(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("expt", args, 2); err != nil {
		return value.Value{}, err
	}
	ns, err := nums("expt", args)
	if err != nil {
		return value.Value{}, err
	}
	return value.Number(math.Pow(ns[0], ns[1])), nil
}

func primSqrt(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("sqrt", args, 1); err != nil {
		return value.Value{}, err
	}
	n, err := wantNumber("sqrt", args[0])
	if err != nil {
		return value.Value{}, err
	}
	if n < 0 {
		return value.Value{}, fmt.Errorf("sqrt: negative argument %v", n)
	}
	return value.Number(math.Sqrt(n)), nil
}

func oneNumRounding(name string, args []value.Value, f func(float64) float64) (value.Value, error) {
	if err := wantExact(name, args, 1); err != nil {
		return value.Value{}, err
	}
	n, err := wantNumber(name, args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Number(f(n)), nil
}

func primFloor(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return oneNumRounding("floor", args, math.Floor)
}
func primCeiling(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return oneNumRounding("ceiling", args, math.Ceil)
}
func primTruncate(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return oneNumRounding("truncate", args, math.Trunc)
}
func primRound(_ heap.VMFace, args []value.Value) (value.Value, error) {
	return oneNumRounding("round", args, math.RoundToEven)
}

func primIdentityNumber(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("exact->inexact", args, 1); err != nil {
		return value.Value{}, err
	}
	if _, err := wantNumber("exact->inexact", args[0]); err != nil {
		return value.Value{}, err
	}
	return args[0], nil
}

func primNumberToString(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("number->string", args, 1); err != nil {
		return value.Value{}, err
	}
	n, err := wantNumber("number->string", args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.FromObject(caller.Heap().NewString(formatNumber(n))), nil
}

func primStringToNumber(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("string->number", args, 1); err != nil {
		return value.Value{}, err
	}
	s, err := wantString("string->number", args[0])
	if err != nil {
		return value.Value{}, err
	}
	var n float64
	if _, scanErr := fmt.Sscanf(string(s.Runes), "%g", &n); scanErr != nil {
		return value.Bool_(false), nil
	}
	return value.Number(n), nil
}

// formatNumber renders a float64 the way a Scheme reader expects an
// integer-valued number back: without a trailing ".0" fractional part,
// leaving the general float form untouched otherwise.
func formatNumber(n float64) string {
	if n == math.Trunc(n) && !math.IsInf(n, 0) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
