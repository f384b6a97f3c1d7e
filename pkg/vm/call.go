package vm

import (
	"fmt"

	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/value"
)

// call implements both CALL and TAIL_CALL: stack[top-argc-1] is the
// procedure, stack[top-argc:] are its arguments. What happens next depends
// on what kind of procedure it is — a compiled Closure grows (or, in tail
// position, reuses) the frame stack; a Primitive is just a direct Go call;
// a Continuation never returns at all, unwinding instead via panic/recover
// to the matching CallCC.
func (vm *VM) call(argc int, tail bool) error {
	argsStart := len(vm.stack) - argc
	procIndex := argsStart - 1
	if procIndex < 0 {
		return fmt.Errorf("vm: malformed call (missing procedure operand)")
	}
	proc := vm.stack[procIndex]
	if !proc.IsObject() {
		return fmt.Errorf("vm: cannot apply non-procedure value of type %s", proc.Tag())
	}
	switch callee := proc.AsObject().(type) {
	case *heap.Closure:
		return vm.callClosure(callee, argc, procIndex, tail)
	case *heap.Primitive:
		return vm.callPrimitive(callee, argc, procIndex)
	case *heap.Continuation:
		return vm.invokeContinuation(callee, argc, procIndex)
	default:
		tag, _ := proc.ObjectTag()
		return fmt.Errorf("vm: cannot apply non-procedure object of kind %s", tag)
	}
}

func closureName(c *heap.Closure) string {
	if c.Chunk.Name != "" {
		return c.Chunk.Name
	}
	return "#<procedure>"
}

// callClosure pushes a fresh frame for a non-tail call, or — the proper
// tail call case — reuses the current frame entirely: the old locals'
// upvalues are closed, the new procedure and its (already-evaluated)
// arguments are shifted down over the old call-site garbage, and the
// frame's ip/closure/frameBase are overwritten in place. No entry is added
// to vm.frames, so arbitrarily deep tail recursion runs in O(1) VM frames.
func (vm *VM) callClosure(closure *heap.Closure, argc int, procIndex int, tail bool) error {
	arity := closure.Chunk.Arity
	if !arity.Accepts(argc) {
		return fmt.Errorf("vm: %s called with %d argument(s), expects %s", closureName(closure), argc, arity)
	}
	argsStart := procIndex + 1
	if arity.Rest {
		if err := vm.consRestArgs(argsStart, arity.Min, argc); err != nil {
			return err
		}
		argc = arity.Min + 1
	}

	if tail {
		cur := vm.frameTop()
		vm.closeUpvalues(cur.frameBase)
		dest := cur.frameBase - 1 // the callee slot this frame's own call site left below its locals
		copy(vm.stack[dest:], vm.stack[procIndex:procIndex+1+argc])
		vm.stack = vm.stack[:dest+1+argc]
		cur.closure = closure
		cur.ip = 0
		cur.frameBase = dest + 1
		return nil
	}

	vm.frames = append(vm.frames, frame{closure: closure, ip: 0, frameBase: argsStart})
	return nil
}

// consRestArgs collects the arguments beyond the fixed parameters into one
// proper list and leaves it as the single extra stack slot a rest
// parameter's local occupies.
func (vm *VM) consRestArgs(argsStart, min, argc int) error {
	rest := value.EmptyList_()
	for i := argsStart + argc - 1; i >= argsStart+min; i-- {
		rest = value.FromObject(vm.heap.NewPair(vm.stack[i], rest))
	}
	vm.stack = vm.stack[:argsStart+min]
	return vm.push(rest)
}

func (vm *VM) callPrimitive(p *heap.Primitive, argc int, procIndex int) error {
	argsStart := procIndex + 1
	args := append([]value.Value(nil), vm.stack[argsStart:argsStart+argc]...)
	vm.stack = vm.stack[:procIndex]
	result, err := p.Fn(vm, args)
	if err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	return vm.push(result)
}

// invokeContinuation realizes a one-shot, escape-only call/cc continuation
// as a Go panic carrying the target *heap.Continuation and the value it
// was invoked with; the matching CallCC recovers it. This only ever
// unwinds upward to an enclosing CallCC still on the Go call stack — there
// is no support for resuming a continuation after its capturing CallCC has
// already returned, matching the one-shot restriction.
func (vm *VM) invokeContinuation(k *heap.Continuation, argc int, procIndex int) error {
	if k.Invoked {
		return fmt.Errorf("vm: continuation invoked more than once")
	}
	arg := value.Unspecified_()
	if argc > 0 {
		arg = vm.stack[procIndex+1]
	}
	vm.stack = vm.stack[:procIndex]
	k.Invoked = true
	panic(continuationSignal{k: k, value: arg})
}

// continuationSignal is the panic payload invokeContinuation raises. It is
// never allowed to escape as a user-visible panic: every CallCC installs a
// matching recover, and a continuationSignal belonging to some other,
// already-exited CallCC simply re-panics up to Run, whose recover reports it
// as an ordinary error (invoking a continuation whose CallCC frame is gone
// has no further defined meaning in this interpreter).
type continuationSignal struct {
	k     *heap.Continuation
	value value.Value
}

// captureUpvalue returns the open upvalue aliasing absolute stack index,
// creating one if this is the first closure to capture that slot — so two
// sibling closures capturing the same enclosing local share one Upvalue,
// and a set! through either is visible to both.
func (vm *VM) captureUpvalue(index int) *heap.Upvalue {
	for _, u := range vm.opens {
		if u.Index == index {
			return u
		}
	}
	u := vm.heap.NewOpenUpvalue(index, &vm.stack[index])
	vm.opens = append(vm.opens, u)
	return u
}

// closeUpvalues closes every open upvalue at or above absolute stack index
// from, copying its referent out of the stack slot that is about to be
// reused or discarded. Called when a frame returns and when a tail call
// reuses the current frame's locals.
func (vm *VM) closeUpvalues(from int) {
	kept := vm.opens[:0]
	for _, u := range vm.opens {
		if u.Index >= from {
			u.Close()
		} else {
			kept = append(kept, u)
		}
	}
	vm.opens = kept
}

// makeClosure builds a Closure over chunk.Children[idx], resolving each of
// its UpvalueDesc entries against the executing frame f: a direct capture
// of one of f's own locals, or a re-threading of one of f's closure's own
// upvalues (so a doubly-nested lambda shares its grandparent's captured
// variable with its parent, rather than capturing a stale copy).
func (vm *VM) makeClosure(f *frame, idx uint16) error {
	child := f.closure.Chunk.Children[idx]
	upvalues := make([]*heap.Upvalue, len(child.Upvalues))
	for i, desc := range child.Upvalues {
		if desc.IsLocal {
			upvalues[i] = vm.captureUpvalue(f.frameBase + int(desc.ParentIndex))
		} else {
			upvalues[i] = f.closure.Upvalues[desc.ParentIndex]
		}
	}
	closure := vm.heap.NewClosure(child, upvalues)
	return vm.push(value.FromObject(closure))
}

// Apply implements heap.VMFace: it calls proc with args as a fresh,
// non-tail invocation and runs it to completion, whatever kind of
// procedure proc turns out to be. Primitives (apply, map, for-each,
// vector-map, ...) use this to invoke a Scheme-level procedure
// argument without themselves knowing anything about frames or bytecode.
func (vm *VM) Apply(proc value.Value, args []value.Value) (value.Value, error) {
	if err := vm.push(proc); err != nil {
		return value.Value{}, err
	}
	for _, a := range args {
		if err := vm.push(a); err != nil {
			return value.Value{}, err
		}
	}
	if len(args) > 255 {
		return value.Value{}, fmt.Errorf("vm: apply: too many arguments (%d), max 255", len(args))
	}
	depth := len(vm.frames)
	if err := vm.call(len(args), false); err != nil {
		return value.Value{}, err
	}
	return vm.runUntil(depth)
}

// CallCC implements heap.VMFace and call/cc's primitive: it captures the
// current execution state as a one-shot Continuation, applies proc to it,
// and returns either proc's ordinary result or — if the continuation was
// invoked during that call — the value it was invoked with, after dropping
// the frames and stack slots pushed since the capture.
func (vm *VM) CallCC(proc value.Value) (result value.Value, err error) {
	frames := make([]heap.SavedFrame, len(vm.frames))
	for i, f := range vm.frames {
		frames[i] = heap.SavedFrame{Closure: f.closure, IP: f.ip, FrameBase: f.frameBase}
	}
	stack := append([]value.Value(nil), vm.stack...)
	k := vm.heap.NewContinuation(frames, stack)

	defer func() {
		if r := recover(); r != nil {
			sig, ok := r.(continuationSignal)
			if !ok || sig.k != k {
				panic(r)
			}
			vm.closeUpvalues(len(stack))
			vm.stack = vm.stack[:len(stack)]
			vm.frames = vm.frames[:len(frames)]
			result, err = sig.value, nil
		}
	}()
	return vm.Apply(proc, []value.Value{value.FromObject(k)})
}
