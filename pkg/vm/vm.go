// Package vm implements the bytecode interpreter: a fixed-capacity value
// stack, a growable call-frame stack, the global environment, the
// open-upvalue list, and the instruction dispatch loop. Its shape — a
// []value.Value/[]frame pair driven by a switch-on-opcode execute loop, a
// WithTrace option, Fprintf-to-stderr diagnostics — gives lexical call
// frames, closures, and a managed heap the same debugging affordances a
// flatter stack machine would have.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/rmay/goscheme/pkg/bytecode"
	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/symtab"
	"github.com/rmay/goscheme/pkg/value"
)

// MaxStackSize bounds the value stack's backing array. It is allocated
// once, at this fixed capacity, and never reallocated: an open Upvalue
// aliases a live stack slot via a raw *value.Value pointer (pkg/heap's
// Upvalue.Location), and a slice growth that relocates the backing array
// would dangle every such pointer.
const MaxStackSize = 1 << 16

// Option configures a VM at construction, following the functional options
// shape this codebase uses for both the compiler and the VM.
type Option func(*VM)

// WithTrace enables per-instruction diagnostics to stderr.
func WithTrace(trace bool) Option { return func(vm *VM) { vm.trace = trace } }

// WithStdout overrides the port (display)/(write) attach to by default.
func WithStdout(w io.Writer) Option { return func(vm *VM) { vm.stdout = w } }

// WithStdin overrides the port (read-char) etc. attach to by default.
func WithStdin(r io.Reader) Option { return func(vm *VM) { vm.stdin = r } }

// frame is one activation record: the closure being executed, its
// instruction pointer, and the value-stack index its locals begin at.
type frame struct {
	closure   *heap.Closure
	ip        int
	frameBase int
}

// VM executes compiled Chunks. One VM owns one Heap, one symbol table, and
// one global environment for its entire lifetime — there is no
// process-wide shared interpreter state.
type VM struct {
	heap *heap.Heap
	syms *symtab.Table

	stack  []value.Value
	frames []frame

	globals map[int32]value.Value
	opens   []*heap.Upvalue // open upvalues, in capture order

	stdout io.Writer
	stdin  io.Reader
	trace  bool
}

// New constructs a VM sharing h and syms with whatever compiled the Chunks
// it will run, and registers itself as a GC root provider.
func New(h *heap.Heap, syms *symtab.Table, opts ...Option) *VM {
	vm := &VM{
		heap:    h,
		syms:    syms,
		stack:   make([]value.Value, 0, MaxStackSize),
		globals: make(map[int32]value.Value),
		stdout:  os.Stdout,
		stdin:   os.Stdin,
	}
	for _, opt := range opts {
		opt(vm)
	}
	h.AddRoot(vm)
	return vm
}

func (vm *VM) Heap() *heap.Heap       { return vm.heap }
func (vm *VM) Symbols() *symtab.Table { return vm.syms }
func (vm *VM) Stdout() io.Writer      { return vm.stdout }
func (vm *VM) Stdin() io.Reader       { return vm.stdin }

// GCRoots implements heap.RootProvider: every live stack slot, every
// frame's closure, every open upvalue, and every global binding.
func (vm *VM) GCRoots() []value.Value {
	roots := make([]value.Value, 0, len(vm.stack)+len(vm.frames)+len(vm.opens)+len(vm.globals))
	roots = append(roots, vm.stack...)
	for _, f := range vm.frames {
		if f.closure != nil {
			roots = append(roots, value.FromObject(f.closure))
		}
	}
	for _, u := range vm.opens {
		roots = append(roots, value.FromObject(u))
	}
	for _, g := range vm.globals {
		roots = append(roots, g)
	}
	return roots
}

// DefineGlobal binds (or rebinds) a symbol id in the global environment.
func (vm *VM) DefineGlobal(id int32, v value.Value) { vm.globals[id] = v }

// GetGlobal looks up a global binding by symbol id.
func (vm *VM) GetGlobal(id int32) (value.Value, bool) {
	v, ok := vm.globals[id]
	return v, ok
}

func (vm *VM) push(v value.Value) error {
	if len(vm.stack) >= MaxStackSize {
		return fmt.Errorf("vm: stack overflow (limit %d)", MaxStackSize)
	}
	vm.stack = append(vm.stack, v)
	return nil
}

func (vm *VM) pop() (value.Value, error) {
	if len(vm.stack) == 0 {
		return value.Value{}, fmt.Errorf("vm: stack underflow")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) top() value.Value { return vm.stack[len(vm.stack)-1] }

func (vm *VM) frameTop() *frame { return &vm.frames[len(vm.frames)-1] }

// Run executes chunk as the body of an implicit zero-argument top-level
// procedure and returns the value that reaches HALT.
//
// It also recovers a stray continuationSignal: invoking a continuation
// outside the dynamic extent of the call/cc that captured it — e.g.
// ((call/cc (lambda (k) k)) 'later), where the captured k escapes and is
// called again only after that call/cc's own CallCC frame has already
// returned — has no enclosing CallCC left on the Go stack to catch it, so
// without a backstop here the panic would propagate out of Run and crash
// the host process (a REPL, in cmd/schemerepl) instead of reporting the
// one-shot restriction as an ordinary error. Any frames or stack slots left
// behind by the aborted call are discarded; Run always starts the next
// chunk from a clean VM state.
func (vm *VM) Run(chunk *heap.Chunk) (result value.Value, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(continuationSignal); !ok {
			panic(r)
		}
		vm.stack = vm.stack[:0]
		vm.frames = vm.frames[:0]
		vm.opens = vm.opens[:0]
		result, err = value.Value{}, fmt.Errorf("vm: continuation invoked outside the dynamic extent of its call/cc")
	}()
	closure := vm.heap.NewClosure(chunk, nil)
	vm.frames = append(vm.frames, frame{closure: closure, frameBase: len(vm.stack)})
	return vm.runUntil(0)
}

// runUntil drives the fetch-decode-execute loop until the frame stack's
// depth returns to depth, then pops and returns the one value left atop
// the stack. Keeping the target depth as a parameter (rather than running
// until the frame list is simply empty) is what lets a nested invocation —
// Apply pushing one more frame on top of an already-running VM, e.g. to
// service the `apply` or `map` primitive — drive its own sub-run without
// disturbing whatever outer runUntil call is above it on the Go stack.
func (vm *VM) runUntil(depth int) (value.Value, error) {
	for len(vm.frames) > depth {
		f := vm.frameTop()
		code := f.closure.Chunk.Code
		if f.ip >= len(code) {
			return value.Value{}, fmt.Errorf("vm: fell off the end of chunk %q", f.closure.Chunk.Name)
		}
		op := bytecode.Op(code[f.ip])
		vm.traceStep(f, op)
		if err := vm.execute(depth, op); err != nil {
			return value.Value{}, err
		}
	}
	return vm.pop()
}

func (vm *VM) traceStep(f *frame, op bytecode.Op) {
	if !vm.trace {
		return
	}
	fmt.Fprintf(os.Stderr, "vm: frame=%d ip=%d op=%s depth=%d stack=%v\n",
		len(vm.frames)-1, f.ip, bytecode.OpcodeName(op), len(vm.stack), vm.stack)
}

func (vm *VM) symbolName(id int32) (name string) {
	defer func() {
		if recover() != nil {
			name = fmt.Sprintf("symbol#%d", id)
		}
	}()
	return vm.syms.Name(id)
}

// execute runs exactly one instruction at the current top frame. depth is
// runUntil's target frame depth, needed only by RETURN/HALT to know
// whether to keep the loop going after popping a frame.
func (vm *VM) execute(depth int, op bytecode.Op) error {
	f := vm.frameTop()
	code := f.closure.Chunk.Code
	ip := f.ip

	switch op {
	case bytecode.OpConst:
		idx := bytecode.DecodeUint16(code[ip+1 : ip+3])
		f.ip += 3
		return vm.push(f.closure.Chunk.Constants[idx])

	case bytecode.OpPop:
		f.ip++
		_, err := vm.pop()
		return err

	case bytecode.OpGetLocal:
		slot := int(code[ip+1])
		f.ip += 2
		return vm.push(vm.stack[f.frameBase+slot])

	case bytecode.OpSetLocal:
		slot := int(code[ip+1])
		f.ip += 2
		vm.stack[f.frameBase+slot] = vm.top()
		return nil

	case bytecode.OpGetUpvalue:
		idx := int(code[ip+1])
		f.ip += 2
		return vm.push(f.closure.Upvalues[idx].Get())

	case bytecode.OpSetUpvalue:
		idx := int(code[ip+1])
		f.ip += 2
		f.closure.Upvalues[idx].Set(vm.top())
		return nil

	case bytecode.OpGetGlobal:
		id := int32(bytecode.DecodeUint16(code[ip+1 : ip+3]))
		f.ip += 3
		v, ok := vm.GetGlobal(id)
		if !ok {
			return fmt.Errorf("vm: unbound variable %s", vm.symbolName(id))
		}
		return vm.push(v)

	case bytecode.OpDefineGlobal:
		id := int32(bytecode.DecodeUint16(code[ip+1 : ip+3]))
		f.ip += 3
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.DefineGlobal(id, v)
		return nil

	case bytecode.OpSetGlobal:
		id := int32(bytecode.DecodeUint16(code[ip+1 : ip+3]))
		f.ip += 3
		if _, ok := vm.GetGlobal(id); !ok {
			return fmt.Errorf("vm: unbound variable %s", vm.symbolName(id))
		}
		vm.globals[id] = vm.top()
		return nil

	case bytecode.OpJmp:
		target := int(bytecode.DecodeUint32(code[ip+1 : ip+5]))
		f.ip = target
		return nil

	case bytecode.OpJmpIfFalse:
		target := int(bytecode.DecodeUint32(code[ip+1 : ip+5]))
		f.ip += 5
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if !v.IsTruthy() {
			f.ip = target
		}
		return nil

	case bytecode.OpClosure:
		idx := bytecode.DecodeUint16(code[ip+1 : ip+3])
		f.ip += 3
		return vm.makeClosure(f, idx)

	case bytecode.OpCall:
		argc := int(code[ip+1])
		f.ip += 2
		return vm.call(argc, false)

	case bytecode.OpTailCall:
		argc := int(code[ip+1])
		f.ip += 2
		return vm.call(argc, true)

	case bytecode.OpReturn, bytecode.OpHalt:
		return vm.doReturn(depth)

	default:
		return fmt.Errorf("vm: unknown opcode 0x%02X", byte(op))
	}
}

// doReturn pops the current frame, closes any upvalues its locals were
// feeding, and splices its result back underneath the callee slot and
// arguments the call site pushed (RETURN) or, for the top-level chunk's
// HALT, underneath nothing at all (frameBase is 0, so the slice below it
// is empty either way).
func (vm *VM) doReturn(depth int) error {
	result, err := vm.pop()
	if err != nil {
		return err
	}
	f := vm.frameTop()
	base := f.frameBase
	vm.closeUpvalues(base)
	if base > 0 {
		base-- // also discard the callee slot CALL left below its arguments
	}
	vm.stack = vm.stack[:base]
	vm.frames = vm.frames[:len(vm.frames)-1]
	return vm.push(result)
}
