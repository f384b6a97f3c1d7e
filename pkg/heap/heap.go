// Package heap implements the managed heap: a mark-and-sweep, stop-the-world,
// non-moving collector over the Object types pairs, vectors, strings, ports,
// closures, upvalues, chunks and continuations reference. It splits objects
// into a young and an old generation: objects are born in a small
// bump-allocated nursery and promoted to the traced generation once the
// nursery fills, rather than being traced from birth.
package heap

import (
	"fmt"
	"io"

	"github.com/rmay/goscheme/pkg/bytecode"
	"github.com/rmay/goscheme/pkg/symtab"
	"github.com/rmay/goscheme/pkg/value"
)

// header is embedded by every heap-resident type to carry the collector's
// mark bit. Which generation an object lives in is recorded by the Heap's
// own lists, not in the header.
type header struct {
	marked bool
}

// Pair is a mutable cons cell; car/cdr mutate via set-car!/set-cdr!.
type Pair struct {
	header
	Car, Cdr value.Value
}

func (*Pair) ObjectTag() value.ObjectTag { return value.ObjPair }

// Vector is a mutable fixed-length array of Values.
type Vector struct {
	header
	Elems []value.Value
}

func (*Vector) ObjectTag() value.ObjectTag { return value.ObjVector }

// Str is a mutable Scheme string: a resizable rune sequence.
type Str struct {
	header
	Runes []rune
}

func (*Str) ObjectTag() value.ObjectTag { return value.ObjString }

func NewStr(s string) *Str { return &Str{Runes: []rune(s)} }

func (s *Str) String() string { return string(s.Runes) }

// PortDirection distinguishes read-only from write-only ports; there is no
// bidirectional port primitive.
type PortDirection uint8

const (
	PortInput PortDirection = iota
	PortOutput
)

// Port wraps an external byte stream. State is opaque to the rest of the
// system beyond Read/Write/Close — concrete backing (file, in-memory
// string buffer, stdio) is supplied by pkg/primitives.
type Port struct {
	header
	Name      string
	Direction PortDirection
	Closed    bool
	Reader    func() (rune, bool, error) // returns (rune, ok, err); ok=false at EOF
	Writer    func(string) error
	Closer    func() error
}

func (*Port) ObjectTag() value.ObjectTag { return value.ObjPort }

func (p *Port) Close() error {
	if p.Closed {
		return nil // idempotent: closing an already-closed port is a no-op
	}
	p.Closed = true
	if p.Closer != nil {
		return p.Closer()
	}
	return nil
}

// Upvalue is a one-cell indirection for a captured lexical variable. While
// Open it aliases a live stack slot (Location points into the owning VM's
// value stack, which never reallocates past MaxStackSize — see pkg/vm);
// once its home frame returns, Close copies the slot into Cell and the
// Upvalue is Closed from then on. Every closure that captured it keeps
// reading/writing through this same *Upvalue, which is how shared mutable
// capture (two closures seeing each other's set!) is realized.
type Upvalue struct {
	header
	Open     bool
	Index    int // absolute value-stack index, meaningful only while Open
	Location *value.Value
	Cell     value.Value
}

func (*Upvalue) ObjectTag() value.ObjectTag { return value.ObjUpvalue }

// NewOpenUpvalue creates an upvalue aliasing a live stack slot.
func NewOpenUpvalue(index int, slot *value.Value) *Upvalue {
	return &Upvalue{Open: true, Index: index, Location: slot}
}

func (u *Upvalue) Get() value.Value  { return *u.Location }
func (u *Upvalue) Set(v value.Value) { *u.Location = v }

// Close transitions an open upvalue to closed, copying its current
// referent into an owned cell.
func (u *Upvalue) Close() {
	if !u.Open {
		return
	}
	u.Cell = *u.Location
	u.Location = &u.Cell
	u.Open = false
}

// Chunk is an immutable compiled procedure body: bytecode, constant pool,
// upvalue descriptor table, arity, and statically computed max stack depth.
// It is itself heap-resident and GC-traced (its constant pool
// may hold Values that reference other objects, and nested lambdas become
// Children chunks referenced by CLOSURE instructions) even though it never
// changes after the compiler finishes with it — hence no "car/cdr"-style
// mutators, only construction via NewChunk.
type Chunk struct {
	header
	Name          string // best-effort, for disassemble/error messages
	Code          []byte
	Constants     []value.Value
	Children      []*Chunk // nested chunks, indexed by CLOSURE's operand
	Upvalues      []bytecode.UpvalueDesc
	Arity         bytecode.Arity
	MaxStackDepth int
	Lines         []int // optional source-position table, best-effort
}

func (*Chunk) ObjectTag() value.ObjectTag { return value.ObjChunk }

func (h *Heap) NewChunk(c *Chunk) *Chunk {
	h.track(c)
	return c
}

// Closure pairs an immutable Chunk with its resolved upvalues. The upvalue
// slice length always equals Chunk.Upvalues' descriptor count.
type Closure struct {
	header
	Chunk    *Chunk
	Upvalues []*Upvalue
}

func (*Closure) ObjectTag() value.ObjectTag { return value.ObjClosure }

// Continuation captures a snapshot of VM execution state for call/cc. The
// snapshot copies stack *contents* (not just frame metadata), and invocation
// is restricted to one shot — Invoked guards re-entry.
type Continuation struct {
	header
	Frames   []SavedFrame
	Stack    []value.Value
	Invoked  bool
}

func (*Continuation) ObjectTag() value.ObjectTag { return value.ObjContinuation }

// SavedFrame is the serializable snapshot of one VM call frame, independent
// of pkg/vm so pkg/heap need not import it.
type SavedFrame struct {
	Closure       *Closure
	IP            int
	FrameBase     int
}

// Primitive wraps a Go-implemented procedure (the builtins pkg/primitives
// registers: arithmetic, pair/vector/string ops, call/cc, I/O) so it can
// travel through the same Value/Object machinery as a compiled Closure.
// It is heap-resident only for uniformity with Closure — it never holds a
// reference an interned global doesn't already keep alive, so tracing it
// visits no children.
type Primitive struct {
	header
	Name string
	Fn   PrimitiveFunc
}

// PrimitiveFunc is the signature every builtin procedure implements. The
// caller (pkg/vm) supplies itself so a primitive like apply or call/cc can
// drive further evaluation.
type PrimitiveFunc func(caller VMFace, args []value.Value) (value.Value, error)

// VMFace is the slice of *vm.VM a Primitive needs, kept here (rather than
// importing pkg/vm, which would cycle back through pkg/heap) the same way
// SavedFrame decouples Continuation from pkg/vm.
type VMFace interface {
	Heap() *Heap
	Symbols() *symtab.Table
	Stdout() io.Writer
	Stdin() io.Reader
	Apply(proc value.Value, args []value.Value) (value.Value, error)
	CallCC(proc value.Value) (value.Value, error)
}

func (*Primitive) ObjectTag() value.ObjectTag { return value.ObjPrimitive }

func (h *Heap) NewPrimitive(name string, fn PrimitiveFunc) *Primitive {
	p := &Primitive{Name: name, Fn: fn}
	h.track(p)
	return p
}

// Heap owns allocation, the root set, and the collector. One Heap per VM
// instance: never a process-wide singleton, so independent interpreters
// never share state.
type Heap struct {
	young     []value.Object
	old       []value.Object
	nurserySize int
	allocated int
	collections int

	roots []RootProvider
}

// RootProvider is implemented by anything the collector must trace as a
// root. In this codebase that is the VM alone, whose roots cover its
// frame/value stacks, the open-upvalue list, and the global bindings
// (installed primitives included).
type RootProvider interface {
	GCRoots() []value.Value
}

const defaultNurserySize = 512

// New creates an empty heap with the default nursery size.
func New() *Heap {
	return &Heap{nurserySize: defaultNurserySize}
}

// AddRoot registers a root provider. vm.New calls it once for each VM it
// constructs.
func (h *Heap) AddRoot(r RootProvider) { h.roots = append(h.roots, r) }

// track registers a freshly allocated object with the nursery, promoting
// the whole nursery to the old generation (and running a collection) if it
// has filled.
func (h *Heap) track(o value.Object) {
	h.young = append(h.young, o)
	h.allocated++
	if len(h.young) >= h.nurserySize {
		h.Collect()
	}
}

func (h *Heap) NewPair(car, cdr value.Value) *Pair {
	p := &Pair{Car: car, Cdr: cdr}
	h.track(p)
	return p
}

func (h *Heap) NewVector(elems []value.Value) *Vector {
	v := &Vector{Elems: elems}
	h.track(v)
	return v
}

func (h *Heap) NewString(s string) *Str {
	str := NewStr(s)
	h.track(str)
	return str
}

func (h *Heap) NewPort(p *Port) *Port {
	h.track(p)
	return p
}

func (h *Heap) NewClosure(chunk *Chunk, upvalues []*Upvalue) *Closure {
	c := &Closure{Chunk: chunk, Upvalues: upvalues}
	h.track(c)
	return c
}

func (h *Heap) NewOpenUpvalue(index int, slot *value.Value) *Upvalue {
	u := NewOpenUpvalue(index, slot)
	h.track(u)
	return u
}

func (h *Heap) NewContinuation(frames []SavedFrame, stack []value.Value) *Continuation {
	k := &Continuation{Frames: frames, Stack: stack}
	h.track(k)
	return k
}

// Stats reports allocation counters, useful for the REPL's `,gc` command
// and for verifying GC liveness.
type Stats struct {
	Live        int
	Allocated   int
	Collections int
}

func (h *Heap) Stats() Stats {
	return Stats{Live: len(h.young) + len(h.old), Allocated: h.allocated, Collections: h.collections}
}

// Collect runs a full mark-and-sweep pass over young+old, merging survivors
// into old. Safe to call at any safe point: between instructions, at
// CALL/TAIL_CALL/RETURN boundaries. Never called concurrently — the VM is
// single-threaded.
func (h *Heap) Collect() {
	h.collections++
	all := make([]value.Object, 0, len(h.young)+len(h.old))
	all = append(all, h.young...)
	all = append(all, h.old...)
	for _, o := range all {
		setMarked(o, false)
	}

	var stack []value.Object
	mark := func(v value.Value) {
		if v.Tag() != value.TagObj {
			return
		}
		if o := v.AsObject(); o != nil {
			if !isMarked(o) {
				setMarked(o, true)
				stack = append(stack, o)
			}
		}
	}

	for _, r := range h.roots {
		for _, v := range r.GCRoots() {
			mark(v)
		}
	}

	for len(stack) > 0 {
		o := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		traceChildren(o, mark)
	}

	survivors := all[:0]
	for _, o := range all {
		if isMarked(o) {
			survivors = append(survivors, o)
		}
	}
	h.young = nil
	h.old = survivors
}

func setMarked(o value.Object, m bool) {
	switch t := o.(type) {
	case *Pair:
		t.marked = m
	case *Vector:
		t.marked = m
	case *Str:
		t.marked = m
	case *Port:
		t.marked = m
	case *Closure:
		t.marked = m
	case *Upvalue:
		t.marked = m
	case *Chunk:
		t.marked = m
	case *Continuation:
		t.marked = m
	case *Primitive:
		t.marked = m
	default:
		panic(fmt.Sprintf("heap: unknown object type %T", o))
	}
}

func isMarked(o value.Object) bool {
	switch t := o.(type) {
	case *Pair:
		return t.marked
	case *Vector:
		return t.marked
	case *Str:
		return t.marked
	case *Port:
		return t.marked
	case *Closure:
		return t.marked
	case *Upvalue:
		return t.marked
	case *Chunk:
		return t.marked
	case *Continuation:
		return t.marked
	case *Primitive:
		return t.marked
	default:
		panic(fmt.Sprintf("heap: unknown object type %T", o))
	}
}

// traceChildren visits every Value directly reachable from o: Pair (car,
// cdr), Vector (all slots), Closure (all upvalues + chunk), Upvalue (its
// referent), Chunk (constant pool), Continuation (its captured frame stack).
func traceChildren(o value.Object, mark func(value.Value)) {
	switch t := o.(type) {
	case *Pair:
		mark(t.Car)
		mark(t.Cdr)
	case *Vector:
		for _, e := range t.Elems {
			mark(e)
		}
	case *Str, *Port:
		// no outbound Value references
	case *Closure:
		mark(value.FromObject(t.Chunk))
		for _, u := range t.Upvalues {
			mark(value.FromObject(u))
		}
	case *Upvalue:
		mark(*t.Location)
	case *Chunk:
		for _, c := range t.Constants {
			mark(c)
		}
		for _, child := range t.Children {
			mark(value.FromObject(child))
		}
	case *Continuation:
		for _, v := range t.Stack {
			mark(v)
		}
		for _, f := range t.Frames {
			mark(value.FromObject(f.Closure))
		}
	case *Primitive:
		// no outbound Value references
	default:
		panic(fmt.Sprintf("heap: unknown object type %T", o))
	}
}
