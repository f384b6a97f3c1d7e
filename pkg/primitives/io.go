package primitives

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/value"
)

func init() { register(ioBuiltins) }

var ioBuiltins = map[string]heap.PrimitiveFunc{
	"display":            primDisplay,
	"write":               primWrite,
	"newline":             primNewline,
	"read-char":           primReadChar,
	"peek-char":           primPeekChar,
	"eof-object?":         primEofObjectP,
	"open-input-string":   primOpenInputString,
	"open-output-string":  primOpenOutputString,
	"get-output-string":   primGetOutputString,
	"current-output-port": primCurrentOutputPort,
	"current-input-port":  primCurrentInputPort,
	"port?":               primPortP,
	"close-port":          primClosePort,
	"read-line":           primReadLine,
}

// theEOF is the single sentinel value every port primitive returns at end
// of input: a distinguished, otherwise-inaccessible *heap.Str, so it
// compares eq? only to itself.
var theEOF = &heap.Str{}

func isEOF(v value.Value) bool {
	s, ok := asString(v)
	return ok && s == theEOF
}

func outputWriter(caller heap.VMFace, args []value.Value, argIdx int, name string) (func(string) error, error) {
	if len(args) > argIdx {
		p, ok := asPort(args[argIdx])
		if !ok {
			return nil, fmt.Errorf("%s: expects a port", name)
		}
		if p.Direction != heap.PortOutput {
			return nil, fmt.Errorf("%s: port is not an output port", name)
		}
		return p.Writer, nil
	}
	w := caller.Stdout()
	return func(s string) error {
		_, err := fmt.Fprint(w, s)
		return err
	}, nil
}

func primDisplay(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantRange("display", args, 1, 2); err != nil {
		return value.Value{}, err
	}
	write, err := outputWriter(caller, args, 1, "display")
	if err != nil {
		return value.Value{}, err
	}
	if err := write(displayString(caller.Symbols(), args[0])); err != nil {
		return value.Value{}, err
	}
	return value.Unspecified_(), nil
}

func primWrite(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantRange("write", args, 1, 2); err != nil {
		return value.Value{}, err
	}
	write, err := outputWriter(caller, args, 1, "write")
	if err != nil {
		return value.Value{}, err
	}
	if err := write(writeString(caller.Symbols(), args[0])); err != nil {
		return value.Value{}, err
	}
	return value.Unspecified_(), nil
}

func primNewline(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantRange("newline", args, 0, 1); err != nil {
		return value.Value{}, err
	}
	write, err := outputWriter(caller, args, 0, "newline")
	if err != nil {
		return value.Value{}, err
	}
	if err := write("\n"); err != nil {
		return value.Value{}, err
	}
	return value.Unspecified_(), nil
}

func inputPort(caller heap.VMFace, args []value.Value, argIdx int, name string) (*heap.Port, error) {
	if len(args) > argIdx {
		p, ok := asPort(args[argIdx])
		if !ok {
			return nil, fmt.Errorf("%s: expects a port", name)
		}
		if p.Direction != heap.PortInput {
			return nil, fmt.Errorf("%s: port is not an input port", name)
		}
		return p, nil
	}
	return caller.Heap().NewPort(stdinPort(caller)), nil
}

// stdinPort wraps caller's shared stdin reader in a fresh Port, with its own
// new bufio.Reader, each time; callers that want persistent buffered stdin reads should use
// current-input-port and thread the returned Port through subsequent calls.
func stdinPort(caller heap.VMFace) *heap.Port {
	br := bufio.NewReader(caller.Stdin())
	return &heap.Port{
		Name:      "stdin",
		Direction: heap.PortInput,
		Reader: func() (rune, bool, error) {
			r, _, err := br.ReadRune()
			if err != nil {
				return 0, false, nil
			}
			return r, true, nil
		},
	}
}

func primReadChar(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantRange("read-char", args, 0, 1); err != nil {
		return value.Value{}, err
	}
	p, err := inputPort(caller, args, 0, "read-char")
	if err != nil {
		return value.Value{}, err
	}
	r, ok, err := p.Reader()
	if err != nil {
		return value.Value{}, err
	}
	if !ok {
		return value.FromObject(theEOF), nil
	}
	return value.Char(r), nil
}

func primPeekChar(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantRange("peek-char", args, 0, 1); err != nil {
		return value.Value{}, err
	}
	p, err := inputPort(caller, args, 0, "peek-char")
	if err != nil {
		return value.Value{}, err
	}
	r, ok, err := p.Reader()
	if err != nil {
		return value.Value{}, err
	}
	if !ok {
		return value.FromObject(theEOF), nil
	}
	next := r
	inner := p.Reader
	consumed := false
	p.Reader = func() (rune, bool, error) {
		if !consumed {
			consumed = true
			return next, true, nil
		}
		return inner()
	}
	return value.Char(r), nil
}

func primReadLine(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantRange("read-line", args, 0, 1); err != nil {
		return value.Value{}, err
	}
	p, err := inputPort(caller, args, 0, "read-line")
	if err != nil {
		return value.Value{}, err
	}
	var buf []rune
	sawAny := false
	for {
		r, ok, err := p.Reader()
		if err != nil {
			return value.Value{}, err
		}
		if !ok {
			if !sawAny {
				return value.FromObject(theEOF), nil
			}
			break
		}
		sawAny = true
		if r == '\n' {
			break
		}
		buf = append(buf, r)
	}
	return value.FromObject(caller.Heap().NewString(string(buf))), nil
}

func primEofObjectP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("eof-object?", args, 1); err != nil {
		return value.Value{}, err
	}
	return value.Bool_(isEOF(args[0])), nil
}

func primOpenInputString(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("open-input-string", args, 1); err != nil {
		return value.Value{}, err
	}
	s, err := wantString("open-input-string", args[0])
	if err != nil {
		return value.Value{}, err
	}
	runes := append([]rune(nil), s.Runes...)
	pos := 0
	port := &heap.Port{
		Name:      "string-input",
		Direction: heap.PortInput,
		Reader: func() (rune, bool, error) {
			if pos >= len(runes) {
				return 0, false, nil
			}
			r := runes[pos]
			pos++
			return r, true, nil
		},
	}
	return value.FromObject(caller.Heap().NewPort(port)), nil
}

func primOpenOutputString(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("open-output-string", args, 0); err != nil {
		return value.Value{}, err
	}
	var buf strings.Builder
	port := &heap.Port{
		Name:      "string-output",
		Direction: heap.PortOutput,
		Writer: func(s string) error {
			buf.WriteString(s)
			return nil
		},
	}
	p := caller.Heap().NewPort(port)
	outputBuffers[p] = &buf
	return value.FromObject(p), nil
}

// outputBuffers associates a string-output Port with the strings.Builder
// backing it, since heap.Port's Writer closure already captures it but
// get-output-string needs to read the buffer back out by identity.
var outputBuffers = map[*heap.Port]*strings.Builder{}

func primGetOutputString(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("get-output-string", args, 1); err != nil {
		return value.Value{}, err
	}
	p, ok := asPort(args[0])
	if !ok {
		return value.Value{}, fmt.Errorf("get-output-string: expects a port")
	}
	buf, ok := outputBuffers[p]
	if !ok {
		return value.Value{}, fmt.Errorf("get-output-string: not a string output port")
	}
	return value.FromObject(caller.Heap().NewString(buf.String())), nil
}

func primCurrentOutputPort(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("current-output-port", args, 0); err != nil {
		return value.Value{}, err
	}
	w := caller.Stdout()
	port := &heap.Port{
		Name:      "stdout",
		Direction: heap.PortOutput,
		Writer: func(s string) error {
			_, err := fmt.Fprint(w, s)
			return err
		},
	}
	return value.FromObject(caller.Heap().NewPort(port)), nil
}

func primCurrentInputPort(caller heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("current-input-port", args, 0); err != nil {
		return value.Value{}, err
	}
	return value.FromObject(caller.Heap().NewPort(stdinPort(caller))), nil
}

func primPortP(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("port?", args, 1); err != nil {
		return value.Value{}, err
	}
	return value.Bool_(args[0].Is(value.ObjPort)), nil
}

func primClosePort(_ heap.VMFace, args []value.Value) (value.Value, error) {
	if err := wantExact("close-port", args, 1); err != nil {
		return value.Value{}, err
	}
	p, ok := asPort(args[0])
	if !ok {
		return value.Value{}, fmt.Errorf("close-port: expects a port")
	}
	return value.Unspecified_(), p.Close()
}
