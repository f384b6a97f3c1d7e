package primitives

import (
	"strings"

	"github.com/rmay/goscheme/pkg/heap"
	"github.com/rmay/goscheme/pkg/symtab"
	"github.com/rmay/goscheme/pkg/value"
)

// displayString renders v the way `display` does: strings and characters
// print their raw content, not reader syntax. syms resolves symbol ids to
// names; nil prints every symbol as #<symbol> instead (acceptable in contexts, like
// error formatting, that have no symbol table at hand).
func displayString(syms *symtab.Table, v value.Value) string {
	var b strings.Builder
	printValue(&b, syms, v, false)
	return b.String()
}

// writeString renders v the way `write` does: strings are quoted and
// escaped, characters use #\ syntax, re-readable wherever possible.
func writeString(syms *symtab.Table, v value.Value) string {
	var b strings.Builder
	printValue(&b, syms, v, true)
	return b.String()
}

// WriteString is writeString's exported form, for a REPL or CLI driver
// printing a top-level result the way `write` would.
func WriteString(syms *symtab.Table, v value.Value) string { return writeString(syms, v) }

// DisplayString is displayString's exported form.
func DisplayString(syms *symtab.Table, v value.Value) string { return displayString(syms, v) }

func printValue(b *strings.Builder, syms *symtab.Table, v value.Value, write bool) {
	switch v.Tag() {
	case value.TagUnspecified:
		b.WriteString("#<unspecified>")
	case value.TagEmptyList:
		b.WriteString("()")
	case value.TagBool:
		if v.AsBool() {
			b.WriteString("#t")
		} else {
			b.WriteString("#f")
		}
	case value.TagChar:
		printChar(b, v.AsChar(), write)
	case value.TagNumber:
		b.WriteString(formatNumber(v.AsNumber()))
	case value.TagSymbol:
		printSymbol(b, syms, v.AsSymbolID())
	case value.TagObj:
		printObject(b, syms, v, write)
	default:
		b.WriteString("#<value>")
	}
}

func printSymbol(b *strings.Builder, syms *symtab.Table, id int32) {
	if syms == nil {
		b.WriteString("#<symbol>")
		return
	}
	b.WriteString(syms.Name(id))
}

func printChar(b *strings.Builder, r rune, write bool) {
	if !write {
		b.WriteRune(r)
		return
	}
	b.WriteString("#\\")
	switch r {
	case ' ':
		b.WriteString("space")
	case '\n':
		b.WriteString("newline")
	case '\t':
		b.WriteString("tab")
	default:
		b.WriteRune(r)
	}
}

func printObject(b *strings.Builder, syms *symtab.Table, v value.Value, write bool) {
	tag, _ := v.ObjectTag()
	switch tag {
	case value.ObjPair:
		printPair(b, syms, v.AsObject().(*heap.Pair), write)
	case value.ObjVector:
		printVector(b, syms, v.AsObject().(*heap.Vector), write)
	case value.ObjString:
		printStr(b, v.AsObject().(*heap.Str), write)
	case value.ObjPort:
		b.WriteString("#<port>")
	case value.ObjClosure:
		c := v.AsObject().(*heap.Closure)
		name := c.Chunk.Name
		if name == "" {
			name = "anonymous"
		}
		b.WriteString("#<procedure " + name + ">")
	case value.ObjPrimitive:
		p := v.AsObject().(*heap.Primitive)
		b.WriteString("#<procedure " + p.Name + ">")
	case value.ObjContinuation:
		b.WriteString("#<continuation>")
	case value.ObjChunk:
		b.WriteString("#<chunk>")
	default:
		b.WriteString("#<object>")
	}
}

func printPair(b *strings.Builder, syms *symtab.Table, p *heap.Pair, write bool) {
	b.WriteByte('(')
	printValue(b, syms, p.Car, write)
	rest := p.Cdr
	for {
		if rest.IsEmptyList() {
			break
		}
		if next, ok := asPair(rest); ok {
			b.WriteByte(' ')
			printValue(b, syms, next.Car, write)
			rest = next.Cdr
			continue
		}
		b.WriteString(" . ")
		printValue(b, syms, rest, write)
		break
	}
	b.WriteByte(')')
}

func printVector(b *strings.Builder, syms *symtab.Table, vec *heap.Vector, write bool) {
	b.WriteString("#(")
	for i, e := range vec.Elems {
		if i > 0 {
			b.WriteByte(' ')
		}
		printValue(b, syms, e, write)
	}
	b.WriteByte(')')
}

func printStr(b *strings.Builder, s *heap.Str, write bool) {
	if !write {
		b.WriteString(string(s.Runes))
		return
	}
	b.WriteByte('"')
	for _, r := range s.Runes {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}
