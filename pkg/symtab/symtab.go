// Package symtab implements a per-VM symbol table: a name -> id intern map.
// It is deliberately instance-scoped rather than a process-wide global, so
// independent interpreters never cross-talk. The lookup/assign-on-first-use
// shape is the usual one for a compiler's name table: look a name up, and
// if it's new, assign it the next id.
package symtab

import "fmt"

// Table interns symbol names to identity-comparable ids. Two symbols with
// equal names always share one id; entries are never evicted — an
// acknowledged, intentional leak, bounded by the number of distinct symbol
// spellings a program uses.
type Table struct {
	ids    map[string]int32
	names  []string
	nextID int32
}

func New() *Table {
	return &Table{ids: make(map[string]int32)}
}

// Intern returns the id for name, assigning a fresh monotonic id on first
// use.
func (t *Table) Intern(name string) int32 {
	if id, ok := t.ids[name]; ok {
		return id
	}
	id := t.nextID
	t.nextID++
	t.ids[name] = id
	t.names = append(t.names, name)
	return id
}

// Name returns the interned name for id, panicking on an id this table
// never issued (a compiler/VM invariant violation, not a user-facing
// error).
func (t *Table) Name(id int32) string {
	if int(id) < 0 || int(id) >= len(t.names) {
		panic(fmt.Sprintf("symtab: id %d out of range", id))
	}
	return t.names[id]
}

// Lookup reports an id without interning, for callers that must not create
// new symbols as a side effect of checking whether one exists.
func (t *Table) Lookup(name string) (int32, bool) {
	id, ok := t.ids[name]
	return id, ok
}

// Len reports how many distinct symbols have been interned.
func (t *Table) Len() int { return len(t.names) }
