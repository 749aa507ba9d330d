// Package collapser maps synonyms to a canonical word. A Table is built once
// at startup and is read-only afterwards, so it can be shared by concurrent
// accumulators without locking.
package collapser

import (
	"slices"
	"strings"
)

// Table stores the canonical words in insertion order and binds each
// synonym to an index into that order.
type Table struct {
	canonical []string
	position  map[string]int
	synonyms  map[string]int
}

// New returns an empty Table.
func New() *Table {
	return &Table{
		position: make(map[string]int),
		synonyms: make(map[string]int),
	}
}

// Add binds synonym to canonical, reusing canonical's slot when it already
// exists. A synonym bound earlier is rebound.
func (t *Table) Add(canonical, synonym string) {
	idx, ok := t.position[canonical]
	if !ok {
		idx = len(t.canonical)
		t.canonical = append(t.canonical, canonical)
		t.position[canonical] = idx
	}
	t.synonyms[synonym] = idx
}

// Collapse returns the canonical form of word. ok is false when word is not
// a known synonym, in which case the caller keeps word unchanged.
func (t *Table) Collapse(word string) (canonical string, ok bool) {
	idx, ok := t.synonyms[word]
	if !ok {
		return "", false
	}
	return t.canonical[idx], true
}

// Len returns the number of bound synonyms.
func (t *Table) Len() int {
	return len(t.synonyms)
}

// Canonicals returns the canonical words in insertion order.
func (t *Table) Canonicals() []string {
	return slices.Clone(t.canonical)
}

// Binding is one synonym → canonical record.
type Binding struct {
	Synonym   string
	Canonical string
}

// Bindings returns every binding sorted by synonym.
func (t *Table) Bindings() []Binding {
	out := make([]Binding, 0, len(t.synonyms))
	for syn, idx := range t.synonyms {
		out = append(out, Binding{Synonym: syn, Canonical: t.canonical[idx]})
	}
	slices.SortFunc(out, func(a, b Binding) int {
		return strings.Compare(a.Synonym, b.Synonym)
	})
	return out
}
