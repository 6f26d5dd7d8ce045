// Package bundle implements the structural algebra over bundle types:
// ordered slot sequences, pack/unpack selection, and partition splitting.
//
// The package sits below the capture layer. The environment source used by
// pack is abstracted behind Env so a capture set can act as a source without
// an import cycle.
package bundle

import (
	"sort"
	"strings"

	"ctxc/internal/registry"
	"ctxc/internal/source"
)

// Slot is one element of a bundle type: a borrowed context item with the
// declared mutability. Generic-ness lives on the registry item itself.
type Slot struct {
	Item registry.ItemID
	Mut  registry.Mut
	Span source.Span
}

// Type is an ordered sequence of slots. Nested tuples are flattened by the
// loader before a Type is built, so resolution never sees nesting.
type Type struct {
	Slots []Slot
}

// IsEmpty reports whether the bundle carries no slots.
func (t Type) IsEmpty() bool { return len(t.Slots) == 0 }

// Concat appends other's slots, preserving order. Used for tuple flattening.
func (t Type) Concat(other Type) Type {
	out := Type{Slots: make([]Slot, 0, len(t.Slots)+len(other.Slots))}
	out.Slots = append(out.Slots, t.Slots...)
	out.Slots = append(out.Slots, other.Slots...)
	return out
}

// Equal is structural equality up to slot order: the two types carry the
// same multiset of (item, mutability) pairs.
func (t Type) Equal(other Type) bool {
	if len(t.Slots) != len(other.Slots) {
		return false
	}
	a := sortedPairs(t)
	b := sortedPairs(other)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type pair struct {
	item registry.ItemID
	mut  registry.Mut
}

func sortedPairs(t Type) []pair {
	out := make([]pair, len(t.Slots))
	for i, s := range t.Slots {
		out[i] = pair{item: s.Item, mut: s.Mut}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].item != out[j].item {
			return out[i].item < out[j].item
		}
		return out[i].mut < out[j].mut
	})
	return out
}

// String renders the type in surface form, e.g. "(&FOO, &mut BAR)".
func (t Type) String(reg *registry.Registry) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, s := range t.Slots {
		if i > 0 {
			sb.WriteString(", ")
		}
		if s.Mut == registry.MutWrite {
			sb.WriteString("&mut ")
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString(reg.Name(s.Item))
	}
	sb.WriteByte(')')
	return sb.String()
}
