// Package capture computes, per function, the set of context items it may
// touch directly or through ambient calls, with the strongest required
// mutability.
//
// Sets over (item, mutability) with write > read form a finite lattice
// ordered by inclusion; every update in this package is a monotone union,
// which is what guarantees the propagation and inference fixpoints
// terminate.
package capture

import (
	"sort"
	"strings"

	"ctxc/internal/bundle"
	"ctxc/internal/registry"
)

// Set maps a context item to the strongest mutability required of it.
type Set map[registry.ItemID]registry.Mut

func NewSet() Set { return make(Set) }

// Add records a requirement, merging mutability upward. Reports whether the
// set changed.
func (s Set) Add(item registry.ItemID, mut registry.Mut) bool {
	have, ok := s[item]
	if ok && have.Satisfies(mut) {
		return false
	}
	s[item] = have.Max(mut)
	return true
}

// Union merges other into s. Reports whether s changed.
func (s Set) Union(other Set) bool {
	changed := false
	for item, mut := range other {
		if s.Add(item, mut) {
			changed = true
		}
	}
	return changed
}

// Subtract returns the requirements of s not satisfied by cover. A covered
// item re-appears at write strength when s needs write but cover only
// offers read.
func (s Set) Subtract(cover Set) Set {
	out := NewSet()
	for item, mut := range s {
		if have, ok := cover[item]; ok && have.Satisfies(mut) {
			continue
		}
		out[item] = mut
	}
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for item, mut := range s {
		out[item] = mut
	}
	return out
}

// Equal reports exact equality of items and mutabilities.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for item, mut := range s {
		if om, ok := other[item]; !ok || om != mut {
			return false
		}
	}
	return true
}

// Offer implements bundle.Env: a capture set is the environment source a
// pack! may draw concrete slots from.
func (s Set) Offer(item registry.ItemID) (registry.Mut, bool) {
	mut, ok := s[item]
	return mut, ok
}

// Entry is one sorted element of a set.
type Entry struct {
	Item registry.ItemID
	Mut  registry.Mut
}

// Entries returns the set sorted by item ID for deterministic output.
func (s Set) Entries() []Entry {
	out := make([]Entry, 0, len(s))
	for item, mut := range s {
		out = append(out, Entry{Item: item, Mut: mut})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}

// BundleType renders the set as a bundle type with slots in item order.
func (s Set) BundleType() bundle.Type {
	entries := s.Entries()
	t := bundle.Type{Slots: make([]bundle.Slot, 0, len(entries))}
	for _, e := range entries {
		t.Slots = append(t.Slots, bundle.Slot{Item: e.Item, Mut: e.Mut})
	}
	return t
}

// String renders the set like "{BAR:read, FOO:write}" in item order.
func (s Set) String(reg *registry.Registry) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, e := range s.Entries() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(reg.Name(e.Item))
		sb.WriteByte(':')
		sb.WriteString(e.Mut.String())
	}
	sb.WriteByte('}')
	return sb.String()
}
