// Package registry holds the canonical table of declared context items.
//
// The table is populated once by the front end (here: the unit loader) and is
// read-only for the rest of the analysis. It is passed by reference through
// every phase; there is no process-wide state.
package registry

import (
	"fmt"

	"fortio.org/safecast"

	"ctxc/internal/source"
)

// ItemID identifies a declared context item. 0 is reserved.
type ItemID uint32

// NoItemID marks the absence of an item.
const NoItemID ItemID = 0

// IsValid reports whether the ID references a registered item.
func (id ItemID) IsValid() bool { return id != NoItemID }

// Mut is the mutability requirement of an access or bundle slot.
// Write subsumes read, which makes (set of items -> Mut) a finite lattice
// ordered by inclusion with write > read.
type Mut uint8

const (
	MutRead Mut = iota
	MutWrite
)

func (m Mut) String() string {
	if m == MutWrite {
		return "write"
	}
	return "read"
}

// Borrow renders the mutability the way it appears in bundle types.
func (m Mut) Borrow() string {
	if m == MutWrite {
		return "&mut"
	}
	return "&"
}

// Max returns the stronger of two mutabilities.
func (m Mut) Max(other Mut) Mut {
	if other > m {
		return other
	}
	return m
}

// Satisfies reports whether a slot of mutability m can serve a requirement.
// A write source can be re-borrowed as read, not the other way around.
func (m Mut) Satisfies(req Mut) bool {
	return m >= req
}

// Item is one declared context item. Immutable once registered.
type Item struct {
	ID      ItemID
	Name    string
	Type    string // declared value type, opaque to the engine
	Generic bool   // type mentions an unresolved generic parameter
	Span    source.Span
}

// Registry is the canonical, append-only table of context items.
type Registry struct {
	items  []Item // items[0] — sentinel для NoItemID
	byName map[string]ItemID
}

func New() *Registry {
	return &Registry{
		items:  []Item{{}},
		byName: make(map[string]ItemID),
	}
}

// Register adds an item and returns its ID. Re-registering a name returns the
// existing ID and false.
func (r *Registry) Register(name, typ string, generic bool, span source.Span) (ItemID, bool) {
	if id, ok := r.byName[name]; ok {
		return id, false
	}
	lenItems, err := safecast.Conv[uint32](len(r.items))
	if err != nil {
		panic(fmt.Errorf("item id overflow: %w", err))
	}
	id := ItemID(lenItems)
	r.items = append(r.items, Item{
		ID:      id,
		Name:    name,
		Type:    typ,
		Generic: generic,
		Span:    span,
	})
	r.byName[name] = id
	return id, true
}

// Lookup returns the ID for a declared item name.
func (r *Registry) Lookup(name string) (ItemID, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// Get returns the item for the given ID, or nil if the ID is invalid.
func (r *Registry) Get(id ItemID) *Item {
	if int(id) <= 0 || int(id) >= len(r.items) {
		return nil
	}
	return &r.items[id]
}

// Name returns the item's declared name, or "?" for an invalid ID.
func (r *Registry) Name(id ItemID) string {
	if it := r.Get(id); it != nil {
		return it.Name
	}
	return "?"
}

// Len returns the number of registered items (the sentinel excluded).
func (r *Registry) Len() int {
	return len(r.items) - 1
}

// Items returns the registered items in declaration order.
// Callers must not modify the returned slice.
func (r *Registry) Items() []Item {
	return r.items[1:]
}
