package bundle

import (
	"ctxc/internal/registry"
)

// Env is the environment source used by pack: the enclosing function's
// capture set. It can only offer concrete items; genericity is checked by
// Pack against the registry.
type Env interface {
	// Offer reports the mutability the environment holds for item, if any.
	Offer(item registry.ItemID) (registry.Mut, bool)
}

// SourceKind distinguishes bundle sources from the ambient environment.
type SourceKind uint8

const (
	SourceBundle SourceKind = iota
	SourceEnv
)

// Source is one pack origin, scanned left to right.
type Source struct {
	Kind   SourceKind
	Bundle Type // for SourceBundle
	Env    Env  // for SourceEnv
}

// FailKind enumerates the ways a resolution request fails.
type FailKind uint8

const (
	FailNone FailKind = iota
	FailSlotNotFound
	FailSlotAmbiguous
	FailAmbiguousOrigin
	FailGenericNotAmbient
)

// Fail carries the failing slot and, for pack, the offending source index.
type Fail struct {
	Kind   FailKind
	Slot   Slot
	Source int // index into sources; -1 when not source-specific
}

// Origin records where a packed slot came from.
type Origin struct {
	Source int // index into the pack sources
	Index  int // slot index within the source bundle; -1 for the environment
}

// Pack resolves every slot required by target against sources in priority
// order. A write offer satisfies a read requirement by re-borrowing. The
// first source holding a compatible slot wins; ambiguity is raised only when
// that single source holds more than one compatible slot for the item, since
// left-to-right priority cannot break a tie inside one source.
func Pack(reg *registry.Registry, target Type, sources []Source) ([]Origin, []Fail) {
	origins := make([]Origin, 0, len(target.Slots))
	var fails []Fail

	for _, want := range target.Slots {
		origin, fail := packOne(reg, want, sources)
		if fail.Kind != FailNone {
			fails = append(fails, fail)
			continue
		}
		origins = append(origins, origin)
	}
	if len(fails) > 0 {
		return nil, fails
	}
	return origins, nil
}

func packOne(reg *registry.Registry, want Slot, sources []Source) (Origin, Fail) {
	for si, src := range sources {
		switch src.Kind {
		case SourceBundle:
			first := -1
			count := 0
			for i, have := range src.Bundle.Slots {
				if have.Item != want.Item || !have.Mut.Satisfies(want.Mut) {
					continue
				}
				if first < 0 {
					first = i
				}
				count++
			}
			if count > 1 {
				return Origin{}, Fail{Kind: FailAmbiguousOrigin, Slot: want, Source: si}
			}
			if count == 1 {
				return Origin{Source: si, Index: first}, Fail{}
			}
		case SourceEnv:
			it := reg.Get(want.Item)
			if it != nil && it.Generic {
				// genericity is unresolved until monomorphization; the
				// environment never supplies generic slots
				return Origin{}, Fail{Kind: FailGenericNotAmbient, Slot: want, Source: si}
			}
			if src.Env == nil {
				continue
			}
			if mut, ok := src.Env.Offer(want.Item); ok && mut.Satisfies(want.Mut) {
				return Origin{Source: si, Index: -1}, Fail{}
			}
		}
	}
	return Origin{}, Fail{Kind: FailSlotNotFound, Slot: want, Source: -1}
}

// Unpack locates the slot of b serving a request for (item, mut). Exact
// mutability matches are preferred; a stronger slot can be re-borrowed.
// Duplicate candidates inside the bundle are SlotAmbiguous — a bundle may
// legally carry duplicate read-only slots, extraction is what is rejected.
func Unpack(b Type, item registry.ItemID, mut registry.Mut) (int, Fail) {
	exactFirst, exactCount := -1, 0
	compatFirst, compatCount := -1, 0
	for i, have := range b.Slots {
		if have.Item != item || !have.Mut.Satisfies(mut) {
			continue
		}
		if compatFirst < 0 {
			compatFirst = i
		}
		compatCount++
		if have.Mut == mut {
			if exactFirst < 0 {
				exactFirst = i
			}
			exactCount++
		}
	}
	want := Slot{Item: item, Mut: mut}
	switch {
	case exactCount == 1:
		return exactFirst, Fail{}
	case exactCount > 1:
		return -1, Fail{Kind: FailSlotAmbiguous, Slot: want, Source: -1}
	case compatCount == 1:
		return compatFirst, Fail{}
	case compatCount > 1:
		return -1, Fail{Kind: FailSlotAmbiguous, Slot: want, Source: -1}
	}
	return -1, Fail{Kind: FailSlotNotFound, Slot: want, Source: -1}
}

// Split partitions b into the requested parts. Every part slot must match a
// distinct slot of b with identical item and mutability, and together the
// parts must consume b exactly. Slots carry their own identity, so a
// structural partition can always be checked locally.
func Split(b Type, parts []Type) ([][]int, Fail) {
	taken := make([]bool, len(b.Slots))
	out := make([][]int, len(parts))
	for pi, part := range parts {
		out[pi] = make([]int, 0, len(part.Slots))
		for _, want := range part.Slots {
			found := -1
			for i, have := range b.Slots {
				if taken[i] || have.Item != want.Item || have.Mut != want.Mut {
					continue
				}
				found = i
				break
			}
			if found < 0 {
				return nil, Fail{Kind: FailSlotNotFound, Slot: want, Source: pi}
			}
			taken[found] = true
			out[pi] = append(out[pi], found)
		}
	}
	for i, used := range taken {
		if !used {
			return nil, Fail{Kind: FailSlotNotFound, Slot: b.Slots[i], Source: -1}
		}
	}
	return out, Fail{}
}
