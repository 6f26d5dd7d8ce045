package conflict

import (
	"testing"

	"ctxc/internal/bundle"
	"ctxc/internal/callgraph"
	"ctxc/internal/capture"
	"ctxc/internal/diag"
	"ctxc/internal/fir"
	"ctxc/internal/registry"
	"ctxc/internal/source"
)

func runCheck(t *testing.T, reg *registry.Registry, unit *fir.Unit) *diag.Bag {
	t.Helper()
	bag := diag.NewBag(20)
	r := diag.BagReporter{Bag: bag}
	facts := capture.Extract(unit, reg, map[fir.AliasID]capture.Set{}, r)
	g := callgraph.Build(unit)
	captures := capture.Propagate(g, callgraph.Condense(g), facts)
	Check(unit, reg, facts, captures, r)
	return bag
}

func span(n uint32) source.Span { return source.Span{File: 1, Start: n, End: n + 1} }

func conflictCount(bag *diag.Bag) int {
	n := 0
	for _, d := range bag.Items() {
		if d.Code == diag.CtxBorrowConflict {
			n++
		}
	}
	return n
}

func TestSequentialAccessesDoNotConflict(t *testing.T) {
	reg := registry.New()
	foo, _ := reg.Register("FOO", "u32", false, source.Span{})

	unit := fir.NewUnit("seq")
	fID, _ := unit.AddFunc("f", source.Span{})
	unit.Func(fID).Body = []fir.Op{
		{Kind: fir.OpWrite, Item: foo, Span: span(1)},
		{Kind: fir.OpRead, Item: foo, Span: span(2)},
		{Kind: fir.OpWrite, Item: foo, Span: span(3)},
	}

	if bag := runCheck(t, reg, unit); conflictCount(bag) != 0 {
		t.Fatalf("sequential point uses conflicted: %+v", bag.Items())
	}
}

func TestHeldPackConflictsWithLaterUse(t *testing.T) {
	reg := registry.New()
	foo, _ := reg.Register("FOO", "u32", false, source.Span{})

	unit := fir.NewUnit("held")
	fID, _ := unit.AddFunc("f", source.Span{})
	unit.Func(fID).Body = []fir.Op{
		{
			Kind:    fir.OpPack,
			Span:    span(1),
			Target:  bundle.Type{Slots: []bundle.Slot{{Item: foo, Mut: registry.MutWrite}}},
			Sources: []fir.PackSource{{FromEnv: true}},
		},
		{Kind: fir.OpRead, Item: foo, Span: span(2)},
	}

	bag := runCheck(t, reg, unit)
	if conflictCount(bag) != 1 {
		t.Fatalf("diagnostics = %+v, want one borrow conflict", bag.Items())
	}
	d := bag.Items()[0]
	if len(d.Notes) != 1 || d.Notes[0].Span != span(1) {
		t.Fatalf("conflict must point back at the pack site: %+v", d)
	}
}

func TestSharedReadsAcrossPacks(t *testing.T) {
	// cx: (&mut FOO, &mut BAR, &mut BAZ); packing (&FOO, &mut BAR) and
	// (&FOO, &mut BAZ) shares FOO read-only and must pass.
	reg := registry.New()
	foo, _ := reg.Register("FOO", "u32", false, source.Span{})
	bar, _ := reg.Register("BAR", "f32", false, source.Span{})
	baz, _ := reg.Register("BAZ", "bool", false, source.Span{})

	unit := fir.NewUnit("scenario3")
	fID, _ := unit.AddFunc("f", source.Span{})
	f := unit.Func(fID)
	f.Params = []bundle.Type{{Slots: []bundle.Slot{
		{Item: foo, Mut: registry.MutWrite},
		{Item: bar, Mut: registry.MutWrite},
		{Item: baz, Mut: registry.MutWrite},
	}}}
	f.Body = []fir.Op{
		{
			Kind: fir.OpPack,
			Span: span(1),
			Target: bundle.Type{Slots: []bundle.Slot{
				{Item: foo, Mut: registry.MutRead},
				{Item: bar, Mut: registry.MutWrite},
			}},
			Sources: []fir.PackSource{{Param: 0}},
		},
		{
			Kind: fir.OpPack,
			Span: span(2),
			Target: bundle.Type{Slots: []bundle.Slot{
				{Item: foo, Mut: registry.MutRead},
				{Item: baz, Mut: registry.MutWrite},
			}},
			Sources: []fir.PackSource{{Param: 0}},
		},
	}

	if bag := runCheck(t, reg, unit); bag.Len() != 0 {
		t.Fatalf("shared read across packs flagged: %+v", bag.Items())
	}
}

func TestOverlappingWritePacksConflict(t *testing.T) {
	reg := registry.New()
	foo, _ := reg.Register("FOO", "u32", false, source.Span{})

	unit := fir.NewUnit("two-muts")
	fID, _ := unit.AddFunc("f", source.Span{})
	f := unit.Func(fID)
	f.Params = []bundle.Type{{Slots: []bundle.Slot{{Item: foo, Mut: registry.MutWrite}}}}
	target := bundle.Type{Slots: []bundle.Slot{{Item: foo, Mut: registry.MutWrite}}}
	f.Body = []fir.Op{
		{Kind: fir.OpPack, Span: span(1), Target: target, Sources: []fir.PackSource{{Param: 0}}},
		{Kind: fir.OpPack, Span: span(2), Target: target, Sources: []fir.PackSource{{Param: 0}}},
	}

	if bag := runCheck(t, reg, unit); conflictCount(bag) != 1 {
		t.Fatalf("two overlapping mutable packs not flagged: %+v", bag.Items())
	}
}

func TestCallInLoopConflictsWithBorrowHeldAcross(t *testing.T) {
	reg := registry.New()
	foo, _ := reg.Register("FOO", "u32", false, source.Span{})

	unit := fir.NewUnit("loop")
	fID, _ := unit.AddFunc("f", source.Span{})
	gID, _ := unit.AddFunc("g", source.Span{})
	unit.Func(gID).Body = []fir.Op{{Kind: fir.OpWrite, Item: foo, Span: span(9)}}

	f := unit.Func(fID)
	f.Params = []bundle.Type{{Slots: []bundle.Slot{{Item: foo, Mut: registry.MutRead}}}}
	f.Body = []fir.Op{
		{Kind: fir.OpUnpack, Span: span(1), Param: 0, Item: foo, Mut: registry.MutRead},
		{Kind: fir.OpLoop, Span: span(2), Body: []fir.Op{
			{Kind: fir.OpCall, Callee: gID, Mode: fir.CallAmbient, Span: span(3)},
		}},
	}

	bag := runCheck(t, reg, unit)
	if conflictCount(bag) != 1 {
		t.Fatalf("write inside loop vs read held across it not flagged: %+v", bag.Items())
	}
}

func TestTwoCallsInsideSameLoopStaySequential(t *testing.T) {
	reg := registry.New()
	foo, _ := reg.Register("FOO", "u32", false, source.Span{})

	unit := fir.NewUnit("loop-seq")
	fID, _ := unit.AddFunc("f", source.Span{})
	gID, _ := unit.AddFunc("g", source.Span{})
	unit.Func(gID).Body = []fir.Op{{Kind: fir.OpWrite, Item: foo, Span: span(9)}}
	unit.Func(fID).Body = []fir.Op{
		{Kind: fir.OpLoop, Span: span(1), Body: []fir.Op{
			{Kind: fir.OpCall, Callee: gID, Mode: fir.CallAmbient, Span: span(2)},
			{Kind: fir.OpCall, Callee: gID, Mode: fir.CallAmbient, Span: span(3)},
		}},
	}

	if bag := runCheck(t, reg, unit); conflictCount(bag) != 0 {
		t.Fatalf("sequential calls within one iteration flagged: %+v", bag.Items())
	}
}

func TestDuplicateMutUnpacksConflict(t *testing.T) {
	reg := registry.New()
	foo, _ := reg.Register("FOO", "u32", false, source.Span{})

	unit := fir.NewUnit("unpacks")
	fID, _ := unit.AddFunc("f", source.Span{})
	f := unit.Func(fID)
	f.Params = []bundle.Type{{Slots: []bundle.Slot{{Item: foo, Mut: registry.MutWrite}}}}
	f.Body = []fir.Op{
		{Kind: fir.OpUnpack, Span: span(1), Param: 0, Item: foo, Mut: registry.MutWrite},
		{Kind: fir.OpUnpack, Span: span(2), Param: 0, Item: foo, Mut: registry.MutWrite},
	}

	if bag := runCheck(t, reg, unit); conflictCount(bag) != 1 {
		t.Fatalf("aliased mutable unpacks not flagged: %+v", bag.Items())
	}
}
