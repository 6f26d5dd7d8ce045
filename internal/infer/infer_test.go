package infer

import (
	"testing"

	"ctxc/internal/capture"
	"ctxc/internal/diag"
	"ctxc/internal/fir"
	"ctxc/internal/registry"
	"ctxc/internal/source"
)

func span(n uint32) source.Span { return source.Span{File: 1, Start: n, End: n + 1} }

func TestSolveWithoutAliasesSettlesImmediately(t *testing.T) {
	reg := registry.New()
	foo, _ := reg.Register("FOO", "u32", false, source.Span{})

	unit := fir.NewUnit("plain")
	fID, _ := unit.AddFunc("f", source.Span{})
	unit.Func(fID).Body = []fir.Op{{Kind: fir.OpRead, Item: foo, Span: span(1)}}

	res := Solve(unit, reg, diag.NopReporter{})
	if !res.Converged || res.Rounds != 0 {
		t.Fatalf("converged=%v rounds=%d, want immediate convergence", res.Converged, res.Rounds)
	}
	if got := res.Captures[fID]; !got.Equal(capture.Set{foo: registry.MutRead}) {
		t.Fatalf("captures[f] = %v", got)
	}
}

func TestAliasAbsorbsTransitiveCaptures(t *testing.T) {
	reg := registry.New()
	foo, _ := reg.Register("FOO", "u32", false, source.Span{})
	bar, _ := reg.Register("BAR", "f32", false, source.Span{})

	unit := fir.NewUnit("alias")
	cx, _ := unit.AddAlias("Cx", span(10))
	fID, _ := unit.AddFunc("f", source.Span{})
	gID, _ := unit.AddFunc("g", source.Span{})
	unit.Func(gID).Body = []fir.Op{
		{Kind: fir.OpRead, Item: foo, Span: span(1)},
		{Kind: fir.OpWrite, Item: bar, Span: span(2)},
	}
	unit.Func(fID).Body = []fir.Op{
		{Kind: fir.OpBindAlias, Alias: cx, Span: span(3)},
		{Kind: fir.OpCall, Callee: gID, Mode: fir.CallAmbient, Span: span(4)},
	}

	bag := diag.NewBag(10)
	res := Solve(unit, reg, diag.BagReporter{Bag: bag})
	if !res.Converged {
		t.Fatalf("did not converge in %d rounds", res.Rounds)
	}
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}

	want := capture.Set{foo: registry.MutRead, bar: registry.MutWrite}
	if got := res.Alias[cx]; !got.Equal(want) {
		t.Fatalf("alias content = %v, want %v", got, want)
	}
	// the bound alias covers f's whole demand, so nothing leaks to callers
	if residual := capture.Residual(res.Captures, res.Facts, fID); len(residual) != 0 {
		t.Fatalf("f residual = %v, want empty", residual)
	}
}

func TestAliasChainNeedsExtraRound(t *testing.T) {
	// h binds B and calls leaf; g binds A and calls h ambiently. A can only
	// see leaf's demand once B has absorbed it, so the chain settles over
	// multiple rounds.
	reg := registry.New()
	foo, _ := reg.Register("FOO", "u32", false, source.Span{})

	unit := fir.NewUnit("chain")
	aliasA, _ := unit.AddAlias("A", span(20))
	aliasB, _ := unit.AddAlias("B", span(21))
	gID, _ := unit.AddFunc("g", source.Span{})
	hID, _ := unit.AddFunc("h", source.Span{})
	leafID, _ := unit.AddFunc("leaf", source.Span{})

	unit.Func(leafID).Body = []fir.Op{{Kind: fir.OpWrite, Item: foo, Span: span(1)}}
	unit.Func(hID).Body = []fir.Op{
		{Kind: fir.OpBindAlias, Alias: aliasB, Span: span(2)},
		{Kind: fir.OpCall, Callee: leafID, Mode: fir.CallAmbient, Span: span(3)},
	}
	unit.Func(gID).Body = []fir.Op{
		{Kind: fir.OpBindAlias, Alias: aliasA, Span: span(4)},
		{Kind: fir.OpCall, Callee: hID, Mode: fir.CallAmbient, Span: span(5)},
	}

	res := Solve(unit, reg, diag.NopReporter{})
	if !res.Converged {
		t.Fatalf("did not converge in %d rounds", res.Rounds)
	}
	want := capture.Set{foo: registry.MutWrite}
	if got := res.Alias[aliasB]; !got.Equal(want) {
		t.Fatalf("B = %v, want %v", got, want)
	}
	// h absorbs FOO through B, so g never demands it and A stays empty
	if got := res.Alias[aliasA]; len(got) != 0 {
		t.Fatalf("A = %v, want empty", got)
	}
	if residual := capture.Residual(res.Captures, res.Facts, hID); len(residual) != 0 {
		t.Fatalf("h residual = %v, want empty", residual)
	}
}

func TestGenericItemsStayOutOfAliasContents(t *testing.T) {
	reg := registry.New()
	foo, _ := reg.Register("FOO", "u32", false, source.Span{})
	reg.Register("T", "", true, source.Span{})

	unit := fir.NewUnit("generic")
	cx, _ := unit.AddAlias("Cx", span(30))
	fID, _ := unit.AddFunc("f", source.Span{})
	unit.Func(fID).Body = []fir.Op{
		{Kind: fir.OpBindAlias, Alias: cx, Span: span(1)},
		{Kind: fir.OpRead, Item: foo, Span: span(2)},
	}

	res := Solve(unit, reg, diag.NopReporter{})
	if !res.Converged {
		t.Fatalf("did not converge in %d rounds", res.Rounds)
	}
	want := capture.Set{foo: registry.MutRead}
	if got := res.Alias[cx]; !got.Equal(want) {
		t.Fatalf("alias content = %v, want %v", got, want)
	}
}
