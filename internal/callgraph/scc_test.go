package callgraph

import (
	"testing"

	"ctxc/internal/fir"
	"ctxc/internal/source"
)

// buildUnit wires name -> callee lists into a Unit with ambient calls unless
// the callee name is prefixed with "bundle:".
func buildUnit(t *testing.T, funcs map[string][]string) *fir.Unit {
	t.Helper()
	unit := fir.NewUnit("test")
	for name := range funcs {
		if _, fresh := unit.AddFunc(name, source.Span{}); !fresh {
			t.Fatalf("duplicate func %q", name)
		}
	}
	for name, callees := range funcs {
		id, _ := unit.LookupFunc(name)
		fn := unit.Func(id)
		for _, callee := range callees {
			mode := fir.CallAmbient
			if len(callee) > 7 && callee[:7] == "bundle:" {
				mode = fir.CallBundle
				callee = callee[7:]
			}
			calleeID, ok := unit.LookupFunc(callee)
			if !ok {
				t.Fatalf("unknown callee %q", callee)
			}
			fn.Body = append(fn.Body, fir.Op{Kind: fir.OpCall, Callee: calleeID, Mode: mode})
		}
	}
	return unit
}

func compIndex(t *testing.T, unit *fir.Unit, scc *SCC, name string) int {
	t.Helper()
	id, ok := unit.LookupFunc(name)
	if !ok {
		t.Fatalf("unknown func %q", name)
	}
	return scc.CompOf[id]
}

func TestCondenseLinearChain(t *testing.T) {
	unit := buildUnit(t, map[string][]string{
		"foo": {"bar"},
		"bar": {"baz"},
		"baz": {},
	})
	scc := Condense(Build(unit))

	if len(scc.Comps) != 3 {
		t.Fatalf("components = %d, want 3", len(scc.Comps))
	}
	// callees settle before callers
	pos := make(map[int]int)
	for bi, batch := range scc.Batches {
		for _, c := range batch {
			pos[c] = bi
		}
	}
	if !(pos[compIndex(t, unit, scc, "baz")] < pos[compIndex(t, unit, scc, "bar")]) {
		t.Fatalf("baz must settle before bar: %v", scc.Batches)
	}
	if !(pos[compIndex(t, unit, scc, "bar")] < pos[compIndex(t, unit, scc, "foo")]) {
		t.Fatalf("bar must settle before foo: %v", scc.Batches)
	}
}

func TestCondenseMutualRecursion(t *testing.T) {
	unit := buildUnit(t, map[string][]string{
		"even": {"odd"},
		"odd":  {"even"},
		"main": {"even"},
	})
	scc := Condense(Build(unit))

	if len(scc.Comps) != 2 {
		t.Fatalf("components = %d, want 2 (cycle collapsed)", len(scc.Comps))
	}
	if compIndex(t, unit, scc, "even") != compIndex(t, unit, scc, "odd") {
		t.Fatalf("even/odd must share a component")
	}
	if compIndex(t, unit, scc, "main") == compIndex(t, unit, scc, "even") {
		t.Fatalf("main must not join the cycle component")
	}
}

func TestCondenseBundleEdgeBreaksCycle(t *testing.T) {
	// a -> b ambient, b -> a via explicit bundle: no propagation cycle.
	unit := buildUnit(t, map[string][]string{
		"a": {"b"},
		"b": {"bundle:a"},
	})
	scc := Condense(Build(unit))

	if len(scc.Comps) != 2 {
		t.Fatalf("components = %d, want 2 (bundle edge must not close the cycle)", len(scc.Comps))
	}
}

func TestCondenseIndependentBatches(t *testing.T) {
	// two disjoint chains: leaves share the first wave
	unit := buildUnit(t, map[string][]string{
		"a1": {"a2"},
		"a2": {},
		"b1": {"b2"},
		"b2": {},
	})
	scc := Condense(Build(unit))

	if len(scc.Batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(scc.Batches))
	}
	if len(scc.Batches[0]) != 2 || len(scc.Batches[1]) != 2 {
		t.Fatalf("batch sizes = %v, want [2 2]", scc.Batches)
	}
}

func TestPropagatingCalleesDedup(t *testing.T) {
	unit := buildUnit(t, map[string][]string{
		"f": {"g", "g", "bundle:g"},
		"g": {},
	})
	g := Build(unit)
	id, _ := unit.LookupFunc("f")
	callees := g.PropagatingCallees(id)
	if len(callees) != 1 {
		t.Fatalf("PropagatingCallees = %v, want a single deduplicated callee", callees)
	}
}
