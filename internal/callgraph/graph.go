// Package callgraph builds the unit's function call graph and its strongly
// connected component condensation.
//
// Edges carry the call-site kind: ambient and auto-arg edges propagate the
// callee's ambient needs to the caller, explicit-bundle edges absorb them
// and terminate propagation. The condensation's topological batches drive
// the capture propagator (callees before callers) and bound the parallelism
// available to it.
package callgraph

import (
	"slices"

	"ctxc/internal/fir"
	"ctxc/internal/source"
)

// EdgeKind mirrors fir.CallMode at the graph level.
type EdgeKind uint8

const (
	EdgeAmbient EdgeKind = iota
	EdgeBundle
	EdgeAuto
)

// Propagates reports whether the callee's ambient needs flow to the caller.
func (k EdgeKind) Propagates() bool { return k != EdgeBundle }

func (k EdgeKind) String() string {
	switch k {
	case EdgeBundle:
		return "explicit-bundle"
	case EdgeAuto:
		return "auto-arg"
	}
	return "ambient"
}

// Edge is one static call site.
type Edge struct {
	From fir.FuncID
	To   fir.FuncID
	Kind EdgeKind
	Span source.Span
}

// Graph holds per-function outgoing edges, indexed by FuncID.
type Graph struct {
	Out [][]Edge
}

func edgeKind(mode fir.CallMode) EdgeKind {
	switch mode {
	case fir.CallBundle:
		return EdgeBundle
	case fir.CallAuto:
		return EdgeAuto
	}
	return EdgeAmbient
}

// Build collects every static call site in the unit. The loader has already
// rejected calls to unknown functions, so unresolved callees are skipped
// silently here.
func Build(unit *fir.Unit) *Graph {
	g := &Graph{Out: make([][]Edge, len(unit.Funcs))}
	for i := 1; i < len(unit.Funcs); i++ {
		fn := &unit.Funcs[i]
		fir.Walk(fn.Body, 0, func(op *fir.Op, _ int) {
			if op.Kind != fir.OpCall || !op.Callee.IsValid() {
				return
			}
			g.Out[i] = append(g.Out[i], Edge{
				From: fn.ID,
				To:   op.Callee,
				Kind: edgeKind(op.Mode),
				Span: op.Span,
			})
		})
		// детерминированный порядок рёбер
		slices.SortStableFunc(g.Out[i], func(a, b Edge) int {
			if a.To != b.To {
				return int(a.To) - int(b.To)
			}
			return int(a.Kind) - int(b.Kind)
		})
	}
	return g
}

// PropagatingCallees returns the deduplicated callee list reachable over
// ambient/auto edges from fn.
func (g *Graph) PropagatingCallees(fn fir.FuncID) []fir.FuncID {
	seen := make(map[fir.FuncID]struct{})
	var out []fir.FuncID
	for _, e := range g.Out[fn] {
		if !e.Kind.Propagates() {
			continue
		}
		if _, dup := seen[e.To]; dup {
			continue
		}
		seen[e.To] = struct{}{}
		out = append(out, e.To)
	}
	return out
}
