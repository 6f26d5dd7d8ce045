// Package testkit holds cross-package invariant checks shared by tests.
package testkit

import (
	"fmt"

	"ctxc/internal/callgraph"
	"ctxc/internal/capture"
	"ctxc/internal/fir"
	"ctxc/internal/registry"
)

// CheckCaptureInvariants runs the structural invariants every settled
// analysis must satisfy:
// 1) a function's capture set includes its own direct accesses
// 2) over every propagating edge, the caller covers the callee's residual
// 3) every captured item exists in the registry and is concrete
func CheckCaptureInvariants(unit *fir.Unit, reg *registry.Registry, g *callgraph.Graph, facts []capture.Facts, captures capture.Captures) error {
	if unit == nil || reg == nil || g == nil {
		return fmt.Errorf("nil unit, registry or graph")
	}

	for i := 1; i < len(unit.Funcs); i++ {
		fn := fir.FuncID(i)
		name := unit.FuncName(fn)
		set := captures[i]

		// 1) direct accesses are captured
		for item, mut := range facts[i].Direct {
			have, ok := set[item]
			if !ok || !have.Satisfies(mut) {
				return fmt.Errorf("%s: direct access %s:%s missing from capture set %v",
					name, reg.Name(item), mut, set)
			}
		}

		// 2) ambient superset over propagating edges
		for _, callee := range g.PropagatingCallees(fn) {
			residual := capture.Residual(captures, facts, callee)
			for item, mut := range residual {
				have, ok := set[item]
				if !ok || !have.Satisfies(mut) {
					return fmt.Errorf("%s: residual %s:%s of callee %s not covered by %v",
						name, reg.Name(item), mut, unit.FuncName(callee), set)
				}
			}
		}

		// 3) captured items are registered and concrete
		for item := range set {
			it := reg.Get(item)
			if it == nil {
				return fmt.Errorf("%s: capture set references unknown item %d", name, item)
			}
			if it.Generic {
				return fmt.Errorf("%s: generic item %s propagated ambiently", name, it.Name)
			}
		}
	}
	return nil
}
