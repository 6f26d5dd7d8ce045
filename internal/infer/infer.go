// Package infer runs the inferred-bundle fixpoint: alias contents feed the
// absorbed sets of their binding functions, which feed capture propagation,
// which feeds the alias contents back.
package infer

import (
	"fmt"

	"ctxc/internal/callgraph"
	"ctxc/internal/capture"
	"ctxc/internal/diag"
	"ctxc/internal/fir"
	"ctxc/internal/registry"
)

// Result is the settled state of one inference run. Facts and Captures come
// from the confirming pass, so their resolution diagnostics have already
// reached the caller's reporter.
type Result struct {
	// Alias maps every declared alias to its inferred slot contents.
	Alias map[fir.AliasID]capture.Set
	// Facts holds the per-function extraction of the final pass.
	Facts []capture.Facts
	// Captures holds the per-function capture sets of the final pass.
	Captures capture.Captures
	// Graph and SCC are shared with later phases; call edges do not depend
	// on alias contents, so both are computed once.
	Graph *callgraph.Graph
	SCC   *callgraph.SCC
	// Rounds counts the iterations spent before convergence.
	Rounds    int
	Converged bool
}

// Solve iterates extraction and propagation until alias contents stabilise,
// then replays one confirming pass through r so resolution failures are
// reported exactly once. Alias contents only accumulate concrete items, so
// the chain of strictly growing states is bounded by the registry; the round
// cap guards the oscillating states mutually bound aliases can produce,
// reported as CtxNonConvergent.
func Solve(unit *fir.Unit, reg *registry.Registry, r diag.Reporter) *Result {
	g := callgraph.Build(unit)
	scc := callgraph.Condense(g)

	content := emptyContents(unit)
	maxRounds := reg.Len() + 2
	rounds := 0
	converged := false
	for ; rounds < maxRounds; rounds++ {
		facts := capture.Extract(unit, reg, content, diag.NopReporter{})
		captures := capture.Propagate(g, scc, facts)
		next := bindContents(unit, facts, captures)
		if contentsEqual(content, next) {
			converged = true
			break
		}
		content = next
	}

	if !converged {
		for id := 1; id <= unit.AliasCount(); id++ {
			alias := unit.Alias(fir.AliasID(id))
			diag.ReportError(r, diag.CtxNonConvergent, alias.Span,
				fmt.Sprintf("inferred bundle %q did not settle after %d rounds; break the mutual binding cycle", alias.Name, rounds))
		}
	}

	facts := capture.Extract(unit, reg, content, r)
	captures := capture.Propagate(g, scc, facts)
	return &Result{
		Alias:     content,
		Facts:     facts,
		Captures:  captures,
		Graph:     g,
		SCC:       scc,
		Rounds:    rounds,
		Converged: converged,
	}
}

func emptyContents(unit *fir.Unit) map[fir.AliasID]capture.Set {
	content := make(map[fir.AliasID]capture.Set, unit.AliasCount())
	for id := 1; id <= unit.AliasCount(); id++ {
		content[fir.AliasID(id)] = capture.NewSet()
	}
	return content
}

// bindContents recomputes every alias as the union, over its binding sites,
// of the binding function's capture set. A bound alias must cover whatever
// its function would otherwise demand ambiently.
func bindContents(unit *fir.Unit, facts []capture.Facts, captures capture.Captures) map[fir.AliasID]capture.Set {
	next := emptyContents(unit)
	for i := 1; i < len(facts); i++ {
		for _, bind := range facts[i].AliasBinds {
			next[bind.Alias].Union(captures[i])
		}
	}
	return next
}

func contentsEqual(a, b map[fir.AliasID]capture.Set) bool {
	for id, set := range a {
		if !set.Equal(b[id]) {
			return false
		}
	}
	return true
}
