// Package engine orchestrates the analysis pipeline: inferred-bundle
// fixpoint, capture propagation over the condensation, per-function borrow
// conflict checking and the entry/dispatch obligations.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"ctxc/internal/callgraph"
	"ctxc/internal/capture"
	"ctxc/internal/conflict"
	"ctxc/internal/diag"
	"ctxc/internal/fir"
	"ctxc/internal/infer"
	"ctxc/internal/observ"
	"ctxc/internal/registry"
)

// Options configures one analysis run.
type Options struct {
	// Jobs bounds the worker count of the parallel phases; <= 0 means
	// GOMAXPROCS.
	Jobs int
	// MaxDiagnostics caps the result bag; <= 0 falls back to 256.
	MaxDiagnostics int
	// Timer, when set, receives per-phase durations.
	Timer *observ.Timer
}

// Result is the full outcome of one analysis run.
type Result struct {
	Unit     *fir.Unit
	Registry *registry.Registry
	Bag      *diag.Bag
	Graph    *callgraph.Graph
	SCC      *callgraph.SCC
	Facts    []capture.Facts
	Captures capture.Captures
	Aliases  map[fir.AliasID]capture.Set
	Rounds   int
}

// Analyze runs the whole pipeline over one unit. The returned error covers
// infrastructure failures only; analysis findings land in Result.Bag.
func Analyze(ctx context.Context, unit *fir.Unit, reg *registry.Registry, opts Options) (*Result, error) {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	maxDiags := opts.MaxDiagnostics
	if maxDiags <= 0 {
		maxDiags = 256
	}
	bag := diag.NewBag(maxDiags)
	reporter := diag.BagReporter{Bag: bag}
	timer := opts.Timer
	if timer == nil {
		timer = observ.NewTimer()
	}

	stop := timer.Time(observ.PhaseInfer)
	st := infer.Solve(unit, reg, reporter)
	stop(fmt.Sprintf("%d rounds", st.Rounds))

	// The inference rounds already settled the captures serially; the final
	// fact set is fixed now, so the same propagation re-runs with components
	// of each batch fanned out over workers.
	stop = timer.Time(observ.PhaseCaptures)
	captures, err := propagateParallel(ctx, st.Graph, st.SCC, st.Facts, jobs)
	if err != nil {
		return nil, err
	}
	stop(fmt.Sprintf("%d components", len(st.SCC.Comps)))

	stop = timer.Time(observ.PhaseConflicts)
	if err := checkConflictsParallel(ctx, unit, reg, st.Facts, captures, bag, maxDiags, jobs); err != nil {
		return nil, err
	}
	stop("")

	stop = timer.Time(observ.PhaseObligations)
	checkEntryRoots(unit, reg, st.Facts, captures, reporter)
	checkDynamicImpls(unit, reg, st.Facts, captures, reporter)
	stop("")

	bag.Sort()
	bag.Dedup()
	return &Result{
		Unit:     unit,
		Registry: reg,
		Bag:      bag,
		Graph:    st.Graph,
		SCC:      st.SCC,
		Facts:    st.Facts,
		Captures: captures,
		Aliases:  st.Alias,
		Rounds:   st.Rounds,
	}, nil
}

// propagateParallel solves the condensation batch by batch. Components
// within one batch have no edges between them and SolveComponent touches
// only its own capture slots, so a batch fans out safely; the Wait between
// batches publishes callee results to the next one.
func propagateParallel(ctx context.Context, g *callgraph.Graph, scc *callgraph.SCC, facts []capture.Facts, jobs int) (capture.Captures, error) {
	captures := make(capture.Captures, len(facts))
	for _, batch := range scc.Batches {
		eg, gctx := errgroup.WithContext(ctx)
		eg.SetLimit(min(jobs, len(batch)))
		for _, comp := range batch {
			comp := comp
			eg.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				capture.SolveComponent(g, scc, facts, captures, comp)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}
	return captures, nil
}

// checkConflictsParallel runs the borrow liveness check per function. Each
// worker fills its own bag; merging in FuncID order keeps the result
// deterministic regardless of scheduling.
func checkConflictsParallel(ctx context.Context, unit *fir.Unit, reg *registry.Registry, facts []capture.Facts, captures capture.Captures, into *diag.Bag, maxDiagnostics, jobs int) error {
	n := unit.FuncCount()
	if n == 0 {
		return nil
	}
	bags := make([]*diag.Bag, n+1)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(min(jobs, n))
	for id := 1; id <= n; id++ {
		id := id
		eg.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			bag := diag.NewBag(maxDiagnostics)
			conflict.CheckFunc(unit, fir.FuncID(id), reg, facts, captures, diag.BagReporter{Bag: bag})
			bags[id] = bag
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	for id := 1; id <= n; id++ {
		into.Merge(bags[id])
	}
	return nil
}

// checkEntryRoots reports every residual ambient requirement of an entry
// function: nothing above an entry point can supply context.
func checkEntryRoots(unit *fir.Unit, reg *registry.Registry, facts []capture.Facts, captures capture.Captures, r diag.Reporter) {
	for i := 1; i < len(unit.Funcs); i++ {
		fn := &unit.Funcs[i]
		if !fn.Entry {
			continue
		}
		residual := capture.Residual(captures, facts, fn.ID)
		for _, e := range residual.Entries() {
			span := fn.Span
			if use, ok := facts[i].FirstUse[e.Item]; ok {
				span = use
			}
			diag.ReportError(r, diag.CtxUnboundAccess, span,
				fmt.Sprintf("entry %q needs %s %s but no binder is in scope", fn.Name, e.Mut, reg.Name(e.Item)))
		}
	}
}

// checkDynamicImpls enforces self-sufficiency of dyn-dispatched impls: a
// virtual call site cannot know the callee, so the impl must absorb its
// whole ambient demand.
func checkDynamicImpls(unit *fir.Unit, reg *registry.Registry, facts []capture.Facts, captures capture.Captures, r diag.Reporter) {
	for _, impl := range unit.Impls {
		if !impl.Dynamic {
			continue
		}
		fn := unit.Func(impl.Func)
		if fn == nil {
			continue
		}
		residual := capture.Residual(captures, facts, impl.Func)
		if len(residual) == 0 {
			continue
		}
		names := make([]string, 0, len(residual))
		for _, e := range residual.Entries() {
			names = append(names, fmt.Sprintf("%s %s", e.Mut, reg.Name(e.Item)))
		}
		diag.ReportError(r, diag.CtxVirtualLeak, impl.Span,
			fmt.Sprintf("dynamic impl %s.%s leaks ambient context through %q: %s", impl.Trait, impl.Method, fn.Name, strings.Join(names, ", ")))
	}
}
