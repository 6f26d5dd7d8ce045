package callgraph

import (
	"slices"
)

// SCC is the condensation of the propagating subgraph (ambient/auto edges
// only; explicit-bundle edges never feed capture propagation, so a cycle
// through one is not a propagation cycle).
type SCC struct {
	// CompOf maps FuncID index -> component index, -1 for the sentinel.
	CompOf []int
	// Comps lists member functions per component, sorted.
	Comps [][]uint32
	// Batches are waves of components where every callee component lives in
	// an earlier wave. Components inside one wave are independent and can be
	// solved in parallel.
	Batches [][]int
}

// Condense runs an iterative Tarjan over the propagating edges and orders
// the condensation callees-first. Recursion depth is bounded by an explicit
// stack, not the goroutine stack.
func Condense(g *Graph) *SCC {
	n := len(g.Out)
	const unvisited = -1

	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	compOf := make([]int, n)
	for i := range index {
		index[i] = unvisited
		compOf[i] = -1
	}

	var (
		stack   []int
		comps   [][]uint32
		counter int
	)

	type frame struct {
		v    int
		edge int // next outgoing edge to examine
	}

	for root := 1; root < n; root++ {
		if index[root] != unvisited {
			continue
		}
		frames := []frame{{v: root}}
		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			v := f.v
			if f.edge == 0 {
				index[v] = counter
				low[v] = counter
				counter++
				stack = append(stack, v)
				onStack[v] = true
			}

			advanced := false
			for f.edge < len(g.Out[v]) {
				e := g.Out[v][f.edge]
				f.edge++
				if !e.Kind.Propagates() {
					continue
				}
				w := int(e.To)
				if index[w] == unvisited {
					frames = append(frames, frame{v: w})
					advanced = true
					break
				}
				if onStack[w] && index[w] < low[v] {
					low[v] = index[w]
				}
			}
			if advanced {
				continue
			}

			// v is exhausted
			if low[v] == index[v] {
				comp := make([]uint32, 0, 2)
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					compOf[w] = len(comps)
					comp = append(comp, uint32(w)) // #nosec G115 -- func ids fit uint32 by construction
					if w == v {
						break
					}
				}
				slices.Sort(comp)
				comps = append(comps, comp)
			}
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := frames[len(frames)-1].v
				if low[v] < low[parent] {
					low[parent] = low[v]
				}
			}
		}
	}

	return &SCC{
		CompOf:  compOf,
		Comps:   comps,
		Batches: batchCalleesFirst(g, compOf, len(comps)),
	}
}

// batchCalleesFirst groups components into waves such that all propagating
// callee components of a wave member are settled in earlier waves.
func batchCalleesFirst(g *Graph, compOf []int, ncomps int) [][]int {
	// pending[c] = number of distinct callee components not yet settled
	pending := make([]int, ncomps)
	callers := make([][]int, ncomps) // callee comp -> caller comps
	seen := make(map[[2]int]struct{})
	for v := 1; v < len(g.Out); v++ {
		for _, e := range g.Out[v] {
			if !e.Kind.Propagates() {
				continue
			}
			from, to := compOf[v], compOf[e.To]
			if from == to {
				continue
			}
			key := [2]int{from, to}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			pending[from]++
			callers[to] = append(callers[to], from)
		}
	}

	current := make([]int, 0, ncomps)
	for c := 0; c < ncomps; c++ {
		if pending[c] == 0 {
			current = append(current, c)
		}
	}
	slices.Sort(current)

	var batches [][]int
	for len(current) > 0 {
		batch := make([]int, len(current))
		copy(batch, current)
		batches = append(batches, batch)

		next := make([]int, 0)
		for _, c := range batch {
			for _, caller := range callers[c] {
				pending[caller]--
				if pending[caller] == 0 {
					next = append(next, caller)
				}
			}
		}
		slices.Sort(next)
		current = next
	}
	return batches
}
