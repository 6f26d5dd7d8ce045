// Package conflict detects overlapping, mutability-incompatible ambient
// borrows within a single function body.
//
// Liveness is interval-based: a direct access or an ambient call is a point
// use at its body position; a packed, unpacked or split-off reference is
// held from its site to the end of the enclosing block. An event inside a
// loop is widened to the whole loop when compared against a borrow held
// across that loop, which is deliberately conservative: one iteration
// aliasing is enough to reject. Two uses inside the same iteration stay
// sequential and do not widen against each other.
package conflict

import (
	"fmt"

	"ctxc/internal/capture"
	"ctxc/internal/diag"
	"ctxc/internal/fir"
	"ctxc/internal/registry"
	"ctxc/internal/source"
)

type interval struct {
	start, end int
}

func (iv interval) intersects(other interval) bool {
	return iv.start <= other.end && other.start <= iv.end
}

// useKind labels events for diagnostics.
type useKind uint8

const (
	useDirect useKind = iota
	useCall
	useHeld // pack/unpack/split reference held to end of block
	useArg  // bundle argument passed at a call site
)

func (k useKind) String() string {
	switch k {
	case useCall:
		return "ambient call"
	case useHeld:
		return "held reference"
	case useArg:
		return "bundle argument"
	}
	return "direct access"
}

type event struct {
	item  registry.ItemID
	mut   registry.Mut
	span  source.Span
	iv    interval
	loops []interval // enclosing loops, outermost first
	kind  useKind
}

// Check reports every ambient borrow conflict in the unit. Residuals of
// callees must be final, so it runs after capture propagation.
func Check(unit *fir.Unit, reg *registry.Registry, facts []capture.Facts,
	captures capture.Captures, r diag.Reporter) {
	for i := 1; i < len(unit.Funcs); i++ {
		checkFunc(&unit.Funcs[i], reg, facts, captures, r)
	}
}

// CheckFunc checks a single function; exported for targeted testing.
func CheckFunc(unit *fir.Unit, fn fir.FuncID, reg *registry.Registry, facts []capture.Facts,
	captures capture.Captures, r diag.Reporter) {
	checkFunc(unit.Func(fn), reg, facts, captures, r)
}

func checkFunc(fn *fir.Func, reg *registry.Registry, facts []capture.Facts,
	captures capture.Captures, r diag.Reporter) {
	col := &collector{
		fn:       fn,
		facts:    facts,
		captures: captures,
	}
	col.walkBlock(fn.Body, nil)

	reportConflicts(reg, fn, col.events, r)
}

type collector struct {
	fn       *fir.Func
	facts    []capture.Facts
	captures capture.Captures
	events   []event
	pos      int
	siteIdx  int // cursor into facts[fn].Sites, which follow body order
}

func (c *collector) emit(item registry.ItemID, mut registry.Mut, span source.Span, iv interval, loops []interval, kind useKind) {
	c.events = append(c.events, event{
		item: item, mut: mut, span: span, iv: iv, loops: loops, kind: kind,
	})
}

// walkBlock assigns positions and collects borrow events. Held references
// get their end patched to the block's last position once it is known.
func (c *collector) walkBlock(body []fir.Op, loops []interval) {
	heldFrom := len(c.events)
	blockStart := c.pos
	c.walkOps(body, loops)
	blockEnd := c.pos
	if blockEnd > blockStart {
		blockEnd--
	}
	for i := heldFrom; i < len(c.events); i++ {
		ev := &c.events[i]
		if ev.kind == useHeld && ev.iv.end == -1 && enclosedBy(ev.loops, loops) {
			ev.iv.end = blockEnd
		}
	}
}

// enclosedBy reports whether the event's loop path equals the block's loop
// path, i.e. the event belongs to this block directly, not a nested one.
func enclosedBy(evLoops, blockLoops []interval) bool {
	return len(evLoops) == len(blockLoops)
}

func (c *collector) walkOps(body []fir.Op, loops []interval) {
	fnFacts := c.facts[c.fn.ID]
	for i := range body {
		op := &body[i]
		p := c.pos
		c.pos++
		point := interval{start: p, end: p}

		switch op.Kind {
		case fir.OpRead:
			c.emit(op.Item, registry.MutRead, op.Span, point, loops, useDirect)
		case fir.OpWrite:
			c.emit(op.Item, registry.MutWrite, op.Span, point, loops, useDirect)
		case fir.OpCall:
			c.callEvents(op, point, loops)
		case fir.OpPack:
			site := c.nextSite(fnFacts)
			if site != nil && site.OK {
				for _, slot := range site.Type.Slots {
					c.emit(slot.Item, slot.Mut, op.Span, interval{start: p, end: -1}, loops, useHeld)
				}
			}
		case fir.OpUnpack:
			site := c.nextSite(fnFacts)
			if site != nil && site.OK {
				c.emit(op.Item, op.Mut, op.Span, interval{start: p, end: -1}, loops, useHeld)
			}
		case fir.OpSplit:
			site := c.nextSite(fnFacts)
			if site != nil && site.OK {
				for _, part := range op.Parts {
					for _, slot := range part.Slots {
						c.emit(slot.Item, slot.Mut, op.Span, interval{start: p, end: -1}, loops, useHeld)
					}
				}
			}
		case fir.OpBind, fir.OpBindAlias:
			// binders provide, they do not borrow
		case fir.OpLoop:
			loopStart := c.pos
			nested := append(append([]interval(nil), loops...), interval{start: loopStart, end: -1})
			c.walkBlock(op.Body, nested)
			loopEnd := c.pos
			if loopEnd > loopStart {
				loopEnd--
			}
			// patch the loop extent into every event collected inside
			for j := range c.events {
				ev := &c.events[j]
				for li := range ev.loops {
					if ev.loops[li].start == loopStart && ev.loops[li].end == -1 {
						ev.loops[li].end = loopEnd
					}
				}
			}
		}
	}
}

func (c *collector) nextSite(fnFacts capture.Facts) *capture.Site {
	if c.siteIdx >= len(fnFacts.Sites) {
		return nil
	}
	site := &fnFacts.Sites[c.siteIdx]
	c.siteIdx++
	return site
}

func (c *collector) callEvents(op *fir.Op, point interval, loops []interval) {
	if op.Mode == fir.CallBundle {
		// the passed bundles' slots are re-borrowed for the call
		for _, argIdx := range op.Args {
			if argIdx < 0 || argIdx >= len(c.fn.Params) {
				continue
			}
			for _, slot := range c.fn.Params[argIdx].Slots {
				c.emit(slot.Item, slot.Mut, op.Span, point, loops, useArg)
			}
		}
		return
	}
	if !op.Callee.IsValid() || int(op.Callee) >= len(c.captures) {
		return
	}
	// an ambient call that needs X counts as a use of X spanning the call
	residual := capture.Residual(c.captures, c.facts, op.Callee)
	for _, e := range residual.Entries() {
		c.emit(e.Item, e.Mut, op.Span, point, loops, useCall)
	}
}

// effective returns the comparison intervals of a and b after loop
// widening: each side is widened to its outermost loop not shared with the
// other side.
func effective(a, b event) (interval, interval) {
	shared := 0
	for shared < len(a.loops) && shared < len(b.loops) && a.loops[shared] == b.loops[shared] {
		shared++
	}
	ia, ib := a.iv, b.iv
	if shared < len(a.loops) {
		ia = a.loops[shared]
	}
	if shared < len(b.loops) {
		ib = b.loops[shared]
	}
	return ia, ib
}

func reportConflicts(reg *registry.Registry, fn *fir.Func, events []event, r diag.Reporter) {
	reported := make(map[string]struct{})
	for i := range events {
		for j := i + 1; j < len(events); j++ {
			a, b := events[i], events[j]
			if a.item != b.item {
				continue
			}
			if a.mut != registry.MutWrite && b.mut != registry.MutWrite {
				continue
			}
			ia, ib := effective(a, b)
			if !ia.intersects(ib) {
				continue
			}
			key := fmt.Sprintf("%d:%s:%s", a.item, a.span, b.span)
			if _, dup := reported[key]; dup {
				continue
			}
			reported[key] = struct{}{}

			name := reg.Name(a.item)
			msg := fmt.Sprintf("conflicting ambient borrows of %q in %q: %s (%s) overlaps %s (%s)",
				name, fn.Name, b.mut, b.kind, a.mut, a.kind)
			notes := []diag.Note{{Span: a.span, Msg: fmt.Sprintf("first borrow of %q is here", name)}}
			if r != nil {
				r.Report(diag.CtxBorrowConflict, diag.SevError, b.span, msg, notes)
			}
		}
	}
}
