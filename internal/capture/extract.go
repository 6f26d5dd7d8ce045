package capture

import (
	"fmt"

	"ctxc/internal/bundle"
	"ctxc/internal/diag"
	"ctxc/internal/fir"
	"ctxc/internal/registry"
	"ctxc/internal/source"
)

// SiteKind classifies a resolved bundle operation site.
type SiteKind uint8

const (
	SitePack SiteKind = iota
	SiteUnpack
	SiteSplit
)

func (k SiteKind) String() string {
	switch k {
	case SiteUnpack:
		return "unpack"
	case SiteSplit:
		return "split"
	}
	return "pack"
}

// Site is the resolved outcome of one pack/unpack/split operation, handed
// to the lowering consumer.
type Site struct {
	Kind SiteKind
	Func fir.FuncID
	Span source.Span
	Type bundle.Type     // pack target / unpack source / split source
	// Pack
	Origins []bundle.Origin
	// Unpack
	SlotIndex int
	// Split
	Parts [][]int
	// OK is false when the site failed to resolve; a diagnostic was emitted.
	OK bool
}

// AliasBind is one `let static` site binding an inferred-bundle alias.
type AliasBind struct {
	Alias fir.AliasID
	Span  source.Span
}

// Facts is the per-function output of access extraction.
type Facts struct {
	// Direct holds concrete ambient requirements of the body itself:
	// reads, writes, unpacked slots and environment-sourced pack slots.
	Direct Set
	// Absorbed holds what the function supplies locally: explicit bundle
	// parameter slots, item binders, and bound alias contents.
	Absorbed Set
	// FirstUse records the earliest span requiring each item, for
	// diagnostics.
	FirstUse map[registry.ItemID]source.Span
	// AliasBinds lists the inferred-bundle binding sites of the body.
	AliasBinds []AliasBind
	// Sites lists every resolved bundle operation in body order.
	Sites []Site
}

// Extract scans every function body and produces its Facts, resolving
// bundle operations along the way. aliasContent supplies the current
// assumed slot sets of inferred aliases (empty on the first inference
// pass). Resolution failures are reported to r; analysis continues so one
// pass surfaces as many failures as possible.
func Extract(unit *fir.Unit, reg *registry.Registry, aliasContent map[fir.AliasID]Set, r diag.Reporter) []Facts {
	facts := make([]Facts, len(unit.Funcs))
	for i := 1; i < len(unit.Funcs); i++ {
		facts[i] = extractFunc(&unit.Funcs[i], reg, aliasContent, r)
	}
	return facts
}

type extractor struct {
	fn    *fir.Func
	reg   *registry.Registry
	alias map[fir.AliasID]Set
	r     diag.Reporter
	out   Facts
}

func extractFunc(fn *fir.Func, reg *registry.Registry, aliasContent map[fir.AliasID]Set, r diag.Reporter) Facts {
	ex := &extractor{
		fn:    fn,
		reg:   reg,
		alias: aliasContent,
		r:     r,
		out: Facts{
			Direct:   NewSet(),
			Absorbed: NewSet(),
			FirstUse: make(map[registry.ItemID]source.Span),
		},
	}
	for _, param := range fn.Params {
		for _, slot := range param.Slots {
			ex.out.Absorbed.Add(slot.Item, slot.Mut)
		}
	}
	ex.walk(fn.Body)
	return ex.out
}

func (ex *extractor) walk(body []fir.Op) {
	for i := range body {
		op := &body[i]
		switch op.Kind {
		case fir.OpRead:
			ex.access(op.Item, registry.MutRead, op.Span)
		case fir.OpWrite:
			ex.access(op.Item, registry.MutWrite, op.Span)
		case fir.OpPack:
			ex.pack(op)
		case fir.OpUnpack:
			ex.unpack(op)
		case fir.OpSplit:
			ex.split(op)
		case fir.OpBind:
			// binder owns its value: callees may borrow it either way
			ex.out.Absorbed.Add(op.Item, registry.MutWrite)
		case fir.OpBindAlias:
			ex.out.AliasBinds = append(ex.out.AliasBinds, AliasBind{Alias: op.Alias, Span: op.Span})
			if content, ok := ex.alias[op.Alias]; ok {
				ex.out.Absorbed.Union(content)
			}
		case fir.OpLoop:
			ex.walk(op.Body)
		case fir.OpCall:
			// edges are the call graph's business; bundle arguments are
			// borrow events handled by the conflict checker
		}
	}
}

func (ex *extractor) access(item registry.ItemID, mut registry.Mut, span source.Span) {
	it := ex.reg.Get(item)
	if it == nil {
		return
	}
	if it.Generic {
		// generic context is only reachable through an explicit bundle
		// parameter; it never propagates ambiently
		if !ex.paramCovers(item, mut) {
			diag.ReportError(ex.r, diag.CtxGenericNotAmbient, span,
				fmt.Sprintf("generic context item %q is not available ambiently; take it via an explicit Bundle parameter", it.Name))
		}
		return
	}
	ex.out.Direct.Add(item, mut)
	if _, seen := ex.out.FirstUse[item]; !seen {
		ex.out.FirstUse[item] = span
	}
}

func (ex *extractor) paramCovers(item registry.ItemID, mut registry.Mut) bool {
	for _, param := range ex.fn.Params {
		for _, slot := range param.Slots {
			if slot.Item == item && slot.Mut.Satisfies(mut) {
				return true
			}
		}
	}
	return false
}

func (ex *extractor) paramType(idx int) (bundle.Type, bool) {
	if idx < 0 || idx >= len(ex.fn.Params) {
		return bundle.Type{}, false
	}
	return ex.fn.Params[idx], true
}

// universalEnv stands in for the function's eventual capture set while
// packing: any concrete item can be requested from the environment, and the
// request itself becomes part of the capture set. Genericity is rejected by
// the resolver before the offer is consulted.
type universalEnv struct{}

func (universalEnv) Offer(registry.ItemID) (registry.Mut, bool) {
	return registry.MutWrite, true
}

func (ex *extractor) pack(op *fir.Op) {
	sources := make([]bundle.Source, 0, len(op.Sources))
	for _, ps := range op.Sources {
		if ps.FromEnv {
			sources = append(sources, bundle.Source{Kind: bundle.SourceEnv, Env: universalEnv{}})
			continue
		}
		param, ok := ex.paramType(ps.Param)
		if !ok {
			continue // loader already rejected the reference
		}
		sources = append(sources, bundle.Source{Kind: bundle.SourceBundle, Bundle: param})
	}

	origins, fails := bundle.Pack(ex.reg, op.Target, sources)
	site := Site{
		Kind: SitePack,
		Func: ex.fn.ID,
		Span: op.Span,
		Type: op.Target,
	}
	if fails != nil {
		for _, fail := range fails {
			ex.reportFail(op.Span, fail)
		}
		ex.out.Sites = append(ex.out.Sites, site)
		return
	}
	site.OK = true
	site.Origins = origins
	ex.out.Sites = append(ex.out.Sites, site)

	// environment-sourced slots are ambient accesses of this function
	for i, origin := range origins {
		if origin.Index != -1 || !op.Sources[origin.Source].FromEnv {
			continue
		}
		slot := op.Target.Slots[i]
		ex.out.Direct.Add(slot.Item, slot.Mut)
		if _, seen := ex.out.FirstUse[slot.Item]; !seen {
			ex.out.FirstUse[slot.Item] = op.Span
		}
	}
}

func (ex *extractor) unpack(op *fir.Op) {
	site := Site{
		Kind:      SiteUnpack,
		Func:      ex.fn.ID,
		Span:      op.Span,
		SlotIndex: -1,
	}
	param, ok := ex.paramType(op.Param)
	if !ok {
		ex.out.Sites = append(ex.out.Sites, site)
		return
	}
	site.Type = param

	idx, fail := bundle.Unpack(param, op.Item, op.Mut)
	if fail.Kind != bundle.FailNone {
		ex.reportFail(op.Span, fail)
		ex.out.Sites = append(ex.out.Sites, site)
		return
	}
	site.OK = true
	site.SlotIndex = idx
	ex.out.Sites = append(ex.out.Sites, site)

	if it := ex.reg.Get(op.Item); it != nil && !it.Generic {
		ex.out.Direct.Add(op.Item, op.Mut)
		if _, seen := ex.out.FirstUse[op.Item]; !seen {
			ex.out.FirstUse[op.Item] = op.Span
		}
	}
}

func (ex *extractor) split(op *fir.Op) {
	site := Site{
		Kind: SiteSplit,
		Func: ex.fn.ID,
		Span: op.Span,
	}
	param, ok := ex.paramType(op.Param)
	if !ok {
		ex.out.Sites = append(ex.out.Sites, site)
		return
	}
	site.Type = param

	parts, fail := bundle.Split(param, op.Parts)
	if fail.Kind != bundle.FailNone {
		ex.reportFail(op.Span, fail)
		ex.out.Sites = append(ex.out.Sites, site)
		return
	}
	site.OK = true
	site.Parts = parts
	ex.out.Sites = append(ex.out.Sites, site)
}

func (ex *extractor) reportFail(span source.Span, fail bundle.Fail) {
	slotName := ex.reg.Name(fail.Slot.Item)
	switch fail.Kind {
	case bundle.FailAmbiguousOrigin:
		diag.ReportError(ex.r, diag.CtxAmbiguousOrigin, span,
			fmt.Sprintf("source %d offers more than one slot for %q; priority order cannot pick one", fail.Source, slotName))
	case bundle.FailSlotAmbiguous:
		diag.ReportError(ex.r, diag.CtxSlotAmbiguous, span,
			fmt.Sprintf("bundle carries duplicate slots for %q; extraction is ambiguous", slotName))
	case bundle.FailSlotNotFound:
		diag.ReportError(ex.r, diag.CtxSlotNotFound, span,
			fmt.Sprintf("no slot %s %s available here", fail.Slot.Mut.Borrow(), slotName))
	case bundle.FailGenericNotAmbient:
		diag.ReportError(ex.r, diag.CtxGenericNotAmbient, span,
			fmt.Sprintf("generic slot %q cannot be fetched from the environment", slotName))
	}
}
