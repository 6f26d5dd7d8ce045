package engine

import (
	"ctxc/internal/capture"
	"ctxc/internal/diag"
	"ctxc/internal/fir"
)

// SlotSummary is one (item, mutability) requirement rendered with stable
// names, so reports survive ID reassignment between runs.
type SlotSummary struct {
	Item string
	Mut  string
}

// FuncSummary is the per-function slice of a report.
type FuncSummary struct {
	Name     string
	Entry    bool
	Captures []SlotSummary
	Residual []SlotSummary
}

// AliasSummary carries the inferred contents of one bundle alias.
type AliasSummary struct {
	Name  string
	Slots []SlotSummary
}

// Report is the serializable outcome of an analysis run: everything the CLI
// prints and the disk cache stores.
type Report struct {
	Schema  uint16
	Unit    string
	Rounds  int
	Funcs   []FuncSummary
	Aliases []AliasSummary
	Diags   []diag.Diagnostic
}

// HasErrors reports whether any stored diagnostic is an error.
func (rep *Report) HasErrors() bool {
	for i := range rep.Diags {
		if rep.Diags[i].Severity >= diag.SevError {
			return true
		}
	}
	return false
}

// Report flattens the result into its serializable form. Functions and
// aliases appear in declaration order, slots in item order.
func (res *Result) Report() *Report {
	rep := &Report{
		Schema: cacheSchemaVersion,
		Unit:   res.Unit.Name,
		Rounds: res.Rounds,
		Diags:  res.Bag.Items(),
	}
	for i := 1; i < len(res.Unit.Funcs); i++ {
		fn := &res.Unit.Funcs[i]
		rep.Funcs = append(rep.Funcs, FuncSummary{
			Name:     fn.Name,
			Entry:    fn.Entry,
			Captures: res.slots(res.Captures[i]),
			Residual: res.slots(capture.Residual(res.Captures, res.Facts, fn.ID)),
		})
	}
	for i := 1; i <= res.Unit.AliasCount(); i++ {
		alias := res.Unit.Alias(fir.AliasID(i))
		rep.Aliases = append(rep.Aliases, AliasSummary{
			Name:  alias.Name,
			Slots: res.slots(res.Aliases[alias.ID]),
		})
	}
	return rep
}

func (res *Result) slots(set capture.Set) []SlotSummary {
	entries := set.Entries()
	out := make([]SlotSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, SlotSummary{Item: res.Registry.Name(e.Item), Mut: e.Mut.String()})
	}
	return out
}
