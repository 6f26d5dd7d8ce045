package program

import (
	"strconv"
	"strings"

	"ctxc/internal/bundle"
	"ctxc/internal/diag"
	"ctxc/internal/fir"
	"ctxc/internal/registry"
	"ctxc/internal/source"
)

// parseBody turns the flat line list into an op tree. "loop {" opens a
// nested body, "}" closes it; everything else is one op per line.
func (ld *loader) parseBody(fn *fir.Func, lines []string) {
	stack := [][]fir.Op{nil}
	for _, line := range lines {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		sp := ld.loc.find(text)
		switch text {
		case "}":
			if len(stack) == 1 {
				diag.ReportError(ld.r, diag.ProgUnbalancedLoop, sp,
					"closing brace without an open loop")
				continue
			}
			stack = closeLoop(stack)
		case "loop {":
			stack[len(stack)-1] = append(stack[len(stack)-1], fir.Op{Kind: fir.OpLoop, Span: sp})
			stack = append(stack, nil)
		default:
			if op, ok := ld.parseOp(fn, text, sp); ok {
				stack[len(stack)-1] = append(stack[len(stack)-1], op)
			}
		}
	}
	for len(stack) > 1 {
		diag.ReportError(ld.r, diag.ProgUnbalancedLoop, fn.Span,
			"loop body of "+quoted(fn.Name)+" is never closed")
		stack = closeLoop(stack)
	}
	fn.Body = stack[0]
}

func closeLoop(stack [][]fir.Op) [][]fir.Op {
	inner := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	top := stack[len(stack)-1]
	top[len(top)-1].Body = inner
	stack[len(stack)-1] = top
	return stack
}

func (ld *loader) parseOp(fn *fir.Func, text string, sp source.Span) (fir.Op, bool) {
	fields := strings.Fields(text)
	switch fields[0] {
	case "read", "write":
		if len(fields) != 2 {
			return ld.badOp(text, sp)
		}
		item, ok := ld.lookupItem(fields[1], sp)
		if !ok {
			return fir.Op{}, false
		}
		kind := fir.OpRead
		if fields[0] == "write" {
			kind = fir.OpWrite
		}
		return fir.Op{Kind: kind, Item: item, Span: sp}, true

	case "call":
		return ld.parseCall(fn, fields, text, sp)

	case "pack":
		return ld.parsePack(fn, text, sp)

	case "unpack":
		if len(fields) < 3 {
			return ld.badOp(text, sp)
		}
		idx, ok := ld.paramIndex(fn, fields[1], sp)
		if !ok {
			return fir.Op{}, false
		}
		name, mut, ok := parseSlotExpr(strings.Join(fields[2:], " "))
		if !ok {
			return ld.badOp(text, sp)
		}
		item, ok := ld.lookupItem(name, sp)
		if !ok {
			return fir.Op{}, false
		}
		return fir.Op{Kind: fir.OpUnpack, Param: idx, Item: item, Mut: mut, Span: sp}, true

	case "split":
		return ld.parseSplit(fn, fields, text, sp)

	case "bind":
		if len(fields) != 2 {
			return ld.badOp(text, sp)
		}
		if name, isAlias := strings.CutPrefix(fields[1], "@"); isAlias {
			id, ok := ld.unit.LookupAlias(name)
			if !ok {
				diag.ReportError(ld.r, diag.ProgUnknownAlias, sp,
					"bind references unknown inferred bundle "+quoted(name))
				return fir.Op{}, false
			}
			return fir.Op{Kind: fir.OpBindAlias, Alias: id, Span: sp}, true
		}
		item, ok := ld.lookupItem(fields[1], sp)
		if !ok {
			return fir.Op{}, false
		}
		return fir.Op{Kind: fir.OpBind, Item: item, Span: sp}, true
	}
	return ld.badOp(text, sp)
}

// parseCall handles "call f", "call f auto" and "call f bundle 0 1".
func (ld *loader) parseCall(fn *fir.Func, fields []string, text string, sp source.Span) (fir.Op, bool) {
	if len(fields) < 2 {
		return ld.badOp(text, sp)
	}
	callee, ok := ld.unit.LookupFunc(fields[1])
	if !ok {
		diag.ReportError(ld.r, diag.ProgUnknownFunc, sp,
			"call references unknown function "+quoted(fields[1]))
		return fir.Op{}, false
	}
	op := fir.Op{Kind: fir.OpCall, Callee: callee, Mode: fir.CallAmbient, Span: sp}
	if len(fields) == 2 {
		return op, true
	}
	switch fields[2] {
	case "auto":
		if len(fields) != 3 {
			return ld.badOp(text, sp)
		}
		op.Mode = fir.CallAuto
		return op, true
	case "bundle":
		if len(fields) < 4 {
			return ld.badOp(text, sp)
		}
		op.Mode = fir.CallBundle
		for _, arg := range fields[3:] {
			idx, ok := ld.paramIndex(fn, arg, sp)
			if !ok {
				return fir.Op{}, false
			}
			op.Args = append(op.Args, idx)
		}
		return op, true
	}
	return ld.badOp(text, sp)
}

// parsePack handles "pack (TYPE) from SRC[, SRC...]" where a source is "env"
// or a bundle parameter index.
func (ld *loader) parsePack(fn *fir.Func, text string, sp source.Span) (fir.Op, bool) {
	rest := strings.TrimSpace(strings.TrimPrefix(text, "pack"))
	cut := strings.LastIndex(rest, " from ")
	if cut < 0 {
		return ld.badOp(text, sp)
	}
	target, ok := ld.parseType(rest[:cut], sp)
	if !ok {
		return fir.Op{}, false
	}
	op := fir.Op{Kind: fir.OpPack, Target: target, Span: sp}
	for _, src := range strings.Split(rest[cut+len(" from "):], ",") {
		src = strings.TrimSpace(src)
		if src == "env" {
			op.Sources = append(op.Sources, fir.PackSource{FromEnv: true})
			continue
		}
		idx, ok := ld.paramIndex(fn, src, sp)
		if !ok {
			return fir.Op{}, false
		}
		op.Sources = append(op.Sources, fir.PackSource{Param: idx})
	}
	if len(op.Sources) == 0 {
		return ld.badOp(text, sp)
	}
	return op, true
}

// parseSplit handles "split I (PART | PART ...)".
func (ld *loader) parseSplit(fn *fir.Func, fields []string, text string, sp source.Span) (fir.Op, bool) {
	if len(fields) < 3 {
		return ld.badOp(text, sp)
	}
	idx, ok := ld.paramIndex(fn, fields[1], sp)
	if !ok {
		return fir.Op{}, false
	}
	open := strings.Index(text, "(")
	closing := strings.LastIndex(text, ")")
	if open < 0 || closing < open {
		return ld.badOp(text, sp)
	}
	op := fir.Op{Kind: fir.OpSplit, Param: idx, Span: sp}
	for _, part := range strings.Split(text[open+1:closing], "|") {
		t, ok := ld.parseType(part, sp)
		if !ok {
			return fir.Op{}, false
		}
		op.Parts = append(op.Parts, t)
	}
	return op, true
}

func (ld *loader) badOp(text string, sp source.Span) (fir.Op, bool) {
	diag.ReportError(ld.r, diag.ProgBadOp, sp, "cannot parse body operation "+quoted(text))
	return fir.Op{}, false
}

func (ld *loader) lookupItem(name string, sp source.Span) (registry.ItemID, bool) {
	id, ok := ld.reg.Lookup(name)
	if !ok {
		diag.ReportError(ld.r, diag.ProgUnknownItem, sp,
			"unknown context item "+quoted(name))
		return registry.NoItemID, false
	}
	return id, true
}

func (ld *loader) paramIndex(fn *fir.Func, tok string, sp source.Span) (int, bool) {
	idx, err := strconv.Atoi(tok)
	if err != nil || idx < 0 || idx >= len(fn.Params) {
		diag.ReportError(ld.r, diag.ProgBadBundleRef, sp,
			quoted(fn.Name)+" has no bundle parameter "+quoted(tok))
		return 0, false
	}
	return idx, true
}

// parseType scans a bundle type expression: comma-separated slots, nested
// parenthesized tuples flattening into the same slot list.
func (ld *loader) parseType(expr string, sp source.Span) (bundle.Type, bool) {
	expr = strings.TrimSpace(expr)
	depth := 0
	for _, r := range expr {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				ld.badType(expr, sp)
				return bundle.Type{}, false
			}
		}
	}
	if depth != 0 {
		ld.badType(expr, sp)
		return bundle.Type{}, false
	}

	flat := strings.NewReplacer("(", "", ")", "").Replace(expr)
	var t bundle.Type
	for _, part := range strings.Split(flat, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, mut, ok := parseSlotExpr(part)
		if !ok {
			ld.badType(expr, sp)
			return bundle.Type{}, false
		}
		item, ok := ld.lookupItem(name, sp)
		if !ok {
			return bundle.Type{}, false
		}
		t.Slots = append(t.Slots, bundle.Slot{Item: item, Mut: mut, Span: sp})
	}
	return t, true
}

func (ld *loader) badType(expr string, sp source.Span) {
	diag.ReportError(ld.r, diag.ProgBadBundleExpr, sp,
		"cannot parse bundle type "+quoted(strings.TrimSpace(expr)))
}

// parseSlotExpr scans one slot: "&ITEM", "&mut ITEM", with an optional
// lifetime token after the ampersand ("&'a mut ITEM").
func parseSlotExpr(s string) (name string, mut registry.Mut, ok bool) {
	s = strings.TrimSpace(s)
	rest, found := strings.CutPrefix(s, "&")
	if !found {
		return "", 0, false
	}
	fields := strings.Fields(rest)
	mut = registry.MutRead
	i := 0
	if i < len(fields) && strings.HasPrefix(fields[i], "'") {
		i++
	}
	if i < len(fields) && fields[i] == "mut" {
		mut = registry.MutWrite
		i++
	}
	if i != len(fields)-1 {
		return "", 0, false
	}
	return fields[i], mut, true
}
