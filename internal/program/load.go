// Package program loads unit descriptions: the desugared TOML form a front
// end hands the engine, with the context registry, function bodies as event
// streams, inferred-bundle aliases and trait impls.
package program

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"fortio.org/safecast"

	"ctxc/internal/diag"
	"ctxc/internal/fir"
	"ctxc/internal/registry"
	"ctxc/internal/source"
)

// ErrBadDescription is returned when the file cannot be decoded at all;
// the details are in the reported diagnostics.
var ErrBadDescription = errors.New("malformed unit description")

type description struct {
	Unit    unitSection `toml:"unit"`
	Items   []itemDecl  `toml:"item"`
	Aliases []aliasDecl `toml:"alias"`
	Funcs   []funcDecl  `toml:"func"`
	Impls   []implDecl  `toml:"impl"`
}

type unitSection struct {
	Name string `toml:"name"`
}

type itemDecl struct {
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	Generic bool   `toml:"generic"`
}

type aliasDecl struct {
	Name string `toml:"name"`
}

type funcDecl struct {
	Name   string   `toml:"name"`
	Entry  bool     `toml:"entry"`
	Params []string `toml:"params"`
	Body   []string `toml:"body"`
}

type implDecl struct {
	Trait   string `toml:"trait"`
	Method  string `toml:"method"`
	Func    string `toml:"func"`
	Dynamic bool   `toml:"dynamic"`
}

// Load reads and parses the unit description at path. The returned error
// covers I/O and decode failures; everything else lands on r and analysis
// may still proceed over the partial unit.
func Load(fset *source.FileSet, path string, r diag.Reporter) (*fir.Unit, *registry.Registry, error) {
	fileID, err := fset.Load(path)
	if err != nil {
		diag.ReportError(r, diag.IOLoadFileError, source.Span{},
			"failed to load unit description: "+err.Error())
		return nil, nil, err
	}
	return Parse(fset, fileID, r)
}

// Parse decodes an already-added file into a unit and registry.
func Parse(fset *source.FileSet, fileID source.FileID, r diag.Reporter) (*fir.Unit, *registry.Registry, error) {
	file := fset.Get(fileID)
	var desc description
	if err := toml.Unmarshal(file.Content, &desc); err != nil {
		diag.ReportError(r, diag.ProgBadSyntax, source.Span{File: fileID},
			"cannot decode unit description: "+err.Error())
		return nil, nil, ErrBadDescription
	}

	name := desc.Unit.Name
	if name == "" {
		base := filepath.Base(file.Path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	ld := &loader{
		unit: fir.NewUnit(name),
		reg:  registry.New(),
		r:    r,
		loc:  newLocator(fileID, file.Content),
	}
	ld.declare(&desc)
	ld.bodies(&desc)
	ld.impls(&desc)
	return ld.unit, ld.reg, nil
}

type loader struct {
	unit *fir.Unit
	reg  *registry.Registry
	r    diag.Reporter
	loc  *locator
}

// declare runs the first pass: every item, alias and function gets its ID
// before any body is parsed, so calls may reference later declarations.
func (ld *loader) declare(desc *description) {
	for _, item := range desc.Items {
		sp := ld.loc.find(`"` + item.Name + `"`)
		if _, fresh := ld.reg.Register(item.Name, item.Type, item.Generic, sp); !fresh {
			diag.ReportError(ld.r, diag.ProgDuplicateItem, sp,
				"context item "+quoted(item.Name)+" is already declared")
		}
	}
	for _, alias := range desc.Aliases {
		sp := ld.loc.find(`"` + alias.Name + `"`)
		if _, fresh := ld.unit.AddAlias(alias.Name, sp); !fresh {
			diag.ReportError(ld.r, diag.ProgDuplicateAlias, sp,
				"inferred bundle "+quoted(alias.Name)+" is already declared")
		}
	}
	for _, fn := range desc.Funcs {
		sp := ld.loc.find(`"` + fn.Name + `"`)
		id, fresh := ld.unit.AddFunc(fn.Name, sp)
		if !fresh {
			diag.ReportError(ld.r, diag.ProgDuplicateFunc, sp,
				"function "+quoted(fn.Name)+" is already declared")
			continue
		}
		ld.unit.Func(id).Entry = fn.Entry
	}
}

// bodies runs the second pass: parameters and op streams, with a fresh
// cursor so op spans land on the actual body lines.
func (ld *loader) bodies(desc *description) {
	ld.loc.rewind()
	done := make(map[fir.FuncID]struct{}, len(desc.Funcs))
	for _, decl := range desc.Funcs {
		id, ok := ld.unit.LookupFunc(decl.Name)
		if !ok {
			continue
		}
		if _, dup := done[id]; dup {
			continue // duplicate declaration, first one won
		}
		done[id] = struct{}{}
		fn := ld.unit.Func(id)
		for _, param := range decl.Params {
			t, ok := ld.parseType(param, fn.Span)
			if !ok {
				continue
			}
			fn.Params = append(fn.Params, t)
		}
		ld.parseBody(fn, decl.Body)
	}
}

func (ld *loader) impls(desc *description) {
	seen := make(map[string]struct{}, len(desc.Impls))
	for _, impl := range desc.Impls {
		sp := ld.loc.find(`"` + impl.Func + `"`)
		id, ok := ld.unit.LookupFunc(impl.Func)
		if !ok {
			diag.ReportError(ld.r, diag.ProgUnknownFunc, sp,
				"impl references unknown function "+quoted(impl.Func))
			continue
		}
		key := impl.Trait + "." + impl.Method
		if _, dup := seen[key]; dup {
			diag.ReportError(ld.r, diag.ProgDuplicateImpl, sp,
				"trait method "+key+" already has an implementation")
			continue
		}
		seen[key] = struct{}{}
		ld.unit.Impls = append(ld.unit.Impls, fir.Impl{
			Trait:   impl.Trait,
			Method:  impl.Method,
			Func:    id,
			Dynamic: impl.Dynamic,
			Span:    sp,
		})
	}
}

func quoted(s string) string { return `"` + s + `"` }

// locator turns body lines back into byte spans: lines are searched in file
// order, so a moving cursor maps each occurrence to its own position.
type locator struct {
	file    source.FileID
	content string
	pos     int
}

func newLocator(file source.FileID, content []byte) *locator {
	return &locator{file: file, content: string(content)}
}

func (l *locator) rewind() { l.pos = 0 }

func (l *locator) find(needle string) source.Span {
	if needle == "" {
		return source.Span{File: l.file}
	}
	idx := strings.Index(l.content[l.pos:], needle)
	if idx >= 0 {
		start := l.pos + idx
		l.pos = start + len(needle)
		return l.span(start, start+len(needle))
	}
	// out-of-order reference (e.g. an impl naming an earlier func): fall
	// back to the first occurrence without moving the cursor
	if idx = strings.Index(l.content, needle); idx >= 0 {
		return l.span(idx, idx+len(needle))
	}
	return source.Span{File: l.file}
}

func (l *locator) span(start, end int) source.Span {
	s, err1 := safecast.Conv[uint32](start)
	e, err2 := safecast.Conv[uint32](end)
	if err1 != nil || err2 != nil {
		return source.Span{File: l.file}
	}
	return source.Span{File: l.file, Start: s, End: e}
}
