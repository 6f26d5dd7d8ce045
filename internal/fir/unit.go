package fir

import (
	"fmt"

	"fortio.org/safecast"

	"ctxc/internal/bundle"
	"ctxc/internal/source"
)

// Func is one function of the unit: its explicit bundle parameters and the
// event stream of its body.
type Func struct {
	ID     FuncID
	Name   string
	Span   source.Span
	Entry  bool          // analysis root; residual ambient needs are errors
	Params []bundle.Type // explicit (absorbing) bundle parameters, in order
	Body   []Op
}

// Alias is the declaration site of an inferred-bundle type alias. Its slot
// contents are computed by the fixpoint solver, not stored here.
type Alias struct {
	ID   AliasID
	Name string
	Span source.Span
}

// Impl registers one trait-method implementation. Dynamic impls carry the
// self-sufficiency obligation checked at registration.
type Impl struct {
	Trait   string
	Method  string
	Func    FuncID
	Dynamic bool
	Span    source.Span
}

// Unit is one compilation unit: everything the front end hands the engine
// besides the context registry.
type Unit struct {
	Name    string
	Funcs   []Func // Funcs[0] — sentinel для NoFuncID
	Aliases []Alias
	Impls   []Impl

	funcByName  map[string]FuncID
	aliasByName map[string]AliasID
}

func NewUnit(name string) *Unit {
	return &Unit{
		Name:        name,
		Funcs:       []Func{{}},
		Aliases:     []Alias{{}},
		funcByName:  make(map[string]FuncID),
		aliasByName: make(map[string]AliasID),
	}
}

// AddFunc appends a function shell and returns its ID. Duplicate names
// return the existing ID and false; the first declaration wins.
func (u *Unit) AddFunc(name string, span source.Span) (FuncID, bool) {
	if id, ok := u.funcByName[name]; ok {
		return id, false
	}
	lenFuncs, err := safecast.Conv[uint32](len(u.Funcs))
	if err != nil {
		panic(fmt.Errorf("func id overflow: %w", err))
	}
	id := FuncID(lenFuncs)
	u.Funcs = append(u.Funcs, Func{ID: id, Name: name, Span: span})
	u.funcByName[name] = id
	return id, true
}

// AddAlias appends an inferred-bundle alias declaration.
func (u *Unit) AddAlias(name string, span source.Span) (AliasID, bool) {
	if id, ok := u.aliasByName[name]; ok {
		return id, false
	}
	lenAliases, err := safecast.Conv[uint32](len(u.Aliases))
	if err != nil {
		panic(fmt.Errorf("alias id overflow: %w", err))
	}
	id := AliasID(lenAliases)
	u.Aliases = append(u.Aliases, Alias{ID: id, Name: name, Span: span})
	u.aliasByName[name] = id
	return id, true
}

// LookupFunc resolves a function name.
func (u *Unit) LookupFunc(name string) (FuncID, bool) {
	id, ok := u.funcByName[name]
	return id, ok
}

// LookupAlias resolves an alias name.
func (u *Unit) LookupAlias(name string) (AliasID, bool) {
	id, ok := u.aliasByName[name]
	return id, ok
}

// Func returns the function for id, or nil for an invalid ID.
func (u *Unit) Func(id FuncID) *Func {
	if int(id) <= 0 || int(id) >= len(u.Funcs) {
		return nil
	}
	return &u.Funcs[id]
}

// Alias returns the alias for id, or nil for an invalid ID.
func (u *Unit) Alias(id AliasID) *Alias {
	if int(id) <= 0 || int(id) >= len(u.Aliases) {
		return nil
	}
	return &u.Aliases[id]
}

// FuncCount returns the number of functions (sentinel excluded).
func (u *Unit) FuncCount() int { return len(u.Funcs) - 1 }

// AliasCount returns the number of aliases (sentinel excluded).
func (u *Unit) AliasCount() int { return len(u.Aliases) - 1 }

// FuncName returns the function's declared name, or "?" for an invalid ID.
func (u *Unit) FuncName(id FuncID) string {
	if f := u.Func(id); f != nil {
		return f.Name
	}
	return "?"
}

// Walk visits ops depth-first in source order, descending into loop bodies.
// The callback receives the nesting depth (0 at function level).
func Walk(body []Op, depth int, visit func(op *Op, depth int)) {
	for i := range body {
		op := &body[i]
		visit(op, depth)
		if op.Kind == OpLoop {
			Walk(op.Body, depth+1, visit)
		}
	}
}
