// Package fir provides the function-level intermediate representation the
// engine consumes: per-function streams of context accesses, calls and
// bundle operations, already desugared by the front end.
//
// FIR carries no expressions or types beyond bundle types. It is exactly
// the event stream the capture, conflict and resolution phases need, in
// source order, with loop bodies nested so liveness can widen them.
package fir

// FuncID identifies a function within a Unit.
type FuncID uint32

// AliasID identifies an inferred-bundle alias within a Unit.
type AliasID uint32

// Invalid ID constants (zero is sentinel).
const (
	NoFuncID  FuncID  = 0
	NoAliasID AliasID = 0
)

// IsValid returns true if the ID is valid (non-zero).
func (id FuncID) IsValid() bool  { return id != NoFuncID }

// IsValid returns true if the ID is valid (non-zero).
func (id AliasID) IsValid() bool { return id != NoAliasID }
