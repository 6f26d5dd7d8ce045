package fir

import (
	"ctxc/internal/bundle"
	"ctxc/internal/registry"
	"ctxc/internal/source"
)

// OpKind enumerates the body events the engine consumes.
type OpKind uint8

const (
	OpInvalid OpKind = iota
	// OpRead is a direct read of a context item.
	OpRead
	// OpWrite is a direct mutation of a context item.
	OpWrite
	// OpCall is a call to another function in the unit.
	OpCall
	// OpPack constructs a bundle value for a target type from sources.
	OpPack
	// OpUnpack extracts one slot reference from a bundle parameter.
	OpUnpack
	// OpSplit partitions a bundle parameter into sub-bundles.
	OpSplit
	// OpBind introduces a binder providing one item to subsequent calls.
	OpBind
	// OpBindAlias rebinds an inferred-bundle of the named alias.
	OpBindAlias
	// OpLoop wraps a nested body that may execute repeatedly.
	OpLoop
)

func (k OpKind) String() string {
	switch k {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpCall:
		return "call"
	case OpPack:
		return "pack"
	case OpUnpack:
		return "unpack"
	case OpSplit:
		return "split"
	case OpBind:
		return "bind"
	case OpBindAlias:
		return "bind-alias"
	case OpLoop:
		return "loop"
	}
	return "invalid"
}

// CallMode is the site-kind of a call edge.
type CallMode uint8

const (
	// CallAmbient relies on implicit context passing.
	CallAmbient CallMode = iota
	// CallBundle passes explicit bundle arguments, absorbing the callee's
	// ambient needs.
	CallBundle
	// CallAuto lets the compiler synthesize the bundle argument; capture
	// propagates like ambient, the distinction matters only to lowering.
	CallAuto
)

func (m CallMode) String() string {
	switch m {
	case CallBundle:
		return "explicit-bundle"
	case CallAuto:
		return "auto-arg"
	}
	return "ambient"
}

// PackSource names one pack origin: a bundle parameter or the environment.
type PackSource struct {
	FromEnv bool
	Param   int // bundle parameter index when !FromEnv
}

// Op is one body event. Fields are populated per Kind; unused fields stay
// zero.
type Op struct {
	Kind OpKind
	Span source.Span

	// OpRead, OpWrite, OpBind, OpUnpack
	Item registry.ItemID

	// OpCall
	Callee FuncID
	Mode   CallMode
	Args   []int // bundle parameter indices passed at a CallBundle site

	// OpPack
	Target  bundle.Type
	Sources []PackSource

	// OpUnpack, OpSplit, OpPack result binding
	Param int          // bundle parameter index the op operates on
	Mut   registry.Mut // requested mutability for OpUnpack

	// OpSplit
	Parts []bundle.Type

	// OpBindAlias
	Alias AliasID

	// OpLoop
	Body []Op
}
