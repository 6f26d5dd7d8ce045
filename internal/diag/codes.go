package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка - на первое время
	UnknownCode Code = 0

	// Unit description loading (1xxx)
	ProgInfo             Code = 1000
	ProgBadSyntax        Code = 1001 // TOML decode failure
	ProgDuplicateItem    Code = 1002 // context item declared twice
	ProgDuplicateFunc    Code = 1003 // function declared twice
	ProgDuplicateAlias   Code = 1004 // inferred-bundle alias declared twice
	ProgUnknownItem      Code = 1005 // body references an undeclared item
	ProgUnknownFunc      Code = 1006 // call target not declared
	ProgUnknownAlias     Code = 1007 // bind references an undeclared alias
	ProgBadBundleExpr    Code = 1008 // malformed bundle type expression
	ProgBadOp            Code = 1009 // malformed body op
	ProgBadBundleRef     Code = 1010 // bundle param index out of range
	ProgUnknownGeneric   Code = 1011 // generic param not declared on the function
	ProgUnbalancedLoop   Code = 1012 // loop { without matching }
	ProgDuplicateImpl    Code = 1013 // same trait/method bound to two funcs

	// I/O (2xxx)
	IOLoadFileError Code = 2001

	// Context capture & bundle analysis (4xxx)
	CtxInfo             Code = 4000
	CtxUnboundAccess    Code = 4001 // item required at entry with no binder in scope
	CtxGenericNotAmbient Code = 4002 // generic item or slot required from the environment
	CtxBorrowConflict   Code = 4003 // overlapping incompatible ambient borrows
	CtxAmbiguousOrigin  Code = 4004 // pack cannot uniquely pick a slot source
	CtxSlotNotFound     Code = 4005 // unpack target slot absent
	CtxSlotAmbiguous    Code = 4006 // unpack target slot duplicated
	CtxVirtualLeak      Code = 4007 // dyn-dispatched impl with unabsorbed ambient needs
	CtxNonConvergent    Code = 4008 // inference failed to reach a fixpoint

	// Observability (6xxx)
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	ProgInfo:           "Unit description information",
	ProgBadSyntax:      "Malformed unit description",
	ProgDuplicateItem:  "Duplicate context item",
	ProgDuplicateFunc:  "Duplicate function",
	ProgDuplicateAlias: "Duplicate inferred-bundle alias",
	ProgUnknownItem:    "Unknown context item",
	ProgUnknownFunc:    "Unknown function",
	ProgUnknownAlias:   "Unknown inferred-bundle alias",
	ProgBadBundleExpr:  "Malformed bundle type expression",
	ProgBadOp:          "Malformed body operation",
	ProgBadBundleRef:   "Bundle parameter index out of range",
	ProgUnknownGeneric: "Unknown generic parameter",
	ProgUnbalancedLoop: "Unbalanced loop braces",
	ProgDuplicateImpl:  "Duplicate trait implementation",

	IOLoadFileError: "Cannot load file",

	CtxInfo:              "Context analysis information",
	CtxUnboundAccess:     "Context item has no reachable binder",
	CtxGenericNotAmbient: "Generic context cannot be taken from the environment",
	CtxBorrowConflict:    "Conflicting ambient borrows",
	CtxAmbiguousOrigin:   "Ambiguous slot origin in pack",
	CtxSlotNotFound:      "Bundle slot not found",
	CtxSlotAmbiguous:     "Bundle slot is ambiguous",
	CtxVirtualLeak:       "Context leaks through dynamic dispatch",
	CtxNonConvergent:     "Inferred bundle set did not converge",

	ObsInfo:    "Observability information",
	ObsTimings: "Phase timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("PRG%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("CTX%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
