package diag

import (
	"testing"

	"ctxc/internal/source"
)

func TestBagLimit(t *testing.T) {
	b := NewBag(2)
	sp := source.Span{File: 1, Start: 0, End: 1}

	if !b.Add(NewError(CtxBorrowConflict, sp, "first")) {
		t.Fatalf("first Add rejected")
	}
	if !b.Add(NewError(CtxBorrowConflict, sp, "second")) {
		t.Fatalf("second Add rejected")
	}
	if b.Add(NewError(CtxBorrowConflict, sp, "third")) {
		t.Fatalf("Add above the limit must be rejected")
	}
	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}
}

func TestBagSortDeterministic(t *testing.T) {
	b := NewBag(10)
	b.Add(New(SevWarning, CtxInfo, source.Span{File: 2, Start: 5, End: 6}, "later file"))
	b.Add(New(SevError, CtxBorrowConflict, source.Span{File: 1, Start: 9, End: 12}, "later offset"))
	b.Add(New(SevError, CtxUnboundAccess, source.Span{File: 1, Start: 2, End: 4}, "earlier offset"))
	b.Sort()

	items := b.Items()
	wantMsgs := []string{"earlier offset", "later offset", "later file"}
	for i, want := range wantMsgs {
		if items[i].Message != want {
			t.Fatalf("items[%d].Message = %q, want %q", i, items[i].Message, want)
		}
	}
}

func TestBagDedup(t *testing.T) {
	b := NewBag(10)
	sp := source.Span{File: 1, Start: 0, End: 3}
	b.Add(NewError(CtxSlotAmbiguous, sp, "dup"))
	b.Add(NewError(CtxSlotAmbiguous, sp, "dup again, same site"))
	b.Add(NewError(CtxSlotNotFound, sp, "different code"))
	b.Dedup()

	if b.Len() != 2 {
		t.Fatalf("Len after Dedup = %d, want 2", b.Len())
	}
}

func TestBagMergeGrowsCap(t *testing.T) {
	a := NewBag(1)
	a.Add(NewError(CtxInfo, source.Span{}, "a"))
	c := NewBag(2)
	c.Add(NewError(CtxInfo, source.Span{File: 1}, "b"))
	c.Add(NewError(CtxInfo, source.Span{File: 2}, "c"))

	a.Merge(c)
	if a.Len() != 3 {
		t.Fatalf("Len after Merge = %d, want 3", a.Len())
	}
	if int(a.Cap()) < 3 {
		t.Fatalf("Cap after Merge = %d, want >= 3", a.Cap())
	}
}

func TestCodeID(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{CtxUnboundAccess, "CTX4001"},
		{CtxNonConvergent, "CTX4008"},
		{ProgBadSyntax, "PRG1001"},
		{IOLoadFileError, "IO2001"},
		{ObsTimings, "OBS6001"},
		{UnknownCode, "E0000"},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.want {
			t.Fatalf("Code(%d).ID() = %q, want %q", tt.code, got, tt.want)
		}
	}
}
