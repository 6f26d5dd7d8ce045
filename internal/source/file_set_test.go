package source

import (
	"testing"
)

func TestFileSet_AddVirtualAndResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("unit.ctx.toml", []byte("first\nsecond line\nthird"))

	f := fs.Get(id)
	if f.Flags&FileVirtual == 0 {
		t.Fatalf("expected FileVirtual flag")
	}
	if len(f.LineIdx) != 2 {
		t.Fatalf("line index length = %d, want 2", len(f.LineIdx))
	}

	tests := []struct {
		name  string
		off   uint32
		want  LineCol
	}{
		{name: "start of file", off: 0, want: LineCol{Line: 1, Col: 1}},
		{name: "middle of first line", off: 3, want: LineCol{Line: 1, Col: 4}},
		{name: "newline stays on its line", off: 5, want: LineCol{Line: 1, Col: 6}},
		{name: "start of second line", off: 6, want: LineCol{Line: 2, Col: 1}},
		{name: "middle of second line", off: 13, want: LineCol{Line: 2, Col: 8}},
		{name: "start of third line", off: 18, want: LineCol{Line: 3, Col: 1}},
		{name: "end of file", off: 22, want: LineCol{Line: 3, Col: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
			if start != tt.want {
				t.Fatalf("Resolve(%d) = %v, want %v", tt.off, start, tt.want)
			}
		})
	}
}

func TestFileSet_GetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("x", []byte("alpha\nbeta\n"))
	f := fs.Get(id)

	if got := f.GetLine(1); got != "alpha" {
		t.Fatalf("GetLine(1) = %q, want %q", got, "alpha")
	}
	if got := f.GetLine(2); got != "beta" {
		t.Fatalf("GetLine(2) = %q, want %q", got, "beta")
	}
	if got := f.GetLine(5); got != "" {
		t.Fatalf("GetLine(5) = %q, want empty", got)
	}
}

func TestFileSet_GetLatestPrefersNewest(t *testing.T) {
	fs := NewFileSet()
	fs.AddVirtual("u.toml", []byte("old"))
	id2 := fs.AddVirtual("u.toml", []byte("new"))

	got, ok := fs.GetLatest("u.toml")
	if !ok || got != id2 {
		t.Fatalf("GetLatest = (%v, %v), want (%v, true)", got, ok, id2)
	}
}
