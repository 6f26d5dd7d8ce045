package diagfmt

import (
	"strings"
	"testing"

	"ctxc/internal/diag"
	"ctxc/internal/source"
)

func demoBag(t *testing.T) (*diag.Bag, *source.FileSet, source.Span) {
	t.Helper()
	fset := source.NewFileSet()
	content := "write FOO\nread BAR\n"
	fileID := fset.AddVirtual("unit.toml", []byte(content))

	primary := source.Span{File: fileID, Start: 0, End: 9}       // "write FOO"
	noteSpan := source.Span{File: fileID, Start: 10, End: 18}    // "read BAR"
	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.CtxBorrowConflict,
		Message:  "conflicting ambient borrows of FOO",
		Primary:  primary,
		Notes:    []diag.Note{{Span: noteSpan, Msg: "first borrow is here"}},
	})
	return bag, fset, primary
}

func TestPrettyPlain(t *testing.T) {
	bag, fset, _ := demoBag(t)
	var sb strings.Builder
	Pretty(&sb, bag, fset, PrettyOpts{ShowNotes: true})
	out := sb.String()

	for _, want := range []string{
		"unit.toml:1:1",
		"error [CTX4003]",
		"conflicting ambient borrows of FOO",
		"write FOO",
		"^~~~~~~~",
		"note: first borrow is here",
		"read BAR",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("plain output contains escape codes:\n%s", out)
	}
}

func TestPrettyWithoutNotes(t *testing.T) {
	bag, fset, _ := demoBag(t)
	var sb strings.Builder
	Pretty(&sb, bag, fset, PrettyOpts{})
	if strings.Contains(sb.String(), "first borrow") {
		t.Fatalf("notes leaked into note-less output:\n%s", sb.String())
	}
}

func TestPrettyBasenamePathMode(t *testing.T) {
	fset := source.NewFileSet()
	fileID := fset.Add("some/dir/unit.toml", []byte("x\n"), 0)
	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevWarning,
		Code:     diag.CtxInfo,
		Message:  "m",
		Primary:  source.Span{File: fileID, Start: 0, End: 1},
	})
	var sb strings.Builder
	Pretty(&sb, bag, fset, PrettyOpts{PathMode: PathModeBasename})
	if !strings.HasPrefix(sb.String(), "unit.toml:1:1") {
		t.Fatalf("basename mode output: %q", sb.String())
	}
}
