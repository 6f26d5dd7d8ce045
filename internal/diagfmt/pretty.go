package diagfmt

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"ctxc/internal/diag"
	"ctxc/internal/source"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan, color.Bold)
	noteColor    = color.New(color.FgBlue)
	caretColor   = color.New(color.FgGreen, color.Bold)
)

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> [<CODE>]: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes.
// Цвет включается опцией.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	restore := color.NoColor
	color.NoColor = !opts.Color
	defer func() { color.NoColor = restore }()

	for _, d := range bag.Items() {
		fmt.Fprintf(w, "%s: %s [%s]: %s\n",
			location(fs, d.Primary, opts.PathMode),
			severityLabel(d.Severity),
			d.Code.ID(),
			d.Message)
		writeContext(w, fs, d.Primary)
		if opts.ShowNotes {
			for _, note := range d.Notes {
				fmt.Fprintf(w, "  %s: %s: %s\n",
					location(fs, note.Span, opts.PathMode),
					noteColor.Sprint("note"),
					note.Msg)
				writeContext(w, fs, note.Span)
			}
		}
	}
}

func severityLabel(sev diag.Severity) string {
	switch sev {
	case diag.SevError:
		return errorColor.Sprint("error")
	case diag.SevWarning:
		return warningColor.Sprint("warning")
	}
	return infoColor.Sprint("info")
}

func location(fs *source.FileSet, span source.Span, mode PathMode) string {
	file := fs.Get(span.File)
	if file == nil {
		return "<unknown>"
	}
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", formatPath(file.Path, mode), start.Line, start.Col)
}

func formatPath(path string, mode PathMode) string {
	switch mode {
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
	case PathModeRelative:
		if wd, err := os.Getwd(); err == nil {
			if rel, err := filepath.Rel(wd, path); err == nil {
				return rel
			}
		}
	}
	return path
}

// writeContext prints the source line with a caret underline covering the
// span's columns.
func writeContext(w io.Writer, fs *source.FileSet, span source.Span) {
	file := fs.Get(span.File)
	if file == nil || span.Empty() {
		return
	}
	start, end := fs.Resolve(span)
	line := file.GetLine(start.Line)
	if line == "" {
		return
	}
	fmt.Fprintf(w, "  %4d | %s\n", start.Line, strings.TrimRight(line, "\r\n"))

	from := int(start.Col)
	if from < 1 {
		from = 1
	}
	width := 1
	if end.Line == start.Line && int(end.Col) > from {
		width = int(end.Col) - from
	}
	underline := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, "       | %s%s\n", strings.Repeat(" ", from-1), caretColor.Sprint(underline))
}
