// Package ui renders analysis reports for terminals.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"ctxc/internal/engine"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	entryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	residualStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	cleanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	aliasStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
)

// CapturesTable renders the per-function capture sets as an aligned table:
// function name, capture set, residual demand. Inferred aliases follow in a
// second block. Styling degrades to plain text when color is off.
func CapturesTable(rep *engine.Report, color bool) string {
	render := func(style lipgloss.Style, s string) string {
		if !color {
			return s
		}
		return style.Render(s)
	}

	rows := make([][3]string, 0, len(rep.Funcs))
	for _, fn := range rep.Funcs {
		name := fn.Name
		if fn.Entry {
			name += " (entry)"
		}
		rows = append(rows, [3]string{name, slotList(fn.Captures), slotList(fn.Residual)})
	}

	nameW := runewidth.StringWidth("function")
	capW := runewidth.StringWidth("captures")
	for _, row := range rows {
		nameW = max(nameW, runewidth.StringWidth(row[0]))
		capW = max(capW, runewidth.StringWidth(row[1]))
	}

	var sb strings.Builder
	sb.WriteString(render(headerStyle,
		pad("function", nameW)+"  "+pad("captures", capW)+"  residual") + "\n")
	for i, row := range rows {
		fn := rep.Funcs[i]
		name := pad(row[0], nameW)
		if fn.Entry {
			name = render(entryStyle, name)
		}
		residual := row[2]
		if residual == "-" {
			residual = render(cleanStyle, residual)
		} else {
			residual = render(residualStyle, residual)
		}
		sb.WriteString(name + "  " + pad(row[1], capW) + "  " + residual + "\n")
	}

	if len(rep.Aliases) > 0 {
		sb.WriteString("\n" + render(headerStyle, "inferred bundles") + "\n")
		for _, alias := range rep.Aliases {
			sb.WriteString(render(aliasStyle, alias.Name) + " = " + slotList(alias.Slots) + "\n")
		}
	}
	return sb.String()
}

func slotList(slots []engine.SlotSummary) string {
	if len(slots) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(slots))
	for _, s := range slots {
		parts = append(parts, s.Item+":"+s.Mut)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// pad right-fills with spaces by display width, keeping wide runes aligned.
func pad(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}
