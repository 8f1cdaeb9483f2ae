package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table renders rows under headers with a rounded border. Headers go
// through the painter's title style.
func Table(p Painter, headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return p.Help("(none)")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Padding(0, 1).Bold(true)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	return t.Render()
}

// Truncate shortens s to max runes, ending with an ellipsis.
func Truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if max <= 1 || len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
