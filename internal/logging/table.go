package logging

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// resultTable renders left-aligned columns for the batch summary.
// Widths are computed with lipgloss.Width so styled cells measure by
// their visible runes, not their ANSI escape bytes.
type resultTable struct {
	headers []string
	rows    [][]string
}

func (t *resultTable) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *resultTable) String() string {
	if len(t.rows) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var sb strings.Builder
	writeCell := func(col int, cell string) {
		sb.WriteString(cell)
		sb.WriteString(strings.Repeat(" ", widths[col]-lipgloss.Width(cell)+2))
	}

	for i, h := range t.headers {
		writeCell(i, h)
	}
	sb.WriteString("\n")

	for _, row := range t.rows {
		for i := 0; i < len(t.headers); i++ {
			cell := "-"
			if i < len(row) && row[i] != "" {
				cell = row[i]
			}
			writeCell(i, cell)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
