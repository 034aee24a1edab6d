package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders rows as left-aligned columns without borders. Cells may
// contain styled text; widths are measured without escape sequences.
type Table struct {
	rows       [][]string
	colWidths  []int
	colPadding int
	maxWidth   int
}

// NewTable creates a table with the given number of columns.
func NewTable(cols int) *Table {
	return &Table{
		colWidths:  make([]int, cols),
		colPadding: 2,
	}
}

// AddRow adds a row. Missing cells are blank; extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.colWidths))
	for i := 0; i < len(t.colWidths) && i < len(cells); i++ {
		row[i] = cells[i]
		if w := lipgloss.Width(cells[i]); w > t.colWidths[i] {
			t.colWidths[i] = w
		}
	}
	t.rows = append(t.rows, row)
}

// SetMaxWidth truncates the last column so rows fit in width cells.
// Zero or a width too small to hold the other columns leaves rows untouched.
func (t *Table) SetMaxWidth(width int) { t.maxWidth = width }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

func (t *Table) String() string {
	if len(t.rows) == 0 {
		return ""
	}

	var sb strings.Builder
	padding := strings.Repeat(" ", t.colPadding)

	last := 0
	if t.maxWidth > 0 {
		used := 0
		for _, w := range t.colWidths[:len(t.colWidths)-1] {
			used += w + t.colPadding
		}
		if t.maxWidth > used {
			last = t.maxWidth - used
		}
	}
	clip := lipgloss.NewStyle().MaxWidth(last)

	for _, row := range t.rows {
		line := make([]string, len(row))
		for i, cell := range row {
			switch {
			case i < len(row)-1:
				cell += strings.Repeat(" ", t.colWidths[i]-lipgloss.Width(cell))
			case last > 0 && lipgloss.Width(cell) > last:
				cell = clip.Render(cell)
			}
			line[i] = cell
		}
		sb.WriteString(strings.TrimRight(strings.Join(line, padding), " "))
		sb.WriteString("\n")
	}

	return sb.String()
}
