package listview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/smileynet/roster/internal/user"
)

// CursorMarker is the prefix shown on the selected row.
const CursorMarker = "▸ "

// NarrowWidth is the width below which rows render as stacked cards
// instead of a table.
const NarrowWidth = 70

// Column headers, in display order.
var Headers = []string{"Name", "E-mail", "Address", "Actions"}

// Action labels for the delete control.
const (
	deleteLabel         = "delete"
	selectedDeleteLabel = "[d] delete"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.AdaptiveColor{Light: "236", Dark: "252"})

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	selectedCellStyle = cellStyle.
				Foreground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})

	deleteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "9"})

	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "250", Dark: "240"})

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(9).
			Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})

	mutedText = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})
)

// View renders the rows for the given width. Widths under NarrowWidth use
// a stacked card layout. An empty rendered list renders as a short notice.
func (l *List) View(width int) string {
	if !l.rendered {
		return ""
	}
	if len(l.rows) == 0 {
		return mutedText.Render("No users")
	}
	if width > 0 && width < NarrowWidth {
		return l.viewCards()
	}
	return l.viewTable(width)
}

func (l *List) viewTable(width int) string {
	rows := make([][]string, len(l.rows))
	for i, u := range l.rows {
		rows[i] = rowCells(u, i == l.cursor)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		BorderColumn(false).
		Headers(Headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	if width > 0 {
		t = t.Width(width)
	}
	return t.Render()
}

// rowCells returns the plain cell text for u. The selected row carries the
// cursor marker and the delete key hint.
func rowCells(u user.User, selected bool) []string {
	name := "  " + u.Name
	action := deleteStyle.Render(deleteLabel)
	if selected {
		name = CursorMarker + u.Name
		action = deleteStyle.Render(selectedDeleteLabel)
	}
	return []string{name, u.Email, u.Address.City, action}
}

func (l *List) viewCards() string {
	var b strings.Builder
	for i, u := range l.rows {
		if i > 0 {
			b.WriteString("\n\n")
		}
		style := cellStyle
		marker := "  "
		if i == l.cursor {
			style = selectedCellStyle
			marker = CursorMarker
		}
		cells := rowCells(u, i == l.cursor)
		lines := make([]string, len(Headers))
		for c, h := range Headers {
			value := cells[c]
			if c == 0 {
				value = u.Name
			}
			lines[c] = labelStyle.Render(h) + " " + value
		}
		fmt.Fprintf(&b, "%s%s", marker, style.Render(strings.Join(lines, "\n  ")))
	}
	return b.String()
}
