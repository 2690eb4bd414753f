package view

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TerminalRenderer renders items as one styled line each.
type TerminalRenderer struct {
	completed lipgloss.Style
	pending   lipgloss.Style
	id        lipgloss.Style
}

// NewTerminalRenderer returns a renderer with the default styles.
func NewTerminalRenderer() *TerminalRenderer {
	return &TerminalRenderer{
		completed: lipgloss.NewStyle().Strikethrough(true).Faint(true),
		pending:   lipgloss.NewStyle(),
		id:        lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// RenderItem returns a single line for it. Hidden items render as "".
func (r *TerminalRenderer) RenderItem(it Item) string {
	if it.Hidden {
		return ""
	}
	box, style := "[ ]", r.pending
	if it.Completed {
		box, style = "[x]", r.completed
	}
	return box + " " + style.Render(it.Text) + "  " + r.id.Render(it.ID)
}

// RenderList returns the visible items, one per line.
func (r *TerminalRenderer) RenderList(items []Item) string {
	var b strings.Builder
	for _, it := range items {
		line := r.RenderItem(it)
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
