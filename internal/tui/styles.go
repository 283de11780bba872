package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hiroki-koketsu/go-todo/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	tabStyle      = lipgloss.NewStyle().Padding(0, 1)
	activeTab     = tabStyle.Bold(true).Underline(true).Foreground(lipgloss.Color("12"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	badgeStyles = map[model.Priority]lipgloss.Style{
		model.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		model.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		model.PriorityLow:    lipgloss.NewStyle().Faint(true),
	}

	boxChecked   = "☑"
	boxUnchecked = "☐"
)

// OK prints a success line.
func OK(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render("✔ "+msg))
}

// Fail prints an error line.
func Fail(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render("✖ "+msg))
}

// Panel frames lines in a rounded border.
func Panel(lines []string) string {
	return panelStyle.Render(strings.Join(lines, "\n"))
}

// Badge renders a priority as an upper-case tag.
func Badge(p model.Priority) string {
	s, ok := badgeStyles[p]
	if !ok {
		s = mutedStyle
	}
	return s.Render(strings.ToUpper(string(p)))
}

// ProgressBar renders done/total as a bar with a percentage.
func ProgressBar(done, total, width int) string {
	if width < 5 {
		width = 5
	}
	pct := 0
	filled := 0
	if total > 0 {
		pct = done * 100 / total
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("%s %3d%%", strings.Repeat("█", filled)+strings.Repeat("░", width-filled), pct)
}

// ItemLine renders one list row without the selection marker.
func ItemLine(item model.TodoItem) string {
	box := mutedStyle.Render(boxUnchecked)
	text := item.Text
	if item.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	return fmt.Sprintf("%s %s %s", box, text, Badge(item.Priority))
}

// Header renders the counts shown above the list.
func Header(total, completed, remaining int) string {
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Todos"),
		accentStyle.Render("Total"), total,
		successStyle.Render("✔ Completed"), completed,
		pendingStyle.Render("• Remaining"), remaining,
	)
}
