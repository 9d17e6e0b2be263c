package markdown

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	activeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Strikethrough(true)
	doneMarkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(content)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}

func RenderField(label, value string) string {
	return labelStyle.Render(label+":") + " " + value
}

func RenderTitle(title string, completed bool) string {
	if completed {
		return completedStyle.Render(title)
	}
	return activeStyle.Render(title)
}

func RenderCheck(completed bool) string {
	if completed {
		return doneMarkStyle.Render("[x]")
	}
	return "[ ]"
}

func RenderHeader(title string, fields []string) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(title))
	sb.WriteString("\n")
	for _, f := range fields {
		sb.WriteString("  " + f + "\n")
	}
	return sb.String()
}

// RenderFooter is the status line under the list: items left and, when
// there is something to clear, a hint for clear-completed.
func RenderFooter(remaining int, showClearCompleted bool) string {
	noun := "items"
	if remaining == 1 {
		noun = "item"
	}
	s := labelStyle.Render(fmt.Sprintf("%d %s left", remaining, noun))
	if showClearCompleted {
		s += labelStyle.Render("  ·  run 'todos clear-completed' to remove finished items")
	}
	return s
}
