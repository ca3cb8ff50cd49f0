package components

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tradequest/internal/ui/theme"
)

// ContentWidth clamps a terminal width to the width cards render at.
func ContentWidth(termWidth int) int {
	return min(max(termWidth-2, 30), 72)
}

// Card wraps a titled block of content in a rounded border at width cw.
func Card(title, content string, cw int) string {
	body := content
	if title != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, theme.Title.Render(title), content)
	}
	return theme.Card.Width(cw).Render(body)
}
