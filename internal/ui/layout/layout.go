// Package layout composes full-width terminal blocks.
package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/tradequest/internal/ui/theme"
)

// MinWidth is the narrowest width blocks are laid out for.
const MinWidth = 40

// RenderHeader renders the application header bar: brand on the left,
// title in the middle, XP and streak on the right.
func RenderHeader(title string, totalXP, streak int, width int) string {
	width = max(width, MinWidth)

	left := theme.Title.Render("TradeQuest")
	center := theme.Body.Render(title)
	right := theme.Highlight.Render(fmt.Sprintf("%d XP", totalXP)) +
		"   " +
		theme.Highlight.Render(fmt.Sprintf("🔥 %d day", streak))

	leftLen := lipgloss.Width(left)
	centerLen := lipgloss.Width(center)
	rightLen := lipgloss.Width(right)

	innerWidth := max(width-4, 0) // border and padding

	leftGap := max((innerWidth-centerLen)/2-leftLen, 1)
	rightGap := max(innerWidth-leftLen-leftGap-centerLen-rightLen, 1)

	content := left + strings.Repeat(" ", leftGap) + center + strings.Repeat(" ", rightGap) + right

	return lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1).
		Render(content)
}

// KeyHint is a key binding shown in the footer.
type KeyHint struct {
	Key         string
	Description string
}

// RenderFooter renders key hints in a bordered bar.
func RenderFooter(hints []KeyHint, width int) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, theme.Highlight.Render(h.Key)+" "+theme.Hint.Render(h.Description))
	}

	return lipgloss.NewStyle().
		Width(max(width, MinWidth)).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1).
		Render(strings.Join(parts, "   "))
}
