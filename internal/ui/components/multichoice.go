package components

import (
	"fmt"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tradequest/internal/ui/theme"
)

// MultiChoice renders a numbered multiple-choice question. It can be
// printed once with View or driven by key presses through Update.
type MultiChoice struct {
	Number      int
	Total       int
	Question    string
	Options     []string
	Selected    int
	Submitted   bool
	ChosenIndex int
	// Interactive marks the highlighted option in View.
	Interactive bool
}

// NewMultiChoice creates a question labelled number of total.
func NewMultiChoice(number, total int, question string, options []string) MultiChoice {
	return MultiChoice{
		Number:      number,
		Total:       total,
		Question:    question,
		Options:     options,
		ChosenIndex: -1,
	}
}

// Update handles keyboard navigation and selection. A digit key picks and
// submits that option directly.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, tea.Cmd) {
	if m.Submitted {
		return m, nil
	}

	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key := kmsg.String(); key {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < len(m.Options)-1 {
			m.Selected++
		}
	case "enter":
		if len(m.Options) > 0 {
			m.Submitted = true
			m.ChosenIndex = m.Selected
		}
	default:
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(m.Options) {
			m.Selected = n - 1
			m.Submitted = true
			m.ChosenIndex = m.Selected
		}
	}

	return m, nil
}

// View renders the question at width. Options are numbered from 1.
func (m MultiChoice) View(width int) string {
	var b strings.Builder

	if m.Total > 0 {
		b.WriteString(theme.Hint.Render(fmt.Sprintf("Question %d of %d", m.Number, m.Total)))
		b.WriteString("\n")
	}
	b.WriteString(theme.Body.Width(width).Render(m.Question))
	b.WriteString("\n")

	for i, opt := range m.Options {
		prefix := "  "
		text := theme.Body
		if m.Interactive && i == m.Selected {
			prefix = "▸ "
			text = theme.Highlight
		}
		key := theme.Highlight.Render(fmt.Sprintf("%d)", i+1))
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, prefix, key, " ",
			text.Width(max(width-6, 10)).Render(opt)))
		if i < len(m.Options)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
