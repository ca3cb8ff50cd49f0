// Package quiz runs the placement test as a full-screen Bubble Tea
// program.
package quiz

import (
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tradequest/internal/placement"
	"github.com/abhisek/tradequest/internal/progress"
	"github.com/abhisek/tradequest/internal/ui/components"
	"github.com/abhisek/tradequest/internal/ui/layout"
	"github.com/abhisek/tradequest/internal/ui/theme"
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	Skip   key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Choose: key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter/1-9", "answer")),
	Skip:   key.NewBinding(key.WithKeys("s", "tab"), key.WithHelp("s", "skip")),
	Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("Esc", "quit")),
}

type item struct {
	section  progress.Level
	question placement.Question
	number   int
	total    int
}

// Model walks every placement question in section order and collects the
// chosen option indexes. Skipped questions are left out of Answers.
type Model struct {
	items   []item
	idx     int
	current components.MultiChoice
	answers placement.Answers
	width   int
	done    bool
	aborted bool
}

// New builds a quiz over every section of bank.
func New(bank *placement.Bank) Model {
	m := Model{answers: placement.Answers{}, width: 80}
	for _, section := range progress.Sections() {
		qs := bank.Sections[section]
		for i, q := range qs {
			m.items = append(m.items, item{section: section, question: q, number: i + 1, total: len(qs)})
		}
	}
	if len(m.items) == 0 {
		m.done = true
		return m
	}
	m.current = m.choice(0)
	return m
}

func (m Model) choice(i int) components.MultiChoice {
	it := m.items[i]
	mc := components.NewMultiChoice(it.number, it.total, it.question.Prompt, it.question.Options)
	mc.Interactive = true
	return mc
}

// Init quits straight away when there is nothing to ask.
func (m Model) Init() tea.Cmd {
	if m.done {
		return tea.Quit
	}
	return nil
}

// Update handles window resizes and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.done || m.aborted {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.aborted = true
			return m, tea.Quit
		case key.Matches(msg, keys.Skip):
			return m.advance()
		}
	}

	var cmd tea.Cmd
	m.current, cmd = m.current.Update(msg)
	if m.current.Submitted {
		m.answers[m.items[m.idx].question.ID] = m.current.ChosenIndex
		return m.advance()
	}
	return m, cmd
}

func (m Model) advance() (tea.Model, tea.Cmd) {
	m.idx++
	if m.idx >= len(m.items) {
		m.done = true
		return m, tea.Quit
	}
	m.current = m.choice(m.idx)
	return m, nil
}

// View renders the current question between a header and key hints.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m Model) render() string {
	if m.done || m.aborted {
		return ""
	}

	it := m.items[m.idx]
	cw := components.ContentWidth(m.width)
	header := layout.RenderHeader("Placement test", 0, 0, m.width)
	body := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render(it.section.DisplayName()),
		m.current.View(cw))
	footer := layout.RenderFooter(hints(keys.Up, keys.Down, keys.Choose, keys.Skip, keys.Quit), m.width)

	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", footer)
}

func hints(bindings ...key.Binding) []layout.KeyHint {
	out := make([]layout.KeyHint, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		out = append(out, layout.KeyHint{Key: h.Key, Description: h.Desc})
	}
	return out
}

// Answers returns the answers collected so far.
func (m Model) Answers() placement.Answers {
	return m.answers
}

// Done reports whether every question was answered or skipped.
func (m Model) Done() bool { return m.done }

// Aborted reports whether the user quit before the end.
func (m Model) Aborted() bool { return m.aborted }
