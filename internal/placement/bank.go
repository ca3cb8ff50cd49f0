// Package placement scores the multi-section placement test and folds the
// result into the progress ledger.
package placement

import (
	_ "embed"
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/tradequest/internal/progress"
)

// QuestionsPerSection is the fixed size of each placement section.
const QuestionsPerSection = 5

//go:embed bank.yaml
var defaultBankYAML []byte

// Question is one multiple-choice placement question. Correct is the
// index of the right option.
type Question struct {
	ID      string   `yaml:"id" json:"id"`
	Prompt  string   `yaml:"prompt" json:"prompt"`
	Options []string `yaml:"options" json:"options"`
	Correct int      `yaml:"correct" json:"-"`
}

// Bank holds the questions for every section.
type Bank struct {
	Sections map[progress.Level][]Question `yaml:"sections"`
}

// Answers maps question id to the chosen option index.
type Answers map[string]int

// LoadBank parses a YAML question bank and validates it.
func LoadBank(r io.Reader) (*Bank, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse question bank yaml: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

var (
	defaultBankOnce sync.Once
	defaultBank     *Bank
)

// DefaultBank returns the embedded question bank.
func DefaultBank() *Bank {
	defaultBankOnce.Do(func() {
		b, err := LoadBank(strings.NewReader(string(defaultBankYAML)))
		if err != nil {
			panic(fmt.Sprintf("placement: embedded bank: %v", err))
		}
		defaultBank = b
	})
	return defaultBank
}

// Validate checks for exactly five sections of five questions with
// unique ids and in-range correct options.
func (b *Bank) Validate() error {
	var errs []string
	seen := make(map[string]bool)

	for _, section := range progress.Sections() {
		qs, ok := b.Sections[section]
		if !ok {
			errs = append(errs, fmt.Sprintf("missing section %q", section))
			continue
		}
		if len(qs) != QuestionsPerSection {
			errs = append(errs, fmt.Sprintf("section %q has %d questions, want %d", section, len(qs), QuestionsPerSection))
		}
		for _, q := range qs {
			if q.ID == "" {
				errs = append(errs, fmt.Sprintf("section %q has a question without id", section))
				continue
			}
			if seen[q.ID] {
				errs = append(errs, fmt.Sprintf("duplicate question id %q", q.ID))
			}
			seen[q.ID] = true
			if len(q.Options) > 0 && (q.Correct < 0 || q.Correct >= len(q.Options)) {
				errs = append(errs, fmt.Sprintf("question %q: correct option %d out of range", q.ID, q.Correct))
			}
		}
	}
	for section := range b.Sections {
		if !section.Valid() || section == progress.LevelCompleted {
			errs = append(errs, fmt.Sprintf("unknown section %q", section))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("question bank validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Questions returns all questions in section order.
func (b *Bank) Questions() []Question {
	var out []Question
	for _, section := range progress.Sections() {
		out = append(out, b.Sections[section]...)
	}
	return out
}
