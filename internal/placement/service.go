package placement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/tradequest/internal/progress"
	"github.com/abhisek/tradequest/internal/store"
)

// Result is one scored placement attempt.
type Result struct {
	ID        string                     `json:"id"`
	Sequence  int64                      `json:"sequence"`
	Level     progress.Level             `json:"level"`
	Scores    map[progress.Level]float64 `json:"scores"`
	Passed    progress.Level             `json:"passed,omitempty"`
	TestedOut []progress.Level           `json:"testedOut"`
	Review    []progress.Level           `json:"review"`
	Timestamp time.Time                  `json:"timestamp"`
}

// Service scores submissions, applies them to the ledger and keeps a
// history of attempts.
type Service struct {
	progress *progress.Store
	events   store.PlacementRepo
	bank     *Bank
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a placement service. A nil bank uses the embedded
// one; a nil events repo skips history.
func NewService(ps *progress.Store, events store.PlacementRepo, bank *Bank, logger *slog.Logger) *Service {
	if bank == nil {
		bank = DefaultBank()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		progress: ps,
		events:   events,
		bank:     bank,
		logger:   logger,
		now:      time.Now,
	}
}

// Bank returns the question bank the service scores against.
func (s *Service) Bank() *Bank { return s.bank }

// Submit scores answers, applies the result to the ledger and records the
// attempt. Missing answers count as incorrect and are never an error.
func (s *Service) Submit(ctx context.Context, answers Answers) (*Result, error) {
	scores := ScoreSections(answers, s.bank)
	level := PlacementFromScores(scores)
	at := s.now()

	if err := s.progress.ApplyPlacementResult(ctx, level, scores, at); err != nil {
		return nil, fmt.Errorf("apply placement: %w", err)
	}

	res := &Result{
		ID:        uuid.New().String(),
		Level:     level,
		Scores:    scores,
		Timestamp: at,
	}
	res.Passed, _ = HighestPassedSection(scores)
	st := s.progress.State()
	for _, section := range progress.Sections() {
		if st.TestedOutModules.Has(string(section)) {
			res.TestedOut = append(res.TestedOut, section)
		}
		if st.UnlockedForReview.Has(string(section)) {
			res.Review = append(res.Review, section)
		}
	}

	if s.events != nil {
		seq, err := s.events.AppendPlacement(ctx, store.PlacementEventData{
			RecordID:  res.ID,
			Level:     string(level),
			Scores:    levelScores(scores),
			Timestamp: at,
		})
		if err != nil {
			// The ledger already has the result; only history is lost.
			s.logger.Warn("record placement event", "id", res.ID, "error", err)
		} else {
			res.Sequence = seq
		}
	}

	s.logger.Info("placement scored", "level", string(level), "id", res.ID)
	return res, nil
}

// History lists past placement attempts, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]Result, error) {
	if s.events == nil {
		return nil, nil
	}
	recs, err := s.events.QueryPlacements(ctx, store.QueryOpts{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("query placement history: %w", err)
	}
	out := make([]Result, 0, len(recs))
	for _, r := range recs {
		scores := make(map[progress.Level]float64, len(r.Scores))
		for k, v := range r.Scores {
			scores[progress.Level(k)] = v
		}
		passed, _ := HighestPassedSection(scores)
		out = append(out, Result{
			ID:        r.RecordID,
			Sequence:  r.Sequence,
			Level:     progress.Level(r.Level),
			Scores:    scores,
			Passed:    passed,
			Timestamp: r.Timestamp,
		})
	}
	return out, nil
}

func levelScores(scores map[progress.Level]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for k, v := range scores {
		out[string(k)] = v
	}
	return out
}
