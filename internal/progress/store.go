package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abhisek/tradequest/internal/store"
)

// ErrNotLoaded is returned by mutations issued before Load.
var ErrNotLoaded = errors.New("progress store not loaded")

// maxWriteAttempts bounds compare-and-swap retries against other writers.
const maxWriteAttempts = 3

// ConflictResolver combines the state this process wants to write with the
// state another writer stored in the meantime.
type ConflictResolver func(local, stored State) State

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for recovered errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithConflictResolver sets how concurrent writers on the same device are
// reconciled. Without one the latest writer wins.
func WithConflictResolver(r ConflictResolver) Option {
	return func(s *Store) { s.resolve = r }
}

// WithClock overrides the time source used for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the durable local progress ledger. All mutations are applied
// in call order, written through to the record repo, and followed by a
// single change notification.
type Store struct {
	repo    store.RecordRepo
	logger  *slog.Logger
	resolve ConflictResolver
	now     func() time.Time

	mu      sync.Mutex
	state   State
	version int64
	loaded  bool

	// notifyMu keeps notifications in mutation order.
	notifyMu  sync.Mutex
	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// NewStore creates a Store on repo. Call Load before using it.
func NewStore(repo store.RecordRepo, opts ...Option) *Store {
	s := &Store{
		repo:      repo,
		now:       time.Now,
		state:     NewState(),
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Load reads the persisted ledger. A missing record starts an empty
// ledger; a malformed one is replaced by an empty ledger and logged.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	rec, err := s.repo.Get(ctx, store.KeyProgress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("load progress: %w", err)
	}
	s.state = NewState()
	s.version = 0
	if rec != nil {
		s.version = rec.Version
		st, err := decodeState(rec.Data)
		if err != nil {
			s.logger.Warn("discarding malformed progress record", "error", err, "version", rec.Version)
		} else {
			s.state = st
		}
	}
	s.loaded = true
	snap := s.state.Clone()
	s.notifyMu.Lock()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeLoaded, State: snap})
	s.notifyMu.Unlock()
	return nil
}

// State returns a copy of the current ledger.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers an observer and returns a function that removes it.
// Observers run synchronously and must not mutate the store.
func (s *Store) Subscribe(o Observer) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = o
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

// CompleteLesson marks a lesson key complete. It reports whether the key
// was newly added; completed lessons are never removed.
func (s *Store) CompleteLesson(ctx context.Context, key string, at time.Time) (bool, error) {
	if _, _, err := SplitLessonKey(key); err != nil {
		return false, err
	}
	added := false
	err := s.mutate(ctx, ChangeLesson, func(st *State) bool {
		if st.CompletedLessons.Has(key) {
			return false
		}
		st.CompletedLessons[key] = true
		added = true
		return true
	})
	return added, err
}

// RecordQuiz records a quiz attempt for a lesson: best score is kept,
// last score is overwritten and attempts are counted.
func (s *Store) RecordQuiz(ctx context.Context, key string, score float64, at time.Time) (LessonScore, error) {
	if _, _, err := SplitLessonKey(key); err != nil {
		return LessonScore{}, err
	}
	score = ClampScore(score)
	var result LessonScore
	err := s.mutate(ctx, ChangeQuiz, func(st *State) bool {
		ls := st.LessonScores[key]
		ls.BestScore = max(ls.BestScore, score)
		ls.LastScore = score
		ls.Attempts++
		ls.UpdatedAt = at
		st.LessonScores[key] = ls
		result = ls
		return true
	})
	return result, err
}

// RecordModuleScore records a module test result on both score lenses.
func (s *Store) RecordModuleScore(ctx context.Context, moduleID string, score float64, at time.Time) error {
	if moduleID == "" {
		return errors.New("module id is required")
	}
	score = ClampScore(score)
	return s.mutate(ctx, ChangeModuleScore, func(st *State) bool {
		setModuleScore(st, moduleID, score, at)
		st.Recompute()
		return true
	})
}

// RecordActivity applies an active day to the streak.
func (s *Store) RecordActivity(ctx context.Context, at time.Time) (Streak, error) {
	day := at.Format(DateLayout)
	var result Streak
	err := s.mutate(ctx, ChangeActivity, func(st *State) bool {
		next := st.Streak.Advance(day)
		changed := next != st.Streak
		st.Streak = next
		result = next
		return changed
	})
	return result, err
}

// AddAchievements adds earned achievement ids and returns the ones that
// were not already present.
func (s *Store) AddAchievements(ctx context.Context, ids []string) ([]string, error) {
	var added []string
	err := s.mutate(ctx, ChangeAchievements, func(st *State) bool {
		for _, id := range ids {
			if id == "" || st.AchievementsEarned.Has(id) {
				continue
			}
			st.AchievementsEarned[id] = true
			added = append(added, id)
		}
		return len(added) > 0
	})
	return added, err
}

// ApplyPlacementResult folds a scored placement test into the ledger.
// Best scores only rise; latest scores are overwritten for every section.
// Observers are notified once after all fields are updated.
func (s *Store) ApplyPlacementResult(ctx context.Context, level Level, sectionScores map[Level]float64, at time.Time) error {
	if !level.Valid() {
		return fmt.Errorf("unknown placement level %q", level)
	}
	return s.mutate(ctx, ChangePlacement, func(st *State) bool {
		for _, section := range Sections() {
			setModuleScore(st, string(section), ClampScore(sectionScores[section]), at)
		}
		st.PlacementLevel = level
		st.PlacementAt = at
		st.Recompute()
		return true
	})
}

// MergeIn combines other into the current ledger with merge, under the
// mutation lock, so mutations made while other was being fetched are kept.
// It returns the resulting ledger and whether anything changed.
func (s *Store) MergeIn(ctx context.Context, other State, merge ConflictResolver) (State, bool, error) {
	other = other.Clone()
	other.Normalize()
	var (
		result  State
		changed bool
	)
	err := s.mutate(ctx, ChangeMerged, func(st *State) bool {
		merged := merge(*st, other)
		merged.Normalize()
		before, err1 := json.Marshal(*st)
		after, err2 := json.Marshal(merged)
		if err1 == nil && err2 == nil && string(before) == string(after) {
			result = st.Clone()
			return false
		}
		*st = merged
		result = merged.Clone()
		changed = true
		return true
	})
	if changed {
		result = s.State()
	}
	return result, changed, err
}

// Reset deletes the persisted ledger and starts over empty.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	if err := s.repo.Delete(ctx, store.KeyProgress); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("reset progress: %w", err)
	}
	s.state = NewState()
	s.version = 0
	s.loaded = true
	snap := s.state.Clone()
	s.notifyMu.Lock()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeReset, State: snap})
	s.notifyMu.Unlock()
	return nil
}

func setModuleScore(st *State, moduleID string, score float64, at time.Time) {
	st.ModuleBestScores[moduleID] = max(st.ModuleBestScores[moduleID], score)
	st.ModuleLatestScores[moduleID] = score
	st.ModuleLatestAt[moduleID] = at
}

// mutate applies fn, writes the result and notifies observers. fn reports
// whether it changed anything; unchanged states are neither written nor
// announced.
func (s *Store) mutate(ctx context.Context, kind ChangeKind, fn func(st *State) bool) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}

	next := s.state.Clone()
	if !fn(&next) {
		s.mu.Unlock()
		return nil
	}
	next.UpdatedAt = s.now()

	// The in-memory ledger stays authoritative for this session even when
	// the write fails; the next mutation writes it again.
	written, err := s.write(ctx, next)
	s.state = written
	snap := written.Clone()
	s.notifyMu.Lock()
	s.mu.Unlock()

	s.notify(Change{Kind: kind, State: snap})
	s.notifyMu.Unlock()

	if err != nil {
		s.logger.Error("persist progress", "kind", string(kind), "error", err)
		return fmt.Errorf("persist progress: %w", err)
	}
	return nil
}

// write persists st with compare-and-swap. On a version conflict the
// stored ledger is reloaded and combined with st. Callers hold s.mu.
func (s *Store) write(ctx context.Context, st State) (State, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		data, err := json.Marshal(st)
		if err != nil {
			return st, fmt.Errorf("marshal progress: %w", err)
		}

		v, err := s.repo.Put(ctx, store.KeyProgress, data, s.version)
		if err == nil {
			s.version = v
			return st, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return st, err
		}

		rec, gerr := s.repo.Get(ctx, store.KeyProgress)
		if gerr != nil {
			return st, fmt.Errorf("reload after conflict: %w", gerr)
		}
		if rec == nil {
			s.version = 0
			continue
		}
		s.version = rec.Version
		stored, derr := decodeState(rec.Data)
		if derr != nil {
			s.logger.Warn("overwriting malformed progress record", "error", derr)
			continue
		}
		s.logger.Info("progress written by another writer; reconciling",
			"stored_version", rec.Version)
		if s.resolve != nil {
			st = s.resolve(st, stored)
			st.Normalize()
		}
	}
	return st, fmt.Errorf("write progress: %w", store.ErrVersionConflict)
}

func (s *Store) notify(c Change) {
	s.obsMu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.obsMu.Unlock()

	for _, o := range observers {
		o.ProgressChanged(c)
	}
}

func decodeState(data []byte) (State, error) {
	st := NewState()
	if err := json.Unmarshal(data, &st); err != nil {
		return NewState(), fmt.Errorf("decode progress: %w", err)
	}
	st.Normalize()
	return st, nil
}

// Encode serialises a state in the persisted/remote wire format.
func Encode(st State) ([]byte, error) {
	return json.Marshal(st)
}

// Decode parses a state in the persisted/remote wire format.
func Decode(data []byte) (State, error) {
	return decodeState(data)
}
