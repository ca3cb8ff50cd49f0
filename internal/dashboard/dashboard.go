// Package dashboard reacts to learner actions: it records them in the
// progress ledger, recomputes XP, awards achievements and opportunistically
// syncs with the remote service.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abhisek/tradequest/internal/achievements"
	"github.com/abhisek/tradequest/internal/curriculum"
	"github.com/abhisek/tradequest/internal/leaderboard"
	"github.com/abhisek/tradequest/internal/levels"
	"github.com/abhisek/tradequest/internal/placement"
	"github.com/abhisek/tradequest/internal/progress"
	"github.com/abhisek/tradequest/internal/reconcile"
	"github.com/abhisek/tradequest/internal/xp"
)

// ErrUnknownLesson is returned for lesson keys outside the curriculum.
var ErrUnknownLesson = errors.New("unknown lesson")

// ErrUnknownModule is returned for module ids outside the curriculum.
var ErrUnknownModule = errors.New("unknown module")

// ErrSyncDisabled is returned by Sync when no reconciler is configured.
var ErrSyncDisabled = errors.New("sync is not configured")

// Deps are the collaborators a Service drives. Store is required; nil
// Curriculum and Engine fall back to the embedded defaults.
type Deps struct {
	Store       *progress.Store
	Curriculum  *curriculum.Curriculum
	Engine      *achievements.Engine
	Placement   *placement.Service
	Reconciler  *reconcile.Reconciler
	Leaderboard *leaderboard.Service
	Logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithAutoSync syncs after every action, bounded by timeout.
func WithAutoSync(timeout time.Duration) Option {
	return func(s *Service) {
		s.autoSync = true
		s.syncTimeout = timeout
	}
}

// WithClock overrides the time source for activity dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is the dashboard orchestrator.
type Service struct {
	store       *progress.Store
	curriculum  *curriculum.Curriculum
	engine      *achievements.Engine
	calc        *xp.Calculator
	placement   *placement.Service
	reconciler  *reconcile.Reconciler
	leaderboard *leaderboard.Service
	logger      *slog.Logger
	now         func() time.Time

	autoSync    bool
	syncTimeout time.Duration

	// One action at a time so an outcome's before/after XP is its own.
	actionMu sync.Mutex

	changes     chan progress.Change
	unsubscribe func()
}

// New creates a dashboard Service and subscribes it to store changes.
func New(deps Deps, opts ...Option) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("dashboard: progress store is required")
	}
	s := &Service{
		store:       deps.Store,
		curriculum:  deps.Curriculum,
		engine:      deps.Engine,
		placement:   deps.Placement,
		reconciler:  deps.Reconciler,
		leaderboard: deps.Leaderboard,
		logger:      deps.Logger,
		now:         time.Now,
		syncTimeout: 10 * time.Second,
		changes:     make(chan progress.Change, 16),
	}
	if s.curriculum == nil {
		s.curriculum = curriculum.Default()
	}
	if s.engine == nil {
		s.engine = achievements.Default()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	for _, opt := range opts {
		opt(s)
	}
	s.calc = xp.New(s.curriculum, s.engine.Catalog())
	s.unsubscribe = s.store.Subscribe(progress.ObserverFunc(s.progressChanged))
	return s, nil
}

// Close stops observing the store.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Changes delivers ledger changes for re-rendering. When the reader falls
// behind, the oldest pending change is dropped.
func (s *Service) Changes() <-chan progress.Change {
	return s.changes
}

func (s *Service) progressChanged(c progress.Change) {
	s.logger.Debug("progress changed", "kind", string(c.Kind))
	for {
		select {
		case s.changes <- c:
			return
		default:
		}
		select {
		case <-s.changes:
		default:
		}
	}
}

// Calculator returns the XP calculator the service uses.
func (s *Service) Calculator() *xp.Calculator { return s.calc }

// Curriculum returns the curriculum the service scores against.
func (s *Service) Curriculum() *curriculum.Curriculum { return s.curriculum }

// CompleteLesson records a finished lesson.
func (s *Service) CompleteLesson(ctx context.Context, key string) (*Outcome, error) {
	moduleID, ok := s.curriculum.ModuleOf(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLesson, key)
	}

	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	before := s.store.State()
	wasComplete := s.curriculum.IsModuleComplete(moduleID, before.CompletedLessons)
	at := s.now()

	added, err := s.store.CompleteLesson(ctx, key, at)
	if err != nil {
		return nil, fmt.Errorf("complete lesson: %w", err)
	}
	out := s.newOutcome(ActionLesson, before)
	out.NewlyCompleted = added

	kinds := []achievements.EventKind{achievements.EventLessonComplete}
	if !wasComplete && s.curriculum.IsModuleComplete(moduleID, s.store.State().CompletedLessons) {
		out.ModuleCompleted = moduleID
		kinds = append(kinds, achievements.EventModuleComplete)
	}
	if err := s.finish(ctx, out, kinds, at, achievements.EventContext{LessonKey: key, ModuleID: moduleID}); err != nil {
		return nil, err
	}
	return out, nil
}

// RecordQuiz records a lesson quiz attempt scored in [0,1].
func (s *Service) RecordQuiz(ctx context.Context, key string, score float64) (*Outcome, error) {
	moduleID, ok := s.curriculum.ModuleOf(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLesson, key)
	}

	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	before := s.store.State()
	at := s.now()
	ls, err := s.store.RecordQuiz(ctx, key, score, at)
	if err != nil {
		return nil, fmt.Errorf("record quiz: %w", err)
	}
	out := s.newOutcome(ActionQuiz, before)
	out.Quiz = &ls

	ec := achievements.EventContext{LessonKey: key, ModuleID: moduleID, Score: ls.LastScore}
	if err := s.finish(ctx, out, []achievements.EventKind{achievements.EventQuizComplete}, at, ec); err != nil {
		return nil, err
	}
	return out, nil
}

// RecordModuleTest records a module test result. A passing score tests
// the module out; it does not complete its lessons.
func (s *Service) RecordModuleTest(ctx context.Context, moduleID string, score float64) (*Outcome, error) {
	if _, ok := s.curriculum.Module(moduleID); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, moduleID)
	}

	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	before := s.store.State()
	at := s.now()
	if err := s.store.RecordModuleScore(ctx, moduleID, score, at); err != nil {
		return nil, fmt.Errorf("record module test: %w", err)
	}
	out := s.newOutcome(ActionModuleTest, before)
	st := s.store.State()
	out.TestedOut = st.TestedOutModules.Has(moduleID)
	out.NeedsReview = st.UnlockedForReview.Has(moduleID)

	ec := achievements.EventContext{ModuleID: moduleID, Score: progress.ClampScore(score)}
	if err := s.finish(ctx, out, nil, at, ec); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitPlacement scores a placement test and applies it.
func (s *Service) SubmitPlacement(ctx context.Context, answers placement.Answers) (*Outcome, error) {
	if s.placement == nil {
		return nil, errors.New("placement is not configured")
	}

	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	before := s.store.State()
	res, err := s.placement.Submit(ctx, answers)
	if err != nil {
		return nil, err
	}
	out := s.newOutcome(ActionPlacement, before)
	out.Placement = res

	if err := s.finish(ctx, out, nil, res.Timestamp, achievements.EventContext{}); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) newOutcome(action Action, before progress.State) *Outcome {
	xpBefore := s.calc.CalculateTotalXP(before)
	return &Outcome{
		Action:      action,
		XPBefore:    xpBefore,
		LevelBefore: levels.GetLevelInfo(xpBefore),
	}
}

// finish applies the common tail of every action: streak activity,
// achievement evaluation, XP and level recomputation and the optional
// sync.
func (s *Service) finish(ctx context.Context, out *Outcome, kinds []achievements.EventKind, at time.Time, ec achievements.EventContext) error {
	streak, err := s.store.RecordActivity(ctx, at)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	out.Streak = streak

	kinds = append(kinds, achievements.EventStreakUpdate)
	earned, err := s.award(ctx, kinds, ec)
	if err != nil {
		return err
	}
	out.NewAchievements = earned

	st := s.store.State()
	out.XPAfter = s.calc.CalculateTotalXP(st)
	out.LevelAfter = levels.GetLevelInfo(out.XPAfter)
	out.LeveledUp = out.LevelAfter.Level > out.LevelBefore.Level

	s.logger.Info("action recorded",
		"action", string(out.Action),
		"xp_before", out.XPBefore,
		"xp_after", out.XPAfter,
		"new_achievements", len(out.NewAchievements))

	if s.autoSync {
		out.Sync = s.syncQuietly(ctx)
	}
	return nil
}

// award evaluates kinds against the current ledger, then re-evaluates XP
// achievements until a pass awards nothing new, and persists every newly
// earned id in one mutation.
func (s *Service) award(ctx context.Context, kinds []achievements.EventKind, ec achievements.EventContext) ([]achievements.Def, error) {
	st := s.store.State()
	var ids []string
	check := func(kind achievements.EventKind) int {
		stats := achievements.BuildStats(st, s.curriculum, s.calc.CalculateTotalXP(st))
		found := s.engine.Check(stats, st.AchievementsEarned, kind, ec)
		for _, id := range found {
			st.AchievementsEarned[id] = true
		}
		ids = append(ids, found...)
		return len(found)
	}

	for _, k := range kinds {
		check(k)
	}
	// Each XP award can unlock the next threshold; the catalog bounds the
	// number of passes.
	for range len(s.engine.Catalog()) {
		if check(achievements.EventXPUpdate) == 0 {
			break
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	added, err := s.store.AddAchievements(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("persist achievements: %w", err)
	}
	return s.defs(added), nil
}

func (s *Service) defs(ids []string) []achievements.Def {
	out := make([]achievements.Def, 0, len(ids))
	for _, id := range ids {
		if d, ok := s.engine.ByID(id); ok {
			out = append(out, d)
		}
	}
	return out
}

func (s *Service) syncQuietly(ctx context.Context) *reconcile.Report {
	if s.reconciler == nil {
		return nil
	}
	sctx, cancel := context.WithTimeout(ctx, s.syncTimeout)
	defer cancel()
	rep, err := s.reconciler.Sync(sctx)
	if err != nil {
		s.logger.Warn("opportunistic sync", "error", err)
		return nil
	}
	return &rep
}

// Sync reconciles with the remote service, awards anything the merged
// ledger now qualifies for and publishes the recomputed XP to the
// leaderboard. Remote failures are reported in the result, not returned.
func (s *Service) Sync(ctx context.Context) (*SyncOutcome, error) {
	if s.reconciler == nil {
		return nil, ErrSyncDisabled
	}

	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	before := s.calc.CalculateTotalXP(s.store.State())
	rep, err := s.reconciler.Sync(ctx)
	if err != nil {
		return nil, err
	}
	out := &SyncOutcome{Report: rep, XPBefore: before}

	if rep.Changed {
		earned, err := s.award(ctx, achievements.AllEventKinds(), achievements.EventContext{})
		if err != nil {
			return nil, err
		}
		out.NewAchievements = earned
	}
	out.XPAfter = s.calc.CalculateTotalXP(s.store.State())

	if s.leaderboard != nil && rep.FetchErr == nil {
		snap, err := s.leaderboard.PublishXP(ctx)
		if err != nil {
			out.PublishErr = err
		} else {
			out.Published = &snap
		}
	}
	return out, nil
}

// Wait blocks until background pushes started by syncs finish.
func (s *Service) Wait() {
	if s.reconciler != nil {
		s.reconciler.Wait()
	}
}

// Reset clears the local ledger.
func (s *Service) Reset(ctx context.Context) error {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	return s.store.Reset(ctx)
}
