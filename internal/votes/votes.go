// Package votes records which upcoming courses the learner has asked for.
package votes

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/abhisek/tradequest/internal/store"
)

// maxWriteAttempts bounds compare-and-swap retries.
const maxWriteAttempts = 3

var courseID = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ErrInvalidCourse is returned for ids that are not lowercase slugs.
var ErrInvalidCourse = errors.New("invalid course id")

// Vote is one course request.
type Vote struct {
	CourseID string    `json:"courseId"`
	VotedAt  time.Time `json:"votedAt"`
}

type ballot struct {
	Votes map[string]time.Time `json:"votes"`
}

// Store persists course votes as their own record.
type Store struct {
	repo store.RecordRepo
	now  func() time.Time
	mu   sync.Mutex
}

// NewStore creates a vote store on repo.
func NewStore(repo store.RecordRepo) *Store {
	return &Store{repo: repo, now: time.Now}
}

// Toggle adds a vote for courseID, or withdraws it if already cast. It
// reports whether the course is voted for afterwards.
func (s *Store) Toggle(ctx context.Context, id string) (bool, error) {
	if !courseID.MatchString(id) {
		return false, fmt.Errorf("%w: %q", ErrInvalidCourse, id)
	}
	var voted bool
	err := s.update(ctx, func(b *ballot) {
		if _, ok := b.Votes[id]; ok {
			delete(b.Votes, id)
			voted = false
			return
		}
		b.Votes[id] = s.now().UTC()
		voted = true
	})
	return voted, err
}

// List returns the current votes, oldest first.
func (s *Store) List(ctx context.Context) ([]Vote, error) {
	b, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Vote, 0, len(b.Votes))
	for id, at := range b.Votes {
		out = append(out, Vote{CourseID: id, VotedAt: at})
	}
	slices.SortFunc(out, func(a, b Vote) int {
		if c := a.VotedAt.Compare(b.VotedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.CourseID, b.CourseID)
	})
	return out, nil
}

// Has reports whether courseID has a vote.
func (s *Store) Has(ctx context.Context, id string) (bool, error) {
	b, _, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	_, ok := b.Votes[id]
	return ok, nil
}

// load reads the ballot. A malformed record reads as empty and is
// replaced on the next write.
func (s *Store) load(ctx context.Context) (ballot, int64, error) {
	b := ballot{Votes: map[string]time.Time{}}
	rec, err := s.repo.Get(ctx, store.KeyVotes)
	if err != nil {
		return b, 0, fmt.Errorf("load votes: %w", err)
	}
	if rec == nil {
		return b, 0, nil
	}
	if err := json.Unmarshal(rec.Data, &b); err != nil || b.Votes == nil {
		b.Votes = map[string]time.Time{}
	}
	return b, rec.Version, nil
}

func (s *Store) update(ctx context.Context, fn func(*ballot)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for range maxWriteAttempts {
		b, version, err := s.load(ctx)
		if err != nil {
			return err
		}
		fn(&b)
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshal votes: %w", err)
		}
		if _, err := s.repo.Put(ctx, store.KeyVotes, data, version); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				continue
			}
			return fmt.Errorf("save votes: %w", err)
		}
		return nil
	}
	return fmt.Errorf("save votes: %w", store.ErrVersionConflict)
}
