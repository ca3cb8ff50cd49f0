package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tradequest/internal/progress"
)

// fakeService is an in-memory sync service routed with chi.
type fakeService struct {
	mu       sync.Mutex
	progress map[string][]byte
	xp       []XPSnapshot
	auth     []string
	failNext int32 // respond 503 this many times
	rateNext int32 // respond 429 this many times
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	f := &fakeService{progress: map[string][]byte{}}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if atomic.AddInt32(&f.rateNext, -1) >= 0 {
				w.Header().Set("Retry-After", "0")
				http.Error(w, "slow down", http.StatusTooManyRequests)
				return
			}
			if atomic.AddInt32(&f.failNext, -1) >= 0 {
				http.Error(w, "down", http.StatusServiceUnavailable)
				return
			}
			f.mu.Lock()
			f.auth = append(f.auth, req.Header.Get("Authorization"))
			f.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/users/{id}/progress", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		data, ok := f.progress[chi.URLParam(req, "id")]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})
	r.Put("/users/{id}/progress", func(w http.ResponseWriter, req *http.Request) {
		data, _ := io.ReadAll(req.Body)
		f.mu.Lock()
		f.progress[chi.URLParam(req, "id")] = data
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/leaderboard", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(Leaderboard{
			Entries:  []Entry{{ID: "u1", Username: "satoshi", TotalXP: 900, Level: 4, Streak: 3}},
			UserRank: &Rank{Rank: 12, Percentile: 88.5, TotalXP: 300},
		})
	})
	r.Post("/leaderboard/xp", func(w http.ResponseWriter, req *http.Request) {
		var snap XPSnapshot
		if err := json.NewDecoder(req.Body).Decode(&snap); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.xp = append(f.xp, snap)
		f.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2}
}

func TestClient_ProgressRoundTrip(t *testing.T) {
	_, srv := newFakeService(t)
	c, err := NewClient(srv.URL, WithRetry(fastRetry()), WithToken("tok"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.FetchProgress(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	st := progress.NewState()
	st.CompletedLessons["newcomer/wallet-setup"] = true
	st.ModuleBestScores["newcomer"] = 0.8
	require.NoError(t, c.PushProgress(ctx, "alice", st))

	got, err := c.FetchProgress(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.CompletedLessons.Has("newcomer/wallet-setup"))
	assert.True(t, got.TestedOutModules.Has("newcomer"), "derived sets rebuilt on decode")
}

func TestClient_InvalidPayloadIsNotRetried(t *testing.T) {
	f, srv := newFakeService(t)
	f.progress["bob"] = []byte(`{"moduleBestScores": {"newcomer": "high"}}`)
	c, err := NewClient(srv.URL, WithRetry(fastRetry()))
	require.NoError(t, err)

	_, err = c.FetchProgress(context.Background(), "bob")
	var inv *ErrInvalidPayload
	require.ErrorAs(t, err, &inv)
	assert.False(t, IsTransient(err))

	f.progress["bob"] = []byte(`not json`)
	_, err = c.FetchProgress(context.Background(), "bob")
	require.ErrorAs(t, err, &inv)
}

func TestClient_OutOfRangeValuesAreClamped(t *testing.T) {
	f, srv := newFakeService(t)
	f.progress["carol"] = []byte(`{
		"completedLessons": ["trader/order-types"],
		"lessonScores": {"trader/order-types": {"bestScore": 1.0000001, "lastScore": -0.2, "attempts": 2}},
		"moduleBestScores": {"trader": 7},
		"placementLevel": "grandmaster"
	}`)
	c, err := NewClient(srv.URL, WithRetry(fastRetry()))
	require.NoError(t, err)

	got, err := c.FetchProgress(context.Background(), "carol")
	require.NoError(t, err)
	assert.True(t, got.CompletedLessons.Has("trader/order-types"))
	assert.Equal(t, 1.0, got.LessonScores["trader/order-types"].BestScore)
	assert.Equal(t, 0.0, got.LessonScores["trader/order-types"].LastScore)
	assert.Equal(t, 1.0, got.ModuleBestScores["trader"])
	assert.Empty(t, got.PlacementLevel, "unknown levels are dropped")
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	f, srv := newFakeService(t)
	f.failNext = 1
	f.rateNext = 1
	c, err := NewClient(srv.URL, WithRetry(fastRetry()))
	require.NoError(t, err)

	require.NoError(t, c.PushProgress(context.Background(), "carol", progress.NewState()))
	assert.Contains(t, f.progress, "carol")
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	f, srv := newFakeService(t)
	f.failNext = 10
	c, err := NewClient(srv.URL, WithRetry(fastRetry()))
	require.NoError(t, err)

	err = c.PushProgress(context.Background(), "dave", progress.NewState())
	var un *ErrUnavailable
	require.ErrorAs(t, err, &un)
	assert.True(t, IsTransient(err))
	assert.Equal(t, int32(10-3), atomic.LoadInt32(&f.failNext))
}

func TestClient_Unreachable(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1", WithRetry(RetryConfig{MaxAttempts: 1}))
	require.NoError(t, err)
	_, err = c.FetchProgress(context.Background(), "x")
	assert.True(t, IsTransient(err))
}

func TestClient_Leaderboard(t *testing.T) {
	f, srv := newFakeService(t)
	c, err := NewClient(srv.URL, WithRetry(fastRetry()))
	require.NoError(t, err)
	ctx := context.Background()

	lb, err := c.FetchLeaderboard(ctx, "secret", 5)
	require.NoError(t, err)
	require.Len(t, lb.Entries, 1)
	assert.Equal(t, "satoshi", lb.Entries[0].Username)
	require.NotNil(t, lb.UserRank)
	assert.Equal(t, 12, lb.UserRank.Rank)

	require.NoError(t, c.PushXPSnapshot(ctx, "secret", XPSnapshot{TotalXP: 310, Level: 3, Streak: 2}))
	require.Len(t, f.xp, 1)
	assert.Equal(t, 310, f.xp[0].TotalXP)
	assert.Contains(t, f.auth, "Bearer secret")
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	assert.Error(t, err)
	_, err = NewClient("://")
	assert.Error(t, err)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("soon"))
	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	assert.Greater(t, parseRetryAfter(future), 30*time.Second)
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{InitialWait: 100 * time.Millisecond, MaxWait: time.Second, Multiplier: 2}
	for attempt := range 6 {
		d := backoff(cfg, attempt, errors.New("x"))
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Duration(0))
	}
	d := backoff(cfg, 0, &ErrRateLimit{RetryAfter: 10 * time.Second})
	assert.Equal(t, time.Second, d, "Retry-After is capped at MaxWait")
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.FetchProgress(context.Background(), "x")
	assert.True(t, IsTransient(err))
	assert.True(t, IsTransient(Disabled{}.PushProgress(context.Background(), "x", progress.NewState())))
}

func TestSubjectFromToken(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-42"})
	signed, err := tok.SignedString([]byte("any-key"))
	require.NoError(t, err)

	sub, err := SubjectFromToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-42", sub)

	_, err = SubjectFromToken("")
	assert.Error(t, err)
	_, err = SubjectFromToken("not.a.jwt")
	assert.Error(t, err)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"name": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = SubjectFromToken(noSub)
	assert.Error(t, err)
}
