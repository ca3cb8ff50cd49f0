package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/abhisek/tradequest/internal/progress"
)

const (
	usersCollection       = "users"
	leaderboardCollection = "leaderboard"
)

// FirestoreRemote implements Service on Cloud Firestore. Progress lives in
// users/{id} as an encoded JSON document so it passes the same schema
// check as the HTTP service; the board lives in leaderboard/{id}.
type FirestoreRemote struct {
	client *firestore.Client
	now    func() time.Time
}

// NewFirestoreRemote wraps an existing Firestore client.
func NewFirestoreRemote(client *firestore.Client) *FirestoreRemote {
	return &FirestoreRemote{client: client, now: time.Now}
}

// DialFirestore connects to the project. FIRESTORE_EMULATOR_HOST is
// honoured by the client library.
func DialFirestore(ctx context.Context, projectID string) (*FirestoreRemote, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return NewFirestoreRemote(client), nil
}

// Close releases the client.
func (r *FirestoreRemote) Close() error {
	return r.client.Close()
}

// FetchProgress implements Service.
func (r *FirestoreRemote) FetchProgress(ctx context.Context, userID string) (*progress.State, error) {
	doc, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, firestoreError(err)
	}
	raw, ok := doc.Data()["progress"].(string)
	if !ok || raw == "" {
		return nil, ErrNotFound
	}
	return decodeProgress([]byte(raw))
}

// PushProgress implements Service.
func (r *FirestoreRemote) PushProgress(ctx context.Context, userID string, st progress.State) error {
	data, err := progress.Encode(st)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	_, err = r.client.Collection(usersCollection).Doc(userID).Set(ctx, map[string]any{
		"progress":   string(data),
		"updated_at": r.now(),
	}, firestore.MergeAll)
	if err != nil {
		return firestoreError(err)
	}
	return nil
}

// FetchLeaderboard implements Service. The caller's rank is computed from
// the token subject when the token carries one.
func (r *FirestoreRemote) FetchLeaderboard(ctx context.Context, token string, limit int) (*Leaderboard, error) {
	if limit <= 0 {
		limit = 10
	}
	userID, _ := SubjectFromToken(token)

	iter := r.client.Collection(leaderboardCollection).
		OrderBy("total_xp", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	lb := &Leaderboard{Entries: make([]Entry, 0, limit)}
	total := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, firestoreError(err)
		}
		total++
		e := snapshotToEntry(doc)
		if len(lb.Entries) < limit {
			lb.Entries = append(lb.Entries, e)
		}
		if userID != "" && e.ID == userID {
			lb.UserRank = &Rank{Rank: total, TotalXP: e.TotalXP}
		}
		if userID == "" && len(lb.Entries) == limit {
			break
		}
	}
	if lb.UserRank != nil && total > 0 {
		lb.UserRank.Percentile = 100 * float64(total-lb.UserRank.Rank+1) / float64(total)
	}
	return lb, nil
}

// PushXPSnapshot implements Service.
func (r *FirestoreRemote) PushXPSnapshot(ctx context.Context, token string, snap XPSnapshot) error {
	userID, err := SubjectFromToken(token)
	if err != nil {
		return fmt.Errorf("publish xp: %w", err)
	}
	data := map[string]any{
		"total_xp":   snap.TotalXP,
		"level":      snap.Level,
		"streak":     snap.Streak,
		"updated_at": r.now(),
	}
	if snap.Username != "" {
		data["username"] = snap.Username
	}
	_, err = r.client.Collection(leaderboardCollection).Doc(userID).Set(ctx, data, firestore.MergeAll)
	if err != nil {
		return firestoreError(err)
	}
	return nil
}

func snapshotToEntry(doc *firestore.DocumentSnapshot) Entry {
	d := doc.Data()
	e := Entry{ID: doc.Ref.ID}
	e.Username, _ = d["username"].(string)
	e.TotalXP = intField(d["total_xp"])
	e.Level = intField(d["level"])
	e.Streak = intField(d["streak"])
	return e
}

// Firestore returns integers as int64 and may hold doubles written by
// other clients.
func intField(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func firestoreError(err error) error {
	switch status.Code(err) {
	case codes.ResourceExhausted:
		return &ErrRateLimit{Err: err}
	case codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.Aborted:
		return &ErrUnavailable{Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("firestore: %w", err)
}
