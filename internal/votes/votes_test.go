package votes

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tradequest/internal/store"
)

func newTestStore(t *testing.T) (*Store, *store.Store) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db.RecordRepo()), db
}

func TestToggle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	voted, err := s.Toggle(ctx, "options-basics")
	require.NoError(t, err)
	assert.True(t, voted)
	voted, err = s.Toggle(ctx, "defi-yield")
	require.NoError(t, err)
	assert.True(t, voted)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "options-basics", list[0].CourseID)
	assert.Equal(t, "defi-yield", list[1].CourseID)

	voted, err = s.Toggle(ctx, "options-basics")
	require.NoError(t, err)
	assert.False(t, voted)

	has, err := s.Has(ctx, "options-basics")
	require.NoError(t, err)
	assert.False(t, has)
	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestToggle_InvalidCourse(t *testing.T) {
	s, _ := newTestStore(t)
	for _, id := range []string{"", "Options", "a/b", "-x", "two  spaces"} {
		_, err := s.Toggle(context.Background(), id)
		assert.ErrorIs(t, err, ErrInvalidCourse, id)
	}
}

func TestMalformedRecordIsReplaced(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	_, err := db.RecordRepo().Put(ctx, store.KeyVotes, []byte(`{"votes": 7}`), 0)
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	voted, err := s.Toggle(ctx, "defi-yield")
	require.NoError(t, err)
	assert.True(t, voted)
}
