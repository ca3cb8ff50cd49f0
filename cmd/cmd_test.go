package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tradequest/internal/progress"
	"github.com/abhisek/tradequest/internal/store"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"0.8", 0.8, false},
		{"80%", 0.8, false},
		{" 1 ", 1, false},
		{"0", 0, false},
		{"120%", 0, true},
		{"-0.1", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseScore(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestReadAnswersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"newcomer-1": 2, "trader-3": 0}`), 0o600))

	answers, err := readAnswersFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, answers["newcomer-1"])
	assert.Equal(t, 0, answers["trader-3"])

	_, err = readAnswersFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLessonCommandWritesLedger(t *testing.T) {
	t.Setenv("TRADEQUEST_SYNC_BACKEND", "none")
	t.Setenv("TRADEQUEST_LOG_LEVEL", "error")
	dbPath := filepath.Join(t.TempDir(), "tq.db")

	rootCmd.SetArgs([]string{"lesson", "newcomer/what-is-crypto", "--db", dbPath})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	db, err := store.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	rec, err := db.RecordRepo().Get(context.Background(), store.KeyProgress)
	require.NoError(t, err)
	require.NotNil(t, rec)
	st, err := progress.Decode(rec.Data)
	require.NoError(t, err)
	assert.True(t, st.CompletedLessons.Has("newcomer/what-is-crypto"))
	assert.True(t, st.AchievementsEarned.Has("first-steps"))
	assert.Equal(t, 1, st.Streak.Current)
}

func TestVersionCommandWritesToCommandOutput(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	t.Cleanup(func() { rootCmd.SetOut(nil) })

	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Equal(t, "tradequest "+version+"\n", buf.String())
}
