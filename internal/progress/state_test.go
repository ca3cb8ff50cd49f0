package progress

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestStreakAdvance(t *testing.T) {
	tests := []struct {
		name string
		in   Streak
		day  string
		want Streak
	}{
		{"first day", Streak{}, "2026-01-10", Streak{Current: 1, Longest: 1, LastActiveDate: "2026-01-10"}},
		{"same day", Streak{Current: 4, Longest: 4, LastActiveDate: "2026-01-10"}, "2026-01-10", Streak{Current: 4, Longest: 4, LastActiveDate: "2026-01-10"}},
		{"next day", Streak{Current: 4, Longest: 4, LastActiveDate: "2026-01-10"}, "2026-01-11", Streak{Current: 5, Longest: 5, LastActiveDate: "2026-01-11"}},
		{"month boundary", Streak{Current: 2, Longest: 9, LastActiveDate: "2026-01-31"}, "2026-02-01", Streak{Current: 3, Longest: 9, LastActiveDate: "2026-02-01"}},
		{"gap resets", Streak{Current: 6, Longest: 6, LastActiveDate: "2026-01-10"}, "2026-01-13", Streak{Current: 1, Longest: 6, LastActiveDate: "2026-01-13"}},
		{"clock went back", Streak{Current: 3, Longest: 3, LastActiveDate: "2026-01-10"}, "2026-01-08", Streak{Current: 3, Longest: 3, LastActiveDate: "2026-01-10"}},
		{"corrupt date", Streak{Current: 3, Longest: 3, LastActiveDate: "yesterday"}, "2026-01-08", Streak{Current: 1, Longest: 3, LastActiveDate: "2026-01-08"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Advance(tt.day)
			if got != tt.want {
				t.Errorf("Advance(%q) = %+v, want %+v", tt.day, got, tt.want)
			}
		})
	}
}

func TestRecompute_IndependentLenses(t *testing.T) {
	st := NewState()
	st.ModuleBestScores["newcomer"] = 0.9
	st.ModuleLatestScores["newcomer"] = 0.3
	st.ModuleBestScores["trader"] = 0.5
	st.ModuleLatestScores["trader"] = 0.5
	st.ModuleBestScores["master"] = 0.75
	st.ModuleLatestScores["master"] = 0.75
	st.ModuleLatestScores["apprentice"] = 0
	st.Recompute()

	if got := st.TestedOutModules.Sorted(); len(got) != 2 || got[0] != "master" || got[1] != "newcomer" {
		t.Errorf("TestedOutModules = %v, want [master newcomer]", got)
	}
	if got := st.UnlockedForReview.Sorted(); len(got) != 2 || got[0] != "newcomer" || got[1] != "trader" {
		t.Errorf("UnlockedForReview = %v, want [newcomer trader]", got)
	}
}

func TestSetJSON(t *testing.T) {
	s := NewSet("b", "a", "c")
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `["a","b","c"]` {
		t.Errorf("marshal = %s, want sorted array", b)
	}

	var back Set
	if err := json.Unmarshal([]byte(`["x","y"]`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Has("x") || !back.Has("y") || len(back) != 2 {
		t.Errorf("unmarshal = %v", back)
	}

	var empty Set
	if err := json.Unmarshal([]byte(`null`), &empty); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if empty == nil {
		t.Error("null should decode to an empty, usable set")
	}
}

func TestNormalize_FillsAndClamps(t *testing.T) {
	var st State
	if err := json.Unmarshal([]byte(`{
		"lessonScores": {"newcomer/a": {"bestScore": 1.4, "lastScore": -2, "attempts": -1}},
		"moduleBestScores": {"newcomer": 0.8},
		"streak": {"current": 5, "longest": 2}
	}`), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	st.Normalize()

	if st.CompletedLessons == nil || st.AchievementsEarned == nil || st.ModuleLatestScores == nil {
		t.Fatal("nil collections after Normalize")
	}
	ls := st.LessonScores["newcomer/a"]
	if ls.BestScore != 1 || ls.LastScore != 0 || ls.Attempts != 0 {
		t.Errorf("lesson score = %+v, want clamped", ls)
	}
	if st.Streak.Longest != 5 {
		t.Errorf("Longest = %d, want raised to current 5", st.Streak.Longest)
	}
	if !st.TestedOutModules.Has("newcomer") {
		t.Error("derived sets should be recomputed")
	}
}

func TestNormalize_PlacementLevel(t *testing.T) {
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	st := State{PlacementLevel: "grandmaster", PlacementAt: at}
	st.Normalize()
	if st.PlacementLevel != "" || !st.PlacementAt.IsZero() {
		t.Errorf("unknown level kept: %q at %v", st.PlacementLevel, st.PlacementAt)
	}

	st = State{PlacementLevel: LevelTrader, PlacementAt: at}
	st.Normalize()
	if st.PlacementLevel != LevelTrader || !st.PlacementAt.Equal(at) {
		t.Errorf("known level changed: %q at %v", st.PlacementLevel, st.PlacementAt)
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.1, 0}, {0, 0}, {0.5, 0.5}, {1, 1}, {3, 1}, {math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.want {
			t.Errorf("ClampScore(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSplitLessonKey(t *testing.T) {
	m, l, err := SplitLessonKey("newcomer/wallet-setup")
	if err != nil || m != "newcomer" || l != "wallet-setup" {
		t.Errorf("SplitLessonKey = %q, %q, %v", m, l, err)
	}
	for _, bad := range []string{"", "newcomer", "/x", "x/", "a/b/c"} {
		if _, _, err := SplitLessonKey(bad); err == nil {
			t.Errorf("SplitLessonKey(%q) should fail", bad)
		}
	}
	if LessonKey("trader", "spreads") != "trader/spreads" {
		t.Error("LessonKey mismatch")
	}
}

func TestCloneIsDeep(t *testing.T) {
	st := NewState()
	st.ModuleBestScores["newcomer"] = 0.5
	st.LessonScores["newcomer/a"] = LessonScore{BestScore: 0.5}

	cp := st.Clone()
	cp.ModuleBestScores["newcomer"] = 1
	cp.LessonScores["newcomer/a"] = LessonScore{BestScore: 1}
	cp.CompletedLessons["newcomer/a"] = true

	if st.ModuleBestScores["newcomer"] != 0.5 || st.LessonScores["newcomer/a"].BestScore != 0.5 {
		t.Error("Clone shares score maps")
	}
	if st.CompletedLessons.Has("newcomer/a") {
		t.Error("Clone shares sets")
	}
}
