package curriculum

import (
	"strings"
	"testing"

	"github.com/abhisek/tradequest/internal/progress"
)

func TestDefault_LoadsEmbeddedCatalog(t *testing.T) {
	c := Default()
	mods := c.Modules()
	if len(mods) != 5 {
		t.Fatalf("expected 5 modules, got %d", len(mods))
	}
	for i, section := range progress.Sections() {
		if mods[i].ID != string(section) {
			t.Errorf("module %d = %q, want %q", i, mods[i].ID, section)
		}
	}
	if !c.HasLesson("newcomer/wallet-setup") {
		t.Error("embedded catalog should contain newcomer/wallet-setup")
	}
}

func TestModuleOf(t *testing.T) {
	c := Default()
	id, ok := c.ModuleOf("trader/order-types")
	if !ok || id != "trader" {
		t.Errorf("ModuleOf = %q, %v", id, ok)
	}
	if _, ok := c.ModuleOf("trader/nope"); ok {
		t.Error("unknown lesson should not resolve")
	}
}

func TestIsModuleComplete(t *testing.T) {
	c, err := New([]Module{
		{ID: "newcomer", Tier: progress.LevelNewcomer, Lessons: []string{"a", "b"}},
		{ID: "apprentice", Tier: progress.LevelApprentice, Lessons: []string{"c"}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := progress.NewSet("newcomer/a")
	if c.IsModuleComplete("newcomer", done) {
		t.Error("half-finished module reported complete")
	}
	done["newcomer/b"] = true
	if !c.IsModuleComplete("newcomer", done) {
		t.Error("finished module reported incomplete")
	}
	if c.IsModuleComplete("missing", done) {
		t.Error("unknown module reported complete")
	}

	got := c.CompletedModules(done)
	if len(got) != 1 || got[0] != "newcomer" {
		t.Errorf("CompletedModules = %v, want [newcomer]", got)
	}
}

func TestLoad(t *testing.T) {
	doc := `
modules:
  - id: newcomer
    title: Basics
    tier: newcomer
    lessons: [one, two]
`
	c, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.LessonCount() != 2 {
		t.Errorf("LessonCount = %d, want 2", c.LessonCount())
	}
	m, ok := c.Module("newcomer")
	if !ok || m.Title != "Basics" {
		t.Errorf("Module = %+v, %v", m, ok)
	}
}

func TestValidateModules(t *testing.T) {
	tests := []struct {
		name    string
		modules []Module
		wantErr string
	}{
		{"empty", nil, "no modules"},
		{"duplicate id", []Module{
			{ID: "newcomer", Tier: progress.LevelNewcomer, Lessons: []string{"a"}},
			{ID: "newcomer", Tier: progress.LevelNewcomer, Lessons: []string{"b"}},
		}, "duplicate"},
		{"bad tier", []Module{{ID: "x", Tier: "wizard", Lessons: []string{"a"}}}, "unknown tier"},
		{"no lessons", []Module{{ID: "x", Tier: progress.LevelTrader}}, "no lessons"},
		{"slash in slug", []Module{{ID: "x", Tier: progress.LevelTrader, Lessons: []string{"a/b"}}}, "invalid lesson slug"},
		{"repeated lesson", []Module{{ID: "x", Tier: progress.LevelTrader, Lessons: []string{"a", "a"}}}, "twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateModules(tt.modules)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}
