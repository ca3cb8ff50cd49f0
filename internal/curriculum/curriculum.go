// Package curriculum holds the module and lesson catalog the progression
// engine scores against. Lesson content itself lives elsewhere.
package curriculum

import (
	_ "embed"
	"fmt"
	"io"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/tradequest/internal/progress"
)

//go:embed curriculum.yaml
var defaultYAML []byte

// Module is one curriculum module with its ordered lesson slugs.
type Module struct {
	ID      string         `yaml:"id"`
	Title   string         `yaml:"title"`
	Tier    progress.Level `yaml:"tier"`
	Lessons []string       `yaml:"lessons"`
}

// LessonKeys returns the module's lessons as "<module>/<lesson>" keys.
func (m Module) LessonKeys() []string {
	keys := make([]string, len(m.Lessons))
	for i, l := range m.Lessons {
		keys[i] = progress.LessonKey(m.ID, l)
	}
	return keys
}

// Curriculum is an immutable, indexed module catalog.
type Curriculum struct {
	modules []Module
	byID    map[string]int
	lessons map[string]string // lesson key -> module id
}

type document struct {
	Modules []Module `yaml:"modules"`
}

// Load parses and validates a curriculum document.
func Load(r io.Reader) (*Curriculum, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read curriculum: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse curriculum yaml: %w", err)
	}
	return New(doc.Modules)
}

// New builds a curriculum from modules in display order.
func New(modules []Module) (*Curriculum, error) {
	if err := validateModules(modules); err != nil {
		return nil, err
	}
	c := &Curriculum{
		modules: slices.Clone(modules),
		byID:    make(map[string]int, len(modules)),
		lessons: make(map[string]string),
	}
	for i, m := range c.modules {
		c.modules[i].Lessons = slices.Clone(m.Lessons)
		c.byID[m.ID] = i
		for _, key := range m.LessonKeys() {
			c.lessons[key] = m.ID
		}
	}
	return c, nil
}

var (
	defaultOnce sync.Once
	defaultCur  *Curriculum
)

// Default returns the embedded catalog. It panics if the embedded file is
// invalid, which the package tests rule out.
func Default() *Curriculum {
	defaultOnce.Do(func() {
		var doc document
		if err := yaml.Unmarshal(defaultYAML, &doc); err != nil {
			panic(fmt.Sprintf("curriculum: embedded catalog: %v", err))
		}
		c, err := New(doc.Modules)
		if err != nil {
			panic(fmt.Sprintf("curriculum: embedded catalog: %v", err))
		}
		defaultCur = c
	})
	return defaultCur
}

// Modules returns all modules in display order.
func (c *Curriculum) Modules() []Module {
	out := make([]Module, len(c.modules))
	copy(out, c.modules)
	return out
}

// Module returns the module with the given id.
func (c *Curriculum) Module(id string) (Module, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Module{}, false
	}
	return c.modules[i], true
}

// ModuleOf returns the module id a lesson key belongs to.
func (c *Curriculum) ModuleOf(lessonKey string) (string, bool) {
	id, ok := c.lessons[lessonKey]
	return id, ok
}

// HasLesson reports whether the lesson key is part of the catalog.
func (c *Curriculum) HasLesson(lessonKey string) bool {
	_, ok := c.lessons[lessonKey]
	return ok
}

// LessonCount is the number of lessons across all modules.
func (c *Curriculum) LessonCount() int {
	return len(c.lessons)
}

// IsModuleComplete reports whether every lesson of the module is in
// completed. Testing out of a module does not complete it.
func (c *Curriculum) IsModuleComplete(id string, completed progress.Set) bool {
	m, ok := c.Module(id)
	if !ok || len(m.Lessons) == 0 {
		return false
	}
	for _, key := range m.LessonKeys() {
		if !completed.Has(key) {
			return false
		}
	}
	return true
}

// CompletedModules returns the ids of fully completed modules in display
// order.
func (c *Curriculum) CompletedModules(completed progress.Set) []string {
	var out []string
	for _, m := range c.modules {
		if c.IsModuleComplete(m.ID, completed) {
			out = append(out, m.ID)
		}
	}
	return out
}
