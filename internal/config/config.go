// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// SyncBackend selects where progress is synced.
type SyncBackend string

const (
	// SyncNone keeps progress local only.
	SyncNone SyncBackend = "none"
	// SyncHTTP talks to the JSON sync service.
	SyncHTTP SyncBackend = "http"
	// SyncFirestore stores progress in Cloud Firestore.
	SyncFirestore SyncBackend = "firestore"
)

// Config holds all runtime configuration.
type Config struct {
	// DBPath overrides the resolved database location when non-empty.
	DBPath   string
	LogLevel string `validate:"oneof=debug info warn error"`

	Sync        SyncConfig
	Leaderboard LeaderboardConfig
}

// SyncConfig configures remote progress sync.
type SyncConfig struct {
	Backend          SyncBackend   `validate:"oneof=none http firestore"`
	URL              string        `validate:"omitempty,url"`
	Token            string        `validate:"omitempty,jwt"`
	UserID           string        `validate:"omitempty,max=128"`
	FirestoreProject string        `validate:"omitempty,max=64"`
	AutoSync         bool
	Interval         time.Duration `validate:"gte=1m"`
	Timeout          time.Duration `validate:"gt=0"`
	MaxAttempts      int           `validate:"gte=1,lte=10"`
}

// LeaderboardConfig configures leaderboard publishing.
type LeaderboardConfig struct {
	Username string `validate:"omitempty,max=32"`
	Limit    int    `validate:"gte=1,lte=100"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "warn",
		Sync: SyncConfig{
			Backend:     SyncNone,
			Interval:    5 * time.Minute,
			Timeout:     10 * time.Second,
			MaxAttempts: 3,
		},
		Leaderboard: LeaderboardConfig{
			Limit: 10,
		},
	}
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// FromEnv builds a Config from TRADEQUEST_* environment variables,
// falling back to defaults for unset values. It does not validate.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.DBPath = get("TRADEQUEST_DB", cfg.DBPath)
	cfg.LogLevel = strings.ToLower(get("TRADEQUEST_LOG_LEVEL", cfg.LogLevel))

	cfg.Sync.URL = get("TRADEQUEST_SYNC_URL", "")
	cfg.Sync.Token = get("TRADEQUEST_SYNC_TOKEN", "")
	cfg.Sync.UserID = get("TRADEQUEST_USER_ID", "")
	cfg.Sync.FirestoreProject = get("TRADEQUEST_FIRESTORE_PROJECT", "")

	backend := get("TRADEQUEST_SYNC_BACKEND", "")
	switch {
	case backend != "":
		cfg.Sync.Backend = SyncBackend(strings.ToLower(backend))
	case cfg.Sync.URL != "":
		cfg.Sync.Backend = SyncHTTP
	case cfg.Sync.FirestoreProject != "":
		cfg.Sync.Backend = SyncFirestore
	}

	var err error
	if cfg.Sync.AutoSync, err = getBool("TRADEQUEST_AUTO_SYNC", cfg.Sync.Backend != SyncNone); err != nil {
		return Config{}, err
	}
	if cfg.Sync.Interval, err = getDuration("TRADEQUEST_SYNC_INTERVAL", cfg.Sync.Interval); err != nil {
		return Config{}, err
	}
	if cfg.Sync.Timeout, err = getDuration("TRADEQUEST_SYNC_TIMEOUT", cfg.Sync.Timeout); err != nil {
		return Config{}, err
	}
	if cfg.Sync.MaxAttempts, err = getInt("TRADEQUEST_SYNC_MAX_ATTEMPTS", cfg.Sync.MaxAttempts); err != nil {
		return Config{}, err
	}

	cfg.Leaderboard.Username = get("TRADEQUEST_USERNAME", "")
	if cfg.Leaderboard.Limit, err = getInt("TRADEQUEST_LEADERBOARD_LIMIT", cfg.Leaderboard.Limit); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads .env, then the environment, and validates the result.
func Load() (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and the settings each sync backend
// needs.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Sync.Backend {
	case SyncNone:
		// no-op
	case SyncHTTP:
		if c.Sync.URL == "" {
			return fmt.Errorf("TRADEQUEST_SYNC_URL is required when TRADEQUEST_SYNC_BACKEND=http")
		}
		if c.Sync.UserID == "" && c.Sync.Token == "" {
			return fmt.Errorf("TRADEQUEST_USER_ID or TRADEQUEST_SYNC_TOKEN is required for sync")
		}
	case SyncFirestore:
		if c.Sync.FirestoreProject == "" {
			return fmt.Errorf("TRADEQUEST_FIRESTORE_PROJECT is required when TRADEQUEST_SYNC_BACKEND=firestore")
		}
		if c.Sync.UserID == "" && c.Sync.Token == "" {
			return fmt.Errorf("TRADEQUEST_USER_ID or TRADEQUEST_SYNC_TOKEN is required for sync")
		}
	}
	return nil
}

// SyncEnabled reports whether a remote backend is configured.
func (c Config) SyncEnabled() bool {
	return c.Sync.Backend != SyncNone
}

func get(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return fallback
}

func getBool(name string, fallback bool) (bool, error) {
	v := get(name, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}

func getInt(name string, fallback int) (int, error) {
	v := get(name, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

func getDuration(name string, fallback time.Duration) (time.Duration, error) {
	v := get(name, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
