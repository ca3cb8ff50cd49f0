// Package logging builds the structured JSON logger shared by the CLI and
// its services.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Service is the service attribute attached to every record.
const Service = "tradequest"

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log level %q: %w", name, err)
	}
	return l, nil
}

// New returns a JSON logger writing to w at the given level, tagged with
// the service name.
func New(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: level <= slog.LevelDebug,
		Level:     level,
	})
	return slog.New(handler).With(slog.String("service", Service))
}

// WithUser attaches the sync user id to logger.
func WithUser(logger *slog.Logger, userID string) *slog.Logger {
	if userID == "" {
		return logger
	}
	return logger.With(slog.String("user", userID))
}
