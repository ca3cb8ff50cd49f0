package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates the remote has no progress for the user.
var ErrNotFound = errors.New("remote progress not found")

// ErrRateLimit indicates the service returned 429.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrUnavailable indicates the service is down, unreachable or not
// configured.
type ErrUnavailable struct {
	Err error
}

func (e *ErrUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sync service unavailable: %v", e.Err)
	}
	return "sync service unavailable"
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }

// ErrInvalidPayload indicates the service returned progress that does
// not match the expected shape.
type ErrInvalidPayload struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidPayload) Error() string {
	return fmt.Sprintf("invalid progress payload: %v", e.Err)
}

func (e *ErrInvalidPayload) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying on a later sync.
func IsTransient(err error) bool {
	var rl *ErrRateLimit
	var un *ErrUnavailable
	return errors.As(err, &rl) || errors.As(err, &un)
}
