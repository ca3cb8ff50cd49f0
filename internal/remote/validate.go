package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/abhisek/tradequest/internal/progress"
)

const progressSchemaURL = "schema://progress.json"

// progressSchema checks types and shape only. Out-of-range values are
// clamped by progress.Normalize on decode, so a slightly-off score never
// makes a remote ledger unreadable.
const progressSchema = `{
  "type": "object",
  "properties": {
    "completedLessons":   {"type": ["array", "null"], "items": {"type": "string"}},
    "lessonScores": {
      "type": ["object", "null"],
      "additionalProperties": {
        "type": "object",
        "properties": {
          "bestScore": {"type": "number"},
          "lastScore": {"type": "number"},
          "attempts":  {"type": "integer"},
          "updatedAt": {"type": "string"}
        }
      }
    },
    "moduleBestScores":   {"type": ["object", "null"], "additionalProperties": {"type": "number"}},
    "moduleLatestScores": {"type": ["object", "null"], "additionalProperties": {"type": "number"}},
    "moduleLatestAt":     {"type": ["object", "null"], "additionalProperties": {"type": "string"}},
    "testedOutModules":   {"type": ["array", "null"], "items": {"type": "string"}},
    "unlockedForReview":  {"type": ["array", "null"], "items": {"type": "string"}},
    "achievementsEarned": {"type": ["array", "null"], "items": {"type": "string"}},
    "streak": {
      "type": "object",
      "properties": {
        "current":        {"type": "integer"},
        "longest":        {"type": "integer"},
        "lastActiveDate": {"type": "string"}
      }
    },
    "placementLevel": {"type": "string"},
    "placementAt":    {"type": "string"},
    "updatedAt":      {"type": "string"}
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func progressValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		def, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(progressSchema)))
		if err != nil {
			compileErr = fmt.Errorf("parse progress schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(progressSchemaURL, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(progressSchemaURL)
	})
	return compiled, compileErr
}

// decodeProgress validates raw against the progress schema and decodes it.
// Failures are returned as *ErrInvalidPayload.
func decodeProgress(raw []byte) (*progress.State, error) {
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, &ErrInvalidPayload{Content: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	schema, err := progressValidator()
	if err != nil {
		return nil, &ErrInvalidPayload{Content: raw, Err: err}
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, &ErrInvalidPayload{Content: raw, Err: fmt.Errorf("schema validation failed: %w", err)}
	}

	st, err := progress.Decode(raw)
	if err != nil {
		return nil, &ErrInvalidPayload{Content: json.RawMessage(raw), Err: err}
	}
	return &st, nil
}
