// Package remote holds the server side of progress sync: per-user JSON
// blobs and the assessment activity log.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("no stored data")
	ErrNotObject = errors.New("payload must be a JSON object")
)

// Kind names a synced blob
type Kind string

const (
	KindProgress   Kind = "progress"
	KindNavigation Kind = "navigation"
)

// BlobStore keeps one JSON object per user and kind. Saves replace the
// previous value.
type BlobStore interface {
	LoadBlob(ctx context.Context, userID uuid.UUID, kind Kind) (json.RawMessage, error)
	SaveBlob(ctx context.Context, userID uuid.UUID, kind Kind, data json.RawMessage) error
}

// Activity is one recorded assessment outcome
type Activity struct {
	ID         uuid.UUID       `json:"id"`
	LearnerID  string          `json:"learner_id"`
	Kind       string          `json:"kind"`
	UnitID     string          `json:"unit_id,omitempty"`
	Score      int             `json:"score"`
	Passed     bool            `json:"passed"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// ActivityLog stores outcomes. Appending an id twice is a no-op so
// redelivered events do not duplicate.
type ActivityLog interface {
	AppendActivity(ctx context.Context, a *Activity) error
	RecentActivity(ctx context.Context, learnerID string, limit int) ([]Activity, error)
}

// DefaultActivityLimit bounds RecentActivity when no limit is given
const DefaultActivityLimit = 50

// ValidateObject checks that data is a single JSON object
func ValidateObject(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return ErrNotObject
	}
	return nil
}

// ClampLimit normalizes a requested page size
func ClampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return DefaultActivityLimit
	}
	return limit
}
