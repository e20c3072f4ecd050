package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/palabras/internal/remote"
	"github.com/google/uuid"
)

// ActivityStore records assessment outcomes backed by SQLite.
type ActivityStore struct {
	db *DB
}

// NewActivityStore creates a new SQLite-backed activity store.
func NewActivityStore(db *DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// AppendActivity stores an outcome. Ids already present are ignored.
func (s *ActivityStore) AppendActivity(ctx context.Context, a *remote.Activity) error {
	payload := string(a.Payload)
	if payload == "" {
		payload = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO activity (id, learner_id, kind, unit_id, score, passed, payload, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.LearnerID, a.Kind, a.UnitID, a.Score, a.Passed, payload, a.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// RecentActivity returns a learner's newest outcomes first.
func (s *ActivityStore) RecentActivity(ctx context.Context, learnerID string, limit int) ([]remote.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, learner_id, kind, unit_id, score, passed, payload, occurred_at
		FROM activity WHERE learner_id = ?
		ORDER BY occurred_at DESC
		LIMIT ?`,
		learnerID, remote.ClampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var out []remote.Activity
	for rows.Next() {
		var a remote.Activity
		var id, payload string
		if err := rows.Scan(&id, &a.LearnerID, &a.Kind, &a.UnitID, &a.Score, &a.Passed, &payload, &a.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse activity id %q: %w", id, err)
		}
		a.Payload = json.RawMessage(payload)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Count returns the number of outcomes stored for a learner.
func (s *ActivityStore) Count(ctx context.Context, learnerID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activity WHERE learner_id = ?", learnerID).Scan(&count)
	return count, err
}
