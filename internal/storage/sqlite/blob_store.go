package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/palabras/internal/remote"
	"github.com/google/uuid"
)

// BlobStore keeps synced per-user JSON blobs for the daemon.
type BlobStore struct {
	db *DB
}

// NewBlobStore creates a new SQLite-backed blob store.
func NewBlobStore(db *DB) *BlobStore {
	return &BlobStore{db: db}
}

// LoadBlob returns the stored blob or remote.ErrNotFound.
func (s *BlobStore) LoadBlob(ctx context.Context, userID uuid.UUID, kind remote.Kind) (json.RawMessage, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM user_blobs WHERE user_id = ? AND kind = ?",
		userID.String(), string(kind),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s blob: %w", kind, err)
	}
	return json.RawMessage(data), nil
}

// SaveBlob replaces the stored blob.
func (s *BlobStore) SaveBlob(ctx context.Context, userID uuid.UUID, kind remote.Kind, data json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_blobs (user_id, kind, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, kind) DO UPDATE SET
			data=excluded.data,
			updated_at=excluded.updated_at`,
		userID.String(), string(kind), string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save %s blob: %w", kind, err)
	}
	return nil
}
