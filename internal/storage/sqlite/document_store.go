package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/palabras/internal/profile"
)

// DocumentStore keeps learner progress documents in SQLite, one row
// per storage slot ("progress-" + learner id).
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new SQLite-backed document store.
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Save persists a document (insert or update).
func (s *DocumentStore) Save(learnerID string, doc *profile.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO progress_documents (slot, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			data=excluded.data,
			updated_at=excluded.updated_at`,
		profile.StorageKey(learnerID), string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Get loads the document for a learner.
func (s *DocumentStore) Get(learnerID string) (*profile.Document, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM progress_documents WHERE slot = ?", profile.StorageKey(learnerID)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	return profile.Decode([]byte(data))
}

// Delete removes a learner's document.
func (s *DocumentStore) Delete(learnerID string) error {
	result, err := s.db.Exec("DELETE FROM progress_documents WHERE slot = ?", profile.StorageKey(learnerID))
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return profile.ErrNotFound
	}
	return nil
}

// List returns every learner id with a stored document.
func (s *DocumentStore) List() ([]string, error) {
	rows, err := s.db.Query("SELECT slot FROM progress_documents WHERE slot LIKE ? ORDER BY slot", profile.KeyPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		ids = append(ids, strings.TrimPrefix(slot, profile.KeyPrefix))
	}
	return ids, rows.Err()
}

// Exists checks if a learner has a stored document.
func (s *DocumentStore) Exists(learnerID string) bool {
	var count int
	s.db.QueryRow("SELECT COUNT(*) FROM progress_documents WHERE slot = ?", profile.StorageKey(learnerID)).Scan(&count)
	return count > 0
}
