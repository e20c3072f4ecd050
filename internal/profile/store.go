package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/palabras/internal/storage/local"
)

const (
	// KeyPrefix namespaces learner storage slots
	KeyPrefix    = "progress-"
	GuestLearner = "guest"
)

var (
	ErrNotFound = errors.New("profile not found")
	ErrCorrupt  = errors.New("progress document is corrupt")
)

// StorageKey returns the slot a learner's document lives in. An empty
// learner id maps to the guest namespace.
func StorageKey(learnerID string) string {
	if learnerID == "" {
		learnerID = GuestLearner
	}
	return KeyPrefix + learnerID
}

// Store persists documents as JSON files, one slot per learner
type Store struct {
	store *local.Store
}

// NewStore creates a new JSON document store
func NewStore(basePath string) (*Store, error) {
	store, err := local.NewStore(basePath)
	if err != nil {
		return nil, err
	}
	return &Store{store: store}, nil
}

// Save persists a learner's document
func (s *Store) Save(learnerID string, doc *Document) error {
	return s.store.Put(StorageKey(learnerID), doc)
}

// Get retrieves a learner's document
func (s *Store) Get(learnerID string) (*Document, error) {
	var doc Document
	if err := s.store.Get(StorageKey(learnerID), &doc); err != nil {
		switch {
		case errors.Is(err, local.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, local.ErrCorrupt):
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return nil, err
	}
	doc.normalize()
	return &doc, nil
}

// Delete removes a learner's document
func (s *Store) Delete(learnerID string) error {
	if err := s.store.Delete(StorageKey(learnerID)); err != nil {
		if errors.Is(err, local.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// List returns every learner id with a stored document
func (s *Store) List() ([]string, error) {
	keys, err := s.store.Keys(KeyPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = strings.TrimPrefix(k, KeyPrefix)
	}
	return ids, nil
}

// Exists checks if a learner has a stored document
func (s *Store) Exists(learnerID string) bool {
	return s.store.Has(StorageKey(learnerID))
}

// Decode parses a serialized document, normalising missing maps.
// Used by stores that keep the document as an opaque blob.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	doc.normalize()
	return &doc, nil
}
