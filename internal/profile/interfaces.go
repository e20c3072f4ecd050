package profile

import (
	"context"

	"github.com/felixgeelhaar/palabras/internal/content"
)

// DocumentStore persists one progress document per learner.
// Both the JSON file store and the SQLite store implement this.
type DocumentStore interface {
	Save(learnerID string, doc *Document) error
	Get(learnerID string) (*Document, error)
	Delete(learnerID string) error
	List() ([]string, error)
	Exists(learnerID string) bool
}

// Ensure Store (JSON) implements DocumentStore
var _ DocumentStore = (*Store)(nil)

// Syncer receives a copy of the document after every successful save.
// Implementations must not block the caller.
type Syncer interface {
	PushProgress(ctx context.Context, doc *Document)
}

// Catalog supplies the units a new profile is seeded with
type Catalog interface {
	Units() []*content.Unit
}
