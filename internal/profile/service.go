package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

var (
	ErrNoActiveProfile = errors.New("no active profile")
	ErrEmptyNickname   = errors.New("nickname is required")
)

// Service owns the in-memory document for one learner and writes it
// through to the store on every mutation.
type Service struct {
	store     DocumentStore
	catalog   Catalog
	learnerID string
	syncer    Syncer
	now       func() time.Time

	mu  sync.Mutex
	doc *Document
}

// NewService creates a profile service for a learner
func NewService(store DocumentStore, catalog Catalog, learnerID string) *Service {
	if learnerID == "" {
		learnerID = GuestLearner
	}
	return &Service{
		store:     store,
		catalog:   catalog,
		learnerID: learnerID,
		now:       time.Now,
	}
}

// SetSyncer sets the remote push target (optional dependency)
func (s *Service) SetSyncer(syncer Syncer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncer = syncer
}

// SetClock replaces the time source used for createdAt and lastSeenAt
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// LearnerID returns the learner the service is bound to
func (s *Service) LearnerID() string {
	return s.learnerID
}

// load reads the document on first use. A missing or corrupt document
// starts a fresh one. Callers hold s.mu.
func (s *Service) load() *Document {
	if s.doc != nil {
		return s.doc
	}

	doc, err := s.store.Get(s.learnerID)
	switch {
	case err == nil:
		s.doc = doc
	case errors.Is(err, ErrNotFound):
		s.doc = NewDocument()
	default:
		slog.Warn("discarding unreadable progress document",
			"learner", s.learnerID,
			"error", err,
		)
		s.doc = NewDocument()
	}
	return s.doc
}

// commit persists next and swaps it in on success. Callers hold s.mu.
func (s *Service) commit(ctx context.Context, next *Document) error {
	if err := s.store.Save(s.learnerID, next); err != nil {
		return fmt.Errorf("save progress document: %w", err)
	}
	s.doc = next

	if s.syncer != nil {
		s.syncer.PushProgress(ctx, next.Clone())
	}
	return nil
}

// Document returns a copy of the learner's document
func (s *Service) Document() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load().Clone()
}

// Create adds a profile seeded with the full unit skeleton and makes it active
func (s *Service) Create(ctx context.Context, nickname string) (*Profile, error) {
	if nickname == "" {
		return nil, ErrEmptyNickname
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.load().Clone()
	p := New(nickname, s.now())
	if s.catalog != nil {
		p.EnsureSkeleton(s.catalog.Units())
	}
	next.Profiles[p.ID] = p
	next.ActiveProfileID = p.ID

	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}

	slog.Info("profile created", "learner", s.learnerID, "profile_id", p.ID, "nickname", nickname)
	return p.Clone(), nil
}

// List returns all profiles, oldest first
func (s *Service) List() []*Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	profiles := make([]*Profile, 0, len(doc.Profiles))
	for _, p := range doc.Profiles {
		profiles = append(profiles, p.Clone())
	}
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].CreatedAt.Equal(profiles[j].CreatedAt) {
			return profiles[i].ID < profiles[j].ID
		}
		return profiles[i].CreatedAt.Before(profiles[j].CreatedAt)
	})
	return profiles
}

// Get returns a copy of a profile by id
func (s *Service) Get(id string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.load().Profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// Active returns a copy of the active profile
func (s *Service) Active() (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.load().Active()
	if p == nil {
		return nil, ErrNoActiveProfile
	}
	return p.Clone(), nil
}

// SetActive selects the active profile and touches its lastSeenAt
func (s *Service) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.load().Clone()
	p, ok := next.Profiles[id]
	if !ok {
		return ErrNotFound
	}
	if s.catalog != nil {
		p.EnsureSkeleton(s.catalog.Units())
	}
	p.LastSeenAt = s.now()
	next.ActiveProfileID = id
	return s.commit(ctx, next)
}

// Delete removes a profile. Deleting the active profile leaves none active.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.load().Clone()
	if _, ok := next.Profiles[id]; !ok {
		return ErrNotFound
	}
	delete(next.Profiles, id)
	if next.ActiveProfileID == id {
		next.ActiveProfileID = ""
	}

	if err := s.commit(ctx, next); err != nil {
		return err
	}
	slog.Info("profile deleted", "learner", s.learnerID, "profile_id", id)
	return nil
}

// Touch updates lastSeenAt on the active profile
func (s *Service) Touch(ctx context.Context) error {
	return s.Mutate(ctx, func(p *Profile) error {
		return nil
	})
}

// Mutate applies fn to a copy of the active profile, stamps lastSeenAt,
// and persists the result. If fn or the save fails nothing changes.
func (s *Service) Mutate(ctx context.Context, fn func(p *Profile) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.load().Clone()
	p := next.Active()
	if p == nil {
		return ErrNoActiveProfile
	}
	if err := fn(p); err != nil {
		return err
	}
	p.LastSeenAt = s.now()
	return s.commit(ctx, next)
}

// Replace swaps in a document received from elsewhere, typically the
// remote store after login. It is persisted but not pushed back.
func (s *Service) Replace(doc *Document) error {
	if doc == nil {
		return errors.New("nil document")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := doc.Clone()
	next.normalize()
	if err := s.store.Save(s.learnerID, next); err != nil {
		return fmt.Errorf("save progress document: %w", err)
	}
	s.doc = next
	return nil
}
