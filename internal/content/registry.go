package content

import (
	"fmt"
	"sync"
)

// Registry provides ordered, read-only access to loaded units
type Registry struct {
	loader *Loader
	mu     sync.RWMutex
	units  []*Unit
	byID   map[string]*Unit
}

// NewRegistry creates a registry backed by a loader. Call Load before use.
func NewRegistry(loader *Loader) *Registry {
	return &Registry{
		loader: loader,
		byID:   make(map[string]*Unit),
	}
}

// NewCatalog creates a registry over units that are already in memory
func NewCatalog(units ...*Unit) *Registry {
	r := &Registry{byID: make(map[string]*Unit)}
	r.set(append([]*Unit(nil), units...))
	return r
}

// Load reads all units from the loader
func (r *Registry) Load() error {
	if r.loader == nil {
		return nil
	}

	units, err := r.loader.LoadAll()
	if err != nil {
		return fmt.Errorf("load units: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(units)
	return nil
}

// Reload discards cached units and loads them again
func (r *Registry) Reload() error {
	return r.Load()
}

func (r *Registry) set(units []*Unit) {
	SortUnits(units)
	r.units = units
	r.byID = make(map[string]*Unit, len(units))
	for _, u := range units {
		r.byID[u.ID] = u
	}
}

// Units returns all units in course order
func (r *Registry) Units() []*Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Unit, len(r.units))
	copy(out, r.units)
	return out
}

// Unit returns a unit by id
func (r *Registry) Unit(id string) (*Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, id)
	}
	return u, nil
}

// Group resolves a unit and one of its groups
func (r *Registry) Group(unitID, group string) (*Unit, *Group, error) {
	u, err := r.Unit(unitID)
	if err != nil {
		return nil, nil, err
	}
	g, err := u.Group(group)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s/%s", err, unitID, group)
	}
	return u, g, nil
}

// First returns the id of the first unit, or "" when nothing is loaded
func (r *Registry) First() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.units) == 0 {
		return ""
	}
	return r.units[0].ID
}

// Stats returns the number of units, groups, and exercises loaded
func (r *Registry) Stats() (units, groups, exercises int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.units {
		groups += len(u.Groups)
		exercises += len(u.Exercises)
	}
	return len(r.units), groups, exercises
}
