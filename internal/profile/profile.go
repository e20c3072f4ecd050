// Package profile owns the learner progress document: profiles, their
// per-level best scores, and unit unlock flags.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/felixgeelhaar/palabras/internal/content"
)

// Level is a quiz difficulty tier
type Level string

const (
	LevelEasy   Level = "easy"
	LevelMedium Level = "medium"
	LevelHard   Level = "hard"
)

// Levels lists every level in difficulty order
var Levels = []Level{LevelEasy, LevelMedium, LevelHard}

var ErrInvalidLevel = errors.New("invalid level")

// ParseLevel validates a level name
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelEasy, LevelMedium, LevelHard:
		return Level(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// GroupScore holds the best-ever percentage per level for one group.
// Small groups only use Easy, which stores the matching-game score.
type GroupScore struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// Get returns the score for a level
func (g GroupScore) Get(level Level) int {
	switch level {
	case LevelEasy:
		return g.Easy
	case LevelMedium:
		return g.Medium
	case LevelHard:
		return g.Hard
	}
	return 0
}

// Set stores the score for a level
func (g *GroupScore) Set(level Level, v int) {
	switch level {
	case LevelEasy:
		g.Easy = v
	case LevelMedium:
		g.Medium = v
	case LevelHard:
		g.Hard = v
	}
}

// exercisesKey is the reserved key that holds exercise scores inside a
// unit's progress object.
const exercisesKey = "ejercicios"

// UnitProgress holds group scores and exercise best scores for one unit.
// On disk it is a flat object of group names plus an "ejercicios" entry.
type UnitProgress struct {
	Groups    map[string]*GroupScore
	Exercises map[string]int
}

// NewUnitProgress returns an empty unit progress
func NewUnitProgress() *UnitProgress {
	return &UnitProgress{
		Groups:    make(map[string]*GroupScore),
		Exercises: make(map[string]int),
	}
}

// Group returns the score for a group, creating it if missing
func (u *UnitProgress) Group(name string) *GroupScore {
	g, ok := u.Groups[name]
	if !ok {
		g = &GroupScore{}
		u.Groups[name] = g
	}
	return g
}

func (u *UnitProgress) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(u.Groups)+1)
	for name, g := range u.Groups {
		flat[name] = g
	}
	exercises := u.Exercises
	if exercises == nil {
		exercises = map[string]int{}
	}
	flat[exercisesKey] = exercises
	return json.Marshal(flat)
}

func (u *UnitProgress) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	u.Groups = make(map[string]*GroupScore, len(raw))
	u.Exercises = make(map[string]int)
	for key, value := range raw {
		if key == exercisesKey {
			if err := json.Unmarshal(value, &u.Exercises); err != nil {
				return fmt.Errorf("%s: %w", exercisesKey, err)
			}
			if u.Exercises == nil {
				u.Exercises = make(map[string]int)
			}
			continue
		}
		var g GroupScore
		if err := json.Unmarshal(value, &g); err != nil {
			return fmt.Errorf("group %s: %w", key, err)
		}
		u.Groups[key] = &g
	}
	return nil
}

func (u *UnitProgress) clone() *UnitProgress {
	c := NewUnitProgress()
	for name, g := range u.Groups {
		score := *g
		c.Groups[name] = &score
	}
	for id, v := range u.Exercises {
		c.Exercises[id] = v
	}
	return c
}

// Profile is one learner persona with its progress and unlocks
type Profile struct {
	ID         string                   `json:"id"`
	Nickname   string                   `json:"nickname"`
	CreatedAt  time.Time                `json:"createdAt"`
	LastSeenAt time.Time                `json:"lastSeenAt"`
	Progress   map[string]*UnitProgress `json:"progress"`
	Unlocks    map[string]bool          `json:"unlocks"`
}

// New creates an empty profile with a fresh id
func New(nickname string, now time.Time) *Profile {
	return &Profile{
		ID:         NewID(now),
		Nickname:   nickname,
		CreatedAt:  now,
		LastSeenAt: now,
		Progress:   make(map[string]*UnitProgress),
		Unlocks:    make(map[string]bool),
	}
}

// NewID returns an id of the form p_<unix-millis>_<random>
func NewID(now time.Time) string {
	return "p_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + randomSuffix(9)
}

func randomSuffix(n int) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}

// Unit returns the progress of a unit, creating it if missing
func (p *Profile) Unit(unitID string) *UnitProgress {
	if p.Progress == nil {
		p.Progress = make(map[string]*UnitProgress)
	}
	u, ok := p.Progress[unitID]
	if !ok {
		u = NewUnitProgress()
		p.Progress[unitID] = u
	}
	return u
}

// Score returns a group's scores without creating anything
func (p *Profile) Score(unitID, group string) GroupScore {
	u, ok := p.Progress[unitID]
	if !ok {
		return GroupScore{}
	}
	g, ok := u.Groups[group]
	if !ok {
		return GroupScore{}
	}
	return *g
}

// ExerciseScore returns an exercise's best score without creating anything
func (p *Profile) ExerciseScore(unitID, exerciseID string) int {
	u, ok := p.Progress[unitID]
	if !ok {
		return 0
	}
	return u.Exercises[exerciseID]
}

// EnsureSkeleton fills in zeroed entries for every group and exercise of
// the given units and initialises the unlock flags of every unit after
// the first. Existing scores and unlocks are left untouched.
func (p *Profile) EnsureSkeleton(units []*content.Unit) {
	if p.Unlocks == nil {
		p.Unlocks = make(map[string]bool)
	}
	for i, unit := range units {
		up := p.Unit(unit.ID)
		for _, g := range unit.Groups {
			up.Group(g.Name)
		}
		for _, ex := range unit.Exercises {
			if _, ok := up.Exercises[ex.ID]; !ok {
				up.Exercises[ex.ID] = 0
			}
		}
		if i > 0 {
			if _, ok := p.Unlocks[unit.ID]; !ok {
				p.Unlocks[unit.ID] = false
			}
		}
	}
}

// Clone returns a deep copy
func (p *Profile) Clone() *Profile {
	c := *p
	c.Progress = make(map[string]*UnitProgress, len(p.Progress))
	for id, u := range p.Progress {
		c.Progress[id] = u.clone()
	}
	c.Unlocks = make(map[string]bool, len(p.Unlocks))
	for id, v := range p.Unlocks {
		c.Unlocks[id] = v
	}
	return &c
}

// Document is the persisted per-learner collection of profiles
type Document struct {
	ActiveProfileID string              `json:"activeProfileId"`
	Profiles        map[string]*Profile `json:"profiles"`
}

// NewDocument returns an empty document
func NewDocument() *Document {
	return &Document{Profiles: make(map[string]*Profile)}
}

// Active returns the active profile, or nil
func (d *Document) Active() *Profile {
	if d.ActiveProfileID == "" {
		return nil
	}
	return d.Profiles[d.ActiveProfileID]
}

// Clone returns a deep copy
func (d *Document) Clone() *Document {
	c := &Document{
		ActiveProfileID: d.ActiveProfileID,
		Profiles:        make(map[string]*Profile, len(d.Profiles)),
	}
	for id, p := range d.Profiles {
		c.Profiles[id] = p.Clone()
	}
	return c
}

// normalize repairs nil maps after decoding
func (d *Document) normalize() {
	if d.Profiles == nil {
		d.Profiles = make(map[string]*Profile)
	}
	for id, p := range d.Profiles {
		if p == nil {
			delete(d.Profiles, id)
			continue
		}
		if p.Progress == nil {
			p.Progress = make(map[string]*UnitProgress)
		}
		for unitID, u := range p.Progress {
			if u == nil {
				delete(p.Progress, unitID)
			}
		}
		if p.Unlocks == nil {
			p.Unlocks = make(map[string]bool)
		}
	}
	if d.ActiveProfileID != "" && d.Profiles[d.ActiveProfileID] == nil {
		d.ActiveProfileID = ""
	}
}
