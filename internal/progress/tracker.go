package progress

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/palabras/internal/content"
	"github.com/felixgeelhaar/palabras/internal/profile"
)

// Profiles is the write path the tracker persists through
type Profiles interface {
	Active() (*profile.Profile, error)
	Mutate(ctx context.Context, fn func(p *profile.Profile) error) error
}

// Catalog resolves units in course order
type Catalog interface {
	Units() []*content.Unit
	Unit(id string) (*content.Unit, error)
}

// OutcomeSink receives a record of every completed assessment.
// Implementations must not block.
type OutcomeSink interface {
	RecordOutcome(ctx context.Context, o Outcome)
}

// Outcome kinds
const (
	KindQuiz     = "quiz"
	KindMatching = "matching"
	KindGrammar  = "grammar"
	KindExam     = "exam"
	KindSupport  = "support"
)

// Outcome describes one score submission and its effects
type Outcome struct {
	Kind       string        `json:"kind"`
	ProfileID  string        `json:"profile_id"`
	UnitID     string        `json:"unit_id,omitempty"`
	Group      string        `json:"group,omitempty"`
	ExerciseID string        `json:"exercise_id,omitempty"`
	Op         string        `json:"op,omitempty"`
	Level      profile.Level `json:"level,omitempty"`
	Score      int           `json:"score"`
	Improved   bool          `json:"improved"`
	Passed     bool          `json:"passed,omitempty"`
	Unlocked   []string      `json:"unlocked,omitempty"`
}

// UpdateResult reports what a score submission changed
type UpdateResult struct {
	Score         int      `json:"score"`
	Best          int      `json:"best"`
	Improved      bool     `json:"improved"`
	UnitProgress  int      `json:"unit_progress"`
	ExamAvailable bool     `json:"exam_available"`
	Unlocked      []string `json:"unlocked,omitempty"`
}

// Tracker applies assessment results to the active profile
type Tracker struct {
	profiles Profiles
	catalog  Catalog
	sink     OutcomeSink
}

// NewTracker creates a tracker
func NewTracker(profiles Profiles, catalog Catalog) *Tracker {
	return &Tracker{profiles: profiles, catalog: catalog}
}

// SetOutcomeSink sets where outcomes are reported (optional dependency)
func (t *Tracker) SetOutcomeSink(sink OutcomeSink) {
	t.sink = sink
}

// clampScore rounds and clamps a raw score into [0,100]
func clampScore(raw float64) int {
	v := Round(raw)
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// newlyUnlocked runs Recompute and returns the ids it opened
func newlyUnlocked(units []*content.Unit, p *profile.Profile) []string {
	before := make(map[string]bool, len(p.Unlocks))
	for id, v := range p.Unlocks {
		before[id] = v
	}
	Recompute(units, p)

	var opened []string
	for _, u := range units {
		if p.Unlocks[u.ID] && !before[u.ID] {
			opened = append(opened, u.ID)
		}
	}
	return opened
}

// UpdateProgress records a quiz or matching score for a group level.
// The stored value only changes when the new score is strictly higher.
// Unlocks are recomputed on every call.
func (t *Tracker) UpdateProgress(ctx context.Context, unitID, group string, level profile.Level, rawScore float64) (*UpdateResult, error) {
	if _, err := profile.ParseLevel(string(level)); err != nil {
		return nil, err
	}
	unit, err := t.catalog.Unit(unitID)
	if err != nil {
		return nil, err
	}
	g, err := unit.Group(group)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s", err, unitID, group)
	}

	score := clampScore(rawScore)
	units := t.catalog.Units()
	res := &UpdateResult{Score: score}
	var profileID string

	err = t.profiles.Mutate(ctx, func(p *profile.Profile) error {
		profileID = p.ID
		gs := p.Unit(unitID).Group(group)
		if score > gs.Get(level) {
			gs.Set(level, score)
			res.Improved = true
		}
		res.Best = gs.Get(level)
		res.Unlocked = newlyUnlocked(units, p)
		res.UnitProgress = UnitProgress(unit, p)
		res.ExamAvailable = ExamAvailable(unit, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	kind := KindQuiz
	if g.IsSmall() {
		kind = KindMatching
	}
	slog.Info("progress updated",
		"unit", unitID,
		"group", group,
		"level", level,
		"score", score,
		"improved", res.Improved,
		"unlocked", res.Unlocked,
	)
	t.record(ctx, Outcome{
		Kind:      kind,
		ProfileID: profileID,
		UnitID:    unitID,
		Group:     group,
		Level:     level,
		Score:     score,
		Improved:  res.Improved,
		Unlocked:  res.Unlocked,
	})
	return res, nil
}

// UpdateExerciseProgress records a grammar exercise score with the same
// best-score ratchet as UpdateProgress.
func (t *Tracker) UpdateExerciseProgress(ctx context.Context, unitID, exerciseID string, rawScore float64) (*UpdateResult, error) {
	unit, err := t.catalog.Unit(unitID)
	if err != nil {
		return nil, err
	}
	if _, err := unit.Exercise(exerciseID); err != nil {
		return nil, fmt.Errorf("%w: %s/%s", err, unitID, exerciseID)
	}

	score := clampScore(rawScore)
	units := t.catalog.Units()
	res := &UpdateResult{Score: score}
	var profileID string

	err = t.profiles.Mutate(ctx, func(p *profile.Profile) error {
		profileID = p.ID
		up := p.Unit(unitID)
		if score > up.Exercises[exerciseID] {
			up.Exercises[exerciseID] = score
			res.Improved = true
		}
		res.Best = up.Exercises[exerciseID]
		res.Unlocked = newlyUnlocked(units, p)
		res.UnitProgress = UnitProgress(unit, p)
		res.ExamAvailable = ExamAvailable(unit, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("exercise progress updated",
		"unit", unitID,
		"exercise", exerciseID,
		"score", score,
		"improved", res.Improved,
	)
	t.record(ctx, Outcome{
		Kind:       KindGrammar,
		ProfileID:  profileID,
		UnitID:     unitID,
		ExerciseID: exerciseID,
		Score:      score,
		Improved:   res.Improved,
		Unlocked:   res.Unlocked,
	})
	return res, nil
}

// CompleteExam records an exam result. A pass unlocks the unit after
// the last unlocked one, which is not necessarily the unit examined.
// It returns the id it unlocked, or "".
func (t *Tracker) CompleteExam(ctx context.Context, unitID string, percentage int, passed bool) (string, error) {
	if _, err := t.catalog.Unit(unitID); err != nil {
		return "", err
	}

	var unlocked, profileID string
	err := t.profiles.Mutate(ctx, func(p *profile.Profile) error {
		profileID = p.ID
		if passed {
			unlocked = UnlockAfterLast(t.catalog.Units(), p)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	slog.Info("exam completed",
		"unit", unitID,
		"percentage", percentage,
		"passed", passed,
		"unlocked", unlocked,
	)
	o := Outcome{
		Kind:      KindExam,
		ProfileID: profileID,
		UnitID:    unitID,
		Score:     percentage,
		Passed:    passed,
	}
	if unlocked != "" {
		o.Unlocked = []string{unlocked}
	}
	t.record(ctx, o)
	return unlocked, nil
}

// UnlockNext opens the unit after the last unlocked one
func (t *Tracker) UnlockNext(ctx context.Context) (string, error) {
	var unlocked string
	err := t.profiles.Mutate(ctx, func(p *profile.Profile) error {
		unlocked = UnlockAfterLast(t.catalog.Units(), p)
		return nil
	})
	return unlocked, err
}

// UnlockAll opens every unit
func (t *Tracker) UnlockAll(ctx context.Context) error {
	return t.support(ctx, "unlock_all", func(units []*content.Unit, p *profile.Profile) {
		p.EnsureSkeleton(units)
		for _, u := range units[min(1, len(units)):] {
			p.Unlocks[u.ID] = true
		}
	})
}

// ResetAll zeroes every score and relocks every unit but the first
func (t *Tracker) ResetAll(ctx context.Context) error {
	return t.support(ctx, "reset", func(units []*content.Unit, p *profile.Profile) {
		p.EnsureSkeleton(units)
		for _, up := range p.Progress {
			for _, g := range up.Groups {
				*g = profile.GroupScore{}
			}
			for id := range up.Exercises {
				up.Exercises[id] = 0
			}
		}
		for id := range p.Unlocks {
			p.Unlocks[id] = false
		}
	})
}

// FillAll sets every score to 100 and opens every unit
func (t *Tracker) FillAll(ctx context.Context) error {
	return t.fill(ctx, "fill", 100)
}

// PrepareExam sets every score to the unlock threshold so that every
// exam gate is open, and opens every unit.
func (t *Tracker) PrepareExam(ctx context.Context) error {
	return t.fill(ctx, "prepare_exam", UnlockThreshold)
}

func (t *Tracker) fill(ctx context.Context, op string, value int) error {
	return t.support(ctx, op, func(units []*content.Unit, p *profile.Profile) {
		p.EnsureSkeleton(units)
		for _, u := range units {
			up := p.Unit(u.ID)
			for _, g := range u.Groups {
				*up.Group(g.Name) = profile.GroupScore{Easy: value, Medium: value, Hard: value}
			}
			for _, ex := range u.Exercises {
				up.Exercises[ex.ID] = value
			}
		}
		for _, u := range units[min(1, len(units)):] {
			p.Unlocks[u.ID] = true
		}
	})
}

func (t *Tracker) support(ctx context.Context, op string, fn func(units []*content.Unit, p *profile.Profile)) error {
	units := t.catalog.Units()
	var profileID string
	err := t.profiles.Mutate(ctx, func(p *profile.Profile) error {
		profileID = p.ID
		fn(units, p)
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("support operation applied", "op", op, "profile_id", profileID)
	t.record(ctx, Outcome{Kind: KindSupport, ProfileID: profileID, Op: op})
	return nil
}

// Summary returns per-unit summaries and overall mastery of the active profile
func (t *Tracker) Summary() ([]UnitSummary, int, error) {
	p, err := t.profiles.Active()
	if err != nil {
		return nil, 0, err
	}
	units := t.catalog.Units()
	return Summarize(units, p), OverallProgress(units, p), nil
}

func (t *Tracker) record(ctx context.Context, o Outcome) {
	if t.sink != nil {
		t.sink.RecordOutcome(ctx, o)
	}
}
