// Package progress turns raw per-level scores into mastery percentages
// and derives which units are unlocked from them.
package progress

import (
	"math"

	"github.com/felixgeelhaar/palabras/internal/content"
	"github.com/felixgeelhaar/palabras/internal/profile"
)

// UnlockThreshold is the mastery percentage that opens the next unit
// and the exam gate.
const UnlockThreshold = 80

// Round rounds half up, matching how percentages have always been
// displayed to learners (2.5 -> 3, -2.5 -> -2).
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Percent returns round(100*n/total), or 0 when total is 0
func Percent(n, total int) int {
	if total <= 0 {
		return 0
	}
	return Round(100 * float64(n) / float64(total))
}

// GroupProgress returns a group's mastery. Leveled groups average all
// three levels; small groups report the matching-game score.
func GroupProgress(unit *content.Unit, group string, p *profile.Profile) int {
	g, err := unit.Group(group)
	if err != nil {
		return 0
	}
	score := p.Score(unit.ID, group)
	if g.IsSmall() {
		return score.Easy
	}
	return Round(float64(score.Easy+score.Medium+score.Hard) / 3)
}

// PalabrasProgress returns the vocabulary-only mastery of a unit
func PalabrasProgress(unit *content.Unit, p *profile.Profile) int {
	if len(unit.Groups) == 0 {
		return 0
	}
	total := 0
	for _, g := range unit.Groups {
		total += GroupProgress(unit, g.Name, p)
	}
	return Round(float64(total) / float64(len(unit.Groups)))
}

// ExerciseProgress returns the mean best score over the unit's
// exercises. ok is false when the unit defines no exercises, which is
// distinct from scoring 0 on them.
func ExerciseProgress(unit *content.Unit, p *profile.Profile) (pct int, ok bool) {
	if len(unit.Exercises) == 0 {
		return 0, false
	}
	total := 0
	for _, ex := range unit.Exercises {
		total += p.ExerciseScore(unit.ID, ex.ID)
	}
	return Round(float64(total) / float64(len(unit.Exercises))), true
}

// UnitProgress returns the overall mastery of a unit. Exercises, when
// present, count as one more term alongside the groups.
func UnitProgress(unit *content.Unit, p *profile.Profile) int {
	total := 0
	terms := len(unit.Groups)
	for _, g := range unit.Groups {
		total += GroupProgress(unit, g.Name, p)
	}
	if ex, ok := ExerciseProgress(unit, p); ok {
		total += ex
		terms++
	}
	if terms == 0 {
		return 0
	}
	return Round(float64(total) / float64(terms))
}

// ExamScore returns the value the exam gate is checked against
func ExamScore(unit *content.Unit, p *profile.Profile) int {
	ex, _ := ExerciseProgress(unit, p)
	return Round(float64(PalabrasProgress(unit, p)+ex) / 2)
}

// ExamAvailable reports whether the unit's exam gate is open
func ExamAvailable(unit *content.Unit, p *profile.Profile) bool {
	return ExamScore(unit, p) >= UnlockThreshold
}

// OverallProgress returns the mean unit mastery across the course
func OverallProgress(units []*content.Unit, p *profile.Profile) int {
	if len(units) == 0 {
		return 0
	}
	total := 0
	for _, u := range units {
		total += UnitProgress(u, p)
	}
	return Round(float64(total) / float64(len(units)))
}

// UnitSummary is a snapshot of one unit's mastery for display
type UnitSummary struct {
	UnitID        string         `json:"unit_id"`
	Title         string         `json:"title,omitempty"`
	Unlocked      bool           `json:"unlocked"`
	Progress      int            `json:"progress"`
	Palabras      int            `json:"palabras"`
	Exercises     *int           `json:"exercises"`
	ExamAvailable bool           `json:"exam_available"`
	Groups        []GroupSummary `json:"groups"`
}

// GroupSummary is a snapshot of one group's mastery
type GroupSummary struct {
	Name     string             `json:"name"`
	Words    int                `json:"words"`
	Small    bool               `json:"small"`
	Progress int                `json:"progress"`
	Scores   profile.GroupScore `json:"scores"`
}

// Summarize builds display summaries for every unit
func Summarize(units []*content.Unit, p *profile.Profile) []UnitSummary {
	out := make([]UnitSummary, 0, len(units))
	for _, u := range units {
		s := UnitSummary{
			UnitID:        u.ID,
			Title:         u.Title,
			Unlocked:      IsUnlocked(units, p, u.ID),
			Progress:      UnitProgress(u, p),
			Palabras:      PalabrasProgress(u, p),
			ExamAvailable: ExamAvailable(u, p),
		}
		if ex, ok := ExerciseProgress(u, p); ok {
			s.Exercises = &ex
		}
		for _, g := range u.Groups {
			s.Groups = append(s.Groups, GroupSummary{
				Name:     g.Name,
				Words:    len(g.Words),
				Small:    g.IsSmall(),
				Progress: GroupProgress(u, g.Name, p),
				Scores:   p.Score(u.ID, g.Name),
			})
		}
		out = append(out, s)
	}
	return out
}
