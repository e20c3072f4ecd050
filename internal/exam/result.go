package exam

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/palabras/internal/progress"
)

// Grade is the verbal band shown with a result
type Grade string

const (
	GradeExcellent    Grade = "excellent"
	GradeGood         Grade = "good"
	GradeSatisfactory Grade = "satisfactory"
	GradeNeedsWork    Grade = "needs_work"
)

// GradeFor maps an accuracy percentage to its band
func GradeFor(percentage int) Grade {
	switch {
	case percentage >= 90:
		return GradeExcellent
	case percentage >= 75:
		return GradeGood
	case percentage >= 60:
		return GradeSatisfactory
	}
	return GradeNeedsWork
}

// Breakdown is the accuracy for one group or exercise
type Breakdown struct {
	Kind       Kind   `json:"kind"`
	Source     string `json:"source"`
	Correct    int    `json:"correct"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// Result is the graded exam. Percentage and Passed use accuracy, not
// the penalized raw score.
type Result struct {
	UnitID     string        `json:"unit_id"`
	Correct    int           `json:"correct"`
	Total      int           `json:"total"`
	RawScore   float64       `json:"raw_score"`
	Percentage int           `json:"percentage"`
	Passed     bool          `json:"passed"`
	Grade      Grade         `json:"grade"`
	Elapsed    time.Duration `json:"elapsed"`
	Answers    []Answer      `json:"answers"`
	Breakdown  []Breakdown   `json:"breakdown"`
}

// ElapsedString returns the elapsed time as m:ss
func (r Result) ElapsedString() string {
	return FormatElapsed(r.Elapsed)
}

// FormatElapsed renders d as minutes:seconds, truncating fractions
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func grade(unitID string, answers []Answer, raw float64, elapsed time.Duration) Result {
	r := Result{
		UnitID:   unitID,
		Total:    len(answers),
		RawScore: raw,
		Elapsed:  elapsed,
		Answers:  append([]Answer(nil), answers...),
	}

	index := make(map[string]int)
	for _, a := range answers {
		key := string(a.Question.Kind) + "/" + a.Question.Source
		i, ok := index[key]
		if !ok {
			i = len(r.Breakdown)
			index[key] = i
			r.Breakdown = append(r.Breakdown, Breakdown{Kind: a.Question.Kind, Source: a.Question.Source})
		}
		r.Breakdown[i].Total++
		if a.Correct {
			r.Correct++
			r.Breakdown[i].Correct++
		}
	}
	for i := range r.Breakdown {
		r.Breakdown[i].Percentage = progress.Percent(r.Breakdown[i].Correct, r.Breakdown[i].Total)
	}

	r.Percentage = progress.Percent(r.Correct, r.Total)
	r.Passed = r.Percentage >= PassThreshold
	r.Grade = GradeFor(r.Percentage)
	return r
}
