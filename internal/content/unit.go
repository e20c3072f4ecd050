// Package content holds the immutable vocabulary and grammar definitions
// the trainer quizzes on. Units are loaded once and only read afterwards.
package content

import (
	"errors"
	"strconv"
	"strings"
)

// SmallGroupThreshold is the word count below which a group is played
// as a matching game instead of leveled quizzes.
const SmallGroupThreshold = 10

var (
	ErrUnitNotFound     = errors.New("unit not found")
	ErrGroupNotFound    = errors.New("group not found")
	ErrExerciseNotFound = errors.New("exercise not found")
)

// WordEntry is a single vocabulary item
type WordEntry struct {
	Spanish  string   `json:"spanish" yaml:"spanish"`
	Russian  string   `json:"ru" yaml:"ru"`
	Examples []string `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// Same reports whether two entries denote the same vocabulary item
func (w WordEntry) Same(other WordEntry) bool {
	return w.Spanish == other.Spanish && w.Russian == other.Russian
}

// Group is a named cluster of words within a unit
type Group struct {
	Name  string
	Words []WordEntry
}

// IsSmall reports whether the group uses the matching game
func (g *Group) IsSmall() bool {
	return len(g.Words) < SmallGroupThreshold
}

// Question is a single fill-in grammar item
type Question struct {
	Sentence string `json:"sentence" yaml:"sentence"`
	Answer   string `json:"answer" yaml:"answer"`
}

// TestItem is a micro-test entry attached to an exercise. It is displayed
// but never scored.
type TestItem struct {
	Sentence    string   `json:"sentence" yaml:"sentence"`
	Options     []string `json:"options,omitempty" yaml:"options,omitempty"`
	Correct     string   `json:"correct" yaml:"correct"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// Exercise is a grammar exercise with its question list
type Exercise struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Hint      string     `json:"hint,omitempty" yaml:"hint,omitempty"`
	Rule      string     `json:"rule,omitempty" yaml:"rule,omitempty"`
	Questions []Question `json:"questions" yaml:"questions"`
	Test      []TestItem `json:"test,omitempty" yaml:"test,omitempty"`
}

// Unit is a course chapter: vocabulary groups in declaration order plus
// grammar exercises.
type Unit struct {
	ID        string
	Title     string
	Groups    []Group
	Exercises []Exercise
}

// Group returns the group with the given name
func (u *Unit) Group(name string) (*Group, error) {
	for i := range u.Groups {
		if u.Groups[i].Name == name {
			return &u.Groups[i], nil
		}
	}
	return nil, ErrGroupNotFound
}

// Exercise returns the exercise with the given id
func (u *Unit) Exercise(id string) (*Exercise, error) {
	for i := range u.Exercises {
		if u.Exercises[i].ID == id {
			return &u.Exercises[i], nil
		}
	}
	return nil, ErrExerciseNotFound
}

// GroupNames returns group names in declaration order
func (u *Unit) GroupNames() []string {
	names := make([]string, len(u.Groups))
	for i, g := range u.Groups {
		names[i] = g.Name
	}
	return names
}

// WordCount returns the total number of words across all groups
func (u *Unit) WordCount() int {
	n := 0
	for _, g := range u.Groups {
		n += len(g.Words)
	}
	return n
}

// unitOrdinal extracts the trailing number of ids like "unidad_3".
// Ids without one sort after numbered units.
func unitOrdinal(id string) int {
	i := strings.LastIndexAny(id, "_-")
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}
