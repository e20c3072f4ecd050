// Package matching implements the two-column card pairing game played
// on small vocabulary groups.
package matching

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/felixgeelhaar/palabras/internal/content"
	"github.com/felixgeelhaar/palabras/internal/progress"
)

// DecoyCount is the number of extra right-hand cards drawn from other groups
const DecoyCount = 2

var (
	ErrEmptyGroup      = errors.New("matching needs at least one word")
	ErrNotEnoughDecoys = errors.New("not enough words in other groups for decoys")
)

// Side is a column of the board
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// State is the board state between clicks
type State int

const (
	StateIdle State = iota
	StateOneSelected
	StateSettling
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOneSelected:
		return "one_selected"
	case StateSettling:
		return "settling"
	case StateTerminal:
		return "terminal"
	}
	return "unknown"
}

// Outcome classifies a resolved pair
type Outcome int

const (
	OutcomeCorrect Outcome = iota + 1
	OutcomeDecoy
	OutcomeMismatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCorrect:
		return "correct"
	case OutcomeDecoy:
		return "decoy"
	case OutcomeMismatch:
		return "mismatch"
	}
	return "unknown"
}

// Card is one tile on the board. Left cards show the translation,
// right cards the foreign word.
type Card struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Decoy    bool   `json:"-"`
	Retired  bool   `json:"retired"`
	Selected bool   `json:"selected"`
}

// Resolution describes what a pair check did to the board
type Resolution struct {
	Outcome Outcome `json:"outcome"`
	Left    int     `json:"left"`
	Right   int     `json:"right"`
	// RetiredRight lists right-hand cards taken off the board
	RetiredRight []int `json:"retired_right"`
	// LeftRetired is false only for decoy misses
	LeftRetired bool `json:"left_retired"`
}

type board struct {
	word    content.WordEntry
	decoy   bool
	retired bool
}

// Session is one matching game. It has no timer and is driven from a
// single goroutine.
type Session struct {
	unitID string
	group  string

	left  []board
	right []board

	selLeft  int
	selRight int
	settling bool

	resolved map[int]bool
	correct  int
}

// Start lays out a board for words plus DecoyCount entries sampled from
// the decoy pool. Pool entries equal to a group word are never used.
func Start(unitID, group string, words, pool []content.WordEntry, rnd *rand.Rand) (*Session, error) {
	if len(words) == 0 {
		return nil, ErrEmptyGroup
	}

	var candidates []content.WordEntry
	for _, p := range pool {
		if containsWord(words, p) || containsWord(candidates, p) {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) < DecoyCount {
		return nil, fmt.Errorf("%s/%s: %w", unitID, group, ErrNotEnoughDecoys)
	}

	rnd.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	s := &Session{
		unitID:   unitID,
		group:    group,
		selLeft:  -1,
		selRight: -1,
		resolved: make(map[int]bool),
	}
	for _, w := range words {
		s.left = append(s.left, board{word: w})
		s.right = append(s.right, board{word: w})
	}
	for _, d := range candidates[:DecoyCount] {
		s.right = append(s.right, board{word: d, decoy: true})
	}
	rnd.Shuffle(len(s.left), func(i, j int) { s.left[i], s.left[j] = s.left[j], s.left[i] })
	rnd.Shuffle(len(s.right), func(i, j int) { s.right[i], s.right[j] = s.right[j], s.right[i] })
	return s, nil
}

// StartGroup starts a game on a unit group, drawing decoys from every
// other group of the same unit.
func StartGroup(unit *content.Unit, group string, rnd *rand.Rand) (*Session, error) {
	g, err := unit.Group(group)
	if err != nil {
		return nil, err
	}
	var pool []content.WordEntry
	for _, other := range unit.Groups {
		if other.Name == group {
			continue
		}
		pool = append(pool, other.Words...)
	}
	return Start(unit.ID, group, g.Words, pool, rnd)
}

func containsWord(list []content.WordEntry, w content.WordEntry) bool {
	for _, e := range list {
		if e.Same(w) {
			return true
		}
	}
	return false
}

// UnitID returns the unit the board was built from
func (s *Session) UnitID() string { return s.unitID }

// Group returns the group the board was built from
func (s *Session) Group() string { return s.group }

// State returns the board state
func (s *Session) State() State {
	switch {
	case s.Done():
		return StateTerminal
	case s.settling:
		return StateSettling
	case s.selLeft >= 0 || s.selRight >= 0:
		return StateOneSelected
	}
	return StateIdle
}

// LeftCards returns the left column
func (s *Session) LeftCards() []Card {
	cards := make([]Card, len(s.left))
	for i, b := range s.left {
		cards[i] = Card{Index: i, Text: b.word.Russian, Retired: b.retired, Selected: i == s.selLeft}
	}
	return cards
}

// RightCards returns the right column, decoys included
func (s *Session) RightCards() []Card {
	cards := make([]Card, len(s.right))
	for i, b := range s.right {
		cards[i] = Card{Index: i, Text: b.word.Spanish, Decoy: b.decoy, Retired: b.retired, Selected: i == s.selRight}
	}
	return cards
}

// Select clicks a card. It returns a resolution when the click completes
// a pair. Clicks on retired cards, out of range indices, while settling,
// or after the game ended are ignored.
func (s *Session) Select(side Side, index int) (Resolution, bool) {
	if s.settling || s.Done() {
		return Resolution{}, false
	}

	switch side {
	case Left:
		if index < 0 || index >= len(s.left) || s.left[index].retired {
			return Resolution{}, false
		}
		s.selLeft = index
	case Right:
		if index < 0 || index >= len(s.right) || s.right[index].retired {
			return Resolution{}, false
		}
		s.selRight = index
	default:
		return Resolution{}, false
	}

	if s.selLeft < 0 || s.selRight < 0 {
		return Resolution{}, false
	}
	return s.resolve(), true
}

func (s *Session) resolve() Resolution {
	l, r := s.selLeft, s.selRight
	s.selLeft, s.selRight = -1, -1
	s.settling = true

	res := Resolution{Left: l, Right: r}
	switch {
	case s.left[l].word.Same(s.right[r].word):
		res.Outcome = OutcomeCorrect
		s.left[l].retired = true
		s.right[r].retired = true
		res.LeftRetired = true
		res.RetiredRight = []int{r}
		s.resolved[l] = true
		s.correct++

	case s.right[r].decoy:
		res.Outcome = OutcomeDecoy
		s.right[r].retired = true
		res.RetiredRight = []int{r}

	default:
		res.Outcome = OutcomeMismatch
		s.left[l].retired = true
		res.LeftRetired = true
		s.resolved[l] = true
		if m := s.trueMatch(l); m >= 0 {
			s.right[m].retired = true
			res.RetiredRight = []int{m}
		}
	}
	return res
}

// trueMatch finds the live right card pairing left card l
func (s *Session) trueMatch(l int) int {
	for i, b := range s.right {
		if !b.retired && !b.decoy && b.word.Same(s.left[l].word) {
			return i
		}
	}
	return -1
}

// Settle ends the settle window after a resolution has been shown
func (s *Session) Settle() {
	s.settling = false
}

// Done reports whether every left card has been resolved
func (s *Session) Done() bool {
	return len(s.resolved) == len(s.left)
}

// Resolved returns the number of resolved left cards
func (s *Session) Resolved() int { return len(s.resolved) }

// Pairs returns the number of left cards
func (s *Session) Pairs() int { return len(s.left) }

// Correct returns the number of correct matches
func (s *Session) Correct() int { return s.correct }

// Score returns round(100*correct/pairs)
func (s *Session) Score() int {
	return progress.Percent(s.correct, len(s.left))
}
