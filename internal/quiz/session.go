// Package quiz implements the timed multiple-choice and typed-answer
// quiz played on vocabulary groups and grammar exercises.
package quiz

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/palabras/internal/content"
	"github.com/felixgeelhaar/palabras/internal/profile"
	"github.com/felixgeelhaar/palabras/internal/progress"
	"github.com/felixgeelhaar/palabras/internal/timer"
)

const (
	DefaultDuration = 10 * time.Second
	DefaultStep     = 100 * time.Millisecond
)

var (
	ErrEmptyWords    = errors.New("quiz needs at least one word")
	ErrEmptyExercise = errors.New("exercise has no questions")
	ErrNotInFeedback = errors.New("quiz is not showing feedback")
)

// Phase is the quiz state
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseAwaitingAnswer
	PhaseFeedback
	PhaseFinished
	PhaseAbandoned
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseAwaitingAnswer:
		return "awaiting_answer"
	case PhaseFeedback:
		return "feedback"
	case PhaseFinished:
		return "finished"
	case PhaseAbandoned:
		return "abandoned"
	}
	return "unknown"
}

// Target identifies what a finished quiz should be scored against
type Target struct {
	UnitID     string        `json:"unit_id"`
	Group      string        `json:"group,omitempty"`
	Level      profile.Level `json:"level,omitempty"`
	ExerciseID string        `json:"exercise_id,omitempty"`
}

// Result is the outcome of one question
type Result struct {
	Index    int    `json:"index"`
	Given    string `json:"given"`
	Expected string `json:"expected"`
	Correct  bool   `json:"correct"`
	TimedOut bool   `json:"timed_out"`
}

// Config tunes a session. Zero values select the defaults.
type Config struct {
	Duration time.Duration
	Step     time.Duration
	Timer    timer.Timer
	Rand     *rand.Rand

	// OnTick is called with the time left on the current question
	OnTick func(remaining time.Duration)
	// OnTimeout is called when the clock resolves a question
	OnTimeout func(Result)
}

func (c *Config) withDefaults() {
	if c.Duration <= 0 {
		c.Duration = DefaultDuration
	}
	if c.Step <= 0 {
		c.Step = DefaultStep
	}
	if c.Timer == nil {
		c.Timer = timer.NewCountdown()
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
}

// Session is one quiz attempt. It is owned by whoever started it; the
// timer may call into it from another goroutine.
type Session struct {
	mu     sync.Mutex
	cfg    Config
	target Target
	build  func(rnd *rand.Rand) []item

	items        []item
	index        int
	correct      int
	phase        Phase
	awaitingNext bool
	results      []Result
	armed        uint64 // bumped each time a question clock starts
}

// Start begins a vocabulary quiz over every word of a group
func Start(target Target, words []content.WordEntry, cfg Config) (*Session, error) {
	if len(words) == 0 {
		return nil, ErrEmptyWords
	}
	if _, err := profile.ParseLevel(string(target.Level)); err != nil {
		return nil, err
	}
	list := append([]content.WordEntry(nil), words...)
	level := target.Level
	return start(target, cfg, func(rnd *rand.Rand) []item {
		return vocabularyItems(rnd, level, list)
	})
}

// StartGrammar begins a quiz over every question of a grammar exercise
func StartGrammar(unitID string, ex *content.Exercise, cfg Config) (*Session, error) {
	if ex == nil || len(ex.Questions) == 0 {
		return nil, ErrEmptyExercise
	}
	copied := *ex
	copied.Questions = append([]content.Question(nil), ex.Questions...)
	return start(Target{UnitID: unitID, ExerciseID: ex.ID}, cfg, func(rnd *rand.Rand) []item {
		return grammarItems(rnd, &copied)
	})
}

func start(target Target, cfg Config, build func(*rand.Rand) []item) (*Session, error) {
	cfg.withDefaults()
	s := &Session{
		cfg:    cfg,
		target: target,
		build:  build,
		phase:  PhaseInitializing,
	}
	s.mu.Lock()
	s.reset()
	s.mu.Unlock()
	return s, nil
}

// reset builds a fresh queue and arms question 0. Callers hold s.mu.
func (s *Session) reset() {
	s.items = s.build(s.cfg.Rand)
	s.index = 0
	s.correct = 0
	s.results = nil
	s.enterQuestion()
}

// enterQuestion moves to AwaitingAnswer for s.index. Callers hold s.mu.
func (s *Session) enterQuestion() {
	s.phase = PhaseAwaitingAnswer
	s.awaitingNext = false
	s.armed++
	armed := s.armed
	s.cfg.Timer.Start(s.cfg.Duration, s.cfg.Step, s.cfg.OnTick, func() {
		s.expire(armed)
	})
}

// Target returns what the quiz is scored against
func (s *Session) Target() Target {
	return s.target
}

// Phase returns the current state
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Current returns the question on screen
func (s *Session) Current() (Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAwaitingAnswer && s.phase != PhaseFeedback {
		return Question{}, false
	}
	it := s.items[s.index]
	return Question{
		Index:   s.index,
		Total:   len(s.items),
		Prompt:  it.prompt,
		Hint:    it.hint,
		Options: append([]string(nil), it.options...),
		Typed:   it.typed,
	}, true
}

// Submit answers the current question. It returns false when the
// answer was not taken: a second submission, a submission after the
// clock ran out, or an empty typed answer.
func (s *Session) Submit(answer string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAwaitingAnswer || s.awaitingNext {
		return Result{}, false
	}
	if s.items[s.index].typed && strings.TrimSpace(answer) == "" {
		return Result{}, false
	}
	return s.resolve(answer, false), true
}

// expire times out the question armed as armed. Expiries from an earlier
// question or an earlier attempt are ignored.
func (s *Session) expire(armed uint64) {
	s.mu.Lock()
	if s.phase != PhaseAwaitingAnswer || s.awaitingNext || s.armed != armed {
		s.mu.Unlock()
		return
	}
	res := s.resolve("", true)
	onTimeout := s.cfg.OnTimeout
	s.mu.Unlock()

	if onTimeout != nil {
		onTimeout(res)
	}
}

// resolve is the single entry into Feedback. Callers hold s.mu and have
// checked the latch.
func (s *Session) resolve(answer string, timedOut bool) Result {
	s.awaitingNext = true
	s.cfg.Timer.Stop()

	it := s.items[s.index]
	res := Result{
		Index:    s.index,
		Given:    answer,
		Expected: it.expected,
		TimedOut: timedOut,
	}
	if !timedOut {
		res.Correct = it.match(answer, it.expected)
	}
	if res.Correct {
		s.correct++
	}
	s.results = append(s.results, res)
	s.phase = PhaseFeedback
	return res
}

// Next leaves Feedback for the following question or Finished
func (s *Session) Next() (Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseFeedback {
		return s.phase, ErrNotInFeedback
	}
	s.index++
	if s.index >= len(s.items) {
		s.phase = PhaseFinished
		return s.phase, nil
	}
	s.enterQuestion()
	return s.phase, nil
}

// Abandon stops the quiz without a score
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseFinished {
		return
	}
	s.cfg.Timer.Stop()
	s.phase = PhaseAbandoned
}

// Retry restarts the same quiz with a fresh shuffle
func (s *Session) Retry() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Timer.Stop()
	s.reset()
}

// Score returns round(100*correct/total). It is only meaningful once
// the session is finished.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return progress.Percent(s.correct, len(s.items))
}

// Correct returns the number of correct answers so far
func (s *Session) Correct() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.correct
}

// Total returns the number of questions in the attempt
func (s *Session) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Results returns the outcome of every resolved question
func (s *Session) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Result(nil), s.results...)
}

// Finished reports whether a score is available
func (s *Session) Finished() bool {
	return s.Phase() == PhaseFinished
}
