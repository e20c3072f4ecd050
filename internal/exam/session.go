// Package exam implements the timed cumulative unit exam: sampling,
// per-question countdowns, penalized scoring and breaks.
package exam

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/palabras/internal/content"
	"github.com/felixgeelhaar/palabras/internal/progress"
	"github.com/felixgeelhaar/palabras/internal/quiz"
	"github.com/felixgeelhaar/palabras/internal/timer"
)

const (
	DefaultDuration      = 10 * time.Second
	DefaultStep          = time.Second
	DefaultBreakEvery    = 10
	DefaultBreakDuration = 30 * time.Second

	// PassThreshold is the accuracy needed to pass
	PassThreshold = progress.UnlockThreshold

	correctDelta = 1.0
	wrongDelta   = -0.5
)

var ErrNotFinished = errors.New("exam is not finished")

// Phase is the exam state
type Phase int

const (
	PhaseAnswering Phase = iota
	PhaseBreak
	PhaseFinished
	PhaseAbandoned
)

func (p Phase) String() string {
	switch p {
	case PhaseAnswering:
		return "answering"
	case PhaseBreak:
		return "break"
	case PhaseFinished:
		return "finished"
	case PhaseAbandoned:
		return "abandoned"
	}
	return "unknown"
}

// Answer records how one question was resolved
type Answer struct {
	Question  Question      `json:"question"`
	Expected  string        `json:"expected"`
	Given     string        `json:"given"`
	Correct   bool          `json:"correct"`
	Skipped   bool          `json:"skipped,omitempty"`
	TimedOut  bool          `json:"timed_out,omitempty"`
	Delta     float64       `json:"delta"`
	TimeSpent time.Duration `json:"time_spent"`
}

// Config tunes a session. Zero values select the defaults.
type Config struct {
	Duration      time.Duration
	Step          time.Duration
	BreakEvery    int
	BreakDuration time.Duration
	Timer         timer.Timer
	Now           func() time.Time

	// OnTick is called with the time left on the current question
	OnTick func(remaining time.Duration)
	// OnTimeout is called when the clock resolves a question
	OnTimeout func(Answer)
	// OnBreakTick is called with the time left on a break
	OnBreakTick func(remaining time.Duration)
	// OnBreakEnd is called when a break runs out on its own
	OnBreakEnd func()
}

func (c *Config) withDefaults() {
	if c.Duration <= 0 {
		c.Duration = DefaultDuration
	}
	if c.Step <= 0 {
		c.Step = DefaultStep
	}
	if c.BreakEvery <= 0 {
		c.BreakEvery = DefaultBreakEvery
	}
	if c.BreakDuration <= 0 {
		c.BreakDuration = DefaultBreakDuration
	}
	if c.Timer == nil {
		c.Timer = timer.NewCountdown()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Session is one exam attempt. Timer callbacks call into it from
// another goroutine.
type Session struct {
	mu        sync.Mutex
	cfg       Config
	unitID    string
	questions []Question

	index      int
	phase      Phase
	rawScore   float64
	correct    int
	answers    []Answer
	remaining  time.Duration
	breakGen   int
	startedAt  time.Time
	finishedAt time.Time
}

// New generates an exam for unit and starts it
func New(unit *content.Unit, rnd *rand.Rand, cfg Config) (*Session, error) {
	questions, err := Generate(unit, rnd)
	if err != nil {
		return nil, err
	}
	return Start(unit.ID, questions, cfg)
}

// Start runs an exam over a prepared question list
func Start(unitID string, questions []Question, cfg Config) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	cfg.withDefaults()

	s := &Session{
		cfg:       cfg,
		unitID:    unitID,
		questions: append([]Question(nil), questions...),
		startedAt: cfg.Now(),
	}
	s.mu.Lock()
	s.enterQuestion()
	s.mu.Unlock()
	return s, nil
}

// enterQuestion arms the countdown for s.index. Callers hold s.mu.
func (s *Session) enterQuestion() {
	s.phase = PhaseAnswering
	s.remaining = s.cfg.Duration
	idx := s.index
	s.cfg.Timer.Start(s.cfg.Duration, s.cfg.Step, func(left time.Duration) {
		s.tick(idx, left)
	}, func() {
		s.expire(idx)
	})
}

func (s *Session) tick(idx int, left time.Duration) {
	s.mu.Lock()
	if s.phase != PhaseAnswering || s.index != idx {
		s.mu.Unlock()
		return
	}
	s.remaining = left
	onTick := s.cfg.OnTick
	s.mu.Unlock()

	if onTick != nil {
		onTick(left)
	}
}

// UnitID returns the unit under examination
func (s *Session) UnitID() string { return s.unitID }

// Phase returns the current state
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Current returns the question being answered and its position
func (s *Session) Current() (q Question, index, total int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAnswering {
		return Question{}, s.index, len(s.questions), false
	}
	return s.questions[s.index], s.index, len(s.questions), true
}

// Submit answers the current question. An empty answer scores like a
// skip. It returns false if the question was already resolved.
func (s *Session) Submit(answer string) (Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAnswering {
		return Answer{}, false
	}
	return s.resolve(answer, strings.TrimSpace(answer) == "", false), true
}

// Skip gives up on the current question for no penalty
func (s *Session) Skip() (Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAnswering {
		return Answer{}, false
	}
	return s.resolve("", true, false), true
}

func (s *Session) expire(idx int) {
	s.mu.Lock()
	if s.phase != PhaseAnswering || s.index != idx {
		s.mu.Unlock()
		return
	}
	a := s.resolve("", false, true)
	onTimeout := s.cfg.OnTimeout
	s.mu.Unlock()

	if onTimeout != nil {
		onTimeout(a)
	}
}

// resolve scores the current question and advances. Callers hold s.mu
// and have checked the phase.
func (s *Session) resolve(given string, skipped, timedOut bool) Answer {
	s.cfg.Timer.Stop()

	q := s.questions[s.index]
	a := Answer{
		Question:  q,
		Expected:  q.Answer,
		Given:     given,
		Skipped:   skipped,
		TimedOut:  timedOut,
		TimeSpent: s.cfg.Duration - s.remaining,
	}
	if timedOut {
		a.TimeSpent = s.cfg.Duration
	}

	switch {
	case skipped || timedOut || strings.TrimSpace(given) == "":
	case quiz.MatchExact(given, q.Answer):
		a.Correct = true
		a.Delta = correctDelta
		s.correct++
	default:
		a.Delta = wrongDelta
	}
	s.rawScore += a.Delta
	s.answers = append(s.answers, a)

	s.index++
	switch {
	case s.index >= len(s.questions):
		s.phase = PhaseFinished
		s.finishedAt = s.cfg.Now()
	case s.index%s.cfg.BreakEvery == 0:
		s.startBreak()
	default:
		s.enterQuestion()
	}
	return a
}

// startBreak pauses between blocks of questions. Callers hold s.mu.
func (s *Session) startBreak() {
	s.phase = PhaseBreak
	s.breakGen++
	gen := s.breakGen
	s.cfg.Timer.Start(s.cfg.BreakDuration, s.cfg.Step, s.cfg.OnBreakTick, func() {
		s.mu.Lock()
		if s.phase != PhaseBreak || s.breakGen != gen {
			s.mu.Unlock()
			return
		}
		s.enterQuestion()
		onEnd := s.cfg.OnBreakEnd
		s.mu.Unlock()

		if onEnd != nil {
			onEnd()
		}
	})
}

// SkipBreak resumes the exam early. It returns false when no break is
// running.
func (s *Session) SkipBreak() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseBreak {
		return false
	}
	s.cfg.Timer.Stop()
	s.enterQuestion()
	return true
}

// Abandon stops the exam without a result
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseFinished {
		return
	}
	s.cfg.Timer.Stop()
	s.phase = PhaseAbandoned
}

// RawScore returns the penalized running score. It can be negative.
func (s *Session) RawScore() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rawScore
}

// Answers returns every resolved question so far
func (s *Session) Answers() []Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Answer(nil), s.answers...)
}

// Result grades a finished exam
func (s *Session) Result() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseFinished {
		return Result{}, ErrNotFinished
	}
	return grade(s.unitID, s.answers, s.rawScore, s.finishedAt.Sub(s.startedAt)), nil
}
