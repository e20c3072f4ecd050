package exam

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/felixgeelhaar/palabras/internal/timer"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func questionList(n int) []Question {
	qs := make([]Question, n)
	for i := range qs {
		kind, source := KindVocabulary, "saludos"
		if i%2 == 1 {
			kind, source = KindGrammar, "ser_estar"
		}
		qs[i] = Question{Kind: kind, Source: source, Prompt: fmt.Sprintf("q%d", i), Answer: fmt.Sprintf("a%d", i)}
	}
	return qs
}

func newExam(t *testing.T, n int) (*Session, *timer.Manual, *fakeClock) {
	t.Helper()
	m := &timer.Manual{}
	clock := &fakeClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	s, err := Start("unidad_1", questionList(n), Config{Timer: m, Now: clock.Now})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return s, m, clock
}

func TestStart_NoQuestions(t *testing.T) {
	if _, err := Start("unidad_1", nil, Config{Timer: &timer.Manual{}}); !errors.Is(err, ErrNoQuestions) {
		t.Errorf("Start() error = %v, want ErrNoQuestions", err)
	}
}

func TestSession_ScoringScenario(t *testing.T) {
	s, _, clock := newExam(t, 10)

	for i := 0; i < 10; i++ {
		q, _, _, ok := s.Current()
		if !ok {
			t.Fatalf("Current() at %d not available", i)
		}
		clock.now = clock.now.Add(5 * time.Second)
		switch {
		case i < 6:
			s.Submit(" " + q.Answer + " ")
		case i < 8:
			s.Submit("mal")
		default:
			s.Skip()
		}
	}

	if s.Phase() != PhaseFinished {
		t.Fatalf("Phase() = %v, want finished", s.Phase())
	}
	res, err := s.Result()
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if res.RawScore != 5 {
		t.Errorf("RawScore = %v, want 5", res.RawScore)
	}
	if res.Percentage != 60 {
		t.Errorf("Percentage = %d, want 60", res.Percentage)
	}
	if res.Passed {
		t.Error("60% should not pass")
	}
	if res.Grade != GradeSatisfactory {
		t.Errorf("Grade = %q, want satisfactory", res.Grade)
	}
	if res.ElapsedString() != "0:50" {
		t.Errorf("ElapsedString() = %q, want 0:50", res.ElapsedString())
	}
}

func TestSession_CaseInsensitiveMatch(t *testing.T) {
	s, _, _ := newExam(t, 1)

	a, ok := s.Submit("A0")
	if !ok || !a.Correct || a.Delta != 1 {
		t.Errorf("Submit(A0) = %+v, %v", a, ok)
	}
}

func TestSession_EmptySubmitScoresZero(t *testing.T) {
	s, _, _ := newExam(t, 2)

	a, ok := s.Submit("   ")
	if !ok {
		t.Fatal("Submit() not accepted")
	}
	if a.Delta != 0 || a.Correct || !a.Skipped {
		t.Errorf("empty answer = %+v, want a zero-score skip", a)
	}
}

func TestSession_TimeoutScoresZero(t *testing.T) {
	m := &timer.Manual{}
	var timedOut []Answer
	s, _ := Start("unidad_1", questionList(3), Config{
		Timer:     m,
		OnTimeout: func(a Answer) { timedOut = append(timedOut, a) },
	})

	m.Expire()

	if len(timedOut) != 1 {
		t.Fatalf("timeouts = %d, want 1", len(timedOut))
	}
	a := timedOut[0]
	if !a.TimedOut || a.Delta != 0 || a.TimeSpent != DefaultDuration {
		t.Errorf("timeout answer = %+v", a)
	}
	if _, idx, _, _ := s.Current(); idx != 1 {
		t.Errorf("index after timeout = %d, want 1", idx)
	}
	if !m.Armed() {
		t.Error("next question should arm the timer")
	}
}

func TestSession_StaleExpiryIgnored(t *testing.T) {
	s, _, _ := newExam(t, 3)

	s.Submit("a0")
	s.expire(0)

	if len(s.Answers()) != 1 {
		t.Errorf("len(Answers()) = %d, want 1", len(s.Answers()))
	}
}

func TestSession_TimeSpent(t *testing.T) {
	s, m, _ := newExam(t, 2)

	m.Tick()
	m.Tick()
	m.Tick()
	a, _ := s.Submit("a0")

	if a.TimeSpent != 3*time.Second {
		t.Errorf("TimeSpent = %v, want 3s", a.TimeSpent)
	}

	a, _ = s.Submit("a1")
	if a.TimeSpent != 0 {
		t.Errorf("TimeSpent = %v, want 0 for an instant answer", a.TimeSpent)
	}
}

func TestSession_CountdownRunsOut(t *testing.T) {
	s, m, _ := newExam(t, 2)

	for i := 0; i < 10; i++ {
		m.Tick()
	}

	answers := s.Answers()
	if len(answers) != 1 || !answers[0].TimedOut {
		t.Errorf("answers = %+v, want one timeout", answers)
	}
}

func TestSession_Breaks(t *testing.T) {
	s, m, _ := newExam(t, 25)

	for i := 0; i < 10; i++ {
		s.Submit(fmt.Sprintf("a%d", i))
	}
	if s.Phase() != PhaseBreak {
		t.Fatalf("Phase() = %v, want break after 10 answers", s.Phase())
	}
	if _, ok := s.Submit("a10"); ok {
		t.Error("Submit() during a break should be ignored")
	}
	if m.Remaining() != DefaultBreakDuration {
		t.Errorf("break countdown = %v, want %v", m.Remaining(), DefaultBreakDuration)
	}

	if !s.SkipBreak() {
		t.Fatal("SkipBreak() = false")
	}
	if s.Phase() != PhaseAnswering {
		t.Fatalf("Phase() = %v, want answering", s.Phase())
	}
	if s.SkipBreak() {
		t.Error("SkipBreak() outside a break should be false")
	}

	for i := 10; i < 20; i++ {
		s.Submit(fmt.Sprintf("a%d", i))
	}
	if s.Phase() != PhaseBreak {
		t.Fatalf("Phase() = %v, want second break", s.Phase())
	}

	// the break runs out on its own
	m.Expire()
	if s.Phase() != PhaseAnswering {
		t.Fatalf("Phase() = %v, want answering after break expiry", s.Phase())
	}
	if len(s.Answers()) != 20 {
		t.Errorf("break expiry recorded an answer: %d", len(s.Answers()))
	}

	for i := 20; i < 25; i++ {
		s.Submit(fmt.Sprintf("a%d", i))
	}
	res, err := s.Result()
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if res.Percentage != 100 || !res.Passed || res.Grade != GradeExcellent {
		t.Errorf("result = %d%% passed=%v grade=%s", res.Percentage, res.Passed, res.Grade)
	}
}

func TestSession_NoBreakAtEnd(t *testing.T) {
	s, _, _ := newExam(t, 20)

	for i := 0; i < 10; i++ {
		s.Submit("x")
	}
	s.SkipBreak()
	for i := 10; i < 20; i++ {
		s.Submit("x")
	}
	if s.Phase() != PhaseFinished {
		t.Errorf("Phase() = %v, want finished", s.Phase())
	}
	if s.RawScore() != -10 {
		t.Errorf("RawScore() = %v, want -10", s.RawScore())
	}
}

func TestSession_Breakdown(t *testing.T) {
	s, _, _ := newExam(t, 4)

	s.Submit("a0")  // saludos correct
	s.Submit("a1")  // ser_estar correct
	s.Submit("bad") // saludos wrong
	s.Skip()        // ser_estar skipped

	res, _ := s.Result()
	if len(res.Breakdown) != 2 {
		t.Fatalf("len(Breakdown) = %d, want 2", len(res.Breakdown))
	}
	for _, b := range res.Breakdown {
		if b.Total != 2 || b.Correct != 1 || b.Percentage != 50 {
			t.Errorf("breakdown %s/%s = %+v", b.Kind, b.Source, b)
		}
	}
	if res.Breakdown[0].Source != "saludos" {
		t.Errorf("first breakdown = %s, want saludos", res.Breakdown[0].Source)
	}
}

func TestSession_AbandonAndResult(t *testing.T) {
	s, m, _ := newExam(t, 3)

	if _, err := s.Result(); !errors.Is(err, ErrNotFinished) {
		t.Errorf("Result() error = %v, want ErrNotFinished", err)
	}

	s.Submit("a0")
	s.Abandon()
	if s.Phase() != PhaseAbandoned || m.Armed() {
		t.Errorf("Abandon(): phase %v armed %v", s.Phase(), m.Armed())
	}
	if _, ok := s.Submit("a1"); ok {
		t.Error("Submit() after Abandon() should be ignored")
	}
	if _, err := s.Result(); !errors.Is(err, ErrNotFinished) {
		t.Errorf("Result() error = %v, want ErrNotFinished", err)
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{9 * time.Second, "0:09"},
		{75*time.Second + 900*time.Millisecond, "1:15"},
		{10 * time.Minute, "10:00"},
		{-time.Second, "0:00"},
	}
	for _, tt := range tests {
		if got := FormatElapsed(tt.d); got != tt.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestGradeFor(t *testing.T) {
	tests := map[int]Grade{100: GradeExcellent, 90: GradeExcellent, 89: GradeGood, 75: GradeGood, 60: GradeSatisfactory, 59: GradeNeedsWork}
	for p, want := range tests {
		if got := GradeFor(p); got != want {
			t.Errorf("GradeFor(%d) = %q, want %q", p, got, want)
		}
	}
}
