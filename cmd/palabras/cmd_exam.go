package main

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/palabras/internal/exam"
	"github.com/felixgeelhaar/palabras/internal/progress"
	"github.com/felixgeelhaar/palabras/internal/timer"
)

// cmdExam runs a unit exam once the unit's exam gate is open
func cmdExam(a *app, args []string) error {
	pos, flags := splitFlags(args)
	if len(pos) < 1 {
		return fmt.Errorf("usage: palabras exam <unit>")
	}
	unitID := pos[0]
	p, err := a.requireUnlocked(unitID)
	if err != nil {
		return err
	}
	unit, err := a.registry.Unit(unitID)
	if err != nil {
		return err
	}
	if !progress.ExamAvailable(unit, p) {
		return fmt.Errorf("exam for %s needs %d%% averaged over vocabulary and exercises (currently %d%%)",
			unitID, progress.UnlockThreshold, progress.ExamScore(unit, p))
	}

	wake, notify := wakeup()
	cfg := exam.Config{
		Duration:      a.cfg.Timing.ExamDuration(),
		Step:          time.Second,
		BreakEvery:    a.cfg.Timing.BreakEvery,
		BreakDuration: a.cfg.Timing.BreakDuration(),
		OnTimeout:     func(exam.Answer) { notify() },
		OnBreakEnd:    notify,
	}
	if flags["untimed"] {
		cfg.Timer = &timer.Manual{}
	}

	s, err := exam.New(unit, newRand(), cfg)
	if err != nil {
		return err
	}
	a.rememberScreen("exam", unitID, "")

	a.term.printf("Exam %s: type the Spanish answer, '?' to skip, 'q' to quit\n\n", unitID)
	if err := a.playExam(s, wake); err != nil {
		return quitOK(a, err)
	}

	result, err := s.Result()
	if err != nil {
		return err
	}
	a.printExamResult(result)

	unlocked, err := a.tracker.CompleteExam(a.ctx, unitID, result.Percentage, result.Passed)
	if err != nil {
		return fmt.Errorf("record exam: %w", err)
	}
	if unlocked != "" {
		a.term.printf("%s %s\n", a.term.good.Render("Unlocked"), unlocked)
	}
	return nil
}

// playExam answers questions and sits breaks until the exam finishes
func (a *app) playExam(s *exam.Session, wake <-chan struct{}) error {
	shown := 0
	for {
		drain(wake)
		shown = a.printAnswers(s.Answers(), shown)

		switch s.Phase() {
		case exam.PhaseFinished:
			return nil
		case exam.PhaseAbandoned:
			return errQuit
		case exam.PhaseBreak:
			a.term.println("Break. Press Enter to continue.")
			_, woke, err := a.term.readLine(a.ctx, wake)
			if err != nil {
				s.Abandon()
				return err
			}
			if !woke {
				s.SkipBreak()
			}
			continue
		}

		q, index, total, ok := s.Current()
		if !ok {
			continue
		}
		a.term.printf("[%d/%d] %s\n", index+1, total, q.Prompt)
		if q.Hint != "" {
			a.term.printf("  hint: %s\n", q.Hint)
		}
		a.term.printf("> ")

		line, woke, err := a.term.readLine(a.ctx, wake)
		if err != nil {
			s.Abandon()
			return err
		}
		if woke {
			continue
		}
		if line == "?" {
			s.Skip()
		} else {
			s.Submit(line)
		}
	}
}

// printAnswers shows feedback for answers after the first shown
func (a *app) printAnswers(answers []exam.Answer, shown int) int {
	for _, ans := range answers[shown:] {
		switch {
		case ans.TimedOut:
			a.term.printf("\n  %s %s\n\n", a.term.note.Render("time's up:"), ans.Expected)
		case ans.Skipped:
			a.term.printf("  %s %s\n\n", a.term.note.Render("skipped:"), ans.Expected)
		case ans.Correct:
			a.term.printf("  %s\n\n", a.term.good.Render("correct"))
		default:
			a.term.printf("  %s %s\n\n", a.term.bad.Render("wrong:"), ans.Expected)
		}
	}
	return len(answers)
}

func (a *app) printExamResult(r exam.Result) {
	verdict := "not passed"
	if r.Passed {
		verdict = "passed"
	}
	a.term.printf("Result: %d%% (%d/%d) %s, %s\n", r.Percentage, r.Correct, r.Total, r.Grade, verdict)
	a.term.printf("Score: %.1f  Time: %s\n", r.RawScore, r.ElapsedString())
	for _, b := range r.Breakdown {
		a.term.printf("  %-10s %-24s %s %d%%\n", b.Kind, b.Source, renderProgressBar(b.Percentage, 10), b.Percentage)
	}
}
