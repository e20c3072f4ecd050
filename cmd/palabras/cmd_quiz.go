package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/palabras/internal/profile"
	"github.com/felixgeelhaar/palabras/internal/progress"
	"github.com/felixgeelhaar/palabras/internal/quiz"
	"github.com/felixgeelhaar/palabras/internal/timer"
)

// cmdQuiz plays a vocabulary quiz on one group and level
func cmdQuiz(a *app, args []string) error {
	pos, flags := splitFlags(args)
	if len(pos) < 3 {
		return fmt.Errorf("usage: palabras quiz <unit> <group> <easy|medium|hard>")
	}
	unitID, groupName := pos[0], pos[1]
	level, err := profile.ParseLevel(pos[2])
	if err != nil {
		return err
	}
	if _, err := a.requireUnlocked(unitID); err != nil {
		return err
	}
	_, group, err := a.registry.Group(unitID, groupName)
	if err != nil {
		return err
	}
	if group.IsSmall() {
		return fmt.Errorf("group %s is played as a matching game (run 'palabras match %s %s')", groupName, unitID, groupName)
	}

	a.rememberScreen("quiz", unitID, groupName)
	wake, notify := wakeup()
	s, err := quiz.Start(quiz.Target{UnitID: unitID, Group: groupName, Level: level},
		group.Words, a.quizConfig(flags["untimed"], notify))
	if err != nil {
		return err
	}

	a.term.printf("%s / %s (%s): %d questions\n\n", unitID, groupName, level, s.Total())
	if err := a.playQuiz(s, wake); err != nil {
		return quitOK(a, err)
	}

	res, err := a.tracker.UpdateProgress(a.ctx, unitID, groupName, level, float64(s.Score()))
	if err != nil {
		return fmt.Errorf("record score: %w", err)
	}
	a.printUpdate(s.Correct(), s.Total(), res)
	return nil
}

// cmdGrammar plays a grammar exercise
func cmdGrammar(a *app, args []string) error {
	pos, flags := splitFlags(args)
	if len(pos) < 2 {
		return fmt.Errorf("usage: palabras grammar <unit> <exercise>")
	}
	unitID, exerciseID := pos[0], pos[1]
	if _, err := a.requireUnlocked(unitID); err != nil {
		return err
	}
	unit, err := a.registry.Unit(unitID)
	if err != nil {
		return err
	}
	ex, err := unit.Exercise(exerciseID)
	if err != nil {
		return err
	}

	a.rememberScreen("grammar", unitID, "")
	wake, notify := wakeup()
	s, err := quiz.StartGrammar(unitID, ex, a.quizConfig(flags["untimed"], notify))
	if err != nil {
		return err
	}

	a.term.printf("%s\n", ex.Title)
	if ex.Rule != "" {
		a.term.printf("%s\n", ex.Rule)
	}
	a.term.println()
	if err := a.playQuiz(s, wake); err != nil {
		return quitOK(a, err)
	}

	res, err := a.tracker.UpdateExerciseProgress(a.ctx, unitID, exerciseID, float64(s.Score()))
	if err != nil {
		return fmt.Errorf("record score: %w", err)
	}
	a.printUpdate(s.Correct(), s.Total(), res)

	for _, item := range ex.Test {
		a.term.printf("\n%s\n", item.Sentence)
		if len(item.Options) > 0 {
			a.term.printf("  %s\n", strings.Join(item.Options, " / "))
		}
		a.term.printf("  -> %s", item.Correct)
		if item.Explanation != "" {
			a.term.printf(" (%s)", item.Explanation)
		}
		a.term.println()
	}
	return nil
}

func (a *app) quizConfig(untimed bool, onTimeout func()) quiz.Config {
	cfg := quiz.Config{
		Duration:  a.cfg.Timing.QuizDuration(),
		Step:      time.Second,
		OnTimeout: func(quiz.Result) { onTimeout() },
	}
	if untimed {
		cfg.Timer = &timer.Manual{}
	} else {
		cfg.Timer = timer.NewCountdown()
	}
	return cfg
}

// playQuiz drives a session to Finished. It returns errQuit or an
// input error when the learner leaves early; the session is abandoned.
func (a *app) playQuiz(s *quiz.Session, wake <-chan struct{}) error {
	for {
		// State is re-read below, so a pending wake is stale.
		drain(wake)
		switch s.Phase() {
		case quiz.PhaseFinished:
			return nil
		case quiz.PhaseAbandoned:
			return errQuit
		case quiz.PhaseFeedback:
			results := s.Results()
			a.printResult(results[len(results)-1])
			if _, err := s.Next(); err != nil {
				return err
			}
			continue
		}

		q, ok := s.Current()
		if !ok {
			return errQuit
		}
		a.printQuestion(q)

		line, woke, err := a.term.readLine(a.ctx, wake)
		if err != nil {
			s.Abandon()
			return err
		}
		if woke {
			continue
		}
		// A refused submission is either an empty typed answer, which
		// re-prompts, or a race with the clock, which the next pass
		// shows as feedback.
		s.Submit(chooseOption(q, line))
	}
}

// chooseOption maps a 1-based option number to its text
func chooseOption(q quiz.Question, line string) string {
	if len(q.Options) == 0 {
		return line
	}
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(q.Options) {
		return q.Options[n-1]
	}
	return line
}

func (a *app) printQuestion(q quiz.Question) {
	a.term.printf("[%d/%d] %s\n", q.Index+1, q.Total, q.Prompt)
	if q.Hint != "" {
		a.term.printf("  hint: %s\n", q.Hint)
	}
	for i, opt := range q.Options {
		a.term.printf("  %d) %s\n", i+1, opt)
	}
	a.term.printf("> ")
}

func (a *app) printResult(r quiz.Result) {
	switch {
	case r.TimedOut:
		a.term.printf("\n  %s %s\n\n", a.term.note.Render("time's up:"), r.Expected)
	case r.Correct:
		a.term.printf("  %s\n\n", a.term.good.Render("correct"))
	default:
		a.term.printf("  %s %s\n\n", a.term.bad.Render("wrong:"), r.Expected)
	}
}

func (a *app) printUpdate(correct, total int, res *progress.UpdateResult) {
	a.term.printf("Score: %d%% (%d/%d)", res.Score, correct, total)
	if res.Improved {
		a.term.printf(" %s", a.term.good.Render("new best"))
	} else {
		a.term.printf(" best %d%%", res.Best)
	}
	a.term.printf("\nUnit progress: %s %d%%\n", renderProgressBar(res.UnitProgress, 20), res.UnitProgress)
	if res.ExamAvailable {
		a.term.println("Exam available")
	}
	for _, id := range res.Unlocked {
		a.term.printf("%s %s\n", a.term.good.Render("Unlocked"), id)
	}
}

// quitOK turns a deliberate quit into a clean exit
func quitOK(a *app, err error) error {
	if errors.Is(err, errQuit) || errors.Is(err, errInputClosed) || errors.Is(err, context.Canceled) {
		a.term.println("\nStopped, nothing recorded.")
		return nil
	}
	return err
}
