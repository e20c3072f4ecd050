package main

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/palabras/internal/matching"
	"github.com/felixgeelhaar/palabras/internal/profile"
)

// cmdMatch plays the matching game on a small group. Its score is
// stored as the group's easy level.
func cmdMatch(a *app, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: palabras match <unit> <group>")
	}
	unitID, groupName := args[0], args[1]
	if _, err := a.requireUnlocked(unitID); err != nil {
		return err
	}
	unit, group, err := a.registry.Group(unitID, groupName)
	if err != nil {
		return err
	}
	if !group.IsSmall() {
		return fmt.Errorf("group %s is played as a quiz (run 'palabras quiz %s %s easy')", groupName, unitID, groupName)
	}

	s, err := matching.StartGroup(unit, groupName, newRand())
	if err != nil {
		return err
	}
	a.rememberScreen("match", unitID, groupName)

	a.term.println("Pair each translation with its Spanish word, e.g. '2 c'.")
	if err := a.playMatch(s); err != nil {
		return quitOK(a, err)
	}

	res, err := a.tracker.UpdateProgress(a.ctx, unitID, groupName, profile.LevelEasy, float64(s.Score()))
	if err != nil {
		return fmt.Errorf("record score: %w", err)
	}
	a.printUpdate(s.Correct(), s.Pairs(), res)
	return nil
}

// playMatch reads pair choices until every left card is resolved
func (a *app) playMatch(s *matching.Session) error {
	for !s.Done() {
		a.printBoard(s)
		line, err := a.term.prompt(a.ctx, "> ")
		if err != nil {
			return err
		}
		left, right, ok := parsePair(line)
		if !ok {
			a.term.println("  enter a number and a letter, e.g. '1 a'")
			continue
		}
		if !onBoard(s.LeftCards(), left) || !onBoard(s.RightCards(), right) {
			a.term.println("  that card is not on the board")
			continue
		}
		s.Select(matching.Left, left)
		res, _ := s.Select(matching.Right, right)

		switch res.Outcome {
		case matching.OutcomeCorrect:
			a.term.println("  " + a.term.good.Render("correct"))
		case matching.OutcomeDecoy:
			a.term.println("  that word belongs to another group")
		case matching.OutcomeMismatch:
			a.term.println("  " + a.term.bad.Render("wrong pair"))
		}
		s.Settle()
	}
	return nil
}

func (a *app) printBoard(s *matching.Session) {
	right := s.RightCards()
	left := s.LeftCards()
	rows := max(len(left), len(right))

	a.term.println()
	for i := 0; i < rows; i++ {
		l, r := "", ""
		if i < len(left) && !left[i].Retired {
			l = fmt.Sprintf("%d) %s", i+1, left[i].Text)
		}
		if i < len(right) && !right[i].Retired {
			r = fmt.Sprintf("%c) %s", 'a'+i, right[i].Text)
		}
		a.term.printf("  %-28s %s\n", l, r)
	}
}

func onBoard(cards []matching.Card, i int) bool {
	return i >= 0 && i < len(cards) && !cards[i].Retired
}

// parsePair reads "2 c" into zero-based left and right indices
func parsePair(line string) (left, right int, ok bool) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) != 2 {
		return 0, 0, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 1 {
		return 0, 0, false
	}
	if len(fields[1]) != 1 || fields[1][0] < 'a' || fields[1][0] > 'z' {
		return 0, 0, false
	}
	return n - 1, int(fields[1][0] - 'a'), true
}

func newRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}
