package main

import (
	"fmt"

	"github.com/felixgeelhaar/palabras/internal/profile"
	"github.com/felixgeelhaar/palabras/internal/progress"
)

// cmdUnits lists the loaded units and their groups
func cmdUnits(a *app) error {
	units, groups, exercises := a.registry.Stats()
	if units == 0 {
		a.term.printf("No units found in %s\n", a.cfg.ResolveContentDir(a.dir))
		return nil
	}

	a.term.printf("%d units, %d groups, %d exercises\n\n", units, groups, exercises)
	for _, u := range a.registry.Units() {
		a.term.printf("%s  %s (%d words)\n", u.ID, u.Title, u.WordCount())
		for _, g := range u.Groups {
			mode := "quiz"
			if g.IsSmall() {
				mode = "match"
			}
			a.term.printf("    %-24s %3d words  %s\n", g.Name, len(g.Words), mode)
		}
		for _, ex := range u.Exercises {
			a.term.printf("    %-24s %3d items  grammar\n", ex.ID, len(ex.Questions))
		}
	}
	return nil
}

// cmdProgress shows mastery for every unit, or one unit in detail
func cmdProgress(a *app, args []string) error {
	p, err := a.activeProfile()
	if err != nil {
		return err
	}
	summaries, overall, err := a.tracker.Summary()
	if err != nil {
		return err
	}

	if len(args) > 0 {
		for _, s := range summaries {
			if s.UnitID == args[0] {
				a.printUnitDetail(s)
				return nil
			}
		}
		return fmt.Errorf("unit %s not found", args[0])
	}

	a.term.printf("%s: overall %s %d%%\n\n", p.Nickname, renderProgressBar(overall, 20), overall)
	for _, s := range summaries {
		state := "locked"
		if s.Unlocked {
			state = "open"
		}
		if s.ExamAvailable {
			state = "exam ready"
		}
		a.term.printf("%-12s %s %3d%%  %s\n", s.UnitID, renderProgressBar(s.Progress, 20), s.Progress, state)
	}
	return nil
}

func (a *app) printUnitDetail(s progress.UnitSummary) {
	a.term.printf("%s %s\n", s.UnitID, s.Title)
	a.term.printf("  palabras   %s %3d%%\n", renderProgressBar(s.Palabras, 20), s.Palabras)
	if s.Exercises != nil {
		a.term.printf("  ejercicios %s %3d%%\n", renderProgressBar(*s.Exercises, 20), *s.Exercises)
	}
	a.term.println()
	for _, g := range s.Groups {
		if g.Small {
			a.term.printf("  %-24s %3d%%  match %d\n", g.Name, g.Progress, g.Scores.Get(profile.LevelEasy))
			continue
		}
		a.term.printf("  %-24s %3d%%  easy %d  medium %d  hard %d\n", g.Name, g.Progress,
			g.Scores.Get(profile.LevelEasy), g.Scores.Get(profile.LevelMedium), g.Scores.Get(profile.LevelHard))
	}
}
