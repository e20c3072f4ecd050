package main

import (
	"fmt"
	"strings"
)

// cmdProfile manages the profiles in the learner's document
func cmdProfile(a *app, args []string) error {
	if len(args) < 1 {
		args = []string{"list"}
	}

	switch args[0] {
	case "list":
		return cmdProfileList(a)
	case "new":
		if len(args) < 2 {
			return fmt.Errorf("nickname required (e.g., palabras profile new Ana)")
		}
		p, err := a.profiles.Create(a.ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		a.term.printf("Created profile %s (%s)\n", p.Nickname, p.ID)
		return nil
	case "use":
		if len(args) < 2 {
			return fmt.Errorf("profile id required")
		}
		if err := a.profiles.SetActive(a.ctx, args[1]); err != nil {
			return fmt.Errorf("select profile %s: %w", args[1], err)
		}
		a.term.printf("Active profile: %s\n", args[1])
		return nil
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("profile id required")
		}
		if err := a.profiles.Delete(a.ctx, args[1]); err != nil {
			return fmt.Errorf("delete profile %s: %w", args[1], err)
		}
		a.term.printf("Deleted profile %s\n", args[1])
		return nil
	default:
		return fmt.Errorf("unknown profile command: %s", args[0])
	}
}

func cmdProfileList(a *app) error {
	profiles := a.profiles.List()
	if len(profiles) == 0 {
		a.term.println("No profiles yet (run 'palabras profile new <nickname>')")
		return nil
	}

	activeID := a.profiles.Document().ActiveProfileID
	for _, p := range profiles {
		marker := " "
		if p.ID == activeID {
			marker = "*"
		}
		a.term.printf("%s %-20s %s  last seen %s\n", marker, p.Nickname, p.ID, p.LastSeenAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// cmdQA runs the support operations on the active profile
func cmdQA(a *app, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: palabras qa <unlock-all|reset|fill|prepare-exam>")
	}

	var err error
	switch args[0] {
	case "unlock-all":
		err = a.tracker.UnlockAll(a.ctx)
	case "reset":
		err = a.tracker.ResetAll(a.ctx)
	case "fill":
		err = a.tracker.FillAll(a.ctx)
	case "prepare-exam":
		err = a.tracker.PrepareExam(a.ctx)
	case "unlock-next":
		var id string
		id, err = a.tracker.UnlockNext(a.ctx)
		if err == nil && id != "" {
			a.term.printf("Unlocked %s\n", id)
		}
	default:
		return fmt.Errorf("unknown qa command: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	a.term.printf("%s applied\n", args[0])
	return nil
}
