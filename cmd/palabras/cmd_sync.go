package main

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/palabras/internal/cloudsync"
	"github.com/felixgeelhaar/palabras/internal/config"
	"github.com/felixgeelhaar/palabras/internal/profile"
	"github.com/felixgeelhaar/palabras/internal/storage/local"
)

var errNoRemote = errors.New("no sync server configured (set remote.url in ~/.palabras/config.yaml)")

func (a *app) requireRemote() error {
	if a.remote == nil {
		return errNoRemote
	}
	return nil
}

// cmdRegister creates an account on the sync server
func cmdRegister(a *app, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: palabras register <email>")
	}
	if err := a.requireRemote(); err != nil {
		return err
	}
	password, err := a.term.prompt(a.ctx, "Password (min 8 characters): ")
	if err != nil {
		return err
	}

	acct, err := a.remote.Register(a.ctx, args[0], password)
	if err != nil {
		return err
	}
	a.term.printf("Registered %s (run 'palabras login %s')\n", acct.Email, acct.Email)
	return nil
}

// cmdLogin stores a token, binds the CLI to the account and pulls its
// progress. An account with no remote progress adopts the local one.
func cmdLogin(a *app, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: palabras login <email>")
	}
	if err := a.requireRemote(); err != nil {
		return err
	}
	password, err := a.term.prompt(a.ctx, "Password: ")
	if err != nil {
		return err
	}

	tok, err := a.remote.Login(a.ctx, args[0], password)
	if err != nil {
		if errors.Is(err, cloudsync.ErrUnauthorized) {
			return fmt.Errorf("invalid email or password")
		}
		return err
	}

	if err := config.SaveToken(a.dir, tok.AccessToken); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	a.cfg.Remote.Token = tok.AccessToken
	a.cfg.Learner.ID = tok.UserID
	if err := config.SaveLocalConfigTo(a.dir, a.cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	previous := a.profiles.Document()
	account := profile.NewService(a.store, a.registry, tok.UserID)
	if err := adoptProgress(a, account, previous); err != nil {
		return err
	}
	a.term.printf("Logged in as %s\n", args[0])
	return nil
}

// adoptProgress fills the account's local slot from the server, or
// uploads the previous local document when the server has none
func adoptProgress(a *app, account *profile.Service, previous *profile.Document) error {
	doc, err := a.remote.PullProgress(a.ctx)
	switch {
	case err == nil:
		if err := account.Replace(doc); err != nil {
			return err
		}
		a.term.printf("Pulled %d profiles from the server\n", len(doc.Profiles))
	case errors.Is(err, cloudsync.ErrNoRemoteData):
		if len(previous.Profiles) == 0 {
			return nil
		}
		if err := account.Replace(previous); err != nil {
			return err
		}
		if err := a.remote.SaveProgress(a.ctx, previous); err != nil {
			return fmt.Errorf("upload progress: %w", err)
		}
		a.term.printf("Uploaded %d local profiles\n", len(previous.Profiles))
	default:
		return fmt.Errorf("pull progress: %w", err)
	}
	a.profiles = account
	return nil
}

// cmdLogout forgets the token and returns to the guest slot
func cmdLogout(a *app) error {
	if err := config.SaveToken(a.dir, ""); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	a.cfg.Learner.ID = ""
	if err := config.SaveLocalConfigTo(a.dir, a.cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	a.term.println("Logged out")
	return nil
}

// cmdSync moves the progress document between this machine and the server
func cmdSync(a *app, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: palabras sync <pull|push>")
	}
	if err := a.requireRemote(); err != nil {
		return err
	}
	if a.cfg.Remote.Token == "" {
		return fmt.Errorf("not logged in (run 'palabras login <email>')")
	}

	switch args[0] {
	case "pull":
		doc, err := a.remote.PullProgress(a.ctx)
		if errors.Is(err, cloudsync.ErrNoRemoteData) {
			a.term.println("Server has no progress yet")
			return nil
		}
		if err != nil {
			return err
		}
		if err := a.profiles.Replace(doc); err != nil {
			return err
		}
		a.term.printf("Pulled %d profiles\n", len(doc.Profiles))
		return nil
	case "push":
		doc := a.profiles.Document()
		if err := a.remote.SaveProgress(a.ctx, doc); err != nil {
			return err
		}
		a.term.printf("Pushed %d profiles\n", len(doc.Profiles))
		return nil
	default:
		return fmt.Errorf("unknown sync command: %s", args[0])
	}
}

// cmdResume reopens the last screen: games restart, other screens
// show the unit they were on
func cmdResume(a *app) error {
	nav, err := a.lastScreen()
	if err != nil {
		if errors.Is(err, cloudsync.ErrNoRemoteData) || errors.Is(err, local.ErrNotFound) {
			a.term.println("Nothing to resume")
			return nil
		}
		return err
	}

	switch {
	case nav.ScreenID == "match" && nav.CurrentUnit != "" && nav.CurrentGroup != "":
		return cmdMatch(a, []string{nav.CurrentUnit, nav.CurrentGroup})
	case nav.ScreenID == "exam" && nav.CurrentUnit != "":
		return cmdExam(a, []string{nav.CurrentUnit})
	case nav.CurrentUnit != "":
		a.term.printf("Last screen: %s\n\n", nav.ScreenID)
		return cmdProgress(a, []string{nav.CurrentUnit})
	default:
		return cmdProgress(a, nil)
	}
}
