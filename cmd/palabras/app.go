package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/felixgeelhaar/palabras/internal/cloudsync"
	"github.com/felixgeelhaar/palabras/internal/config"
	"github.com/felixgeelhaar/palabras/internal/content"
	"github.com/felixgeelhaar/palabras/internal/profile"
	"github.com/felixgeelhaar/palabras/internal/progress"
	"github.com/felixgeelhaar/palabras/internal/queue"
	"github.com/felixgeelhaar/palabras/internal/storage/local"
	"github.com/felixgeelhaar/palabras/internal/storage/sqlite"
)

// app holds the services one CLI invocation works with
type app struct {
	ctx  context.Context
	dir  string
	cfg  *config.LocalConfig
	term *terminal

	registry *content.Registry
	store    profile.DocumentStore
	profiles *profile.Service
	tracker  *progress.Tracker
	remote   *cloudsync.Client
	events   *queue.Connection
	producer *queue.Producer
	db       *sqlite.DB
	state    *local.Store
	logFile  *os.File
}

// navigationKey is the local slot holding the last screen
const navigationKey = "navigation"

// withApp builds the app from ~/.palabras, runs fn, and tears it down
func withApp(fn func(a *app) error) error {
	dir, err := config.EnsurePalabrasDir()
	if err != nil {
		return fmt.Errorf("create palabras dir: %w", err)
	}
	cfg, err := config.LoadLocalConfigFrom(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, dir, cfg, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

// newApp wires storage, content and the optional remote and event sinks
func newApp(ctx context.Context, dir string, cfg *config.LocalConfig, in io.Reader, out io.Writer) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &app{ctx: ctx, dir: dir, cfg: cfg, term: newTerminal(in, out)}

	a.setupLogging()

	a.registry = content.NewRegistry(content.NewLoader(cfg.ResolveContentDir(dir)))
	if err := a.registry.Load(); err != nil {
		a.close()
		return nil, fmt.Errorf("load units: %w", err)
	}

	var err error

	a.store, err = a.openStore()
	if err != nil {
		a.close()
		return nil, err
	}
	a.state, err = local.NewStore(filepath.Join(dir, "state"))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open state store: %w", err)
	}
	a.profiles = profile.NewService(a.store, a.registry, cfg.LearnerID())
	a.tracker = progress.NewTracker(a.profiles, a.registry)

	if cfg.Remote.Enabled() {
		a.remote = cloudsync.New(cloudsync.Config{
			BaseURL: cfg.Remote.URL,
			Token:   cfg.Remote.Token,
		})
		a.profiles.SetSyncer(a.remote)
	}

	if cfg.Events.RabbitMQURL != "" {
		conn, err := queue.NewConnection(cfg.Events.RabbitMQURL)
		if err != nil {
			// Events are optional; practice continues without them.
			slog.Warn("outcome events disabled", "error", err)
		} else {
			a.events = conn
			a.producer = queue.NewProducer(conn, cfg.LearnerID(), queue.DefaultBuffer)
			a.tracker.SetOutcomeSink(a.producer)
		}
	}
	return a, nil
}

func (a *app) setupLogging() {
	level := parseLogLevel(a.cfg.Logging.Level)
	path := filepath.Join(a.dir, "logs", "palabras.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Logging must never stop a practice session.
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return
	}
	a.logFile = f
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})))
}

func (a *app) openStore() (profile.DocumentStore, error) {
	switch a.cfg.Storage {
	case config.StorageSQLite:
		db, err := sqlite.OpenMigrated(filepath.Join(a.dir, "palabras.db"))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.db = db
		return sqlite.NewDocumentStore(db), nil
	default:
		store, err := profile.NewStore(filepath.Join(a.dir, "progress"))
		if err != nil {
			return nil, fmt.Errorf("open progress store: %w", err)
		}
		return store, nil
	}
}

// close flushes background work before releasing resources. It is
// safe to call more than once.
func (a *app) close() {
	if a.producer != nil {
		a.producer.Close()
		a.producer = nil
	}
	if a.events != nil {
		a.events.Close()
		a.events = nil
	}
	if a.remote != nil {
		a.remote.Close()
		a.remote = nil
	}
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
}

// activeProfile returns the active profile or explains how to make one
func (a *app) activeProfile() (*profile.Profile, error) {
	p, err := a.profiles.Active()
	if errors.Is(err, profile.ErrNoActiveProfile) {
		return nil, fmt.Errorf("no active profile (run 'palabras profile new <nickname>')")
	}
	return p, err
}

// requireUnlocked fails when unitID is not open for the active profile
func (a *app) requireUnlocked(unitID string) (*profile.Profile, error) {
	p, err := a.activeProfile()
	if err != nil {
		return nil, err
	}
	if !progress.IsUnlocked(a.registry.Units(), p, unitID) {
		return nil, fmt.Errorf("unit %s is locked", unitID)
	}
	return p, nil
}

// rememberScreen records where the learner is, for resume
func (a *app) rememberScreen(screen, unitID, group string) {
	nav := cloudsync.NavigationState{
		ScreenID:     screen,
		CurrentUnit:  unitID,
		CurrentGroup: group,
	}
	if err := a.state.Put(navigationKey, nav); err != nil {
		slog.Warn("save navigation state", "error", err)
	}
	if a.remote != nil {
		a.remote.PushNavigation(a.ctx, nav)
	}
}

// lastScreen returns the remote navigation state when logged in,
// falling back to the local copy
func (a *app) lastScreen() (*cloudsync.NavigationState, error) {
	if a.remote != nil && a.cfg.Remote.Token != "" {
		nav, err := a.remote.PullNavigation(a.ctx)
		if err == nil {
			return nav, nil
		}
		slog.Warn("pull navigation state", "error", err)
	}

	var nav cloudsync.NavigationState
	if err := a.state.Get(navigationKey, &nav); err != nil {
		return nil, err
	}
	return &nav, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
