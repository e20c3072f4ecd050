package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/palabras/internal/auth"
	"github.com/felixgeelhaar/palabras/internal/config"
	"github.com/felixgeelhaar/palabras/internal/daemon"
	"github.com/felixgeelhaar/palabras/internal/queue"
	"github.com/felixgeelhaar/palabras/internal/remote"
	"github.com/felixgeelhaar/palabras/internal/storage/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

// backend bundles the stores the server runs on
type backend struct {
	auth     auth.Repository
	blobs    remote.BlobStore
	activity remote.ActivityLog
	close    func()
}

func run() error {
	if err := config.LoadEnvFiles(".env"); err != nil {
		return err
	}
	cfg := config.Load()

	dir, err := config.EnsurePalabrasDir()
	if err != nil {
		return fmt.Errorf("ensure palabras dir: %w", err)
	}

	logPath := cfg.LogFile
	if logPath == "" {
		logPath = filepath.Join(dir, "logs", "palabrasd.log")
	}
	logFile, err := setupLogging(logPath, parseLogLevel(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, dir)
	if err != nil {
		return err
	}
	defer be.close()

	authService := auth.NewService(be.auth, cfg.SessionDuration())

	if cfg.RabbitMQURL != "" {
		conn, err := queue.NewConnection(cfg.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer conn.Close()

		consumer := queue.NewConsumer(conn, queue.ActivityHandler(be.activity), queue.DefaultConsumerConfig())
		if err := consumer.Start(ctx); err != nil {
			return fmt.Errorf("start outcome consumer: %w", err)
		}
		defer consumer.Stop()
	}

	maintenance, err := startMaintenance(authService, time.Hour)
	if err != nil {
		return fmt.Errorf("schedule maintenance: %w", err)
	}
	defer maintenance.Stop()

	server, err := daemon.NewServer(daemon.ServerConfig{
		Addr:     fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Auth:     authService,
		Blobs:    be.blobs,
		Activity: be.activity,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("daemon stopped")
	return nil
}

// openBackend picks Postgres when a database URL is set, SQLite otherwise
func openBackend(ctx context.Context, cfg *config.Config, dir string) (*backend, error) {
	if cfg.UsePostgres() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := remote.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}

		repo := remote.NewPostgresRepository(pool)
		slog.Info("using postgres storage")
		return &backend{
			auth:     auth.NewPostgresRepository(pool),
			blobs:    repo,
			activity: repo,
			close:    pool.Close,
		}, nil
	}

	path := cfg.SQLitePath
	if path == "" {
		path = filepath.Join(dir, "palabrasd.db")
	}
	db, err := sqlite.OpenMigrated(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	slog.Info("using sqlite storage", "path", path)
	return &backend{
		auth:     sqlite.NewAuthStore(db),
		blobs:    sqlite.NewBlobStore(db),
		activity: sqlite.NewActivityStore(db),
		close:    func() { db.Close() },
	}, nil
}

// startMaintenance schedules session pruning. The first run happens
// right away so a restart clears sessions that expired while down.
func startMaintenance(svc *auth.Service, every time.Duration) (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	if _, err := s.Every(every).Do(cleanupSessions, svc); err != nil {
		return nil, err
	}
	s.StartAsync()
	return s, nil
}

// cleanupSessions prunes expired bearer sessions
func cleanupSessions(svc *auth.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := svc.CleanupExpiredSessions(ctx); err != nil {
		slog.Warn("session cleanup failed", "error", err)
		return
	}
	slog.Debug("expired sessions pruned")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogging(logPath string, level slog.Level) (*os.File, error) {
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	slog.SetDefault(slog.New(&multiHandler{
		handlers: []slog.Handler{
			slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: level}),
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
		},
	}))

	return logFile, nil
}

// multiHandler logs to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
