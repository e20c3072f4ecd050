package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/palabras/internal/auth"
	"github.com/felixgeelhaar/palabras/internal/config"
	"github.com/felixgeelhaar/palabras/internal/storage/sqlite"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMultiHandler(t *testing.T) {
	var debug, warn bytes.Buffer
	logger := slog.New(&multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}).With("svc", "palabrasd")

	logger.Debug("quiet")
	logger.Warn("loud")

	if !strings.Contains(debug.String(), "quiet") || !strings.Contains(debug.String(), "loud") {
		t.Errorf("debug handler output = %q", debug.String())
	}
	if strings.Contains(warn.String(), "quiet") || !strings.Contains(warn.String(), "svc=palabrasd") {
		t.Errorf("warn handler output = %q", warn.String())
	}
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug-4) {
		t.Error("Enabled() below every handler's level")
	}
}

func TestOpenBackendSQLite(t *testing.T) {
	dir := t.TempDir()
	be, err := openBackend(t.Context(), &config.Config{}, dir)
	if err != nil {
		t.Fatalf("openBackend() error = %v", err)
	}
	defer be.close()

	if be.auth == nil || be.blobs == nil || be.activity == nil {
		t.Errorf("backend has nil stores: %+v", be)
	}
}

func TestStartMaintenance_PrunesExpiredSessions(t *testing.T) {
	db, err := sqlite.OpenMigrated(filepath.Join(t.TempDir(), "palabrasd.db"))
	if err != nil {
		t.Fatalf("OpenMigrated() error = %v", err)
	}
	defer db.Close()

	store := sqlite.NewAuthStore(db)
	svc := auth.NewService(store, time.Hour)
	user, err := svc.Register(t.Context(), auth.Credentials{Email: "ana@example.com", Password: "contraseña"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	expired := &auth.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     "stale",
		ExpiresAt: time.Now().Add(-time.Hour),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	if err := store.CreateSession(t.Context(), expired); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	s, err := startMaintenance(svc, time.Hour)
	if err != nil {
		t.Fatalf("startMaintenance() error = %v", err)
	}
	defer s.Stop()

	if got := len(s.Jobs()); got != 1 {
		t.Errorf("len(Jobs()) = %d, want 1", got)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		_, err := store.GetSessionByToken(t.Context(), "stale")
		if errors.Is(err, auth.ErrSessionNotFound) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expired session still present, last error = %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
