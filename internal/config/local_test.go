package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPalabrasDir(t *testing.T) {
	dir, err := PalabrasDir()
	if err != nil {
		t.Fatalf("PalabrasDir() error = %v", err)
	}
	if filepath.Base(dir) != ".palabras" {
		t.Errorf("PalabrasDir() = %q, want ending with .palabras", dir)
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("PalabrasDir() = %q, want absolute path", dir)
	}
}

func TestEnsurePalabrasDir(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	dir, err := EnsurePalabrasDir()
	if err != nil {
		t.Fatalf("EnsurePalabrasDir() error = %v", err)
	}
	if want := filepath.Join(tmpHome, ".palabras"); dir != want {
		t.Errorf("EnsurePalabrasDir() = %q, want %q", dir, want)
	}
	for _, subdir := range []string{"logs", "progress", "units"} {
		if _, err := os.Stat(filepath.Join(dir, subdir)); os.IsNotExist(err) {
			t.Errorf("EnsurePalabrasDir() should create %s", subdir)
		}
	}
}

func TestDefaultLocalConfig(t *testing.T) {
	cfg := DefaultLocalConfig()

	if cfg.Storage != StorageJSON {
		t.Errorf("Storage = %q, want %q", cfg.Storage, StorageJSON)
	}
	if cfg.Timing.QuizDuration() != 10*time.Second {
		t.Errorf("QuizDuration() = %v, want 10s", cfg.Timing.QuizDuration())
	}
	if cfg.Timing.BreakDuration() != 30*time.Second {
		t.Errorf("BreakDuration() = %v, want 30s", cfg.Timing.BreakDuration())
	}
	if cfg.Remote.Enabled() {
		t.Error("Remote.Enabled() = true for defaults")
	}
	if cfg.LearnerID() != "guest" {
		t.Errorf("LearnerID() = %q, want guest", cfg.LearnerID())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadLocalConfigFromMissing(t *testing.T) {
	cfg, err := LoadLocalConfigFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}
	if cfg.Timing.ExamSeconds != 10 {
		t.Errorf("ExamSeconds = %d, want default 10", cfg.Timing.ExamSeconds)
	}
}

func TestLoadLocalConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
content_dir: /srv/units
storage: sqlite
remote:
  url: http://localhost:8000
timing:
  quiz_seconds: 15
learner:
  id: ana
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	if err := SaveToken(dir, "tok-123"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}

	cfg, err := LoadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}

	if cfg.Storage != StorageSQLite {
		t.Errorf("Storage = %q, want sqlite", cfg.Storage)
	}
	if cfg.ResolveContentDir(dir) != "/srv/units" {
		t.Errorf("ResolveContentDir() = %q, want /srv/units", cfg.ResolveContentDir(dir))
	}
	if cfg.Timing.QuizSeconds != 15 {
		t.Errorf("QuizSeconds = %d, want 15", cfg.Timing.QuizSeconds)
	}
	// unset fields keep their defaults
	if cfg.Timing.ExamSeconds != 10 {
		t.Errorf("ExamSeconds = %d, want 10", cfg.Timing.ExamSeconds)
	}
	if cfg.Remote.Token != "tok-123" {
		t.Errorf("Remote.Token = %q, want tok-123", cfg.Remote.Token)
	}
	if cfg.LearnerID() != "ana" {
		t.Errorf("LearnerID() = %q, want ana", cfg.LearnerID())
	}
}

func TestLoadLocalConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "storage: [unterminated"},
		{"unknown storage", "storage: redis"},
		{"zero quiz time", "timing:\n  quiz_seconds: 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadLocalConfigFrom(dir); err == nil {
				t.Error("LoadLocalConfigFrom() error = nil, want error")
			}
		})
	}
}

func TestSaveLocalConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultLocalConfig()
	cfg.Remote.URL = "http://sync.example"
	cfg.Remote.Token = "never-written"

	if err := SaveLocalConfigTo(dir, cfg); err != nil {
		t.Fatalf("SaveLocalConfigTo() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); strings.Contains(got, "never-written") {
		t.Error("token leaked into config.yaml")
	}

	loaded, err := LoadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}
	if loaded.Remote.URL != "http://sync.example" {
		t.Errorf("Remote.URL = %q", loaded.Remote.URL)
	}

	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("config.yaml is empty")
	}
}

func TestSaveTokenPermissions(t *testing.T) {
	dir := t.TempDir()
	if err := SaveToken(dir, "secret"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "secrets.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("secrets.yaml mode = %o, want 600", perm)
	}
}
