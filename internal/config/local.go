package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends for the learner's progress document
const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"
)

// LocalConfig holds configuration for the learner CLI
type LocalConfig struct {
	ContentDir string        `yaml:"content_dir"`
	Storage    string        `yaml:"storage"`
	Remote     RemoteConfig  `yaml:"remote"`
	Timing     TimingConfig  `yaml:"timing"`
	Logging    LoggingConfig `yaml:"logging"`
	Learner    LearnerConfig `yaml:"learner"`
	Events     EventsConfig  `yaml:"events"`
}

// RemoteConfig points the CLI at a sync daemon
type RemoteConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"-"` // Loaded from secrets.yaml
}

// Enabled reports whether a sync server is configured
func (r RemoteConfig) Enabled() bool {
	return r.URL != ""
}

// TimingConfig holds the session clocks in seconds
type TimingConfig struct {
	QuizSeconds  int `yaml:"quiz_seconds"`
	ExamSeconds  int `yaml:"exam_seconds"`
	BreakSeconds int `yaml:"break_seconds"`
	BreakEvery   int `yaml:"break_every"`
}

// QuizDuration returns the per-question quiz time
func (t TimingConfig) QuizDuration() time.Duration {
	return time.Duration(t.QuizSeconds) * time.Second
}

// ExamDuration returns the per-question exam time
func (t TimingConfig) ExamDuration() time.Duration {
	return time.Duration(t.ExamSeconds) * time.Second
}

// BreakDuration returns the exam break length
func (t TimingConfig) BreakDuration() time.Duration {
	return time.Duration(t.BreakSeconds) * time.Second
}

// LoggingConfig holds CLI log settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LearnerConfig identifies the local learner. Empty means guest.
type LearnerConfig struct {
	ID string `yaml:"id"`
}

// EventsConfig optionally publishes outcomes to RabbitMQ
type EventsConfig struct {
	RabbitMQURL string `yaml:"rabbitmq_url"`
}

// SecretsConfig holds credentials loaded from secrets.yaml
type SecretsConfig struct {
	Remote struct {
		Token string `yaml:"token"`
	} `yaml:"remote"`
}

// PalabrasDir returns the path to ~/.palabras
func PalabrasDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".palabras"), nil
}

// EnsurePalabrasDir creates ~/.palabras and subdirectories if they don't exist
func EnsurePalabrasDir() (string, error) {
	dir, err := PalabrasDir()
	if err != nil {
		return "", err
	}

	for _, subdir := range []string{"", "logs", "progress", "units"} {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}
	return dir, nil
}

// DefaultLocalConfig returns sensible defaults for the CLI
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Storage: StorageJSON,
		Timing: TimingConfig{
			QuizSeconds:  10,
			ExamSeconds:  10,
			BreakSeconds: 30,
			BreakEvery:   10,
		},
		Logging: LoggingConfig{Level: "warn"},
	}
}

// Validate checks values a YAML edit could break
func (c *LocalConfig) Validate() error {
	switch c.Storage {
	case StorageJSON, StorageSQLite:
	default:
		return fmt.Errorf("invalid storage backend %q: want %s or %s", c.Storage, StorageJSON, StorageSQLite)
	}
	if c.Timing.QuizSeconds <= 0 || c.Timing.ExamSeconds <= 0 {
		return errors.New("quiz_seconds and exam_seconds must be positive")
	}
	if c.Timing.BreakSeconds < 0 || c.Timing.BreakEvery < 0 {
		return errors.New("break settings must not be negative")
	}
	return nil
}

// LearnerID returns the configured learner, or "guest"
func (c *LocalConfig) LearnerID() string {
	if c.Learner.ID == "" {
		return "guest"
	}
	return c.Learner.ID
}

// ResolveContentDir returns ContentDir or ~/.palabras/units
func (c *LocalConfig) ResolveContentDir(dir string) string {
	if c.ContentDir != "" {
		return c.ContentDir
	}
	return filepath.Join(dir, "units")
}

// LoadLocalConfig loads configuration from ~/.palabras/config.yaml
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := PalabrasDir()
	if err != nil {
		return nil, err
	}
	return LoadLocalConfigFrom(dir)
}

// LoadLocalConfigFrom loads config.yaml and secrets.yaml from dir.
// A missing config file yields the defaults.
func LoadLocalConfigFrom(dir string) (*LocalConfig, error) {
	cfg := DefaultLocalConfig()

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadSecrets(dir, cfg); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSecrets loads the sync token from secrets.yaml
func loadSecrets(dir string, cfg *LocalConfig) error {
	data, err := os.ReadFile(filepath.Join(dir, "secrets.yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read secrets: %w", err)
	}

	var secrets SecretsConfig
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}
	cfg.Remote.Token = secrets.Remote.Token
	return nil
}

// SaveLocalConfig saves configuration to ~/.palabras/config.yaml
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsurePalabrasDir()
	if err != nil {
		return err
	}
	return SaveLocalConfigTo(dir, cfg)
}

// SaveLocalConfigTo writes config.yaml into dir
func SaveLocalConfigTo(dir string, cfg *LocalConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SaveToken saves the sync token to secrets.yaml in dir
func SaveToken(dir, token string) error {
	var secrets SecretsConfig
	secrets.Remote.Token = token

	data, err := yaml.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	// Write with restricted permissions (owner read/write only)
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}
	return nil
}
