package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/palabras/internal/config"
)

// cmdInit initializes Palabras for first-time use
func cmdInit() error {
	fmt.Println("Palabras - First-Time Setup")
	fmt.Println("===========================")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Creating ~/.palabras directory structure... ")
	dir, err := config.EnsurePalabrasDir()
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	fmt.Println("✓")

	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("Configuration already exists ✓")
		return nil
	}

	cfg := config.DefaultLocalConfig()

	fmt.Print("Sync server URL (or press Enter to stay offline): ")
	url, _ := reader.ReadString('\n')
	cfg.Remote.URL = strings.TrimSpace(url)

	fmt.Print("Storage backend [json/sqlite] (default json): ")
	storage, _ := reader.ReadString('\n')
	if s := strings.TrimSpace(storage); s != "" {
		cfg.Storage = s
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Print("Creating default configuration... ")
	if err := config.SaveLocalConfigTo(dir, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Println("✓")

	fmt.Println()
	fmt.Printf("Put unit files (.json or .yaml) in %s\n", cfg.ResolveContentDir(dir))
	fmt.Println("Then run 'palabras profile new <nickname>' to start.")
	return nil
}

// cmdConfig prints the effective configuration
func cmdConfig() error {
	dir, err := config.PalabrasDir()
	if err != nil {
		return err
	}
	cfg, err := config.LoadLocalConfigFrom(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("Palabras Configuration")

	fmt.Println("\nContent:")
	fmt.Printf("  units: %s\n", cfg.ResolveContentDir(dir))
	fmt.Printf("  storage: %s\n", cfg.Storage)
	fmt.Printf("  learner: %s\n", cfg.LearnerID())

	fmt.Println("\nTiming:")
	fmt.Printf("  quiz: %ds per question\n", cfg.Timing.QuizSeconds)
	fmt.Printf("  exam: %ds per question, %ds break every %d\n",
		cfg.Timing.ExamSeconds, cfg.Timing.BreakSeconds, cfg.Timing.BreakEvery)

	fmt.Println("\nSync:")
	if cfg.Remote.Enabled() {
		tokenStatus := "✗"
		if cfg.Remote.Token != "" {
			tokenStatus = "✓"
		}
		fmt.Printf("  url: %s token=%s\n", cfg.Remote.URL, tokenStatus)
	} else {
		fmt.Println("  offline")
	}
	if cfg.Events.RabbitMQURL != "" {
		fmt.Println("  outcome events: enabled")
	}

	fmt.Printf("\nConfig path: %s\n", filepath.Join(dir, "config.yaml"))
	return nil
}
