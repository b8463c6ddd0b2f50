package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Commands.MaxRetries != 3 || cfg.Commands.PendingBatchSize != 10 {
		t.Errorf("command config = %+v", cfg.Commands)
	}
	if cfg.Anomaly.OverfillThreshold != 90 {
		t.Errorf("overfill threshold = %d, want 90", cfg.Anomaly.OverfillThreshold)
	}
	if cfg.Anomaly.OfflineAfter != 2*time.Hour {
		t.Errorf("offline after = %s, want 2h", cfg.Anomaly.OfflineAfter)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute || cfg.Auth.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("token TTLs = %+v", cfg.Auth)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
commands:
  max_retries: 5
anomaly:
  overfill_threshold: 80
  sweep_interval: 5m
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Commands.MaxRetries != 5 {
		t.Errorf("max retries = %d, want 5", cfg.Commands.MaxRetries)
	}
	if cfg.Anomaly.OverfillThreshold != 80 {
		t.Errorf("overfill threshold = %d, want 80", cfg.Anomaly.OverfillThreshold)
	}
	if cfg.Anomaly.SweepInterval != 5*time.Minute {
		t.Errorf("sweep interval = %s, want 5m", cfg.Anomaly.SweepInterval)
	}
	// Untouched keys keep their defaults.
	if cfg.Commands.PendingBatchSize != 10 {
		t.Errorf("pending batch size = %d, want default 10", cfg.Commands.PendingBatchSize)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PORT", "7070")
	t.Setenv("COMMAND_MAX_RETRIES", "7")
	t.Setenv("ANOMALY_SWEEP_INTERVAL", "30s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("port = %q, want env override 7070", cfg.Server.Port)
	}
	if cfg.Commands.MaxRetries != 7 {
		t.Errorf("max retries = %d, want 7", cfg.Commands.MaxRetries)
	}
	if cfg.Anomaly.SweepInterval != 30*time.Second {
		t.Errorf("sweep interval = %s, want 30s", cfg.Anomaly.SweepInterval)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
