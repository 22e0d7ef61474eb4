package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.CascadeDepthLimit != 10 {
		t.Fatalf("expected default depth limit 10, got %d", cfg.CascadeDepthLimit)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "cascade_depth_limit: 5\nlog_level: debug\nscan_schedules:\n  Supplier: \"0 0 * * * *\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CascadeDepthLimit != 5 {
		t.Fatalf("expected overlay depth limit 5, got %d", cfg.CascadeDepthLimit)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected overlay log level debug, got %q", cfg.LogLevel)
	}
	if cfg.CascadeQueueLimit != 1000 {
		t.Fatalf("expected untouched default queue limit 1000, got %d", cfg.CascadeQueueLimit)
	}
	if cfg.ScanSchedules["Supplier"] != "0 0 * * * *" {
		t.Fatalf("expected scan schedule to be loaded, got %v", cfg.ScanSchedules)
	}
}

func TestLoadRejectsInvalidDepthLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("cascade_depth_limit: -1\n"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for negative cascade_depth_limit")
	}
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: verbose\n"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unknown log level")
	}
}
