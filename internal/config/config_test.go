package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestRuntimeConfigDefaults(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	if cfg.DBPath != "tend.db" || cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SchedulerBuffer != 64 || cfg.PlannerQueue != 8 {
		t.Fatalf("unexpected buffer defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestRuntimeConfigFromEnv(t *testing.T) {
	t.Setenv("TEND_DB_PATH", "data/tend.db")
	t.Setenv("TEND_CONTACTS_PATH", "contacts")
	t.Setenv("TEND_LOG_LEVEL", "debug")
	t.Setenv("TEND_LOG_FORMAT", "json")
	t.Setenv("TEND_DESKTOP_NOTIFICATIONS", "yes")
	t.Setenv("TEND_SCHEDULER_BUFFER", "128")
	t.Setenv("TEND_METRICS_ADDR", "127.0.0.1:9090")
	t.Setenv("TEND_PLANNER_QUEUE", "not-a-number")

	cfg := RuntimeConfigFromEnv(DefaultRuntimeConfig())
	if cfg.DBPath != "data/tend.db" || cfg.ContactsPath != "contacts" {
		t.Fatalf("unexpected paths: %+v", cfg)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected log config: %+v", cfg)
	}
	if !cfg.DesktopNotifications || cfg.SchedulerBuffer != 128 || cfg.MetricsAddr != "127.0.0.1:9090" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.PlannerQueue != 8 {
		t.Fatalf("invalid int override should be ignored, got %d", cfg.PlannerQueue)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := "db_path = \"file.db\"\ncontacts_path = \"book.vcf\"\nlog_level = \"warn\"\nplanner_queue = 3\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TEND_LOG_LEVEL", "error")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "file.db" || cfg.ContactsPath != "book.vcf" || cfg.PlannerQueue != 3 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf("env should override file, got %q", cfg.LogLevel)
	}
}

func TestLoadMissingDefaultFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "tend.db" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadRejectsBadFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("log_format = \"xml\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "log_format") {
		t.Fatalf("expected log_format validation error, got %v", err)
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TEND_DB_PATH", "~/tend/tend.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != filepath.Join(home, "tend", "tend.db") {
		t.Fatalf("tilde not expanded: %q", cfg.DBPath)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultRuntimeConfig()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	log, err := NewLogger(cfg, &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if log.GetLevel() != logrus.WarnLevel {
		t.Fatalf("unexpected level: %v", log.GetLevel())
	}
	log.Info("hidden")
	log.WithField("component", "planner").Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"component":"planner"`) {
		t.Fatalf("unexpected output: %s", out)
	}

	cfg.LogLevel = "loud"
	if _, err := NewLogger(cfg, &buf); err == nil {
		t.Fatal("expected invalid level error")
	}
}
