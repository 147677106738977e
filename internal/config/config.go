// Package config loads process level settings for tend from a TOML file and
// TEND_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

type RuntimeConfig struct {
	DBPath               string `toml:"db_path"`
	ContactsPath         string `toml:"contacts_path"`
	LogLevel             string `toml:"log_level"`
	LogFormat            string `toml:"log_format"`
	LogFile              string `toml:"log_file"`
	DesktopNotifications bool   `toml:"desktop_notifications"`
	SchedulerBuffer      int    `toml:"scheduler_buffer"`
	MetricsAddr          string `toml:"metrics_addr"`
	// PlannerQueue buffers lifecycle signals between the UI and the planner.
	PlannerQueue int `toml:"planner_queue"`
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		DBPath:          "tend.db",
		ContactsPath:    "",
		LogLevel:        "info",
		LogFormat:       "text",
		LogFile:         "tend.log",
		SchedulerBuffer: 64,
		MetricsAddr:     "",
		PlannerQueue:    8,
	}
}

// DefaultPath is ~/.config/tend/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tend", "config.toml"), nil
}

// Load reads path (or the default location when path is empty) over the
// defaults and then applies environment overrides. A missing default file
// is not an error; a missing explicit file is.
func Load(path string) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return RuntimeConfig{}, err
		}
		path = p
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return RuntimeConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg = RuntimeConfigFromEnv(cfg)
	if err := cfg.expandPaths(); err != nil {
		return RuntimeConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return RuntimeConfig{}, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func RuntimeConfigFromEnv(base RuntimeConfig) RuntimeConfig {
	cfg := base
	if v, ok := getEnvString("TEND_DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := getEnvString("TEND_CONTACTS_PATH"); ok {
		cfg.ContactsPath = v
	}
	if v, ok := getEnvString("TEND_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := getEnvString("TEND_LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
	if v, ok := getEnvString("TEND_LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v, ok := getEnvBool("TEND_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvInt("TEND_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	if v, ok := getEnvString("TEND_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := getEnvInt("TEND_PLANNER_QUEUE"); ok && v > 0 {
		cfg.PlannerQueue = v
	}
	return cfg
}

func (c RuntimeConfig) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("db_path is required")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.SchedulerBuffer < 1 {
		return fmt.Errorf("scheduler_buffer must be positive, got %d", c.SchedulerBuffer)
	}
	if c.PlannerQueue < 1 {
		return fmt.Errorf("planner_queue must be positive, got %d", c.PlannerQueue)
	}
	return nil
}

func (c *RuntimeConfig) expandPaths() error {
	for _, p := range []*string{&c.DBPath, &c.ContactsPath, &c.LogFile} {
		if !strings.HasPrefix(*p, "~") {
			continue
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		*p = filepath.Join(home, (*p)[1:])
	}
	return nil
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return "", false
	}
	return raw, true
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
