// Package config loads daemon configuration from an optional YAML file with
// PARCEL_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the daemon needs at startup.
type Config struct {
	// Listen is the local address the HTTP boundary binds to.
	Listen string
	// DataDir is the application data directory; the notes file lives in a
	// "parcel" subdirectory of it.
	DataDir string
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string
	// SaveDelay is the quiescence window after an edit before a save is
	// issued.
	SaveDelay time.Duration
	// DevMode keeps everything in memory instead of touching the filesystem.
	DevMode bool
}

// fileConfig is the YAML shape of the config file. The save delay is an
// integer millisecond count, the same unit PARCEL_SAVE_DELAY_MS uses.
type fileConfig struct {
	Listen      string `yaml:"listen"`
	DataDir     string `yaml:"data_dir"`
	LogLevel    string `yaml:"log_level"`
	SaveDelayMS *int   `yaml:"save_delay_ms"`
	DevMode     *bool  `yaml:"dev_mode"`
}

func defaults() Config {
	dataDir, err := os.UserConfigDir()
	if err != nil {
		dataDir = "."
	}
	return Config{
		Listen:    "127.0.0.1:7411",
		DataDir:   dataDir,
		LogLevel:  "info",
		SaveDelay: 500 * time.Millisecond,
	}
}

// Load builds the configuration from defaults, then the YAML file at path (if
// it exists), then environment variables. An empty path skips the file step.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Optional file; defaults apply.
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", filepath.Base(path), err)
			}
			if fc.Listen != "" {
				cfg.Listen = fc.Listen
			}
			if fc.DataDir != "" {
				cfg.DataDir = fc.DataDir
			}
			if fc.LogLevel != "" {
				cfg.LogLevel = fc.LogLevel
			}
			if fc.SaveDelayMS != nil {
				cfg.SaveDelay = time.Duration(*fc.SaveDelayMS) * time.Millisecond
			}
			if fc.DevMode != nil {
				cfg.DevMode = *fc.DevMode
			}
		}
	}

	if v := os.Getenv("PARCEL_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("PARCEL_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("PARCEL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PARCEL_SAVE_DELAY_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("PARCEL_SAVE_DELAY_MS: %w", err)
		}
		cfg.SaveDelay = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("PARCEL_DEV_MODE"); v != "" {
		cfg.DevMode = v == "true" || v == "1"
	}

	return cfg, nil
}
