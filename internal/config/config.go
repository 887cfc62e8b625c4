// Package config provides configuration management for the Heimdex Editor.
// Configuration is loaded from environment variables with sensible defaults;
// a .env file in the working directory, if present, is applied first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort           = 8790
	DefaultLogLevel       = "info"
	DefaultDataDir        = ".heimdex-editor"
	DefaultAutosaveDelay  = 3 * time.Second
	DefaultDriftThreshold = 500 * time.Millisecond
	DefaultExportPoll     = 2 * time.Second
	DefaultQuotaBytes     = 5 * 1024 * 1024 * 1024 // 5GB

	// Environment variable names
	EnvPort           = "EDITOR_PORT"
	EnvLogLevel       = "EDITOR_LOG_LEVEL"
	EnvDataDir        = "EDITOR_DATA_DIR"
	EnvAutosaveDelay  = "EDITOR_AUTOSAVE_DELAY_MS"
	EnvDriftThreshold = "EDITOR_DRIFT_THRESHOLD_MS"
	EnvQuotaBytes     = "EDITOR_QUOTA_BYTES"
	EnvPlatformURL    = "EDITOR_PLATFORM_URL"
	EnvPlatformToken  = "EDITOR_PLATFORM_TOKEN"
	EnvRenderURL      = "EDITOR_RENDER_URL"
	EnvRenderToken    = "EDITOR_RENDER_TOKEN"
	EnvFFprobePath    = "EDITOR_FFPROBE_PATH"
	EnvExportPoll     = "EDITOR_EXPORT_POLL_MS"

	// Database filename
	DBFilename = "editor.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	MediaDir() string
	AutosaveDelay() time.Duration
	DriftThreshold() time.Duration
	QuotaBytes() int64
	PlatformURL() string
	PlatformToken() string
	RenderURL() string
	RenderToken() string
	FFprobePath() string
	ExportPollInterval() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port           int
	logLevel       string
	dataDir        string
	autosaveDelay  time.Duration
	driftThreshold time.Duration
	quotaBytes     int64
	exportPoll     time.Duration

	platformURL   string
	platformToken string
	renderURL     string
	renderToken   string
	ffprobePath   string
}

// LoadDotEnv applies KEY=value pairs from path without overriding variables
// already set in the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		autosaveDelay:  DefaultAutosaveDelay,
		driftThreshold: DefaultDriftThreshold,
		quotaBytes:     DefaultQuotaBytes,
		exportPoll:     DefaultExportPoll,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	var err error
	if cfg.autosaveDelay, err = millisFromEnv(EnvAutosaveDelay, cfg.autosaveDelay); err != nil {
		return nil, err
	}
	if cfg.driftThreshold, err = millisFromEnv(EnvDriftThreshold, cfg.driftThreshold); err != nil {
		return nil, err
	}
	if cfg.exportPoll, err = millisFromEnv(EnvExportPoll, cfg.exportPoll); err != nil {
		return nil, err
	}

	if q := os.Getenv(EnvQuotaBytes); q != "" {
		quota, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvQuotaBytes, err)
		}
		// Zero or negative disables the quota check.
		cfg.quotaBytes = quota
	}

	cfg.platformURL = strings.TrimRight(os.Getenv(EnvPlatformURL), "/")
	cfg.platformToken = os.Getenv(EnvPlatformToken)
	cfg.renderURL = strings.TrimRight(os.Getenv(EnvRenderURL), "/")
	cfg.renderToken = os.Getenv(EnvRenderToken)
	cfg.ffprobePath = os.Getenv(EnvFFprobePath)

	return cfg, nil
}

func millisFromEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if ms <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// MediaDir is where uploaded source media is stored.
func (c *EnvConfig) MediaDir() string {
	return filepath.Join(c.dataDir, "media")
}

func (c *EnvConfig) AutosaveDelay() time.Duration {
	return c.autosaveDelay
}

func (c *EnvConfig) DriftThreshold() time.Duration {
	return c.driftThreshold
}

func (c *EnvConfig) QuotaBytes() int64 {
	return c.quotaBytes
}

// PlatformURL is empty when the editor runs offline.
func (c *EnvConfig) PlatformURL() string {
	return c.platformURL
}

func (c *EnvConfig) PlatformToken() string {
	return c.platformToken
}

// RenderURL falls back to the platform URL.
func (c *EnvConfig) RenderURL() string {
	if c.renderURL != "" {
		return c.renderURL
	}
	return c.platformURL
}

func (c *EnvConfig) RenderToken() string {
	if c.renderToken != "" {
		return c.renderToken
	}
	return c.platformToken
}

func (c *EnvConfig) FFprobePath() string {
	if c.ffprobePath != "" {
		return c.ffprobePath
	}
	return "ffprobe"
}

func (c *EnvConfig) ExportPollInterval() time.Duration {
	return c.exportPoll
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
