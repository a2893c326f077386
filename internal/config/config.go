// ABOUTME: chronicare configuration management with backend selection.
// ABOUTME: Merges the JSON config file with .env and environment overrides and opens storage.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harperreed/chronicare/internal/charm"
	"github.com/harperreed/chronicare/internal/insight"
	"github.com/harperreed/chronicare/internal/storage"
	"github.com/joho/godotenv"
	"github.com/oklog/ulid/v2"
)

const (
	defaultStepThreshold = 50
	defaultFeedTimeout   = 5 * time.Second
)

// Environment variables that override the config file.
const (
	EnvBackend       = "CHRONICARE_BACKEND"
	EnvDataDir       = "CHRONICARE_DATA_DIR"
	EnvUser          = "CHRONICARE_USER"
	EnvRedisAddr     = "CHRONICARE_REDIS_ADDR"
	EnvRedisPassword = "CHRONICARE_REDIS_PASSWORD"
	EnvLogLevel      = "CHRONICARE_LOG_LEVEL"
)

// Config stores chronicare configuration.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default) or "charm".
	Backend string `json:"backend,omitempty"`

	// DataDir is the root directory for local data: chronicare.db and the
	// step baseline store. Supports ~ expansion. Defaults to ~/.local/share/chronicare.
	DataDir string `json:"data_dir,omitempty"`

	// UserID scopes every store read and write. Defaults to InstallationID.
	UserID string `json:"user_id,omitempty"`

	// InstallationID is generated once per installation.
	InstallationID string `json:"installation_id,omitempty"`

	// RedisAddr, when set, moves the steps store to Redis.
	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`

	StepThreshold      int64          `json:"step_threshold,omitempty"`
	FeedTimeout        string         `json:"feed_timeout,omitempty"`
	LogLevel           string         `json:"log_level,omitempty"`
	DropMalformedDates bool           `json:"drop_malformed_dates,omitempty"`
	Goals              *insight.Goals `json:"goals,omitempty"`
}

// GetBackend returns the configured backend, defaulting to "sqlite".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return "sqlite"
	}
	return c.Backend
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// BaselineDir is where the step baseline store lives.
func (c *Config) BaselineDir() string {
	return filepath.Join(c.GetDataDir(), "baseline")
}

// GetUserID returns the user id, falling back to the installation id and
// then to "local".
func (c *Config) GetUserID() string {
	switch {
	case c.UserID != "":
		return c.UserID
	case c.InstallationID != "":
		return c.InstallationID
	}
	return "local"
}

// EnsureInstallationID assigns a new ULID when none is set and reports
// whether it did.
func (c *Config) EnsureInstallationID() bool {
	if c.InstallationID != "" {
		return false
	}
	c.InstallationID = ulid.Make().String()
	return true
}

// GetStepThreshold returns the upload threshold, defaulting to 50 steps.
func (c *Config) GetStepThreshold() int64 {
	if c.StepThreshold <= 0 {
		return defaultStepThreshold
	}
	return c.StepThreshold
}

// GetFeedTimeout parses FeedTimeout, defaulting to 5s when unset or invalid.
func (c *Config) GetFeedTimeout() time.Duration {
	if c.FeedTimeout == "" {
		return defaultFeedTimeout
	}
	d, err := time.ParseDuration(c.FeedTimeout)
	if err != nil || d <= 0 {
		return defaultFeedTimeout
	}
	return d
}

// GetLogLevel returns the log level, defaulting to "info".
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

// GetGoals returns the configured goals with defaults filled in.
func (c *Config) GetGoals() insight.Goals {
	g := insight.DefaultGoals()
	if c.Goals == nil {
		return g
	}
	if c.Goals.Steps > 0 {
		g.Steps = c.Goals.Steps
	}
	if c.Goals.WaterMl > 0 {
		g.WaterMl = c.Goals.WaterMl
	}
	if c.Goals.SleepHours > 0 {
		g.SleepHours = c.Goals.SleepHours
	}
	return g
}

// ApplyEnv loads an optional .env file and applies CHRONICARE_* overrides.
// Variables already present in the environment win over .env entries.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	overrides := []struct {
		env string
		dst *string
	}{
		{EnvBackend, &c.Backend},
		{EnvDataDir, &c.DataDir},
		{EnvUser, &c.UserID},
		{EnvRedisAddr, &c.RedisAddr},
		{EnvRedisPassword, &c.RedisPassword},
		{EnvLogLevel, &c.LogLevel},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.dst = v
		}
	}
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage creates a Repository for the configured backend, layering
// the Redis steps store on top when RedisAddr is set.
func (c *Config) OpenStorage(ctx context.Context) (storage.Repository, error) {
	repo, err := OpenBackend(c.GetBackend(), c.GetDataDir())
	if err != nil {
		return nil, err
	}
	if c.RedisAddr == "" {
		return repo, nil
	}
	rdb, err := storage.NewRedisClient(ctx, c.RedisAddr, c.RedisPassword, 0)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	return storage.WithRedisSteps(repo, rdb), nil
}

// OpenBackend opens the named backend without any Redis layering.
func OpenBackend(backend, dataDir string) (storage.Repository, error) {
	switch backend {
	case "sqlite":
		return storage.Open(storage.DBPath(dataDir))
	case "charm":
		return charm.Open(charm.DBName)
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "chronicare", "config.json")
}

// Load reads config from disk, assigns and saves an installation id on
// first use, then applies environment overrides. The id is saved before the
// overrides so they never leak into the file. A failed save is returned
// alongside the usable config.
func Load() (*Config, error) {
	cfg, err := LoadFile(GetConfigPath())
	if err != nil {
		return nil, err
	}
	var saveErr error
	if cfg.EnsureInstallationID() {
		if err := cfg.Save(); err != nil {
			saveErr = fmt.Errorf("save installation id: %w", err)
		}
	}
	cfg.ApplyEnv()
	return cfg, saveErr
}

// LoadFile reads config from path. A missing file yields an empty Config.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
