package usercfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ghboard/internal/board"
	"ghboard/internal/errors"
	"ghboard/internal/logger"

	"github.com/BurntSushi/toml"
)

// ErrNotConfigured is returned when no config file exists and no env vars are set.
var ErrNotConfigured = fmt.Errorf("ghboard is not configured; run: ghboard setup")

// IsConfigured returns true if a config file exists or the repository is set by env.
func IsConfigured() bool {
	if os.Getenv("GHBOARD_OWNER") != "" && os.Getenv("GHBOARD_REPO") != "" {
		return true
	}
	for _, p := range []string{Path(), LegacyPath()} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

type Config struct {
	SchemaVersion   int             `toml:"schema_version,omitempty"`
	Owner           string          `toml:"owner"`
	Repo            string          `toml:"repo"`
	APIURL          string          `toml:"api_url,omitempty"`
	OPTokenPath     string          `toml:"op_token_path,omitempty"`
	PreferredOwners []string        `toml:"preferred_owners,omitempty"`
	RecentRepos     []string        `toml:"recent_repos,omitempty"`
	ClosedLimit     int             `toml:"closed_limit,omitempty"`
	Storage         StorageConfig   `toml:"storage"`
	RateLimit       RateLimitConfig `toml:"rate_limit"`
	UIPrefs         UIPreferences   `toml:"ui_prefs,omitempty"`
	CheckUpdates    *bool           `toml:"check_updates"`

	// Repository is the schema 1 "owner/repo" field, split on migration.
	Repository string `toml:"repository,omitempty"`
}

type StorageConfig struct {
	Backend   string `toml:"backend"`
	Path      string `toml:"path,omitempty"`
	RedisAddr string `toml:"redis_addr,omitempty"`
	RedisDB   int    `toml:"redis_db,omitempty"`
}

type RateLimitConfig struct {
	WarningThreshold     int `toml:"warning_threshold,omitempty"`
	ProbeIntervalSeconds int `toml:"probe_interval_seconds,omitempty"`
}

type UIPreferences struct {
	LastFilter      string `toml:"last_filter,omitempty"`
	LastSelectedCol int    `toml:"last_selected_col,omitempty"`
	ColumnWidth     int    `toml:"column_width,omitempty"`
	ShowLabels      bool   `toml:"show_labels,omitempty"`
}

const CurrentSchemaVersion = 2

// maxRecentRepos bounds RecentRepos.
const maxRecentRepos = 10

func Path() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "ghboard", "config.toml")
}

func LegacyPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "ghboard.toml")
}

// DataDir is where the file and SQLite backends keep board state by default.
func DataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "ghboard", "state")
}

// findConfigFile returns the XDG path when present, else the legacy path.
func findConfigFile() (path string, legacy bool, err error) {
	configPath := Path()
	legacyPath := LegacyPath()
	if configPath == "" || legacyPath == "" {
		return "", false, fmt.Errorf("unable to determine home directory")
	}
	if _, err := os.Stat(configPath); err == nil {
		return configPath, false, nil
	}
	if _, err := os.Stat(legacyPath); err == nil {
		return legacyPath, true, nil
	}
	return "", false, ErrNotConfigured
}

func Load() (Config, error) {
	actualPath, legacy, err := findConfigFile()
	if err == ErrNotConfigured {
		return getDefaults(), ErrNotConfigured
	}
	if err != nil {
		return getDefaults(), errors.NewConfigError("load", err)
	}

	var config Config
	if _, err := toml.DecodeFile(actualPath, &config); err != nil {
		return getDefaults(), errors.NewConfigError("load", fmt.Errorf("failed to decode config file: %v", err))
	}

	if legacy {
		fmt.Fprintf(os.Stderr, "Warning: Using legacy config path %s. Consider moving to %s\n", actualPath, Path())
	}

	return mergeWithDefaults(migrateConfig(config)), nil
}

func Save(config Config) error {
	configPath := Path()
	if configPath == "" {
		return fmt.Errorf("unable to determine home directory")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %v", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %v", err)
	}
	logger.Config("saved config to %s", configPath)
	return nil
}

func GetRuntimeConfig() Config {
	config, err := Load()
	if err != nil && err != ErrNotConfigured {
		fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
		config = getDefaults()
	}
	return applyEnvOverlays(config)
}

func mergeWithDefaults(config Config) Config {
	defaults := getDefaults()
	config.SchemaVersion = CurrentSchemaVersion

	if config.Storage.Backend == "" {
		config.Storage.Backend = defaults.Storage.Backend
	}
	if config.RateLimit.WarningThreshold <= 0 {
		config.RateLimit.WarningThreshold = defaults.RateLimit.WarningThreshold
	}
	if config.RateLimit.ProbeIntervalSeconds <= 0 {
		config.RateLimit.ProbeIntervalSeconds = defaults.RateLimit.ProbeIntervalSeconds
	}
	if config.ClosedLimit <= 0 {
		config.ClosedLimit = defaults.ClosedLimit
	}
	if config.CheckUpdates == nil {
		config.CheckUpdates = defaults.CheckUpdates
	}

	// Owner and Repo stay empty when unset; the caller prompts for setup.
	return config
}

// UpdateChecksEnabled reports whether the background release check runs.
func (c Config) UpdateChecksEnabled() bool {
	return c.CheckUpdates == nil || *c.CheckUpdates
}

// RepoContext returns the configured repository.
func (c Config) RepoContext() (board.RepoContext, error) {
	if c.Owner == "" || c.Repo == "" {
		return board.RepoContext{}, ErrNotConfigured
	}
	return board.RepoContext{Owner: c.Owner, Repo: c.Repo}, nil
}

// WithRecentRepo moves repo to the front of RecentRepos.
func (c Config) WithRecentRepo(repo board.RepoContext) Config {
	name := repo.String()
	recent := []string{name}
	for _, r := range c.RecentRepos {
		if !strings.EqualFold(r, name) {
			recent = append(recent, r)
		}
	}
	if len(recent) > maxRecentRepos {
		recent = recent[:maxRecentRepos]
	}
	c.RecentRepos = recent
	return c
}

// applyEnvOverlays applies environment variable overlays to the config
func applyEnvOverlays(config Config) Config {
	if v := strings.TrimSpace(os.Getenv("GHBOARD_OWNER")); v != "" {
		config.Owner = v
	}

	// GHBOARD_REPO accepts either "repo" or "owner/repo"
	if v := strings.TrimSpace(os.Getenv("GHBOARD_REPO")); v != "" {
		if repo, err := board.ParseRepo(v); err == nil {
			config.Owner, config.Repo = repo.Owner, repo.Repo
		} else {
			config.Repo = v
		}
	}

	if v := os.Getenv("GHBOARD_API_URL"); v != "" {
		config.APIURL = v
	}
	if v := os.Getenv("GHBOARD_STORAGE"); v != "" {
		config.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("GHBOARD_REDIS_ADDR"); v != "" {
		config.Storage.RedisAddr = v
	}
	if v := os.Getenv("GHBOARD_OP_TOKEN_PATH"); v != "" {
		config.OPTokenPath = v
	}
	return config
}

// migrateConfig performs in-memory migration of config from older schema versions
func migrateConfig(config Config) Config {
	originalVersion := config.SchemaVersion

	// Version 0 configs don't have schema_version; the layout matches version 1.
	if config.SchemaVersion == 0 {
		config.SchemaVersion = 1
	}

	// Version 2 splits repository = "owner/repo" into owner and repo.
	if config.SchemaVersion < 2 {
		if config.Repository != "" && (config.Owner == "" || config.Repo == "") {
			if repo, err := board.ParseRepo(config.Repository); err == nil {
				config.Owner, config.Repo = repo.Owner, repo.Repo
			}
		}
		config.Repository = ""
		config.SchemaVersion = 2
	}

	if originalVersion != config.SchemaVersion {
		logger.Config("migrated config from schema version %d to %d", originalVersion, config.SchemaVersion)
	}
	return config
}

// MigrateAndSave loads the config, applies migrations, and saves it back to disk
// This is used by the `ghboard config migrate` command
func MigrateAndSave() error {
	actualPath, _, err := findConfigFile()
	if err == ErrNotConfigured {
		return fmt.Errorf("no config file found to migrate")
	}
	if err != nil {
		return err
	}

	var rawConfig Config
	if _, err := toml.DecodeFile(actualPath, &rawConfig); err != nil {
		return fmt.Errorf("failed to decode config file: %v", err)
	}

	originalVersion := rawConfig.SchemaVersion
	if originalVersion == CurrentSchemaVersion {
		return fmt.Errorf("config is already at current schema version %d", CurrentSchemaVersion)
	}

	config, err := Load()
	if err != nil {
		return fmt.Errorf("failed to load config for migration: %v", err)
	}
	if err := Save(config); err != nil {
		return fmt.Errorf("failed to save migrated config: %v", err)
	}

	fmt.Printf("Successfully migrated config from schema version %d to %d\n", originalVersion, config.SchemaVersion)
	return nil
}

// SaveUIPrefs saves only the UI preferences to the config file
func SaveUIPrefs(prefs UIPreferences) error {
	config, err := Load()
	if err != nil {
		config = getDefaults()
	}
	config.UIPrefs = prefs
	return Save(config)
}

// GetUIPrefs returns the current UI preferences from the runtime config
func GetUIPrefs() UIPreferences {
	// Allow ignoring UI prefs via env for troubleshooting
	if os.Getenv("GHBOARD_IGNORE_UI_PREFS") == "1" {
		return UIPreferences{}
	}
	return GetRuntimeConfig().UIPrefs
}

// Keys lists the settings reachable through Get and Set.
func Keys() []string {
	return []string{
		"owner", "repo", "api_url", "op_token_path", "closed_limit",
		"storage.backend", "storage.path", "storage.redis_addr", "storage.redis_db",
		"rate_limit.warning_threshold", "rate_limit.probe_interval_seconds",
		"check_updates",
	}
}

// Get returns a setting by its dotted key.
func (c Config) Get(key string) (string, error) {
	switch key {
	case "owner":
		return c.Owner, nil
	case "repo":
		return c.Repo, nil
	case "api_url":
		return c.APIURL, nil
	case "op_token_path":
		return c.OPTokenPath, nil
	case "closed_limit":
		return strconv.Itoa(c.ClosedLimit), nil
	case "storage.backend":
		return c.Storage.Backend, nil
	case "storage.path":
		return c.Storage.Path, nil
	case "storage.redis_addr":
		return c.Storage.RedisAddr, nil
	case "storage.redis_db":
		return strconv.Itoa(c.Storage.RedisDB), nil
	case "rate_limit.warning_threshold":
		return strconv.Itoa(c.RateLimit.WarningThreshold), nil
	case "rate_limit.probe_interval_seconds":
		return strconv.Itoa(c.RateLimit.ProbeIntervalSeconds), nil
	case "check_updates":
		return strconv.FormatBool(c.UpdateChecksEnabled()), nil
	}
	return "", fmt.Errorf("unknown key %q (valid: %s)", key, strings.Join(Keys(), ", "))
}

// Set updates a setting by its dotted key.
func (c *Config) Set(key, value string) error {
	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, value)
		}
		return n, nil
	}

	switch key {
	case "owner":
		c.Owner = value
	case "repo":
		if repo, err := board.ParseRepo(value); err == nil {
			c.Owner, c.Repo = repo.Owner, repo.Repo
		} else {
			c.Repo = value
		}
	case "api_url":
		c.APIURL = value
	case "op_token_path":
		c.OPTokenPath = value
	case "storage.backend":
		c.Storage.Backend = strings.ToLower(value)
	case "storage.path":
		c.Storage.Path = value
	case "storage.redis_addr":
		c.Storage.RedisAddr = value
	case "check_updates":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("check_updates must be true or false, got %q", value)
		}
		c.CheckUpdates = &b
	case "closed_limit", "storage.redis_db", "rate_limit.warning_threshold", "rate_limit.probe_interval_seconds":
		n, err := atoi()
		if err != nil {
			return err
		}
		switch key {
		case "closed_limit":
			c.ClosedLimit = n
		case "storage.redis_db":
			c.Storage.RedisDB = n
		case "rate_limit.warning_threshold":
			c.RateLimit.WarningThreshold = n
		default:
			c.RateLimit.ProbeIntervalSeconds = n
		}
	default:
		return fmt.Errorf("unknown key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}
