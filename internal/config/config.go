package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. Secrets may also come from ACTCAL_* environment variables,
// see ApplyEnv.

const (
	defaultListen         = "127.0.0.1:8080"
	defaultTimezone       = "UTC"
	defaultRefresh        = "*/15 * * * *"
	defaultLogLevel       = "info"
	defaultBackendTimeout = 15
	defaultSyncedCategory = "Academic Calendar"
	defaultGraphBaseURL   = "https://graph.microsoft.com/v1.0"
	defaultGraphPageSize  = 1000
	defaultICSName        = "Activities"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// BackendConfig points at the first-party activity API.
type BackendConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	// TimeoutSeconds bounds each request.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// GraphConfig describes the external group calendar and the application
// registration used to reach it.
type GraphConfig struct {
	Enabled      bool     `yaml:"enabled" json:"enabled"`
	BaseURL      string   `yaml:"base_url" json:"base_url"`
	TenantID     string   `yaml:"tenant_id" json:"tenant_id"`
	ClientID     string   `yaml:"client_id" json:"client_id"`
	ClientSecret string   `yaml:"client_secret" json:"-"`
	TokenURL     string   `yaml:"token_url,omitempty" json:"token_url,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty" json:"scopes,omitempty"`
	// CalendarGroupID is the group whose calendar holds synced events.
	CalendarGroupID string `yaml:"calendar_group_id" json:"calendar_group_id"`
	// User is reported as the signed-in identity; empty means /me.
	User     string `yaml:"user,omitempty" json:"user,omitempty"`
	PageSize int    `yaml:"page_size" json:"page_size"`
}

// ICSConfig controls the published iCalendar feed.
type ICSConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	ProductID string `yaml:"product_id,omitempty" json:"product_id,omitempty"`
	Name      string `yaml:"name" json:"name"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for day grouping and all-day dates
	// (e.g. "America/Chicago").
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic reloads.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Backend BackendConfig `yaml:"backend" json:"backend"`
	Graph   GraphConfig   `yaml:"graph" json:"graph"`

	// SyncedCategory names the category whose events live in the external
	// calendar.
	SyncedCategory string `yaml:"synced_category" json:"synced_category"`

	ICS ICSConfig `yaml:"ics" json:"ics"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		RefreshCron: defaultRefresh,
		LogLevel:    defaultLogLevel,
		BasicAuth:   nil,
		Backend: BackendConfig{
			BaseURL:        "http://127.0.0.1:5000/api",
			TimeoutSeconds: defaultBackendTimeout,
		},
		Graph: GraphConfig{
			Enabled:  false,
			BaseURL:  defaultGraphBaseURL,
			PageSize: defaultGraphPageSize,
		},
		SyncedCategory: defaultSyncedCategory,
		ICS: ICSConfig{
			Enabled: true,
			Name:    defaultICSName,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		// Unknown value; fall back to the default rather than never refreshing.
		c.RefreshCron = defaultRefresh
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = defaultLogLevel
	}

	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = defaultBackendTimeout
	}

	if c.Graph.BaseURL == "" {
		c.Graph.BaseURL = defaultGraphBaseURL
	}
	if c.Graph.PageSize <= 0 {
		c.Graph.PageSize = defaultGraphPageSize
	}

	if c.SyncedCategory == "" {
		c.SyncedCategory = defaultSyncedCategory
	}
	if c.ICS.Name == "" {
		c.ICS.Name = defaultICSName
	}
}

// Location returns the configured display zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BackendTimeout returns the per-request timeout for the backend client.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// ApplyEnv overrides URLs and secrets from ACTCAL_* variables. getenv is
// usually os.Getenv. Setting ACTCAL_GRAPH_CLIENT_ID enables the external
// calendar.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) bool {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
			return true
		}
		return false
	}

	set(&c.Listen, "ACTCAL_LISTEN")
	set(&c.LogLevel, "ACTCAL_LOG_LEVEL")
	set(&c.Backend.BaseURL, "ACTCAL_BACKEND_URL")
	if set(&c.Graph.ClientID, "ACTCAL_GRAPH_CLIENT_ID") {
		c.Graph.Enabled = true
	}
	set(&c.Graph.ClientSecret, "ACTCAL_GRAPH_CLIENT_SECRET")
	set(&c.Graph.TenantID, "ACTCAL_GRAPH_TENANT_ID")
	set(&c.Graph.CalendarGroupID, "ACTCAL_GRAPH_GROUP_ID")

	c.Normalize()
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".actcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Secrets live in this file.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
