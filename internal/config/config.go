// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/driftlabs/drift-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete drift configuration.
type Config struct {
	Version string `toml:"version"`

	Backend   BackendConfig   `toml:"backend"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	History   HistoryConfig   `toml:"history"`
	UI        UIConfig        `toml:"ui"`
}

// BackendConfig points at the chat streaming backend.
type BackendConfig struct {
	// BaseURL is the API root, e.g. "https://api.drift.chat/v1".
	BaseURL string `toml:"base_url"`
	// APIKey authenticates requests. Prefer the DRIFT_API_KEY
	// environment variable over storing the key on disk.
	APIKey string `toml:"api_key"`
	// Model is the model identifier sent with each request.
	Model string `toml:"model"`
	// TimeoutSecs bounds non-streaming requests.
	TimeoutSecs int `toml:"timeout_secs"`
	// RequestsPerMinute caps outgoing request rate. 0 disables the cap.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// TelemetryConfig controls failure reporting.
type TelemetryConfig struct {
	Enabled bool `toml:"enabled"`
	// SinkURL receives sanitized error events. Empty disables reporting
	// even when Enabled is true.
	SinkURL string `toml:"sink_url"`
}

// HistoryConfig controls the on-disk session archive.
type HistoryConfig struct {
	Enabled bool `toml:"enabled"`
	// Path is the archive database location. Empty means
	// ~/.drift/history.db.
	Path string `toml:"path"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Theme is "dark", "light", or "auto".
	Theme string `toml:"theme"`
	// RenderMarkdown enables markdown rendering of assistant messages.
	RenderMarkdown bool `toml:"render_markdown"`
	// MouseEnabled enables mouse wheel scrolling.
	MouseEnabled bool `toml:"mouse_enabled"`
	// ExportFormat selects the transcript export codec, "markdown" or
	// "json".
	ExportFormat string `toml:"export_format"`
}

// =============================================================================
// DEFAULTS AND PATHS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Backend: BackendConfig{
			BaseURL:           "https://api.drift.chat/v1",
			Model:             "drift-chat-1",
			TimeoutSecs:       30,
			RequestsPerMinute: 60,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		UI: UIConfig{
			Theme:          "auto",
			RenderMarkdown: true,
			MouseEnabled:   true,
			ExportFormat:   "markdown",
		},
	}
}

// Dir returns the drift configuration directory (~/.drift).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".drift"), nil
}

// Path returns the configuration file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// HistoryPath resolves the archive database location, honoring an
// explicit override in the config.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// EnsureDir creates the configuration directory if missing.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD AND SAVE
// =============================================================================

// Load reads the config file, fills defaults, applies environment
// overrides, and validates. A missing file is not an error; defaults
// plus environment apply.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath is Load with an explicit file location, for tests and
// --config overrides.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		ensureSecurePermissions(path)
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the default location with owner-only
// permissions.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration atomically. Config files hold the
// API key, so they are always 0600.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# drift configuration file")
	fmt.Fprintln(&buf, "# edit with care; drift rewrites this file on settings changes")
	fmt.Fprintln(&buf, "")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// ensureSecurePermissions tightens a config file that holds an API key.
// Best effort; some filesystems cannot represent 0600.
func ensureSecurePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm() != 0600 {
		os.Chmod(path, 0600)
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies DRIFT_* environment variables on top of the
// loaded file. Environment wins.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DRIFT_BASE_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("DRIFT_API_KEY"); v != "" {
		c.Backend.APIKey = v
	}
	if v := os.Getenv("DRIFT_MODEL"); v != "" {
		c.Backend.Model = v
	}
	if v := os.Getenv("DRIFT_TELEMETRY"); v != "" {
		c.Telemetry.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("DRIFT_TELEMETRY_SINK"); v != "" {
		c.Telemetry.SinkURL = v
	}
	if v := os.Getenv("DRIFT_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("DRIFT_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("DRIFT_EXPORT_FORMAT"); v != "" {
		c.UI.ExportFormat = v
	}
}

// fillDefaults backfills zero values left by a partial config file.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = def.Backend.BaseURL
	}
	if c.Backend.Model == "" {
		c.Backend.Model = def.Backend.Model
	}
	if c.Backend.TimeoutSecs <= 0 {
		c.Backend.TimeoutSecs = def.Backend.TimeoutSecs
	}
	if c.Backend.RequestsPerMinute < 0 {
		c.Backend.RequestsPerMinute = def.Backend.RequestsPerMinute
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.UI.ExportFormat == "" {
		c.UI.ExportFormat = def.UI.ExportFormat
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError reports one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for values drift cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ValidationError{Field: "backend.base_url", Message: "must be an absolute URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{Field: "backend.base_url", Message: "scheme must be http or https"}
	}

	if c.Telemetry.SinkURL != "" {
		su, err := url.Parse(c.Telemetry.SinkURL)
		if err != nil || su.Scheme == "" || su.Host == "" {
			return ValidationError{Field: "telemetry.sink_url", Message: "must be an absolute URL"}
		}
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		return ValidationError{Field: "ui.theme", Message: "must be dark, light, or auto"}
	}

	switch c.UI.ExportFormat {
	case "markdown", "json":
	default:
		return ValidationError{Field: "ui.export_format", Message: "must be markdown or json"}
	}

	return nil
}

// TelemetrySink returns the sink URL when reporting is active, empty
// otherwise.
func (c *Config) TelemetrySink() string {
	if !c.Telemetry.Enabled {
		return ""
	}
	return c.Telemetry.SinkURL
}
