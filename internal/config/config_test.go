// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must be valid: %v", err)
	}
	if cfg.Backend.TimeoutSecs <= 0 {
		t.Error("default timeout must be positive")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if cfg.Backend.BaseURL != Default().Backend.BaseURL {
		t.Error("missing file should yield defaults")
	}
}

func TestLoadPartialFileBackfillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[backend]
base_url = "https://example.test/v1"

[ui]
theme = "dark"
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Backend.BaseURL != "https://example.test/v1" {
		t.Errorf("base_url = %q", cfg.Backend.BaseURL)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("theme = %q", cfg.UI.Theme)
	}
	if cfg.Backend.Model == "" || cfg.Backend.TimeoutSecs <= 0 {
		t.Error("omitted fields should fall back to defaults")
	}
}

func TestEnvOverridesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[backend]\nmodel = \"from-file\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DRIFT_MODEL", "from-env")
	t.Setenv("DRIFT_API_KEY", "sk-env")
	t.Setenv("DRIFT_TELEMETRY", "true")
	t.Setenv("DRIFT_TELEMETRY_SINK", "https://sink.example.test/events")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Backend.Model != "from-env" {
		t.Errorf("model = %q, env must win over file", cfg.Backend.Model)
	}
	if cfg.Backend.APIKey != "sk-env" {
		t.Error("api key override lost")
	}
	if cfg.TelemetrySink() != "https://sink.example.test/events" {
		t.Errorf("TelemetrySink = %q", cfg.TelemetrySink())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		tweak func(*Config)
		field string
	}{
		{"relative base url", func(c *Config) { c.Backend.BaseURL = "not-a-url" }, "backend.base_url"},
		{"bad scheme", func(c *Config) { c.Backend.BaseURL = "ftp://example.test" }, "backend.base_url"},
		{"bad sink", func(c *Config) { c.Telemetry.SinkURL = "::bad::" }, "telemetry.sink_url"},
		{"unknown theme", func(c *Config) { c.UI.Theme = "sepia" }, "ui.theme"},
		{"unknown export format", func(c *Config) { c.UI.ExportFormat = "pdf" }, "ui.export_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.tweak(cfg)
			err := cfg.Validate()
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %s, want %s", verr.Field, tt.field)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Backend.Model = "drift-chat-2"
	cfg.History.Enabled = false
	if err := SaveToPath(cfg, path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file mode = %o, want 0600", perm)
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "# drift configuration file") {
		t.Error("saved file missing header comment")
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Backend.Model != "drift-chat-2" {
		t.Errorf("model = %q after round trip", loaded.Backend.Model)
	}
	if loaded.History.Enabled {
		t.Error("history flag lost in round trip")
	}
}

func TestTelemetrySinkDisabled(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.Enabled = false
	cfg.Telemetry.SinkURL = "https://sink.example.test"
	if cfg.TelemetrySink() != "" {
		t.Error("disabled telemetry must yield an empty sink")
	}
}
