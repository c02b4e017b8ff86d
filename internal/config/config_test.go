package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "studyboard.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func testFlags(d Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("api-url", d.API.BaseURL, "")
	fs.Duration("api-timeout", d.API.Timeout, "")
	fs.String("log-level", d.Log.Level, "")
	fs.Bool("all", false, "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	d := Default()
	if cfg.API.BaseURL != d.API.BaseURL || cfg.Timer.Interval != time.Minute || cfg.Log.Level != "info" {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, `
api:
  base_url: http://file.example:8080
  timeout: 5s
log:
  level: warn
timer:
  interval: 30s
`)

	t.Run("file overrides defaults", func(t *testing.T) {
		cfg, err := Load(path, nil)
		if err != nil {
			t.Fatalf("Load() returned an unexpected error: %v", err)
		}
		if cfg.API.BaseURL != "http://file.example:8080" || cfg.API.Timeout != 5*time.Second || cfg.Timer.Interval != 30*time.Second {
			t.Errorf("Expected file values, got %+v", cfg)
		}
		if cfg.Credentials.Path != Default().Credentials.Path {
			t.Errorf("Expected keys absent from the file to keep their default, got %q", cfg.Credentials.Path)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("STUDYBOARD_API__BASE_URL", "http://env.example")
		cfg, err := Load(path, nil)
		if err != nil {
			t.Fatalf("Load() returned an unexpected error: %v", err)
		}
		if cfg.API.BaseURL != "http://env.example" {
			t.Errorf("Expected the environment value, got %q", cfg.API.BaseURL)
		}
	})

	t.Run("unchanged flags do not override file", func(t *testing.T) {
		cfg, err := Load(path, testFlags(Default()))
		if err != nil {
			t.Fatalf("Load() returned an unexpected error: %v", err)
		}
		if cfg.Log.Level != "warn" {
			t.Errorf("Expected the file level, got %q", cfg.Log.Level)
		}
	})

	t.Run("changed flags override everything", func(t *testing.T) {
		t.Setenv("STUDYBOARD_LOG__LEVEL", "error")
		fs := testFlags(Default())
		if err := fs.Parse([]string{"--log-level=debug", "--api-timeout=2s", "--all"}); err != nil {
			t.Fatalf("parse flags: %v", err)
		}
		cfg, err := Load(path, fs)
		if err != nil {
			t.Fatalf("Load() returned an unexpected error: %v", err)
		}
		if cfg.Log.Level != "debug" || cfg.API.Timeout != 2*time.Second {
			t.Errorf("Expected flag values, got %+v", cfg)
		}
		if cfg.Log.SlogLevel() != slog.LevelDebug {
			t.Errorf("Expected debug slog level, got %v", cfg.Log.SlogLevel())
		}
	})
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"Bad URL", func(c *Config) { c.API.BaseURL = "not a url" }, "BaseURL"},
		{"Bad level", func(c *Config) { c.Log.Level = "loud" }, "Level"},
		{"Zero interval", func(c *Config) { c.Timer.Interval = 0 }, "Interval"},
		{"No dev tokens", func(c *Config) { c.DevServer.Tokens = nil }, "Tokens"},
		{"Bad addr", func(c *Config) { c.DevServer.Addr = "nowhere" }, "Addr"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("Expected the error to name %s, got %v", tc.field, err)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Expected defaults to be valid, got %v", err)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := writeFile(t, "log:\n  level: shouty\n")
	if _, err := Load(path, nil); err == nil {
		t.Error("Expected an invalid level to be rejected")
	}
}
