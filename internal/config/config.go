// Package config loads studyboard settings from, in increasing priority,
// built-in defaults, a YAML file, STUDYBOARD_* environment variables and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "STUDYBOARD_"

type Config struct {
	API         API         `koanf:"api"`
	Log         Log         `koanf:"log"`
	Journal     Journal     `koanf:"journal"`
	Credentials Credentials `koanf:"credentials"`
	Timer       Timer       `koanf:"timer"`
	DevServer   DevServer   `koanf:"devserver"`
	Plans       Plans       `koanf:"plans"`
}

type API struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
}

type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// Journal configures the local record of push attempts. An empty path
// disables it.
type Journal struct {
	Path      string        `koanf:"path"`
	Retention time.Duration `koanf:"retention" validate:"gte=0"`
}

type Credentials struct {
	Path string `koanf:"path" validate:"required"`
}

type Timer struct {
	Interval time.Duration `koanf:"interval" validate:"gt=0"`
}

// Plans configures where plan repositories are checked out.
type Plans struct {
	Dir string `koanf:"dir" validate:"required"`
}

type DevServer struct {
	Addr   string   `koanf:"addr" validate:"required,hostname_port"`
	Tokens []string `koanf:"tokens" validate:"min=1,dive,required"`
}

// Default returns the built-in settings.
func Default() Config {
	dir := defaultDir()
	return Config{
		API:         API{BaseURL: "http://localhost:5000", Timeout: 15 * time.Second},
		Log:         Log{Level: "info"},
		Journal:     Journal{Path: filepath.Join(dir, "journal.db"), Retention: 30 * 24 * time.Hour},
		Credentials: Credentials{Path: filepath.Join(dir, "credentials.yaml")},
		Timer:       Timer{Interval: time.Minute},
		DevServer:   DevServer{Addr: "127.0.0.1:5000", Tokens: []string{"dev-token"}},
		Plans:       Plans{Dir: filepath.Join(dir, "plans")},
	}
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".studyboard"
	}
	return filepath.Join(home, ".studyboard")
}

// flagKeys maps command-line flag names to config keys. Flags not listed
// here are not configuration.
var flagKeys = map[string]string{
	"api-url":     "api.base_url",
	"api-timeout": "api.timeout",
	"log-level":   "log.level",
	"journal":     "journal.path",
	"credentials": "credentials.path",
	"addr":        "devserver.addr",
	"timer-every": "timer.interval",
	"dev-token":   "devserver.tokens",
}

// Load builds the configuration. A missing file at path is not an error;
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envKey := func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		cb := func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				return key, sv.GetSlice()
			}
			return key, f.Value.String()
		}
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, cb), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel converts the configured level name.
func (l Log) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
