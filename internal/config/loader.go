package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. SEGSCORE_ADDR.
const EnvPrefix = "SEGSCORE_"

// EnvConfigFile names the optional YAML config file.
const EnvConfigFile = EnvPrefix + "CONFIG"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if SEGSCORE_CONFIG is set
//  3. env (prefix SEGSCORE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SEGSCORE_MAX_UPLOAD_BYTES -> max_upload_bytes (flat keys, underscores kept).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants the service relies on at startup.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.ReferencePath) == "":
		return fmt.Errorf("%w: reference_path must not be empty", ErrInvalidConfig)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	case c.NameMaxLen <= 0:
		return fmt.Errorf("%w: name_max_len must be positive", ErrInvalidConfig)
	case c.PodiumSize < 0:
		return fmt.Errorf("%w: podium_size must not be negative", ErrInvalidConfig)
	}

	switch c.StoreBackend {
	case BackendJSON:
		if strings.TrimSpace(c.ResultsPath) == "" {
			return fmt.Errorf("%w: results_path must not be empty", ErrInvalidConfig)
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}

	switch c.ReferenceFormat {
	case FormatNPZ, FormatPNG:
	default:
		return fmt.Errorf("%w: unknown reference_format %q", ErrInvalidConfig, c.ReferenceFormat)
	}

	switch c.DiceMode {
	case ModeMulticlass, ModeBinary:
	default:
		return fmt.Errorf("%w: unknown dice_mode %q", ErrInvalidConfig, c.DiceMode)
	}
	return nil
}
