package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names read by Load.
const (
	envPrefix  = "GINPUT_"
	envConfig  = "GINPUT_CONFIG"
	envDotFile = "GINPUT_ENV_FILE"

	defaultDotFile = ".env"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if GINPUT_CONFIG is set
//  3. env (prefix GINPUT_), after a dotenv file seeds unset variables
func Load(_ context.Context) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// GINPUT_QUEUE_SIZE -> queue_size; underscores are kept to match the
	// flat koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv reads GINPUT_ENV_FILE, or ./.env when present. Variables
// already in the environment win.
func loadDotEnv() error {
	path := os.Getenv(envDotFile)
	if path == "" {
		if _, err := os.Stat(defaultDotFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = defaultDotFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}
	return nil
}

// Watch reloads the configuration whenever the file named by GINPUT_CONFIG
// changes, until ctx is done. onChange receives either the new Config or
// the reload error. Without a config file Watch does nothing.
func Watch(ctx context.Context, onChange func(*Config, error)) error {
	path := os.Getenv(envConfig)
	if path == "" {
		return nil
	}
	fp := file.Provider(path)
	err := fp.Watch(func(_ any, err error) {
		if err != nil {
			onChange(nil, fmt.Errorf("%w: watch %s: %w", ErrLoadConfig, path, err))
			return
		}
		onChange(Load(ctx))
	})
	if err != nil {
		return fmt.Errorf("%w: watch %s: %w", ErrLoadConfig, path, err)
	}
	go func() {
		<-ctx.Done()
		_ = fp.Unwatch()
	}()
	return nil
}
