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

// Environment variables read by Load.
const (
	EnvPrefix  = "FWI_"
	EnvConfig  = "FWI_CONFIG"
	EnvDotenv  = "FWI_ENV_FILE"
	defaultEnv = ".env"
)

// Load builds a Config by layering, from lowest to highest precedence:
//  1. defaults (New)
//  2. a dotenv file: FWI_ENV_FILE, or ./.env when present
//  3. a YAML file if FWI_CONFIG is set
//  4. FWI_ prefixed environment variables
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)
	k := koanf.New(".")

	envPath, explicit := os.LookupEnv(EnvDotenv)
	if !explicit {
		envPath = defaultEnv
	}
	if envPath != "" {
		vars, err := godotenv.Read(envPath)
		switch {
		case err == nil:
			if err := k.Load(dotenvProvider(vars), nil); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, envPath, err)
			}
		case explicit || !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, envPath, err)
		}
	}

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// FWI_QUEUE_SIZE -> queue_size. Keys are flat, so underscores are kept.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
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

func envKey(s string) string {
	return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
}

// dotenvProvider exposes the FWI_ entries of a parsed dotenv file as a
// koanf.Provider.
type dotenvProvider map[string]string

func (p dotenvProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("dotenv provider does not support ReadBytes")
}

func (p dotenvProvider) Read() (map[string]any, error) {
	out := make(map[string]any, len(p))
	for k, v := range p {
		if !strings.HasPrefix(k, EnvPrefix) {
			continue
		}
		out[envKey(k)] = v
	}
	return out, nil
}
