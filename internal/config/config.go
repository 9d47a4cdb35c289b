// Package config loads the tool's configuration: yaml file, environment,
// and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	flag "github.com/spf13/pflag"
)

// envPrefix namespaces the environment overrides, e.g.
// DECKSYNC_REMOTE__API_KEY maps to remote.api_key.
const envPrefix = "DECKSYNC_"

// Config is the full runtime configuration.
type Config struct {
	DB struct {
		Path string `koanf:"path" validate:"required"`
	} `koanf:"db"`
	Remote struct {
		URL    string `koanf:"url" validate:"omitempty,url"`
		APIKey string `koanf:"api_key"`
	} `koanf:"remote"`
	Sync struct {
		ResetDelay time.Duration `koanf:"reset_delay"`
	} `koanf:"sync"`
	Listen struct {
		Addr string `koanf:"addr" validate:"required"`
	} `koanf:"listen"`
	Import struct {
		CacheDir string `koanf:"cache_dir"`
	} `koanf:"import"`
}

// RemoteEnabled reports whether a remote store is configured. Without one
// the tool runs in local-only mode.
func (c *Config) RemoteEnabled() bool {
	return c.Remote.URL != ""
}

func defaults(k *koanf.Koanf) {
	k.Set("db.path", "decksync.db")
	k.Set("sync.reset_delay", 3*time.Second)
	k.Set("listen.addr", ":8787")
	k.Set("import.cache_dir", "repos")
}

// Load builds the configuration. configFile may be empty (no file layer);
// a named file that does not exist is an error. flags may be nil.
func Load(configFile string, flags *flag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	defaults(k)

	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configFile, err)
		}
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
