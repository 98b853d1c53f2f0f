// Package config loads the service configuration from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/mg52/autocomplete/internal/engine"
	"github.com/mg52/autocomplete/internal/pkg/wordfile"
)

// DataDirEnv overrides data_dir when set.
const DataDirEnv = "INDEX_DATA_DIR"

var ErrInvalidConfig = errors.New("invalid config")

type Category struct {
	Name         string `toml:"name"`
	DefaultLimit int    `toml:"default_limit"`
	SeedFile     string `toml:"seed_file"` // JSON array; empty uses the built-in seed
}

type Config struct {
	DataDir        string     `toml:"data_dir"`
	ListenAddr     string     `toml:"listen_addr"`
	LogLevel       string     `toml:"log_level"`
	CacheSize      int        `toml:"cache_size"`
	MaxWordLength  int        `toml:"max_word_length"`
	MaxLimit       int        `toml:"max_limit"`
	MaxBodyBytes   int64      `toml:"max_body_bytes"`
	SaveOnShutdown bool       `toml:"save_on_shutdown"`
	Categories     []Category `toml:"categories"`
}

func Default() Config {
	return Config{
		DataDir:        "./data/autocomplete",
		ListenAddr:     ":8080",
		LogLevel:       "info",
		CacheSize:      512,
		MaxWordLength:  256,
		MaxLimit:       100,
		MaxBodyBytes:   8 << 20,
		SaveOnShutdown: true,
		Categories: []Category{
			{Name: "products", DefaultLimit: 25},
			{Name: "brands", DefaultLimit: 15},
			{Name: "flavors", DefaultLimit: 15},
		},
	}
}

// Load reads path on top of Default. An empty path or a missing file yields
// the defaults. DataDirEnv is applied last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, err
		default:
			// [[categories]] tables append to the slice; start from empty
			defaults := cfg.Categories
			cfg.Categories = nil
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
			if len(cfg.Categories) == 0 {
				cfg.Categories = defaults
			}
		}
	}
	if dir := os.Getenv(DataDirEnv); dir != "" {
		cfg.DataDir = dir
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is empty", ErrInvalidConfig)
	}
	if c.CacheSize < 0 || c.MaxWordLength < 0 || c.MaxLimit < 0 || c.MaxBodyBytes < 0 {
		return fmt.Errorf("%w: sizes must not be negative", ErrInvalidConfig)
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: no categories", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("%w: category without name", ErrInvalidConfig)
		}
		if seen[cat.Name] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidConfig, cat.Name)
		}
		if cat.DefaultLimit < 0 {
			return fmt.Errorf("%w: negative default_limit for %q", ErrInvalidConfig, cat.Name)
		}
		seen[cat.Name] = true
	}
	return nil
}

func (c Config) CategoryNames() []string {
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	return names
}

// DefaultLimits maps each category to its default search limit.
func (c Config) DefaultLimits() map[string]int {
	limits := make(map[string]int, len(c.Categories))
	for _, cat := range c.Categories {
		limits[cat.Name] = cat.DefaultLimit
	}
	return limits
}

// Seed resolves the first-start word list of every category: the seed file
// when one is configured, the built-in list otherwise.
func (c Config) Seed() (map[string][]string, error) {
	builtin := engine.DefaultSeed()
	seed := make(map[string][]string, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.SeedFile == "" {
			seed[cat.Name] = builtin[cat.Name]
			continue
		}
		words, found, err := wordfile.Load(cat.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("seed for %s: %w", cat.Name, err)
		}
		if !found {
			return nil, fmt.Errorf("seed for %s: %s does not exist", cat.Name, cat.SeedFile)
		}
		seed[cat.Name] = words
	}
	return seed, nil
}
