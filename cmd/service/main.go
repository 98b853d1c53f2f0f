package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mg52/autocomplete/internal/config"
	"github.com/mg52/autocomplete/internal/engine"
	"github.com/mg52/autocomplete/internal/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "autocomplete",
	Short: "Prefix search over per-category word lists",
	Long: `Serves case-insensitive prefix suggestions for a fixed set of
categories. Each category is kept in memory and persisted as a JSON
array under the data directory.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "autocomplete.toml", "path to the TOML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.Config, w io.Writer) (logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logger.NewDefaultLogger(level, w), nil
}

// openIndex loads config and opens the index it describes. A readOnly index
// never creates or writes word files, not even the first-start seed.
func openIndex(w io.Writer, readOnly bool) (*engine.Index, config.Config, logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, cfg, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := newLogger(cfg, w)
	if err != nil {
		return nil, cfg, nil, err
	}
	seed, err := cfg.Seed()
	if err != nil {
		return nil, cfg, nil, err
	}
	ix, err := engine.Open(engine.Options{
		DataDir:       cfg.DataDir,
		Categories:    cfg.CategoryNames(),
		Seed:          seed,
		CacheSize:     cfg.CacheSize,
		MaxWordLength: cfg.MaxWordLength,
		SaveOnClose:   cfg.SaveOnShutdown,
		ReadOnly:      readOnly,
		Logger:        log,
	})
	if err != nil {
		return nil, cfg, nil, fmt.Errorf("open index: %w", err)
	}
	return ix, cfg, log, nil
}
