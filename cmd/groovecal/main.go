package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"groovecal/internal/cache"
	"groovecal/internal/config"
	"groovecal/internal/feed"
	appLog "groovecal/internal/log"
	"groovecal/internal/store"
)

const version = "0.1.0"

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "groovecal",
	Short:         "Groove habit scheduler and calendar feed server",
	Long:          "groovecal places recurring habits into each user's free time and publishes the result as an iCalendar feed.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and sets up logging (called by commands
// that need it).
func loadConfig() error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	appLog.Setup(cfg.LogLevel, cfg.LogPretty)
	return nil
}

// openStore opens the configured database, creating the directory of a
// sqlite file on first use.
func openStore() (*store.Gorm, error) {
	db := cfg.Database
	if db.Driver == store.DriverSQLite && db.DSN != ":memory:" && !strings.HasPrefix(db.DSN, "file:") {
		if dir := filepath.Dir(db.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}
	st, err := store.Open(db.Driver, db.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

func newFeedService(st store.Store, c cache.Cache) *feed.Service {
	return feed.NewService(st, c, feed.Options{
		HorizonDays: cfg.HorizonDays,
		Fallback:    cfg.Location(),
		CacheTTL:    cfg.Cache.TTL,
	})
}
