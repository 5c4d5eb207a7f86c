package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"groovecal/internal/cache"
	appLog "groovecal/internal/log"
	"groovecal/internal/warmer"
	"groovecal/internal/web"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API and feed server",
	Long:  "Start the HTTP API, the calendar feed endpoint and the background schedule warmer.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides config if set)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Listen = serveListen
	}

	appLog.Info("groovecal starting",
		"version", version,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"horizon_days", cfg.HorizonDays,
		"refresh", cfg.RefreshCron,
		"database", cfg.Database.Driver,
		"cache", cfg.Cache.Backend,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			appLog.Error("close database failed", err)
		}
	}()

	c := cache.New(cfg.Cache)
	defer func() { _ = c.Close() }()

	svc := newFeedService(st, c)

	w, err := warmer.New(cfg.RefreshCron, svc, warmTimeout)
	if err != nil {
		return fmt.Errorf("start warmer: %w", err)
	}
	w.Start(ctx)
	defer w.Stop()

	if err := web.NewServer(cfg, st, svc).Serve(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	appLog.Info("groovecal stopped")
	return nil
}

// warmTimeout bounds one pre-generation run over all users.
const warmTimeout = 5 * time.Minute
