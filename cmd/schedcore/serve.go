package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyp0633/schedcore/internal/config"
	"github.com/cyp0633/schedcore/server"
	"github.com/cyp0633/schedcore/server/auth"
	authmemory "github.com/cyp0633/schedcore/server/auth/memory"
	"github.com/cyp0633/schedcore/server/occurrence"
	"github.com/cyp0633/schedcore/server/recurrence"
	"github.com/cyp0633/schedcore/server/schedule"
	"github.com/cyp0633/schedcore/server/storage/memory"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the events API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Override the listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Listen = serveListen
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	handler, err := buildServer(cfg, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen, "timezone", cfg.Timezone)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// buildServer wires storage, the expansion engine, the service and the HTTP
// front end from cfg.
func buildServer(cfg *config.Config, logger *slog.Logger) (*server.Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	engine := recurrence.NewEngineWithConfig(recurrence.EngineConfig{
		CacheEnabled: cfg.Cache.Enabled,
		CacheConfig: recurrence.CacheConfig{
			TTL:        cfg.Cache.TTL,
			MaxEntries: cfg.Cache.MaxEntries,
		},
	})
	svc := schedule.NewService(memory.New(), occurrence.NewExpander(engine),
		schedule.WithLogger(logger.With("component", "schedule")),
		schedule.WithConfig(schedule.Config{
			DefaultLocation: loc,
			MaxWindow:       cfg.MaxWindow(),
		}),
	)

	authCfg := auth.Config{
		Header:       cfg.OwnerHeader,
		DefaultOwner: cfg.DefaultOwner,
		Logger:       logger.With("component", "auth"),
	}
	if len(cfg.Users) > 0 {
		authCfg.Authenticator = authmemory.New(
			authmemory.WithUsers(cfg.Users),
			authmemory.WithLogger(logger),
		)
	}

	return server.New(svc, server.Options{
		Logger: logger.With("component", "http"),
		Auth:   authCfg,
	})
}
