package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Modern-Society-Labs/lcore-node/internal/config"
	"github.com/Modern-Society-Labs/lcore-node/internal/dispatch"
	"github.com/Modern-Society-Labs/lcore-node/internal/health"
	"github.com/Modern-Society-Labs/lcore-node/internal/rollup"
	"github.com/Modern-Society-Labs/lcore-node/internal/version"
	"github.com/Modern-Society-Labs/lcore-node/pkg/audit"
	"github.com/Modern-Society-Labs/lcore-node/pkg/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the processing loop against the coordinator",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s lcore-node %s\n", green("starting"), version.String())

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.DBPath)

	recorder := audit.NewRecorder(logger, audit.NewSlogEmitter(logger))
	dispatcher := dispatch.New(db, cfg.Policy(), recorder, logger)
	loop := rollup.NewLoop(rollup.NewClient(cfg.CoordinatorURL), dispatcher, rollup.DefaultRetryConfig(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Liveness listener runs beside the loop; read-only by construction.
	var healthServer *http.Server
	if cfg.HealthAddr != "" {
		mux := http.NewServeMux()
		health.NewServer(db, logger).RegisterRoutes(mux)
		healthServer = &http.Server{Addr: cfg.HealthAddr, Handler: mux}
		go func() {
			logger.Info("liveness listener started", "addr", cfg.HealthAddr)
			if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("liveness listener failed", "error", err)
			}
		}()
	}

	logger.Info("processing loop started",
		"coordinator_url", cfg.CoordinatorURL,
		"auth_policy", cfg.Policy().String(),
	)

	err = loop.Run(ctx)

	if healthServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		healthServer.Shutdown(shutdownCtx)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		// Coordinator transport failure past the retry budget: the loop
		// cannot make progress, so the process terminates.
		return fmt.Errorf("processing loop failed: %w", err)
	}

	logger.Info("lcore-node stopped")
	return nil
}

func logLevel(s string) slog.Level {
	switch s {
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
