package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"subalign/internal/align"
	"subalign/internal/embedding"
	"subalign/internal/feedback"
	"subalign/internal/logging"
	"subalign/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the alignment HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			serverCfg := cfg.Server
			if b := strings.TrimSpace(bind); b != "" {
				serverCfg.Bind = b
			}

			logger, err := ctx.logger(false)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another subalign server is already running for %s", cfg.Paths.DataDir)
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					logger.Warn("failed to release server lock", logging.Error(err))
				}
			}()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			provider, err := embedding.New(runCtx, cfg, logger)
			if err != nil {
				return fmt.Errorf("embedding provider: %w", err)
			}
			defer func() { _ = embedding.Close(provider) }()

			sink, err := feedback.New(runCtx, cfg, logger)
			if err != nil {
				return fmt.Errorf("feedback sink: %w", err)
			}
			defer func() { _ = sink.Close() }()
			dispatcher := feedback.NewDispatcher(sink, cfg.Feedback.BufferSize, logger)

			engine := align.NewEngine(provider, align.OptionsFromConfig(cfg), logger)
			srv := server.New(serverCfg, server.Info{
				Version:           version,
				EmbeddingProvider: provider.Name(),
				FeedbackBackend:   cfg.Feedback.Backend,
				TemporalFallback:  cfg.Alignment.AllowTemporalOnly,
			}, engine, dispatcher, logger)

			logger.Info("subalign server starting",
				logging.String("bind", serverCfg.Bind),
				logging.String("config", ctx.configPath),
				logging.String("lock", cfg.LockPath()),
			)
			runErr := srv.Run(runCtx)

			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := dispatcher.Close(drainCtx); err != nil {
				logger.Warn("feedback queue not fully drained", logging.Error(err))
			}
			if stats := dispatcher.Stats(); stats.Recorded+stats.Failed+stats.Dropped > 0 {
				logger.Info("feedback totals",
					logging.Int("recorded", stats.Recorded),
					logging.Int("failed", stats.Failed),
					logging.Int("dropped", stats.Dropped),
				)
			}
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind (host:port)")
	return cmd
}
