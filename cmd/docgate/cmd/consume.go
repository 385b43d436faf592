package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docgate/internal/version"
)

func newConsumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Run the indexer worker",
		Long: `Apply queued document commands to the search engine.

Several workers can share one NATS queue; each command is handled by one of them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConsume(cmd.Context())
		},
	}
}

func runConsume(parent context.Context) error {
	cfg, logger, env, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.InProcessQueue() {
		logger.Warn("The queue is private to this process; use serve instead",
			zap.String("queue_driver", cfg.Queue.Driver))
	}

	logger.Info("Starting docgate consumer",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.String("engine_driver", cfg.Engine.Driver),
		zap.String("queue_driver", cfg.Queue.Driver),
	)

	ctx, cancel := signalContext(parent, logger)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start", zap.Error(err))
		return err
	}
	defer a.Close()

	if err := a.consumer.Run(ctx, a.queue); err != nil {
		logger.Error("Consumer stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Consumer stopped gracefully")
	return nil
}
