package command

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domcmd "github.com/kailas-cloud/docgate/internal/domain/command"
	"github.com/kailas-cloud/docgate/internal/metrics"
	"github.com/kailas-cloud/docgate/internal/queue"
)

// Consumer applies queued commands to the search index.
//
// Handle does not retry. A returned error goes back to the queue, which
// decides about redelivery.
type Consumer struct {
	indexer Indexer
	logger  *zap.Logger
}

// NewConsumer creates a consumer applying commands through indexer.
func NewConsumer(indexer Indexer, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{indexer: indexer, logger: logger}
}

// Handle applies one command.
func (c *Consumer) Handle(ctx context.Context, cmd domcmd.Command) error {
	start := time.Now()
	h := cmd.Meta()

	var err error
	switch cmd := cmd.(type) {
	case domcmd.Create:
		err = c.indexer.Upsert(ctx, h.TenantID, h.DocumentType, h.DocumentID, cmd.IndexDocument())
	case domcmd.Update:
		err = c.indexer.Upsert(ctx, h.TenantID, h.DocumentType, h.DocumentID, cmd.IndexDocument())
	case domcmd.Delete:
		err = c.indexer.SoftDelete(ctx, h.TenantID, h.DocumentType, h.DocumentID)
	default:
		err = fmt.Errorf("%w: %T", domcmd.ErrUnknownKind, cmd)
	}

	kind := string(cmd.Kind())
	metrics.CommandApplyDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CommandsAppliedTotal.WithLabelValues(kind, "error").Inc()
		c.logger.Error("apply command failed",
			zap.String("kind", kind),
			zap.String("command_id", h.CommandID),
			zap.String("tenant_id", h.TenantID),
			zap.String("document_id", h.DocumentID),
			zap.Error(err),
		)
		return &ApplyError{Kind: cmd.Kind(), CommandID: h.CommandID, Err: err}
	}

	metrics.CommandsAppliedTotal.WithLabelValues(kind, "ok").Inc()
	c.logger.Debug("command applied",
		zap.String("kind", kind),
		zap.String("command_id", h.CommandID),
		zap.String("document_id", h.DocumentID),
	)
	return nil
}

// Run subscribes Handle to every command kind and blocks until ctx is done.
func (c *Consumer) Run(ctx context.Context, sub queue.Subscriber) error {
	var g errgroup.Group
	for _, kind := range domcmd.Kinds {
		g.Go(func() error {
			if err := sub.Subscribe(ctx, kind, c.Handle); err != nil {
				return fmt.Errorf("subscribe %s: %w", kind, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.logger.Info("consumer started", zap.Int("topics", len(domcmd.Kinds)))
	<-ctx.Done()
	c.logger.Info("consumer stopped")
	return nil
}
