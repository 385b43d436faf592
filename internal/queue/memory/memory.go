// Package memory is an in-process queue for tests and single-binary deployments.
//
// Commands are serialised on publish exactly as they would be on the wire.
// Subscribers of the same kind compete for deliveries. A failing handler is
// retried up to MaxDeliver times before the command is dropped.
package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docgate/internal/domain/command"
	"github.com/kailas-cloud/docgate/internal/queue"
)

var _ queue.Queue = (*Queue)(nil)

// Config configures the in-memory queue.
type Config struct {
	Buffer     int           // per-kind channel capacity
	MaxDeliver int           // attempts per command
	Backoff    time.Duration // pause between attempts
}

// Queue is an in-memory queue.Queue.
type Queue struct {
	topics     map[command.Kind]chan []byte
	maxDeliver int
	backoff    time.Duration
	logger     *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// New creates an in-memory queue.
func New(cfg Config, logger *zap.Logger) *Queue {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = queue.DefaultMaxDeliver
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	topics := make(map[command.Kind]chan []byte, len(command.Kinds))
	for _, k := range command.Kinds {
		topics[k] = make(chan []byte, cfg.Buffer)
	}
	return &Queue{
		topics:     topics,
		maxDeliver: cfg.MaxDeliver,
		backoff:    cfg.Backoff,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Publish enqueues cmd, blocking while the topic is full.
func (q *Queue) Publish(ctx context.Context, cmd command.Command) error {
	data, err := command.Marshal(cmd)
	if err != nil {
		return err
	}
	topic, ok := q.topics[cmd.Kind()]
	if !ok {
		return command.ErrUnknownKind
	}

	select {
	case <-q.done:
		return queue.ErrClosed
	default:
	}

	select {
	case topic <- data:
		return nil
	case <-q.done:
		return queue.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe starts a worker delivering kind commands to h.
func (q *Queue) Subscribe(ctx context.Context, kind command.Kind, h queue.Handler) error {
	topic, ok := q.topics[kind]
	if !ok {
		return command.ErrUnknownKind
	}
	select {
	case <-q.done:
		return queue.ErrClosed
	default:
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.done:
				return
			case data := <-topic:
				q.deliver(ctx, data, h)
			}
		}
	}()
	return nil
}

func (q *Queue) deliver(ctx context.Context, data []byte, h queue.Handler) {
	cmd, err := command.Unmarshal(data)
	if err != nil {
		q.logger.Error("dropping undecodable command", zap.Error(err))
		return
	}

	for attempt := 1; attempt <= q.maxDeliver; attempt++ {
		err = h(ctx, cmd)
		if err == nil {
			return
		}
		q.logger.Warn("command delivery failed",
			zap.String("command_id", cmd.Meta().CommandID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			return
		}
		if q.backoff > 0 && attempt < q.maxDeliver {
			select {
			case <-time.After(q.backoff):
			case <-ctx.Done():
				return
			}
		}
	}
	q.logger.Error("command dropped after max deliveries",
		zap.String("command_id", cmd.Meta().CommandID),
		zap.String("kind", string(cmd.Kind())),
		zap.Int("max_deliver", q.maxDeliver),
		zap.Error(err),
	)
}

// Ping reports whether the queue is open.
func (q *Queue) Ping(_ context.Context) error {
	select {
	case <-q.done:
		return queue.ErrClosed
	default:
		return nil
	}
}

// Close stops all workers. Undelivered commands are discarded.
func (q *Queue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	q.wg.Wait()
	return nil
}
