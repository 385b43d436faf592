// Package jetstream is a NATS JetStream command queue.
//
// Commands go to <prefix>.<kind> on a work-queue stream, with the command
// ID as the message ID so republishing within the duplicate window is a no-op.
// Each kind has one durable queue-group consumer with explicit acks.
package jetstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docgate/internal/domain/command"
	"github.com/kailas-cloud/docgate/internal/queue"
)

var _ queue.Queue = (*Queue)(nil)

const publishTimeout = 5 * time.Second

// Config holds JetStream queue settings.
type Config struct {
	URL           string
	Stream        string
	SubjectPrefix string
	Durable       string
	AckWait       time.Duration
	MaxDeliver    int
	MemoryStorage bool
}

// DefaultConfig returns defaults for a local NATS server.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Stream:        "DOCGATE_COMMANDS",
		SubjectPrefix: queue.DefaultSubjectPrefix,
		Durable:       "docgate-indexer",
		AckWait:       30 * time.Second,
		MaxDeliver:    queue.DefaultMaxDeliver,
	}
}

// Queue is a JetStream-backed queue.Queue.
type Queue struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// New connects to NATS and ensures the command stream exists.
func New(cfg Config, logger *zap.Logger) (*Queue, error) {
	def := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.Stream == "" {
		cfg.Stream = def.Stream
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = def.SubjectPrefix
	}
	if cfg.Durable == "" {
		cfg.Durable = def.Durable
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = def.AckWait
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = def.MaxDeliver
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("docgate"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	q := &Queue{nc: nc, js: js, cfg: cfg, logger: logger}
	if err := q.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return q, nil
}

// ensureStream creates the work-queue stream unless it already exists.
func (q *Queue) ensureStream() error {
	if _, err := q.js.StreamInfo(q.cfg.Stream); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info: %w", err)
	}

	storage := nats.FileStorage
	if q.cfg.MemoryStorage {
		storage = nats.MemoryStorage
	}
	_, err := q.js.AddStream(&nats.StreamConfig{
		Name:      q.cfg.Stream,
		Subjects:  []string{q.cfg.SubjectPrefix + ".>"},
		Retention: nats.WorkQueuePolicy, // kept until acked
		Storage:   storage,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	return nil
}

// Publish writes cmd to its kind's subject and waits for the stream ack.
func (q *Queue) Publish(ctx context.Context, cmd command.Command) error {
	data, err := command.Marshal(cmd)
	if err != nil {
		return err
	}
	subject := queue.Subject(q.cfg.SubjectPrefix, cmd.Kind())
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishTimeout)
		defer cancel()
	}
	if _, err := q.js.Publish(subject, data, nats.MsgId(cmd.Meta().CommandID), nats.Context(ctx)); err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) {
			return queue.ErrClosed
		}
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe binds h to the durable consumer for kind. The subscription is
// drained when ctx is done; the consumer stays on the server.
func (q *Queue) Subscribe(ctx context.Context, kind command.Kind, h queue.Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return queue.ErrClosed
	}

	subject := queue.Subject(q.cfg.SubjectPrefix, kind)
	durable := q.cfg.Durable + "-" + string(kind)
	if err := q.ensureConsumer(subject, durable); err != nil {
		return err
	}

	// Bind keeps Drain from deleting the shared durable.
	sub, err := q.js.QueueSubscribe(
		subject,
		durable,
		func(msg *nats.Msg) { q.handle(ctx, msg, h) },
		nats.Bind(q.cfg.Stream, durable),
		nats.ManualAck(),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	q.logger.Info("subscribed",
		zap.String("subject", sub.Subject),
		zap.String("durable", durable),
	)

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			q.logger.Debug("drain subscription", zap.String("durable", durable), zap.Error(err))
		}
	}()
	return nil
}

// ensureConsumer creates the durable push consumer for subject unless it exists.
func (q *Queue) ensureConsumer(subject, durable string) error {
	if _, err := q.js.ConsumerInfo(q.cfg.Stream, durable); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrConsumerNotFound) {
		return fmt.Errorf("consumer info %s: %w", durable, err)
	}

	_, err := q.js.AddConsumer(q.cfg.Stream, &nats.ConsumerConfig{
		Durable:        durable,
		DeliverSubject: nats.NewInbox(),
		DeliverGroup:   durable,
		DeliverPolicy:  nats.DeliverAllPolicy,
		AckPolicy:      nats.AckExplicitPolicy,
		AckWait:        q.cfg.AckWait,
		MaxDeliver:     q.cfg.MaxDeliver,
		FilterSubject:  subject,
	})
	if err != nil {
		// another worker may have created it first
		if _, infoErr := q.js.ConsumerInfo(q.cfg.Stream, durable); infoErr == nil {
			return nil
		}
		return fmt.Errorf("create consumer %s: %w", durable, err)
	}
	return nil
}

func (q *Queue) handle(ctx context.Context, msg *nats.Msg, h queue.Handler) {
	cmd, err := command.Unmarshal(msg.Data)
	if err != nil {
		q.logger.Error("terminating undecodable command",
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		_ = msg.Term()
		return
	}

	if err := h(ctx, cmd); err != nil {
		attempt := uint64(0)
		if meta, mErr := msg.Metadata(); mErr == nil {
			attempt = meta.NumDelivered
		}
		q.logger.Warn("command delivery failed",
			zap.String("command_id", cmd.Meta().CommandID),
			zap.Uint64("attempt", attempt),
			zap.Error(err),
		)
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

// Ping reports whether the NATS connection is up.
func (q *Queue) Ping(_ context.Context) error {
	if q.nc.IsClosed() {
		return queue.ErrClosed
	}
	if !q.nc.IsConnected() {
		return fmt.Errorf("nats: %s", q.nc.Status())
	}
	return nil
}

// Close closes the connection. Durable consumers stay on the server, so
// unacked commands are redelivered to the next subscriber.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	q.nc.Close()
	return nil
}
