// Package queue carries index commands from the gateway to the consumer.
package queue

import (
	"context"
	"errors"

	"github.com/kailas-cloud/docgate/internal/domain/command"
)

// DefaultSubjectPrefix prefixes the per-kind topics.
const DefaultSubjectPrefix = "docgate.commands"

// DefaultMaxDeliver bounds redelivery of a failing command.
const DefaultMaxDeliver = 5

// ErrClosed is returned by a queue after Close.
var ErrClosed = errors.New("queue: closed")

// Handler applies one delivered command. A non-nil error asks for redelivery.
type Handler func(ctx context.Context, cmd command.Command) error

// Publisher hands commands to the queue.
type Publisher interface {
	Publish(ctx context.Context, cmd command.Command) error
}

// Subscriber registers a handler for one command kind. Deliveries stop when
// ctx is cancelled or the queue is closed.
type Subscriber interface {
	Subscribe(ctx context.Context, kind command.Kind, h Handler) error
}

// Queue is a durable, at-least-once command queue.
type Queue interface {
	Publisher
	Subscriber
	Ping(ctx context.Context) error
	Close() error
}

// Subject is the topic commands of kind are published to.
func Subject(prefix string, kind command.Kind) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + string(kind)
}
