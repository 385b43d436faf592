package command

import (
	"context"

	domcmd "github.com/kailas-cloud/docgate/internal/domain/command"
	"github.com/kailas-cloud/docgate/internal/ratelimit"
)

// Admitter decides whether the tenant in ctx may run an operation under policy.
type Admitter interface {
	Allow(ctx context.Context, policy ratelimit.Policy) error
}

// Publisher hands commands to the queue.
type Publisher interface {
	Publish(ctx context.Context, cmd domcmd.Command) error
}

// Indexer applies document mutations to the search engine.
type Indexer interface {
	Upsert(ctx context.Context, tenantID, documentType, id string, doc map[string]any) error
	SoftDelete(ctx context.Context, tenantID, documentType, id string) error
}
