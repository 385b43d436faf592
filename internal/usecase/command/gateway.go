package command

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docgate/internal/domain"
	domcmd "github.com/kailas-cloud/docgate/internal/domain/command"
	"github.com/kailas-cloud/docgate/internal/metrics"
	"github.com/kailas-cloud/docgate/internal/ratelimit"
	"github.com/kailas-cloud/docgate/internal/tenant"
)

// StatusAccepted is the status of every acknowledged command.
const StatusAccepted = "ACCEPTED"

// Ack confirms that a command was queued. It says nothing about whether the
// command has been applied yet.
type Ack struct {
	CommandID  string `json:"commandId"`
	DocumentID string `json:"documentId"`
	TenantID   string `json:"tenantId"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// UpdateInput is the replacement content of an updated document.
type UpdateInput struct {
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Category string            `json:"category"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Gateway turns document mutations into queued commands.
type Gateway struct {
	gate      Admitter
	publisher Publisher
	ingestion ratelimit.Policy
	deletion  ratelimit.Policy
	now       func() time.Time
	logger    *zap.Logger
}

// NewGateway creates a gateway. gate can be nil to admit everything.
func NewGateway(gate Admitter, publisher Publisher, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		gate:      gate,
		publisher: publisher,
		ingestion: ratelimit.Ingestion,
		deletion:  ratelimit.Deletion,
		now:       time.Now,
		logger:    logger,
	}
}

// WithPolicies replaces the ingestion and deletion policies.
func (g *Gateway) WithPolicies(ingestion, deletion ratelimit.Policy) *Gateway {
	g.ingestion = ingestion
	g.deletion = deletion
	return g
}

// WithClock replaces the clock used to stamp commands.
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	if now != nil {
		g.now = now
	}
	return g
}

// Create queues indexing of doc under (tenant, documentType, id).
func (g *Gateway) Create(ctx context.Context, documentType, id string, doc map[string]any) (Ack, error) {
	if documentType == "" {
		documentType = domcmd.DefaultDocumentType
	}
	tenantID, err := validate(ctx, documentType, id)
	if err != nil {
		return Ack{}, err
	}
	if err := g.admit(ctx, g.ingestion); err != nil {
		return Ack{}, err
	}

	cmd := domcmd.Create{
		Header:   domcmd.NewHeader(tenantID, documentType, id, g.now()),
		Document: doc,
	}
	return g.publish(ctx, cmd, "Document creation request accepted")
}

// Update queues replacement of document id. The document type is the
// category, or the default type when no category is given.
func (g *Gateway) Update(ctx context.Context, id string, in UpdateInput) (Ack, error) {
	documentType := in.Category
	if documentType == "" {
		documentType = domcmd.DefaultDocumentType
	}
	tenantID, err := validate(ctx, documentType, id)
	if err != nil {
		return Ack{}, err
	}
	if err := g.admit(ctx, g.ingestion); err != nil {
		return Ack{}, err
	}

	cmd := domcmd.Update{
		Header:   domcmd.NewHeader(tenantID, documentType, id, g.now()),
		Title:    in.Title,
		Content:  in.Content,
		Category: in.Category,
		Metadata: in.Metadata,
	}
	return g.publish(ctx, cmd, "Document update request accepted")
}

// Delete queues a soft delete of (tenant, documentType, id).
func (g *Gateway) Delete(ctx context.Context, documentType, id string) (Ack, error) {
	if documentType == "" {
		documentType = domcmd.DefaultDocumentType
	}
	tenantID, err := validate(ctx, documentType, id)
	if err != nil {
		return Ack{}, err
	}
	if err := g.admit(ctx, g.deletion); err != nil {
		return Ack{}, err
	}

	cmd := domcmd.Delete{Header: domcmd.NewHeader(tenantID, documentType, id, g.now())}
	return g.publish(ctx, cmd, "Document deletion request accepted")
}

func validate(ctx context.Context, documentType, id string) (string, error) {
	tenantID := tenant.FromContext(ctx)
	if err := domain.ValidateName("tenantId", tenantID); err != nil {
		return "", err
	}
	if err := domain.ValidateName("documentType", documentType); err != nil {
		return "", err
	}
	if err := domain.ValidateName("documentId", id); err != nil {
		return "", err
	}
	return tenantID, nil
}

func (g *Gateway) admit(ctx context.Context, policy ratelimit.Policy) error {
	if g.gate == nil {
		return nil
	}
	if err := g.gate.Allow(ctx, policy); err != nil {
		return fmt.Errorf("admit %s: %w", policy.Name, err)
	}
	return nil
}

func (g *Gateway) publish(ctx context.Context, cmd domcmd.Command, message string) (Ack, error) {
	h := cmd.Meta()
	if err := g.publisher.Publish(ctx, cmd); err != nil {
		metrics.CommandsPublishedTotal.WithLabelValues(string(cmd.Kind()), "error").Inc()
		g.logger.Error("publish command failed",
			zap.String("kind", string(cmd.Kind())),
			zap.String("command_id", h.CommandID),
			zap.String("tenant_id", h.TenantID),
			zap.String("document_id", h.DocumentID),
			zap.Error(err),
		)
		return Ack{}, &PublishError{Kind: cmd.Kind(), DocumentID: h.DocumentID, Err: err}
	}
	metrics.CommandsPublishedTotal.WithLabelValues(string(cmd.Kind()), "ok").Inc()

	return Ack{
		CommandID:  h.CommandID,
		DocumentID: h.DocumentID,
		TenantID:   h.TenantID,
		Status:     StatusAccepted,
		Message:    message,
	}, nil
}
