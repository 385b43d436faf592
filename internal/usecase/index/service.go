// Package index writes tenant documents through their write alias.
package index

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docgate/internal/db"
	"github.com/kailas-cloud/docgate/internal/domain"
	"github.com/kailas-cloud/docgate/internal/domain/alias"
)

// Document fields the service maintains.
const (
	FieldTenantID  = "tenantId"
	FieldIsDeleted = "is_deleted"
)

// FirstGeneration numbers the physical index created for a new alias pair.
const FirstGeneration = 1

// Service upserts and soft-deletes documents.
type Service struct {
	engine Engine
	logger *zap.Logger
}

// New creates an index service.
func New(engine Engine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{engine: engine, logger: logger}
}

// Upsert stores doc under id with full-replace semantics. The stored copy
// carries tenantId and defaults is_deleted to false. The alias pair is
// provisioned on the first write for a (tenant, documentType).
func (s *Service) Upsert(ctx context.Context, tenantID, documentType, id string, doc map[string]any) error {
	body := make(map[string]any, len(doc)+2)
	maps.Copy(body, doc)
	body[FieldTenantID] = tenantID
	if _, ok := body[FieldIsDeleted]; !ok {
		body[FieldIsDeleted] = false
	}

	write := alias.Write(tenantID, documentType)
	err := s.engine.Index(ctx, write, id, body)
	if errors.Is(err, db.ErrAliasNotFound) {
		if err := s.provision(ctx, tenantID, documentType); err != nil {
			return fmt.Errorf("provision aliases: %w", err)
		}
		err = s.engine.Index(ctx, write, id, body)
	}
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	return nil
}

// SoftDelete flags the document as deleted, first through the write alias
// and then through the read alias.
func (s *Service) SoftDelete(ctx context.Context, tenantID, documentType, id string) error {
	fields := map[string]any{FieldIsDeleted: true}

	writeErr := s.engine.SetFields(ctx, alias.Write(tenantID, documentType), id, fields)
	if writeErr == nil {
		return nil
	}
	s.logger.Warn("soft delete through write alias failed, retrying through read alias",
		zap.String("tenant_id", tenantID),
		zap.String("document_type", documentType),
		zap.String("document_id", id),
		zap.Error(writeErr),
	)

	readErr := s.engine.SetFields(ctx, alias.Read(tenantID, documentType), id, fields)
	if readErr == nil {
		return nil
	}
	return fmt.Errorf("soft delete %s: %w", id, errors.Join(domain.ErrDocumentNotFound, writeErr, readErr))
}

func (s *Service) provision(ctx context.Context, tenantID, documentType string) error {
	physical := alias.Physical(tenantID, documentType, FirstGeneration)
	s.logger.Info("provisioning index",
		zap.String("index", physical),
		zap.String("tenant_id", tenantID),
		zap.String("document_type", documentType),
	)
	return s.engine.EnsureAliases(ctx, physical,
		alias.Write(tenantID, documentType),
		alias.Read(tenantID, documentType),
	)
}
