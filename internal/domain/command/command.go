// Package command defines the document mutations that travel through the queue.
//
// Command is a closed set: Create, Update and Delete are its only
// implementations, so a type switch over them is exhaustive.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Kind tags a command on the wire and selects its topic.
type Kind string

const (
	// KindCreate indexes a new document.
	KindCreate Kind = "create"
	// KindUpdate replaces a document with title/content/category fields.
	KindUpdate Kind = "update"
	// KindDelete soft-deletes a document.
	KindDelete Kind = "delete"
)

// Kinds lists every command kind.
var Kinds = []Kind{KindCreate, KindUpdate, KindDelete}

// DefaultDocumentType is used when a caller names no document type.
const DefaultDocumentType = "document"

// Header is the identity every command carries.
type Header struct {
	CommandID    string    `json:"commandId"`
	TenantID     string    `json:"tenantId"`
	DocumentID   string    `json:"documentId"`
	DocumentType string    `json:"documentType"`
	IssuedAt     time.Time `json:"issuedAt"`
}

// Command is a document mutation addressed by (tenant, documentType, documentId).
type Command interface {
	Kind() Kind
	Meta() Header
	sealed()
}

// Create indexes Document under the header's identity.
type Create struct {
	Header
	Document map[string]any `json:"document"`
}

// Update replaces a document with a title/content/category projection.
type Update struct {
	Header
	Title    string            `json:"title,omitempty"`
	Content  string            `json:"content,omitempty"`
	Category string            `json:"category,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Delete soft-deletes the document under the header's identity.
type Delete struct {
	Header
}

func (Create) Kind() Kind { return KindCreate }
func (Update) Kind() Kind { return KindUpdate }
func (Delete) Kind() Kind { return KindDelete }

func (c Create) Meta() Header { return c.Header }
func (c Update) Meta() Header { return c.Header }
func (c Delete) Meta() Header { return c.Header }

func (Create) sealed() {}
func (Update) sealed() {}
func (Delete) sealed() {}

// NewHeader stamps a fresh command id and issue time.
func NewHeader(tenantID, documentType, documentID string, now time.Time) Header {
	if documentType == "" {
		documentType = DefaultDocumentType
	}
	return Header{
		CommandID:    uuid.NewString(),
		TenantID:     tenantID,
		DocumentID:   documentID,
		DocumentType: documentType,
		IssuedAt:     now.UTC(),
	}
}

// IndexDocument returns the document a Create stores: the payload plus the
// documentId and tenantId fields.
func (c Create) IndexDocument() map[string]any {
	doc := make(map[string]any, len(c.Document)+2)
	maps.Copy(doc, c.Document)
	doc["documentId"] = c.DocumentID
	doc["tenantId"] = c.TenantID
	return doc
}

// IndexDocument returns the document an Update stores.
func (c Update) IndexDocument() map[string]any {
	doc := map[string]any{
		"documentId": c.DocumentID,
		"tenantId":   c.TenantID,
		"title":      c.Title,
		"content":    c.Content,
		"category":   c.Category,
	}
	if c.Metadata != nil {
		meta := make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			meta[k] = v
		}
		doc["metadata"] = meta
	}
	return doc
}

// ErrUnknownKind is returned when decoding an envelope with an unrecognised kind.
var ErrUnknownKind = errors.New("unknown command kind")

type envelope struct {
	Kind Kind            `json:"kind"`
	Body json.RawMessage `json:"command"`
}

// Marshal encodes cmd into its JSON envelope.
func Marshal(cmd Command) ([]byte, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("marshal %s command: %w", cmd.Kind(), err)
	}
	data, err := json.Marshal(envelope{Kind: cmd.Kind(), Body: body})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a JSON envelope produced by Marshal.
func Unmarshal(data []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Kind {
	case KindCreate:
		var c Create
		if err := json.Unmarshal(env.Body, &c); err != nil {
			return nil, fmt.Errorf("unmarshal create command: %w", err)
		}
		return c, nil
	case KindUpdate:
		var c Update
		if err := json.Unmarshal(env.Body, &c); err != nil {
			return nil, fmt.Errorf("unmarshal update command: %w", err)
		}
		return c, nil
	case KindDelete:
		var c Delete
		if err := json.Unmarshal(env.Body, &c); err != nil {
			return nil, fmt.Errorf("unmarshal delete command: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
}
