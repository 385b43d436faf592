package command

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var issued = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestNewHeader(t *testing.T) {
	h := NewHeader("acme", "", "doc-1", issued)
	if h.DocumentType != DefaultDocumentType {
		t.Errorf("DocumentType = %q, want %q", h.DocumentType, DefaultDocumentType)
	}
	if _, err := uuid.Parse(h.CommandID); err != nil {
		t.Errorf("CommandID %q is not a uuid: %v", h.CommandID, err)
	}
	if NewHeader("acme", "x", "doc-1", issued).CommandID == h.CommandID {
		t.Error("command ids must be unique")
	}
}

func TestCreate_IndexDocument(t *testing.T) {
	payload := map[string]any{"title": "hello", "tenantId": "spoofed"}
	c := Create{Header: NewHeader("acme", "article", "a1", issued), Document: payload}

	doc := c.IndexDocument()
	if doc["documentId"] != "a1" || doc["tenantId"] != "acme" || doc["title"] != "hello" {
		t.Errorf("unexpected document %v", doc)
	}
	if payload["tenantId"] != "spoofed" {
		t.Error("IndexDocument must not mutate the payload")
	}
}

func TestUpdate_IndexDocument(t *testing.T) {
	c := Update{
		Header:   NewHeader("acme", "news", "n1", issued),
		Title:    "t",
		Content:  "c",
		Category: "news",
	}
	doc := c.IndexDocument()
	for _, k := range []string{"documentId", "tenantId", "title", "content", "category"} {
		if _, ok := doc[k]; !ok {
			t.Errorf("missing %q in %v", k, doc)
		}
	}
	if _, ok := doc["metadata"]; ok {
		t.Error("metadata must be absent when nil")
	}

	c.Metadata = map[string]string{"lang": "en"}
	meta, ok := c.IndexDocument()["metadata"].(map[string]any)
	if !ok || meta["lang"] != "en" {
		t.Errorf("metadata = %v", c.IndexDocument()["metadata"])
	}
}

func TestEnvelope(t *testing.T) {
	cmds := []Command{
		Create{Header: NewHeader("acme", "article", "a1", issued), Document: map[string]any{"n": 1.5}},
		Update{Header: NewHeader("acme", "news", "n1", issued), Title: "t", Metadata: map[string]string{"k": "v"}},
		Delete{Header: NewHeader("acme", "article", "a1", issued)},
	}

	for _, in := range cmds {
		t.Run(string(in.Kind()), func(t *testing.T) {
			data, err := Marshal(in)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			out, err := Unmarshal(data)
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if out.Kind() != in.Kind() {
				t.Errorf("kind = %s, want %s", out.Kind(), in.Kind())
			}
			if out.Meta() != in.Meta() {
				t.Errorf("header = %+v, want %+v", out.Meta(), in.Meta())
			}
		})
	}
}

func TestUnmarshal_UnknownKind(t *testing.T) {
	_, err := Unmarshal([]byte(`{"kind":"purge","command":{}}`))
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestUnmarshal_Garbage(t *testing.T) {
	if _, err := Unmarshal([]byte(`not json`)); err == nil {
		t.Error("expected error")
	}
}
