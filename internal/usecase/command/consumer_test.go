package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/docgate/internal/domain"
	domcmd "github.com/kailas-cloud/docgate/internal/domain/command"
	"github.com/kailas-cloud/docgate/internal/metrics"
	"github.com/kailas-cloud/docgate/internal/queue"
)

// --- Mocks ---

type upsertCall struct {
	tenant, docType, id string
	doc                 map[string]any
}

type mockIndexer struct {
	upserts   []upsertCall
	deletes   []string
	upsertErr error
	deleteErr error
}

func (m *mockIndexer) Upsert(_ context.Context, tenantID, documentType, id string, doc map[string]any) error {
	m.upserts = append(m.upserts, upsertCall{tenantID, documentType, id, doc})
	return m.upsertErr
}

func (m *mockIndexer) SoftDelete(_ context.Context, tenantID, documentType, id string) error {
	m.deletes = append(m.deletes, tenantID+"/"+documentType+"/"+id)
	return m.deleteErr
}

type mockSubscriber struct {
	mu    sync.Mutex
	kinds []domcmd.Kind
	err   error
}

func (m *mockSubscriber) Subscribe(_ context.Context, kind domcmd.Kind, _ queue.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds = append(m.kinds, kind)
	return m.err
}

func header(id string) domcmd.Header {
	return domcmd.NewHeader("acme", "article", id, fixedNow)
}

// --- Tests ---

func TestHandle_Create(t *testing.T) {
	idx := &mockIndexer{}
	c := NewConsumer(idx, nil)

	cmd := domcmd.Create{Header: header("d1"), Document: map[string]any{"title": "hello"}}
	if err := c.Handle(context.Background(), cmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(idx.upserts) != 1 {
		t.Fatalf("upserts = %d, want 1", len(idx.upserts))
	}
	got := idx.upserts[0]
	if got.tenant != "acme" || got.docType != "article" || got.id != "d1" {
		t.Errorf("upsert = %+v", got)
	}
	if got.doc["documentId"] != "d1" || got.doc["tenantId"] != "acme" || got.doc["title"] != "hello" {
		t.Errorf("doc = %v", got.doc)
	}
}

func TestHandle_Update(t *testing.T) {
	idx := &mockIndexer{}
	c := NewConsumer(idx, nil)

	cmd := domcmd.Update{Header: header("d1"), Title: "t", Content: "c", Category: "article"}
	if err := c.Handle(context.Background(), cmd); err != nil {
		t.Fatal(err)
	}
	doc := idx.upserts[0].doc
	if doc["title"] != "t" || doc["content"] != "c" || doc["category"] != "article" {
		t.Errorf("doc = %v", doc)
	}
}

func TestHandle_Delete(t *testing.T) {
	idx := &mockIndexer{}
	c := NewConsumer(idx, nil)

	if err := c.Handle(context.Background(), domcmd.Delete{Header: header("d1")}); err != nil {
		t.Fatal(err)
	}
	if len(idx.deletes) != 1 || idx.deletes[0] != "acme/article/d1" {
		t.Errorf("deletes = %v", idx.deletes)
	}
	if len(idx.upserts) != 0 {
		t.Error("delete must not upsert")
	}
}

func TestHandle_ApplyError(t *testing.T) {
	boom := errors.New("engine down")
	c := NewConsumer(&mockIndexer{deleteErr: boom}, nil)

	before := testutil.ToFloat64(metrics.CommandsAppliedTotal.WithLabelValues("delete", "error"))
	err := c.Handle(context.Background(), domcmd.Delete{Header: header("d1")})
	if !errors.Is(err, domain.ErrApplyFailed) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrApplyFailed wrapping cause, got %v", err)
	}
	var ae *ApplyError
	if !errors.As(err, &ae) || ae.Kind != domcmd.KindDelete {
		t.Errorf("apply error = %+v", ae)
	}
	if d := testutil.ToFloat64(metrics.CommandsAppliedTotal.WithLabelValues("delete", "error")) - before; d != 1 {
		t.Errorf("error counter delta = %v, want 1", d)
	}
}

func TestRun_SubscribesEveryKind(t *testing.T) {
	sub := &mockSubscriber{}
	c := NewConsumer(&mockIndexer{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, sub) }()

	deadline := time.After(2 * time.Second)
	for {
		sub.mu.Lock()
		n := len(sub.kinds)
		sub.mu.Unlock()
		if n == len(domcmd.Kinds) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("subscribed %d kinds, want %d", n, len(domcmd.Kinds))
		case <-time.After(5 * time.Millisecond):
		}
	}

	select {
	case err := <-done:
		t.Fatalf("Run returned before cancel: %v", err)
	default:
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_SubscribeError(t *testing.T) {
	sub := &mockSubscriber{err: queue.ErrClosed}
	c := NewConsumer(&mockIndexer{}, nil)

	err := c.Run(context.Background(), sub)
	if !errors.Is(err, queue.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
