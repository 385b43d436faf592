package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docgate/internal/config"
	"github.com/kailas-cloud/docgate/internal/tenant"
)

func testConfig() config.Config {
	cfg := config.Config{HTTP: config.HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()
	cfg.RateLimits["fetch"] = config.RateLimitConfig{PermitsPerSecond: 1000, Burst: 1000}
	return cfg
}

// startApp serves cfg the way serve does without --with-consumer.
func startApp(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a, err := newApp(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(a.Close)
	if a.consumesInProcess(false) {
		go func() { _ = a.consumer.Run(ctx, a.queue) }()
	}

	srv := httptest.NewServer(newRouter(a))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set(tenant.Header, "acme")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func waitForStatus(t *testing.T, url string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp := call(t, http.MethodGet, url, "")
		if resp.StatusCode == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("GET %s: status %d, want %d", url, resp.StatusCode, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestApp_DocumentLifecycle(t *testing.T) {
	tests := []struct {
		name  string
		queue func(t *testing.T) config.QueueConfig
	}{
		{"memory queue", func(*testing.T) config.QueueConfig {
			return config.QueueConfig{Driver: config.QueueMemory}
		}},
		{"embedded nats", func(t *testing.T) config.QueueConfig {
			return config.QueueConfig{Driver: config.QueueEmbedded, StoreDir: t.TempDir()}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Queue = tc.queue(t)
			cfg.ApplyDefaults()
			runLifecycle(t, startApp(t, cfg))
		})
	}
}

func runLifecycle(t *testing.T, srv *httptest.Server) {
	t.Helper()
	doc := srv.URL + "/api/v1/documents/article/d1"

	resp := call(t, http.MethodPost, doc, `{"title":"rate limited gateways","content":"token buckets"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var ack map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatal(err)
	}
	if ack["status"] != "ACCEPTED" || ack["tenantId"] != "acme" {
		t.Errorf("ack = %v", ack)
	}

	waitForStatus(t, doc, http.StatusOK)

	resp = call(t, http.MethodGet, srv.URL+"/api/v1/documents?query=buckets&documentType=article", "")
	var page struct {
		Total   int64 `json:"total"`
		Results []struct {
			DocumentID string `json:"documentId"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Results[0].DocumentID != "d1" {
		t.Errorf("search = %+v", page)
	}

	if resp := call(t, http.MethodDelete, doc, ""); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	waitForStatus(t, doc, http.StatusNotFound)
}

func TestApp_Health(t *testing.T) {
	srv := startApp(t, testConfig())
	resp := call(t, http.MethodGet, srv.URL+"/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Checks["engine"] != "ok" || body.Checks["queue"] != "ok" {
		t.Errorf("health = %+v", body)
	}
}

func TestApp_DeletionRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimits["deletion"] = config.RateLimitConfig{PermitsPerSecond: 0.001, Burst: 1}
	srv := startApp(t, cfg)

	url := srv.URL + "/api/v1/documents/article/d1"
	if resp := call(t, http.MethodDelete, url, ""); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first delete = %d", resp.StatusCode)
	}
	resp := call(t, http.MethodDelete, url, "")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second delete = %d, want 429", resp.StatusCode)
	}
	var rej struct {
		Status  int    `json:"status"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rej); err != nil {
		t.Fatal(err)
	}
	if rej.Status != 429 || !strings.Contains(rej.Message, "deletion:acme") {
		t.Errorf("rejection = %+v", rej)
	}
}

func TestOpenEngine_UnknownDriver(t *testing.T) {
	if _, err := openEngine(config.EngineConfig{Driver: "solr"}); err == nil {
		t.Error("expected error")
	}
}

func TestVersionCmd(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--json"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	var info map[string]string
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if info["version"] == "" {
		t.Errorf("info = %v", info)
	}
}
