package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kotaehq/kotae/internal/config"
	"github.com/kotaehq/kotae/internal/embedding"
	"github.com/kotaehq/kotae/internal/index"
	"github.com/kotaehq/kotae/internal/ingest"
	"github.com/kotaehq/kotae/internal/llm"
	"github.com/kotaehq/kotae/internal/rag"
	"github.com/kotaehq/kotae/internal/storage"
)

const testCorpus = `HERO PAGE ( https://example.com )
We are a strategy consultancy helping ambitious founders.

CONTACT ( https://example.com/contact )
Reach us by contact form, email hello@example.com, or phone +1 555 0100.
`

func newTestServer(t *testing.T, chat *llm.MockClient) *Server {
	t.Helper()
	root := t.TempDir()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.Root = root

	meta, err := storage.NewMetaStore(root)
	if err != nil {
		t.Fatalf("NewMetaStore failed: %v", err)
	}
	t.Cleanup(func() { meta.Close() })

	embedder := embedding.NewMockEmbedder(64)
	cache := index.NewCache(root, meta)
	engine := rag.NewEngine(cfg, embedder, cache, chat)
	ingestor := ingest.NewIngestor(cfg, embedder, meta, cache)
	return NewServer(engine, ingestor, meta, cache, cfg, zap.NewNop())
}

func ingestCorpus(t *testing.T, srv *Server, corpus string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.txt")
	if err := os.WriteFile(path, []byte(corpus), 0o644); err != nil {
		t.Fatalf("write corpus failed: %v", err)
	}
	body, _ := json.Marshal(map[string]string{"path": path})
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/ingest", bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("ingest: got status %d: %s", w.Code, w.Body.String())
	}
}

func postChat(srv *Server, question string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"question": question})
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body)))
	return w
}

func TestChatBeforeIngest(t *testing.T) {
	srv := newTestServer(t, &llm.MockClient{})
	w := postChat(srv, "How do I reach you")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d: %s", w.Code, w.Body.String())
	}
}

func TestChatFlow(t *testing.T) {
	chat := &llm.MockClient{Response: "Email hello@example.com."}
	srv := newTestServer(t, chat)
	ingestCorpus(t, srv, testCorpus)

	w := postChat(srv, "How do I reach you")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		Answer     string `json:"answer"`
		Confidence string `json:"confidence"`
		Sources    []struct {
			URL string `json:"url"`
		} `json:"sources"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Answer != "Email hello@example.com." {
		t.Errorf("unexpected answer %q", out.Answer)
	}
	if len(out.Sources) == 0 {
		t.Error("expected sources")
	}
	if out.Confidence == "" {
		t.Error("expected confidence level")
	}
}

func TestChatValidation(t *testing.T) {
	srv := newTestServer(t, &llm.MockClient{})

	w := postChat(srv, "   ")
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank question: expected 400, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json: expected 400, got %d", w.Code)
	}
}

func TestChatUpstreamFailure(t *testing.T) {
	chat := &llm.MockClient{Err: fmt.Errorf("rate limited")}
	srv := newTestServer(t, chat)
	ingestCorpus(t, srv, testCorpus)

	w := postChat(srv, "How do I reach you")
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d: %s", w.Code, w.Body.String())
	}
}

func TestIngestMissingFile(t *testing.T) {
	srv := newTestServer(t, &llm.MockClient{})
	body, _ := json.Marshal(map[string]string{"path": filepath.Join(t.TempDir(), "missing.txt")})
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/ingest", bytes.NewReader(body)))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestIngestNoSections(t *testing.T) {
	srv := newTestServer(t, &llm.MockClient{})
	path := filepath.Join(t.TempDir(), "corpus.txt")
	if err := os.WriteFile(path, []byte("no headers here"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	body, _ := json.Marshal(map[string]string{"path": path})
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/ingest", bytes.NewReader(body)))
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestIngestResponseCounts(t *testing.T) {
	srv := newTestServer(t, &llm.MockClient{})
	path := filepath.Join(t.TempDir(), "corpus.txt")
	if err := os.WriteFile(path, []byte(testCorpus), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	body, _ := json.Marshal(map[string]string{"path": path})
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/ingest", bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		Status     string `json:"status"`
		Sections   int    `json:"sections"`
		Chunks     int    `json:"chunks"`
		Generation string `json:"generation"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Status != "success" || out.Sections != 2 || out.Chunks < 2 || out.Generation == "" {
		t.Errorf("unexpected ingest response %+v", out)
	}
}

func TestStatus(t *testing.T) {
	srv := newTestServer(t, &llm.MockClient{})

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["initialized"] != false {
		t.Errorf("expected initialized=false before ingest, got %v", out["initialized"])
	}

	ingestCorpus(t, srv, testCorpus)

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["initialized"] != true {
		t.Errorf("expected initialized=true after ingest, got %v", out["initialized"])
	}
	if chunks, ok := out["chunks"].(float64); !ok || chunks < 2 {
		t.Errorf("expected chunk count, got %v", out["chunks"])
	}
	if _, ok := out["generation"].(string); !ok {
		t.Errorf("expected generation string, got %v", out["generation"])
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &llm.MockClient{})
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, &llm.MockClient{})
	srv.config.Server.RateLimitRequests = 3
	srv.config.Server.RateLimitWindowSeconds = 60
	router := srv.Router()

	var last int
	for i := 0; i < 4; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		router.ServeHTTP(w, req)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("expected 429 after quota exhausted, got %d", last)
	}

	// Health endpoint is not rate limited.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.7:1234"
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected health to bypass rate limit, got %d", w.Code)
	}
}
