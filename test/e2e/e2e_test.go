// Package e2e exercises the full pipeline over the HTTP API: ingest a
// corpus document, ask questions, and check status reporting.
package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kotaehq/kotae/internal/config"
	"github.com/kotaehq/kotae/internal/embedding"
	"github.com/kotaehq/kotae/internal/index"
	"github.com/kotaehq/kotae/internal/ingest"
	"github.com/kotaehq/kotae/internal/llm"
	"github.com/kotaehq/kotae/internal/rag"
	"github.com/kotaehq/kotae/internal/server"
	"github.com/kotaehq/kotae/internal/storage"
)

const e2eCorpus = `HERO PAGE ( https://example.com )
We are a boutique strategy consultancy for ambitious founders.
Our advisors have guided over two hundred companies through growth planning.

SERVICES ( https://example.com/services )
We offer market entry strategy, fundraising support, and operational reviews.
Engagements run from two-week sprints to year-long retainers.

CONTACT ( https://example.com/contact )
Reach us by contact form, email hello@example.com, or phone +1 555 0100.
Our office is open Monday through Friday, nine to five.
`

func startTestServer(t *testing.T, chat *llm.MockClient) *httptest.Server {
	t.Helper()
	root := t.TempDir()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.Root = root

	meta, err := storage.NewMetaStore(root)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { meta.Close() })

	embedder := embedding.NewMockEmbedder(128)
	cache := index.NewCache(root, meta)
	engine := rag.NewEngine(cfg, embedder, cache, chat)
	ingestor := ingest.NewIngestor(cfg, embedder, meta, cache)
	srv := server.NewServer(engine, ingestor, meta, cache, cfg, zap.NewNop())

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestE2E_IngestThenAsk(t *testing.T) {
	chat := &llm.MockClient{Response: "You can email us at hello@example.com or call +1 555 0100."}
	ts := startTestServer(t, chat)

	// Before ingest the chat endpoint reports the missing knowledge base.
	resp := postJSON(t, ts.URL+"/api/chat", map[string]string{"question": "How do I reach you?"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ingest, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	corpusPath := filepath.Join(t.TempDir(), "website.txt")
	if err := os.WriteFile(corpusPath, []byte(e2eCorpus), 0o644); err != nil {
		t.Fatal(err)
	}
	resp = postJSON(t, ts.URL+"/api/ingest", map[string]string{"path": corpusPath})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ingest: expected 200, got %d", resp.StatusCode)
	}
	var ingestOut struct {
		Sections int `json:"sections"`
		Chunks   int `json:"chunks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ingestOut); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if ingestOut.Sections != 3 {
		t.Errorf("expected 3 sections, got %d", ingestOut.Sections)
	}

	resp = postJSON(t, ts.URL+"/api/chat", map[string]string{"question": "How do I reach you?"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat: expected 200, got %d", resp.StatusCode)
	}
	var chatOut struct {
		Answer  string `json:"answer"`
		Sources []struct {
			URL          string `json:"url"`
			SectionTitle string `json:"section_title"`
		} `json:"sources"`
		Confidence string `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&chatOut); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if chatOut.Answer == "" {
		t.Error("expected an answer")
	}
	if len(chatOut.Sources) == 0 {
		t.Fatal("expected sources")
	}
	if chatOut.Sources[0].URL != "https://example.com/contact" {
		t.Errorf("expected contact page as top source, got %q", chatOut.Sources[0].URL)
	}
	if chatOut.Confidence == "" {
		t.Error("expected a confidence level")
	}

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	var statusOut map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&statusOut); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if statusOut["initialized"] != true {
		t.Errorf("expected initialized status, got %v", statusOut["initialized"])
	}
	if chunks, ok := statusOut["chunks"].(float64); !ok || int(chunks) != ingestOut.Chunks {
		t.Errorf("expected %d chunks in status, got %v", ingestOut.Chunks, statusOut["chunks"])
	}
}

func TestE2E_NotFoundAnswerScoresLow(t *testing.T) {
	chat := &llm.MockClient{Response: rag.NotFoundAnswer}
	ts := startTestServer(t, chat)

	corpusPath := filepath.Join(t.TempDir(), "website.txt")
	if err := os.WriteFile(corpusPath, []byte(e2eCorpus), 0o644); err != nil {
		t.Fatal(err)
	}
	resp := postJSON(t, ts.URL+"/api/ingest", map[string]string{"path": corpusPath})
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/chat", map[string]string{"question": "What is your favorite color?"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat: expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		Confidence string `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if out.Confidence != "low" {
		t.Errorf("expected low confidence for not-found answer, got %q", out.Confidence)
	}
}
