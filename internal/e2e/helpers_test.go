package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"wromgpt/internal/httpapi"
	"wromgpt/internal/instructions"
	"wromgpt/internal/manager"
)

// createTempModelsDir creates a temporary directory populated with empty .gguf files.
func createTempModelsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte(""), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir
}

// echoAdapter stands in for llama.cpp: it answers every prompt with a fixed
// continuation and records what it was asked.
type echoAdapter struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	params  []manager.InferParams
	path    string
}

func (a *echoAdapter) Start(ctx context.Context, modelPath string) (manager.InferSession, error) {
	a.mu.Lock()
	a.path = modelPath
	a.mu.Unlock()
	return a, nil
}

func (a *echoAdapter) Generate(ctx context.Context, prompt string, params manager.InferParams, onToken func(string) error) (manager.FinalResult, error) {
	a.mu.Lock()
	a.prompts = append(a.prompts, prompt)
	a.params = append(a.params, params)
	reply, err := a.reply, a.err
	a.mu.Unlock()
	if err != nil {
		return manager.FinalResult{}, err
	}
	for _, tok := range strings.SplitAfter(reply, " ") {
		if err := onToken(tok); err != nil {
			return manager.FinalResult{}, err
		}
	}
	return manager.FinalResult{FinishReason: "length"}, nil
}

func (a *echoAdapter) Close() error { return nil }

func (a *echoAdapter) lastPrompt(t *testing.T) string {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.prompts) == 0 {
		t.Fatalf("no generation happened")
	}
	return a.prompts[len(a.prompts)-1]
}

// newServer wires the real manager, store and router behind an httptest server.
// The model is not loaded; callers invoke mgr.Load.
func newServer(t *testing.T, cfg manager.ManagerConfig, initial string) (*httptest.Server, *manager.Manager, *instructions.Store) {
	t.Helper()
	mgr := manager.NewWithConfig(cfg)
	store := instructions.NewStore(initial)
	srv := httptest.NewServer(httpapi.NewMux(mgr, store))
	t.Cleanup(func() {
		srv.Close()
		_ = mgr.Close()
	})
	return srv, mgr, store
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func mustDecode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return v
}
