package manager

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// sseWriter helps write SSE-style lines.
type sseWriter struct{ w http.ResponseWriter }

func (sw sseWriter) writeLine(line string) {
	_, _ = sw.w.Write([]byte(line + "\n"))
	if f, ok := sw.w.(http.Flusher); ok {
		f.Flush()
	}
}

func completionChunk(text, finish string) string {
	msg := map[string]any{
		"object":  "text_completion",
		"choices": []map[string]any{{"text": text, "finish_reason": finish}},
	}
	b, _ := json.Marshal(msg)
	return "data: " + string(b)
}

func newFakeLlamaServer(t *testing.T, completions http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"gpt2","object":"model"}]}`))
	})
	mux.HandleFunc("/v1/completions", completions)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLlamaServerAdapter_Stream(t *testing.T) {
	var got openAICompletionRequest
	srv := newFakeLlamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "text/event-stream")
		sw := sseWriter{w: w}
		sw.writeLine(completionChunk(" Hello", ""))
		sw.writeLine("")
		sw.writeLine(completionChunk(" world", "stop"))
		sw.writeLine("data: [DONE]")
	})
	a := NewLlamaServerAdapter(srv.URL+"/", "secret", time.Second, time.Second)
	sess, err := a.Start(context.Background(), "gpt2")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sess.Close()

	var toks []string
	final, err := sess.Generate(context.Background(), "Assistant:", InferParams{MaxTokens: 7, Temperature: 0.7, TopP: 0.9}, func(s string) error {
		toks = append(toks, s)
		return nil
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if final.Content != " Hello world" || final.FinishReason != "stop" {
		t.Fatalf("unexpected final: %+v", final)
	}
	if len(toks) != 2 {
		t.Fatalf("tokens=%v", toks)
	}
	if got.Model != "gpt2" || got.Prompt != "Assistant:" || got.MaxTokens != 7 || got.TopP != 0.9 || !got.Stream {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestLlamaServerAdapter_DeltaContentAndUsage(t *testing.T) {
	srv := newFakeLlamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		sw := sseWriter{w: w}
		sw.writeLine(`data: {"choices":[{"delta":{"content":"OK"}}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`)
		sw.writeLine("data: [DONE]")
	})
	sess, err := NewLlamaServerAdapter(srv.URL, "", 0, time.Second).Start(context.Background(), "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	final, err := sess.Generate(context.Background(), "p", InferParams{}, func(string) error { return nil })
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if final.Content != "OK" || final.Usage.TotalTokens != 4 {
		t.Fatalf("unexpected final: %+v", final)
	}
}

func TestLlamaServerAdapter_HTTPError(t *testing.T) {
	srv := newFakeLlamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "context overflow", http.StatusBadRequest)
	})
	sess, err := NewLlamaServerAdapter(srv.URL, "", 0, time.Second).Start(context.Background(), "gpt2")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err = sess.Generate(context.Background(), "p", InferParams{}, func(string) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "context overflow") {
		t.Fatalf("expected server error body in error, got %v", err)
	}
}

func TestLlamaServerAdapter_BadStreamLine(t *testing.T) {
	srv := newFakeLlamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		sseWriter{w: w}.writeLine("data: {broken")
	})
	sess, err := NewLlamaServerAdapter(srv.URL, "", 0, time.Second).Start(context.Background(), "gpt2")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := sess.Generate(context.Background(), "p", InferParams{}, func(string) error { return nil }); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLlamaServerAdapter_CallbackStops(t *testing.T) {
	srv := newFakeLlamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		sw := sseWriter{w: w}
		sw.writeLine(completionChunk("a", ""))
		sw.writeLine(completionChunk("b", ""))
		sw.writeLine("data: [DONE]")
	})
	sess, _ := NewLlamaServerAdapter(srv.URL, "", 0, time.Second).Start(context.Background(), "gpt2")
	stop := errors.New("stop")
	_, err := sess.Generate(context.Background(), "p", InferParams{}, func(string) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestLlamaServerAdapter_StartUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	_, err := NewLlamaServerAdapter(srv.URL, "", 0, time.Second).Start(context.Background(), "gpt2")
	if !IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
	_, err = NewLlamaServerAdapter("", "", 0, time.Second).Start(context.Background(), "gpt2")
	if !IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency unavailable for empty url, got %v", err)
	}
}

func TestReadCompletionStream_EOFWithoutDone(t *testing.T) {
	body := io.NopCloser(strings.NewReader(completionChunk("tail", "length")))
	final, err := readCompletionStream(context.Background(), body, func(string) error { return nil })
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if final.Content != "tail" || final.FinishReason != "length" {
		t.Fatalf("unexpected final: %+v", final)
	}
}
