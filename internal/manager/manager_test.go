package manager

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewWithConfigDefaults(t *testing.T) {
	m := NewWithConfig(ManagerConfig{ModelName: "gpt2"})
	if m.topP != defaultTopP {
		t.Fatalf("expected default topP=%v got %v", defaultTopP, m.topP)
	}
	if m.semSize != defaultMaxConcurrent {
		t.Fatalf("expected default semSize=%d got %d", defaultMaxConcurrent, m.semSize)
	}
	if m.backend != defaultBackend {
		t.Fatalf("expected default backend %q got %q", defaultBackend, m.backend)
	}
	if _, ok := m.adapter.(*llamaAdapter); !ok {
		t.Fatalf("expected llama adapter by default, got %T", m.adapter)
	}
	if s := m.Snapshot(); s.State != StateLoading {
		t.Fatalf("expected loading state, got %s", s.State)
	}
}

func TestNewWithConfigServerBackend(t *testing.T) {
	m := NewWithConfig(ManagerConfig{ModelName: "gpt2", Backend: "server", LlamaURL: "http://127.0.0.1:1"})
	if _, ok := m.adapter.(*llamaServerAdapter); !ok {
		t.Fatalf("expected server adapter, got %T", m.adapter)
	}
}

func TestReadyReflectsLoad(t *testing.T) {
	dir := t.TempDir()
	p := createModelFile(t, dir, "gpt2.gguf")
	fa := &fakeAdapter{}
	pub := NewMemoryPublisher()
	m := NewWithConfig(ManagerConfig{ModelName: "gpt2", ModelsDir: dir, Adapter: fa, Publisher: pub})
	if m.Ready() {
		t.Fatalf("expected not ready initially")
	}
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !m.Ready() {
		t.Fatalf("expected ready after load")
	}
	if fa.receivedMP != p {
		t.Fatalf("adapter got path %q, want %q", fa.receivedMP, p)
	}
	snap := m.Snapshot()
	if snap.State != StateReady || snap.ModelPath != p || snap.LoadedAt.IsZero() {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if got := pub.Names(); !reflect.DeepEqual(got, []string{EventLoadStart, EventLoadReady}) {
		t.Fatalf("events=%v", got)
	}
}

func TestLoadTwiceFails(t *testing.T) {
	m := newLoadedManager(t, &fakeSession{}, 1)
	if err := m.Load(context.Background()); !errors.Is(err, errAlreadyLoaded) {
		t.Fatalf("expected errAlreadyLoaded, got %v", err)
	}
	if !m.Ready() {
		t.Fatalf("second Load must not change readiness")
	}
}

func TestLoadConcurrentStartsOnce(t *testing.T) {
	dir := t.TempDir()
	createModelFile(t, dir, "gpt2.gguf")
	ad := &fakeAdapter{entered: make(chan struct{}, 2), release: make(chan struct{})}
	m := NewWithConfig(ManagerConfig{ModelName: "gpt2", ModelsDir: dir, Adapter: ad})

	first := make(chan error, 1)
	go func() { first <- m.Load(context.Background()) }()
	<-ad.entered

	// The first Load is inside Start; a second caller must not start again.
	if err := m.Load(context.Background()); !errors.Is(err, errAlreadyLoaded) {
		t.Fatalf("expected errAlreadyLoaded while loading, got %v", err)
	}
	close(ad.release)
	if err := <-first; err != nil {
		t.Fatalf("first load: %v", err)
	}
	if n := ad.startCount(); n != 1 {
		t.Fatalf("adapter Start called %d times, want 1", n)
	}
	if !m.Ready() {
		t.Fatalf("expected ready after first load")
	}
}

func TestLoadModelNotFound(t *testing.T) {
	pub := NewMemoryPublisher()
	m := NewWithConfig(ManagerConfig{ModelName: "missing", ModelsDir: t.TempDir(), Adapter: &fakeAdapter{}, Publisher: pub})
	err := m.Load(context.Background())
	if err == nil || !IsModelNotFound(err) {
		t.Fatalf("expected model not found error, got %v", err)
	}
	if m.Ready() {
		t.Fatalf("must not be ready after failed load")
	}
	if s := m.Snapshot(); s.State != StateError || s.Err == "" {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	names := pub.Names()
	if len(names) != 2 || names[1] != EventLoadError {
		t.Fatalf("events=%v", names)
	}
}

func TestLoadAdapterError(t *testing.T) {
	dir := t.TempDir()
	createModelFile(t, dir, "gpt2.gguf")
	m := NewWithConfig(ManagerConfig{ModelName: "gpt2", ModelsDir: dir, Adapter: &fakeAdapter{startErr: ErrDependencyUnavailable("no llama")}})
	err := m.Load(context.Background())
	if !IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "no llama") {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestLoadServerBackendPassesName(t *testing.T) {
	fa := &fakeAdapter{}
	m := NewWithConfig(ManagerConfig{ModelName: "qwen2", Backend: "server", Adapter: fa})
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if fa.receivedMP != "qwen2" {
		t.Fatalf("server backend should receive the model name, got %q", fa.receivedMP)
	}
}

func TestLoadStubAdapterWithoutTag(t *testing.T) {
	if LlamaBuilt() {
		t.Skip("llama backend compiled in")
	}
	dir := t.TempDir()
	createModelFile(t, dir, "gpt2.gguf")
	m := NewWithConfig(ManagerConfig{ModelName: filepath.Join(dir, "gpt2.gguf")})
	if err := m.Load(context.Background()); !IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency unavailable from stub, got %v", err)
	}
}

func TestGenerateBeforeLoad(t *testing.T) {
	m := NewWithConfig(ManagerConfig{ModelName: "gpt2", Adapter: &fakeAdapter{}})
	_, err := m.Generate(context.Background(), "hi", GenerateParams{MaxLength: 10, Temperature: 0.7})
	if !IsModelNotLoaded(err) {
		t.Fatalf("expected model not loaded, got %v", err)
	}
}

func TestGenerateReturnsPromptAndContinuation(t *testing.T) {
	sess := &fakeSession{tokens: []string{" O", "K"}}
	m := newLoadedManager(t, sess, 1)
	out, err := m.Generate(context.Background(), "User: x\n\nAssistant:", GenerateParams{MaxLength: 50, Temperature: 0.5})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "User: x\n\nAssistant: OK" {
		t.Fatalf("out=%q", out)
	}
	p := sess.params[0]
	if p.MaxTokens != 50 || p.Temperature != 0.5 || p.TopP != float32(defaultTopP) {
		t.Fatalf("unexpected params: %+v", p)
	}
}

func TestGeneratePrefersFinalContent(t *testing.T) {
	sess := &fakeSession{tokens: []string{"ignored"}, final: FinalResult{Content: " final"}}
	m := newLoadedManager(t, sess, 1)
	out, err := m.Generate(context.Background(), "P", GenerateParams{MaxLength: 5, Temperature: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "P final" {
		t.Fatalf("out=%q", out)
	}
}

func TestGenerateWrapsBackendError(t *testing.T) {
	cause := errors.New("CUDA out of memory")
	m := newLoadedManager(t, &fakeSession{genErr: cause}, 1)
	_, err := m.Generate(context.Background(), "p", GenerateParams{MaxLength: 5, Temperature: 1})
	if !IsGenerationError(err) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause not unwrappable: %v", err)
	}
	if err.Error() != cause.Error() {
		t.Fatalf("message=%q", err.Error())
	}
}

func TestGenerateCanceledWhileWaiting(t *testing.T) {
	sess := &fakeSession{block: make(chan struct{})}
	m := newLoadedManager(t, sess, 1)

	done := make(chan error, 1)
	go func() {
		_, err := m.Generate(context.Background(), "first", GenerateParams{MaxLength: 1, Temperature: 1})
		done <- err
	}()
	waitFor(t, func() bool { return len(sess.snapshotPrompts()) == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := m.Generate(ctx, "second", GenerateParams{MaxLength: 1, Temperature: 1}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while waiting, got %v", err)
	}
	close(sess.block)
	if err := <-done; err != nil {
		t.Fatalf("first generation: %v", err)
	}
}

func TestGenerateSerializedByDefault(t *testing.T) {
	sess := &fakeSession{tokens: []string{"x"}}
	m := newLoadedManager(t, sess, 1)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Generate(context.Background(), "p", GenerateParams{MaxLength: 1, Temperature: 1}); err != nil {
				t.Errorf("generate: %v", err)
			}
		}()
	}
	wg.Wait()
	if sess.maxSeen != 1 {
		t.Fatalf("expected at most 1 concurrent generation, saw %d", sess.maxSeen)
	}
}

func TestGenerateAllowsConfiguredConcurrency(t *testing.T) {
	sess := &fakeSession{block: make(chan struct{})}
	m := newLoadedManager(t, sess, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Generate(context.Background(), "p", GenerateParams{MaxLength: 1, Temperature: 1})
		}()
	}
	waitFor(t, func() bool { return len(sess.snapshotPrompts()) == 2 })
	close(sess.block)
	wg.Wait()
	if sess.maxSeen != 2 {
		t.Fatalf("expected 2 concurrent generations, saw %d", sess.maxSeen)
	}
}

func TestCloseReleasesSession(t *testing.T) {
	sess := &fakeSession{}
	m := newLoadedManager(t, sess, 1)
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !sess.closed {
		t.Fatalf("session not closed")
	}
	if m.Ready() {
		t.Fatalf("ready after close")
	}
	if _, err := m.Generate(context.Background(), "p", GenerateParams{MaxLength: 1, Temperature: 1}); !IsModelNotLoaded(err) {
		t.Fatalf("expected not loaded after close, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestErrorStatusCodes(t *testing.T) {
	type statusCoder interface{ StatusCode() int }
	cases := map[error]int{
		modelNotLoadedError{}:                   503,
		generationError{cause: errors.New("x")}: 500,
		ErrDependencyUnavailable("x"):           503,
	}
	for err, want := range cases {
		sc, ok := err.(statusCoder)
		if !ok || sc.StatusCode() != want {
			t.Fatalf("%T: status=%v want %d", err, sc, want)
		}
	}
}

func (s *fakeSession) snapshotPrompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}
