package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// createModelFile creates an empty model file and returns its path.
func createModelFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(""), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// fakeAdapter is a lightweight in-memory adapter used for tests.
type fakeAdapter struct {
	startErr   error
	receivedMP string
	sess       *fakeSession
	// entered, when set, receives once per Start call; Start then waits on release.
	entered chan struct{}
	release chan struct{}

	mu     sync.Mutex
	starts int
}

func (f *fakeAdapter) Start(ctx context.Context, modelPath string) (InferSession, error) {
	f.mu.Lock()
	f.starts++
	f.receivedMP = modelPath
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	if f.startErr != nil {
		return nil, f.startErr
	}
	if f.sess == nil {
		f.sess = &fakeSession{}
	}
	return f.sess, nil
}

func (f *fakeAdapter) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

type fakeSession struct {
	mu       sync.Mutex
	tokens   []string
	final    FinalResult
	genErr   error
	block    chan struct{}
	prompts  []string
	params   []InferParams
	closed   bool
	inflight int
	maxSeen  int
}

func (s *fakeSession) Generate(ctx context.Context, prompt string, params InferParams, onToken func(string) error) (FinalResult, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.params = append(s.params, params)
	s.inflight++
	if s.inflight > s.maxSeen {
		s.maxSeen = s.inflight
	}
	block := s.block
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return FinalResult{}, ctx.Err()
		}
	}
	if s.genErr != nil {
		return FinalResult{}, s.genErr
	}
	for _, tok := range s.tokens {
		if err := onToken(tok); err != nil {
			return FinalResult{}, err
		}
	}
	return s.final, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

// newLoadedManager returns a manager in StateReady backed by a fake session.
func newLoadedManager(t *testing.T, sess *fakeSession, maxConcurrent int) *Manager {
	t.Helper()
	dir := t.TempDir()
	createModelFile(t, dir, "gpt2.gguf")
	m := NewWithConfig(ManagerConfig{
		ModelName:     "gpt2",
		ModelsDir:     dir,
		Adapter:       &fakeAdapter{sess: sess},
		MaxConcurrent: maxConcurrent,
	})
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return m
}
