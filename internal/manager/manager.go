package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"wromgpt/internal/registry"
)

// Manager loads one model at startup and serves generations from it.
type Manager struct {
	mu        sync.RWMutex
	state     State
	err       string
	loadedAt  time.Time
	modelName string
	modelsDir string
	modelPath string
	backend   string
	topP      float64
	// starting is set while a Load is in flight.
	starting bool

	adapter InferenceAdapter
	// session is read-only once state is StateReady.
	session   InferSession
	sem       *semaphore.Weighted
	semSize   int64
	publisher EventPublisher
}

// Load resolves the configured model and starts the backend session.
// It may be called once; the manager moves to StateReady on success and
// StateError on failure, and never back.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	if m.starting || m.state != StateLoading || m.session != nil {
		m.mu.Unlock()
		return errAlreadyLoaded
	}
	m.starting = true
	m.mu.Unlock()

	start := time.Now()
	m.publisher.Publish(Event{Name: EventLoadStart, Model: m.modelName, Fields: map[string]any{"backend": m.backend}})

	path, err := m.resolveModelPath()
	if err != nil {
		return m.failLoad(err)
	}
	sess, err := m.adapter.Start(ctx, path)
	if err != nil {
		return m.failLoad(fmt.Errorf("start %s backend: %w", m.backend, err))
	}

	m.mu.Lock()
	m.starting = false
	m.session = sess
	m.modelPath = path
	m.state = StateReady
	m.err = ""
	m.loadedAt = time.Now()
	m.mu.Unlock()

	modelLoaded.Set(1)
	m.publisher.Publish(Event{Name: EventLoadReady, Model: m.modelName, Fields: map[string]any{
		"path":     path,
		"duration": time.Since(start),
	}})
	return nil
}

// resolveModelPath maps the model name to what the adapter expects: a file
// path for the in-process backend, the name itself for the server backend.
func (m *Manager) resolveModelPath() (string, error) {
	if m.backend == "server" {
		return m.modelName, nil
	}
	return registry.Resolve(m.modelsDir, m.modelName)
}

func (m *Manager) failLoad(err error) error {
	m.mu.Lock()
	m.starting = false
	m.state = StateError
	m.err = err.Error()
	m.mu.Unlock()
	modelLoaded.Set(0)
	m.publisher.Publish(Event{Name: EventLoadError, Model: m.modelName, Fields: map[string]any{"error": err.Error()}})
	return err
}

// Ready reports whether the model is loaded and can serve generations.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady && m.session != nil
}

// ModelName returns the configured model identifier.
func (m *Manager) ModelName() string { return m.modelName }

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		State:     m.state,
		ModelName: m.modelName,
		ModelPath: m.modelPath,
		Backend:   m.backend,
		Err:       m.err,
		LoadedAt:  m.loadedAt,
	}
}

// Close releases the backend session. Generations still in flight hold the
// semaphore; Close waits for them before freeing the model.
func (m *Manager) Close() error {
	m.mu.Lock()
	sess := m.session
	m.session = nil
	if m.state == StateReady {
		m.state = StateError
		m.err = "closed"
	}
	m.mu.Unlock()
	if sess == nil {
		return nil
	}
	modelLoaded.Set(0)
	if err := m.sem.Acquire(context.Background(), m.semSize); err != nil {
		return err
	}
	defer m.sem.Release(m.semSize)
	return sess.Close()
}
