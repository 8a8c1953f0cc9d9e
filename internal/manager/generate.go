package manager

import (
	"context"
	"strings"
	"time"
)

// Generate runs sampling-based generation on prompt and returns the decoded
// sequence: the prompt followed by the continuation. Callers strip the echo.
//
// Generations are gated by a semaphore sized by MaxConcurrent; the wait
// honours ctx. Backend failures are returned as generation errors.
func (m *Manager) Generate(ctx context.Context, prompt string, p GenerateParams) (string, error) {
	if !m.Ready() {
		return "", modelNotLoadedError{name: m.modelName}
	}
	if err := m.sem.Acquire(ctx, 1); err != nil {
		generationsTotal.WithLabelValues("canceled").Inc()
		return "", err
	}
	defer m.sem.Release(1)
	// Re-read under the gate: Close may have run while we waited.
	m.mu.RLock()
	sess := m.session
	m.mu.RUnlock()
	if sess == nil {
		return "", modelNotLoadedError{name: m.modelName}
	}
	generationsInflight.Inc()
	defer generationsInflight.Dec()

	params := InferParams{
		Temperature: float32(p.Temperature),
		TopP:        float32(m.topP),
		MaxTokens:   p.MaxLength,
	}
	var b strings.Builder
	onTok := func(tok string) error {
		b.WriteString(tok)
		return nil
	}
	start := time.Now()
	final, err := sess.Generate(ctx, prompt, params, onTok)
	generationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			generationsTotal.WithLabelValues("canceled").Inc()
			return "", ctx.Err()
		}
		generationsTotal.WithLabelValues("error").Inc()
		return "", generationError{cause: err}
	}
	generationsTotal.WithLabelValues("ok").Inc()
	content := final.Content
	if content == "" {
		content = b.String()
	}
	return prompt + content, nil
}
