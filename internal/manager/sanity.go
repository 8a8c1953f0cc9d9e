package manager

import (
	"context"

	"wromgpt/internal/registry"
)

// SanityReport describes runtime checks for the configured backend and model.
type SanityReport struct {
	Backend     string `json:"backend"`
	LlamaBuilt  bool   `json:"llama_built"`
	ModelFound  bool   `json:"model_found"`
	ModelPath   string `json:"model_path,omitempty"`
	ServerFound bool   `json:"server_reachable,omitempty"`
	Error       string `json:"error,omitempty"`
}

// OK reports whether Load is expected to succeed.
func (r SanityReport) OK() bool { return r.Error == "" }

// healthChecker is implemented by adapters that talk to a remote backend.
type healthChecker interface {
	checkHealth(ctx context.Context) error
}

// SanityCheck validates that the model and its backend are available.
// It does not mutate state and is safe to call at any time.
func (m *Manager) SanityCheck(ctx context.Context) SanityReport {
	r := SanityReport{Backend: m.backend, LlamaBuilt: llamaBuilt}
	if m.backend == "server" {
		r.ModelFound = true
		r.ModelPath = m.modelName
		hc, ok := m.adapter.(healthChecker)
		if !ok {
			return r
		}
		if err := hc.checkHealth(ctx); err != nil {
			r.Error = err.Error()
			return r
		}
		r.ServerFound = true
		return r
	}
	path, err := registry.Resolve(m.modelsDir, m.modelName)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.ModelFound = true
	r.ModelPath = path
	if _, inProcess := m.adapter.(*llamaAdapter); inProcess && !llamaBuilt {
		r.Error = "llama.cpp support not built; rebuild with -tags=llama or use the server backend"
	}
	return r
}
