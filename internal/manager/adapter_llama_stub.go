//go:build !llama

package manager

// This file provides a no-CGO stub for the llama adapter. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.
// The real adapter lives in adapter_llama.go (tagged 'llama').

import "context"

// llamaBuilt indicates this binary was compiled without llama support.
var llamaBuilt = false

// llamaAdapter is a stub that satisfies InferenceAdapter but refuses to load
// a model without the 'llama' build tag. Load fails, so the process never
// starts serving with a fake model.
type llamaAdapter struct {
	ctxSize int
	threads int
}

func NewLlamaAdapter(ctxSize, threads int) InferenceAdapter {
	return &llamaAdapter{ctxSize: ctxSize, threads: threads}
}

func (a *llamaAdapter) Start(ctx context.Context, modelPath string) (InferSession, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag); rebuild with -tags=llama or use the server backend")
}
