//go:build llama

package manager

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaAdapter holds global config used to initialize the model
type llamaAdapter struct {
	ctxSize int
	threads int
}

func NewLlamaAdapter(ctxSize, threads int) InferenceAdapter {
	return &llamaAdapter{ctxSize: ctxSize, threads: threads}
}

// llamaSession owns the loaded model. go-llama.cpp keeps one token callback
// per model, so Predict calls are serialized by mu.
type llamaSession struct {
	mu      sync.Mutex
	model   *llama.LLama
	threads int
}

func (a *llamaAdapter) Start(ctx context.Context, modelPath string) (InferSession, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mo := []llama.ModelOption{}
	if a.ctxSize > 0 {
		mo = append(mo, llama.SetContext(a.ctxSize))
	}
	m, err := llama.New(modelPath, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaSession{model: m, threads: a.threads}, nil
}

func (s *llamaSession) Generate(ctx context.Context, prompt string, params InferParams, onToken func(string) error) (FinalResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return FinalResult{}, errors.New("llama model not initialized")
	}

	// Bridge token streaming to onToken and respect cancellation
	s.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		return onToken(tok) == nil
	})

	text, err := s.model.Predict(prompt, mapInferParamsToPredictOptions(params, s.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return FinalResult{}, ctx.Err()
		}
		return FinalResult{}, err
	}
	if ctx.Err() != nil {
		return FinalResult{}, ctx.Err()
	}
	// token counts not available without deeper hooks
	return FinalResult{Content: text, FinishReason: "stop"}, nil
}

func (s *llamaSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	return nil
}

// helpers
func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// mapInferParamsToPredictOptions converts our adapter params into go-llama.cpp options
func mapInferParamsToPredictOptions(params InferParams, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, params.MaxTokens)),
		llama.SetThreads(zn(threads, runtime.NumCPU())),
		llama.SetTopP(zf(params.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(params.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(params.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(params.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if params.Seed != 0 {
		po = append(po, llama.SetSeed(params.Seed))
	}
	if len(params.Stop) > 0 {
		po = append(po, llama.SetStopWords(params.Stop...))
	}
	return po
}
