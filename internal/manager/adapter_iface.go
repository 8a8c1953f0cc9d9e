package manager

import "context"

// InferenceAdapter abstracts the model runtime used by the Manager.
// Concrete implementations (e.g., llama.cpp) should satisfy this interface.
type InferenceAdapter interface {
	// Start loads the model and returns a session reused for every request.
	Start(ctx context.Context, modelPath string) (InferSession, error)
}

// InferSession represents a loaded model.
type InferSession interface {
	// Generate streams tokens for the given prompt. The onToken callback will be invoked
	// for each token. Implementations must return when the context is canceled.
	Generate(ctx context.Context, prompt string, params InferParams, onToken func(string) error) (FinalResult, error)
	// Close releases any resources associated with the session.
	Close() error
}

// InferParams captures generation parameters passed to the adapter.
type InferParams struct {
	Temperature   float32
	TopP          float32
	TopK          int
	MaxTokens     int
	Stop          []string
	Seed          int
	RepeatPenalty float32
}

// FinalResult summarizes the generation after streaming. Content holds the
// continuation only, without the prompt.
type FinalResult struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage contains token accounting.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
