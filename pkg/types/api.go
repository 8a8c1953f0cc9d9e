package types

// Defaults applied to ChatRequest fields that are omitted or null.
const (
	DefaultMaxLength   = 200
	DefaultTemperature = 0.7
)

// ChatRequest is the payload accepted by POST /api/chat.
// Pointer fields distinguish "omitted" from zero values.
type ChatRequest struct {
	// User message appended to the instructions.
	// example: What is Python?
	Message *string `json:"message" example:"What is Python?"`
	// Maximum number of tokens to generate.
	// example: 200
	MaxLength *int `json:"max_length,omitempty" example:"200"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature *float64 `json:"temperature,omitempty" example:"0.7"`
	// Instructions used for this request only instead of the stored ones.
	// example: You are a Python programming expert. Be concise and technical.
	CustomInstructions *string `json:"custom_instructions,omitempty" example:"You are a Python programming expert. Be concise and technical."`
}

// MaxLengthOrDefault returns MaxLength, or DefaultMaxLength when unset.
func (r ChatRequest) MaxLengthOrDefault() int {
	if r.MaxLength == nil {
		return DefaultMaxLength
	}
	return *r.MaxLength
}

// TemperatureOrDefault returns Temperature, or DefaultTemperature when unset.
func (r ChatRequest) TemperatureOrDefault() float64 {
	if r.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Temperature
}

// ChatResponse is returned by POST /api/chat.
type ChatResponse struct {
	// Generated assistant text with the prompt echo removed.
	// example: Python is a high-level programming language.
	Response string `json:"response" example:"Python is a high-level programming language."`
	// Identifier of the model that produced the response.
	// example: gpt2
	ModelUsed string `json:"model_used" example:"gpt2"`
}

// InstructionsRequest is the payload accepted by POST /api/instructions.
type InstructionsRequest struct {
	// New system instructions; replaces the current value wholesale.
	// example: You are WromGPT, a friendly AI assistant specializing in technology and science.
	Instructions *string `json:"instructions" example:"You are WromGPT, a friendly AI assistant specializing in technology and science."`
}

// InstructionsResponse is returned by GET /api/instructions.
type InstructionsResponse struct {
	Instructions string `json:"instructions" example:"You are WromGPT, a helpful and knowledgeable AI assistant."`
}

// InstructionsUpdateResponse confirms an instructions update.
type InstructionsUpdateResponse struct {
	// example: success
	Status string `json:"status" example:"success"`
	// example: System instructions updated
	Message string `json:"message" example:"System instructions updated"`
	// The value now in effect.
	Instructions string `json:"instructions"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// healthy when the model is loaded, unhealthy otherwise.
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// example: true
	ModelLoaded bool `json:"model_loaded" example:"true"`
	// example: gpt2
	ModelName string `json:"model_name" example:"gpt2"`
}

// InfoResponse is returned by GET /.
type InfoResponse struct {
	// example: WromGPT API
	Name string `json:"name" example:"WromGPT API"`
	// example: 1.0.0
	Version string `json:"version" example:"1.0.0"`
	// example: running
	Status string `json:"status" example:"running"`
	// example: gpt2
	Model string `json:"model" example:"gpt2"`
	// Map of logical endpoint names to paths.
	Endpoints map[string]string `json:"endpoints"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: Model not loaded
	Error string `json:"error" example:"Model not loaded"`
	// HTTP status code.
	// example: 503
	Code int `json:"code" example:"503"`
}
