package manager

import "time"

// State represents the lifecycle state of the model holder.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State     State
	ModelName string
	ModelPath string
	Backend   string
	Err       string
	LoadedAt  time.Time
}

// GenerateParams are the per-request sampling parameters.
type GenerateParams struct {
	// MaxLength caps the number of generated tokens.
	MaxLength int
	// Temperature is the sampling temperature.
	Temperature float64
}
