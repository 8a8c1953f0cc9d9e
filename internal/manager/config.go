package manager

import (
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxConcurrent  = 1
	defaultTopP           = 0.9
	defaultConnectTimeout = 5 * time.Second
	defaultBackend        = "llama"
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	ModelName string
	ModelsDir string
	// Backend selects the inference adapter: "llama" or "server".
	Backend string
	// Adapter overrides Backend when set (tests inject fakes here).
	Adapter InferenceAdapter
	// MaxConcurrent bounds simultaneous generations (default 1).
	MaxConcurrent int
	// TopP is the nucleus sampling probability (default 0.9).
	TopP float64
	// Publisher receives lifecycle events; nil drops them.
	Publisher EventPublisher

	// llama.cpp configuration (no envs; set by callers)
	LlamaCtx     int
	LlamaThreads int
	LlamaURL     string
	LlamaAPIKey  string
	// LlamaTimeout bounds a single server-backend generation (0 = none).
	LlamaTimeout time.Duration
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		cfg.TopP = defaultTopP
	}
	if strings.TrimSpace(cfg.Backend) == "" {
		cfg.Backend = defaultBackend
	}
	m := &Manager{
		state:     StateLoading,
		modelName: cfg.ModelName,
		modelsDir: cfg.ModelsDir,
		backend:   cfg.Backend,
		topP:      cfg.TopP,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		semSize:   int64(cfg.MaxConcurrent),
		adapter:   cfg.Adapter,
		publisher: cfg.Publisher,
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if m.adapter == nil {
		switch cfg.Backend {
		case "server":
			m.adapter = NewLlamaServerAdapter(cfg.LlamaURL, cfg.LlamaAPIKey, cfg.LlamaTimeout, defaultConnectTimeout)
		default:
			m.adapter = NewLlamaAdapter(cfg.LlamaCtx, cfg.LlamaThreads)
		}
	}
	return m
}
