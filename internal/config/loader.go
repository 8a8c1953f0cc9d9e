package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"wromgpt/internal/instructions"
)

// Backend names accepted in Config.Backend.
const (
	BackendLlama  = "llama"
	BackendServer = "server"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified"; Default fills them in.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	Port      int    `json:"port" yaml:"port" toml:"port"`
	ModelName string `json:"model_name" yaml:"model_name" toml:"model_name"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	Backend   string `json:"backend" yaml:"backend" toml:"backend"`

	LlamaURL     string `json:"llama_url" yaml:"llama_url" toml:"llama_url"`
	LlamaAPIKey  string `json:"llama_api_key" yaml:"llama_api_key" toml:"llama_api_key"`
	LlamaCtx     int    `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads int    `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
	// LlamaTimeoutSeconds bounds one request to the llama.cpp server (0 = none).
	LlamaTimeoutSeconds int64 `json:"llama_timeout_seconds" yaml:"llama_timeout_seconds" toml:"llama_timeout_seconds"`

	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent"`
	// Instructions is the initial system instruction text. A pointer so an
	// explicit empty string overrides the default.
	Instructions *string `json:"instructions" yaml:"instructions" toml:"instructions"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	MaxBodyBytes       int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	ChatTimeoutSeconds int64 `json:"chat_timeout_seconds" yaml:"chat_timeout_seconds" toml:"chat_timeout_seconds"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`

	SwaggerEnabled bool `json:"swagger_enabled" yaml:"swagger_enabled" toml:"swagger_enabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:          8000,
		ModelName:     "gpt2",
		ModelsDir:     "~/models/llm",
		Backend:       BackendLlama,
		LlamaURL:      "http://127.0.0.1:8080",
		LlamaCtx:      2048,
		MaxConcurrent: 1,
		Instructions:  StringPtr(instructions.Default),
		LogLevel:      "info",
		LogFormat:     "json",
		MaxBodyBytes:  1 << 20,
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Merge returns base with every non-zero field of over applied on top.
func Merge(base, over Config) Config {
	out := base
	if over.Addr != "" {
		out.Addr = over.Addr
	}
	if over.Port != 0 {
		out.Port = over.Port
	}
	if over.ModelName != "" {
		out.ModelName = over.ModelName
	}
	if over.ModelsDir != "" {
		out.ModelsDir = over.ModelsDir
	}
	if over.Backend != "" {
		out.Backend = over.Backend
	}
	if over.LlamaURL != "" {
		out.LlamaURL = over.LlamaURL
	}
	if over.LlamaAPIKey != "" {
		out.LlamaAPIKey = over.LlamaAPIKey
	}
	if over.LlamaCtx != 0 {
		out.LlamaCtx = over.LlamaCtx
	}
	if over.LlamaThreads != 0 {
		out.LlamaThreads = over.LlamaThreads
	}
	if over.LlamaTimeoutSeconds != 0 {
		out.LlamaTimeoutSeconds = over.LlamaTimeoutSeconds
	}
	if over.MaxConcurrent != 0 {
		out.MaxConcurrent = over.MaxConcurrent
	}
	if over.Instructions != nil {
		v := *over.Instructions
		out.Instructions = &v
	}
	if over.LogLevel != "" {
		out.LogLevel = over.LogLevel
	}
	if over.LogFormat != "" {
		out.LogFormat = over.LogFormat
	}
	if over.MaxBodyBytes != 0 {
		out.MaxBodyBytes = over.MaxBodyBytes
	}
	if over.ChatTimeoutSeconds != 0 {
		out.ChatTimeoutSeconds = over.ChatTimeoutSeconds
	}
	if over.CORSEnabled {
		out.CORSEnabled = true
	}
	if len(over.CORSAllowedOrigins) > 0 {
		out.CORSAllowedOrigins = append([]string(nil), over.CORSAllowedOrigins...)
	}
	if len(over.CORSAllowedMethods) > 0 {
		out.CORSAllowedMethods = append([]string(nil), over.CORSAllowedMethods...)
	}
	if len(over.CORSAllowedHeaders) > 0 {
		out.CORSAllowedHeaders = append([]string(nil), over.CORSAllowedHeaders...)
	}
	if over.SwaggerEnabled {
		out.SwaggerEnabled = true
	}
	return out
}

// FromEnv builds a partial Config from environment variables. Unset or
// unparsable variables leave the corresponding field zero.
func FromEnv(getenv func(string) string) Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	var cfg Config
	if v := strings.TrimSpace(getenv("PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	cfg.Addr = strings.TrimSpace(getenv("WROMGPT_ADDR"))
	cfg.ModelName = strings.TrimSpace(getenv("MODEL_NAME"))
	cfg.ModelsDir = strings.TrimSpace(getenv("MODELS_DIR"))
	cfg.Backend = strings.TrimSpace(getenv("WROMGPT_BACKEND"))
	cfg.LlamaURL = strings.TrimSpace(getenv("LLAMA_URL"))
	cfg.LlamaAPIKey = getenv("LLAMA_API_KEY")
	if v := strings.TrimSpace(getenv("LLAMA_TIMEOUT_SECONDS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.LlamaTimeoutSeconds = n
		}
	}
	cfg.LogLevel = strings.TrimSpace(getenv("LOG_LEVEL"))
	return cfg
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string { return &s }

// InitialInstructions returns the configured instruction text, or "" when unset.
func (c Config) InitialInstructions() string {
	if c.Instructions == nil {
		return ""
	}
	return *c.Instructions
}

// ListenAddr returns Addr if set, otherwise ":<Port>".
func (c Config) ListenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return ":" + strconv.Itoa(c.Port)
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Addr == "" && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("model name is required")
	}
	switch c.Backend {
	case BackendLlama:
	case BackendServer:
		if strings.TrimSpace(c.LlamaURL) == "" {
			return fmt.Errorf("llama_url is required for the %s backend", BackendServer)
		}
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent must not be negative: %d", c.MaxConcurrent)
	}
	if c.LlamaTimeoutSeconds < 0 {
		return fmt.Errorf("llama_timeout_seconds must not be negative: %d", c.LlamaTimeoutSeconds)
	}
	if c.ChatTimeoutSeconds < 0 {
		return fmt.Errorf("chat_timeout_seconds must not be negative: %d", c.ChatTimeoutSeconds)
	}
	return nil
}
