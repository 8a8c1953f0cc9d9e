package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"wromgpt/internal/config"
	"wromgpt/internal/httpapi"
	"wromgpt/internal/instructions"
	"wromgpt/internal/manager"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// flagValues mirrors the config fields settable from the command line.
type flagValues struct {
	configPath    string
	addr          string
	port          int
	modelName     string
	modelsDir     string
	backend       string
	llamaURL      string
	llamaCtx      int
	llamaThreads  int
	llamaTimeout  int64
	maxConcurrent int
	instructions  string
	logLevel      string
	logFormat     string
	maxBodyBytes  int64
	chatTimeout   int64
	corsEnabled   bool
	corsOrigins   string
	corsMethods   string
	corsHeaders   string
	swagger       bool
}

func newRootCmd() *cobra.Command { return newRootCmdWith(&flagValues{}) }

// newRootCmdWith builds the command tree with flags bound to fv.
func newRootCmdWith(fv *flagValues) *cobra.Command {
	root := &cobra.Command{
		Use:          "wromgpt",
		Short:        "Serve a causal language model with injectable system instructions",
		SilenceUsage: true,
		RunE:         func(cmd *cobra.Command, args []string) error { return runServe(cmd, fv) },
	}
	pf := root.PersistentFlags()
	pf.StringVar(&fv.configPath, "config", "", "Path to config file (yaml|yml|json|toml)")
	pf.StringVar(&fv.addr, "addr", "", "HTTP listen address, e.g. :8000 (overrides --port)")
	pf.IntVar(&fv.port, "port", 0, "HTTP port (defaults PORT or 8000)")
	pf.StringVar(&fv.modelName, "model-name", "", "Model name or path (defaults MODEL_NAME or gpt2)")
	pf.StringVar(&fv.modelsDir, "models-dir", "", "Directory to search for *.gguf model files")
	pf.StringVar(&fv.backend, "backend", "", "Inference backend: llama|server")
	pf.StringVar(&fv.llamaURL, "llama-url", "", "llama.cpp server base URL (server backend)")
	pf.IntVar(&fv.llamaCtx, "llama-ctx", 0, "Context size for the in-process backend")
	pf.IntVar(&fv.llamaThreads, "llama-threads", 0, "Threads for the in-process backend (0=auto)")
	pf.Int64Var(&fv.llamaTimeout, "llama-timeout", 0, "Request timeout in seconds for the llama.cpp server (0=none)")
	pf.IntVar(&fv.maxConcurrent, "max-concurrent", 0, "Maximum simultaneous generations (default 1)")
	pf.StringVar(&fv.instructions, "instructions", "", "Initial system instructions")
	pf.StringVar(&fv.logLevel, "log-level", "", "Log level: debug|info|warn|error (defaults LOG_LEVEL or info)")
	pf.StringVar(&fv.logFormat, "log-format", "", "Log format: json|console")
	pf.Int64Var(&fv.maxBodyBytes, "max-body-bytes", 0, "Maximum JSON request body size in bytes")
	pf.Int64Var(&fv.chatTimeout, "chat-timeout", 0, "Per-request generation timeout in seconds (0=none)")
	pf.BoolVar(&fv.corsEnabled, "cors-enabled", false, "Enable CORS middleware")
	pf.StringVar(&fv.corsOrigins, "cors-origins", "", "Comma-separated CORS allowed origins")
	pf.StringVar(&fv.corsMethods, "cors-methods", "", "Comma-separated CORS allowed methods")
	pf.StringVar(&fv.corsHeaders, "cors-headers", "", "Comma-separated CORS allowed headers")
	pf.BoolVar(&fv.swagger, "swagger", false, "Serve Swagger UI at /swagger/")

	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Load the model and serve the HTTP API",
		Example: "  wromgpt serve --model-name gpt2 --port 8000\n  wromgpt serve --backend server --llama-url http://127.0.0.1:8080",
		RunE:    func(cmd *cobra.Command, args []string) error { return runServe(cmd, fv) },
	}
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the configured model and backend are available",
		RunE:  func(cmd *cobra.Command, args []string) error { return runCheck(cmd, fv) },
	}
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the service version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", httpapi.ServiceName, httpapi.ServiceVersion)
		},
	}
	root.AddCommand(serveCmd, checkCmd, versionCmd)
	return root
}

// resolveConfig merges defaults < file < env < flags and validates the result.
func resolveConfig(cmd *cobra.Command, fv *flagValues, getenv func(string) string) (config.Config, error) {
	cfg := config.Default()
	if fv.configPath != "" {
		fileCfg, err := config.Load(fv.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = config.Merge(cfg, fileCfg)
	}
	cfg = config.Merge(cfg, config.FromEnv(getenv))
	cfg = config.Merge(cfg, flagConfig(cmd, fv))
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// flagConfig returns a partial Config holding only flags set explicitly.
func flagConfig(cmd *cobra.Command, fv *flagValues) config.Config {
	changed := cmd.Flags().Changed
	var c config.Config
	if changed("addr") {
		c.Addr = fv.addr
	}
	if changed("port") {
		c.Port = fv.port
	}
	if changed("model-name") {
		c.ModelName = fv.modelName
	}
	if changed("models-dir") {
		c.ModelsDir = fv.modelsDir
	}
	if changed("backend") {
		c.Backend = fv.backend
	}
	if changed("llama-url") {
		c.LlamaURL = fv.llamaURL
	}
	if changed("llama-ctx") {
		c.LlamaCtx = fv.llamaCtx
	}
	if changed("llama-threads") {
		c.LlamaThreads = fv.llamaThreads
	}
	if changed("llama-timeout") {
		c.LlamaTimeoutSeconds = fv.llamaTimeout
	}
	if changed("max-concurrent") {
		c.MaxConcurrent = fv.maxConcurrent
	}
	if changed("instructions") {
		c.Instructions = config.StringPtr(fv.instructions)
	}
	if changed("log-level") {
		c.LogLevel = fv.logLevel
	}
	if changed("log-format") {
		c.LogFormat = fv.logFormat
	}
	if changed("max-body-bytes") {
		c.MaxBodyBytes = fv.maxBodyBytes
	}
	if changed("chat-timeout") {
		c.ChatTimeoutSeconds = fv.chatTimeout
	}
	if changed("cors-enabled") {
		c.CORSEnabled = fv.corsEnabled
	}
	if changed("cors-origins") {
		c.CORSAllowedOrigins = splitCSV(fv.corsOrigins)
	}
	if changed("cors-methods") {
		c.CORSAllowedMethods = splitCSV(fv.corsMethods)
	}
	if changed("cors-headers") {
		c.CORSAllowedHeaders = splitCSV(fv.corsHeaders)
	}
	if changed("swagger") {
		c.SwaggerEnabled = fv.swagger
	}
	return c
}

// splitCSV splits a comma-separated list, trimming spaces and dropping empties.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newLogger(level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	var l zerolog.Logger
	switch strings.ToLower(format) {
	case "console":
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	case "", "json":
		l = zerolog.New(os.Stderr)
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", format)
	}
	return l.Level(lvl).With().Timestamp().Logger(), nil
}

func newManager(cfg config.Config, log zerolog.Logger) *manager.Manager {
	return manager.NewWithConfig(manager.ManagerConfig{
		ModelName:     cfg.ModelName,
		ModelsDir:     cfg.ModelsDir,
		Backend:       cfg.Backend,
		MaxConcurrent: cfg.MaxConcurrent,
		Publisher:     eventLogger(log),
		LlamaCtx:      cfg.LlamaCtx,
		LlamaThreads:  cfg.LlamaThreads,
		LlamaURL:      cfg.LlamaURL,
		LlamaAPIKey:   cfg.LlamaAPIKey,
		LlamaTimeout:  time.Duration(cfg.LlamaTimeoutSeconds) * time.Second,
	})
}

// eventLogger forwards manager lifecycle events to the structured log.
func eventLogger(log zerolog.Logger) manager.EventPublisher {
	return manager.PublisherFunc(func(e manager.Event) {
		ev := log.Info()
		if e.Name == manager.EventLoadError {
			ev = log.Error()
		}
		ev.Str("event", e.Name).Str("model", e.Model).Fields(e.Fields).Msg("model lifecycle")
	})
}

func runCheck(cmd *cobra.Command, fv *flagValues) error {
	cfg, err := resolveConfig(cmd, fv, os.Getenv)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	rep := newManager(cfg, log).SanityCheck(cmd.Context())
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return err
	}
	if !rep.OK() {
		return errors.New(rep.Error)
	}
	return nil
}

func runServe(cmd *cobra.Command, fv *flagValues) error {
	cfg, err := resolveConfig(cmd, fv, os.Getenv)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := instructions.NewStore(cfg.InitialInstructions())
	mgr := newManager(cfg, log)

	log.Info().Str("model", cfg.ModelName).Str("backend", cfg.Backend).Str("models_dir", cfg.ModelsDir).
		Bool("llama_built", manager.LlamaBuilt()).Msg("loading model")
	if err := mgr.Load(ctx); err != nil {
		log.Error().Err(err).Str("model", cfg.ModelName).Msg("failed to load model")
		return err
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			log.Error().Err(err).Msg("close model")
		}
	}()

	httpapi.SetLogger(log)
	httpapi.SetRequestLogLevel(cfg.LogLevel)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetChatTimeoutSeconds(cfg.ChatTimeoutSeconds)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, cfg.CORSAllowedMethods, cfg.CORSAllowedHeaders)
	httpapi.SetSwaggerEnabled(cfg.SwaggerEnabled)
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           httpapi.NewMux(mgr, store),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("model", mgr.ModelName()).Msg("wromgpt listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			log.Error().Err(err).Msg("server error")
			return err
		}
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
