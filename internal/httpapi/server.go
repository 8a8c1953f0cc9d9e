package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wromgpt/internal/manager"
	"wromgpt/pkg/types"
)

// Service metadata reported by GET /.
const (
	ServiceName    = "WromGPT API"
	ServiceVersion = "1.0.0"
)

// Service defines the model operations required by the HTTP API layer.
type Service interface {
	Ready() bool
	ModelName() string
	Generate(ctx context.Context, prompt string, p manager.GenerateParams) (string, error)
}

// InstructionStore is the mutable system instruction cell.
type InstructionStore interface {
	Get() string
	Set(text string)
}

type api struct {
	svc   Service
	store InstructionStore
}

// NewMux builds the router. svc and store are shared by all requests.
func NewMux(svc Service, store InstructionStore) http.Handler {
	a := &api{svc: svc, store: store}

	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: orDefault(corsAllowedOrigins, []string{"*"}),
			AllowedMethods: orDefault(corsAllowedMethods, []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: orDefault(corsAllowedHeaders, []string{"Content-Type", "X-Log-Level"}),
			MaxAge:         300,
		}))
	}

	r.Get("/", a.handleInfo)
	r.Get("/health", a.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", a.handleChat)
		r.Get("/instructions", a.handleGetInstructions)
		r.Post("/instructions", a.handleSetInstructions)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	if swaggerEnabled {
		MountSwagger(r)
	}
	return r
}

// handleInfo godoc
// @Summary      Service metadata
// @Tags         meta
// @Produce      json
// @Success      200  {object}  types.InfoResponse
// @Router       / [get]
func (a *api) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.InfoResponse{
		Name:    ServiceName,
		Version: ServiceVersion,
		Status:  "running",
		Model:   a.svc.ModelName(),
		Endpoints: map[string]string{
			"chat":         "/api/chat",
			"instructions": "/api/instructions",
			"health":       "/health",
		},
	})
}

// handleHealth godoc
// @Summary      Model readiness
// @Description  Always 200; the body reports whether the model is loaded.
// @Tags         meta
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Router       /health [get]
func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	loaded := a.svc.Ready()
	status := "unhealthy"
	if loaded {
		status = "healthy"
	}
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:      status,
		ModelLoaded: loaded,
		ModelName:   a.svc.ModelName(),
	})
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
