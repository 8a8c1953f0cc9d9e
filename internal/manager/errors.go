package manager

import (
	"errors"
	"net/http"

	"wromgpt/internal/registry"
)

// modelNotLoadedError is returned by Generate before Load has completed.
type modelNotLoadedError struct{ name string }

func (e modelNotLoadedError) Error() string { return "Model not loaded" }

// StatusCode maps to 503 Service Unavailable.
func (e modelNotLoadedError) StatusCode() int { return http.StatusServiceUnavailable }

// IsModelNotLoaded reports whether err indicates the model is not ready yet.
func IsModelNotLoaded(err error) bool {
	var e modelNotLoadedError
	return errors.As(err, &e)
}

// generationError wraps any failure of the underlying inference call.
type generationError struct{ cause error }

func (e generationError) Error() string { return e.cause.Error() }

func (e generationError) Unwrap() error { return e.cause }

// StatusCode maps to 500 Internal Server Error.
func (e generationError) StatusCode() int { return http.StatusInternalServerError }

// IsGenerationError reports whether err came from the inference backend.
func IsGenerationError(err error) bool {
	var e generationError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals a missing external dependency (e.g., llama.cpp)
// so callers can tell a broken build or unreachable backend from a bad model.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// StatusCode maps to 503 Service Unavailable.
func (e dependencyUnavailableError) StatusCode() int { return http.StatusServiceUnavailable }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}

// IsModelNotFound reports whether the configured model name could not be resolved.
func IsModelNotFound(err error) bool { return errors.Is(err, registry.ErrModelNotFound) }

// errAlreadyLoaded is returned by a second call to Load.
var errAlreadyLoaded = errors.New("model already loaded")
