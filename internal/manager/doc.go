// Package manager owns the single generative model served by wromgpt. It is
// structured into small files by concern:
//
//   - manager.go: core Manager type, Load lifecycle, readiness getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: state and snapshot types.
//   - errors.go: error types and helpers (IsModelNotLoaded, IsGenerationError, ...).
//   - generate.go: Generate entry point and the concurrency gate.
//   - events.go: lifecycle events for observers.
//   - metrics.go: Prometheus collectors for load state and generation.
//   - sanity.go: SanityCheck, a read-only preflight of model and backend.
//
// Backends:
//
//   - In-process llama (default backend):
//     Uses the go-llama.cpp adapter. Enabled with `-tags=llama`.
//     Files: adapter_llama.go, llama_cgo.go (linker rpath hints).
//     A no-CGO stub exists when the tag is not set: adapter_llama_stub.go.
//     Without the tag Load fails with a dependency-unavailable error.
//
//   - llama.cpp server (backend "server"):
//     Talks to a running llama-server over its OpenAI-compatible
//     /v1/completions streaming endpoint. File: adapter_llama_server.go.
//
// The model is loaded once and never reloaded: the lifecycle is
// loading -> ready or loading -> error.
package manager
