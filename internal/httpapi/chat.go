package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"wromgpt/internal/manager"
	"wromgpt/pkg/types"
)

// assistantMarker ends every prompt; the reply is whatever follows its last occurrence.
const assistantMarker = "Assistant:"

// buildPrompt injects instructions ahead of the user message.
func buildPrompt(instructions, message string) string {
	return instructions + "\n\nUser: " + message + "\n\n" + assistantMarker
}

// extractReply strips the prompt echo from a decoded sequence. Without a
// marker the text is returned unchanged.
func extractReply(raw string) string {
	i := strings.LastIndex(raw, assistantMarker)
	if i < 0 {
		return raw
	}
	return strings.TrimSpace(raw[i+len(assistantMarker):])
}

// validateChat checks field constraints and applies defaults.
func validateChat(req types.ChatRequest) (manager.GenerateParams, error) {
	if req.Message == nil {
		return manager.GenerateParams{}, errors.New("message is required")
	}
	p := manager.GenerateParams{
		MaxLength:   req.MaxLengthOrDefault(),
		Temperature: req.TemperatureOrDefault(),
	}
	if p.MaxLength <= 0 {
		return p, errors.New("max_length must be a positive integer")
	}
	if p.Temperature <= 0 {
		return p, errors.New("temperature must be greater than 0")
	}
	return p, nil
}

// handleChat godoc
// @Summary      Chat with instruction injection
// @Description  Prefixes the message with the system instructions (or custom_instructions) and generates a reply.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request  body      types.ChatRequest  true  "Chat request"
// @Success      200      {object}  types.ChatResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /api/chat [post]
func (a *api) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lvl := requestLogLevel(r)

	var req types.ChatRequest
	if status, err := decodeJSON(w, r, &req); err != nil {
		incChatRejected("bad_request")
		writeJSONError(w, status, err.Error())
		return
	}
	params, err := validateChat(req)
	if err != nil {
		incChatRejected("bad_request")
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !a.svc.Ready() {
		incChatRejected("not_loaded")
		writeJSONError(w, http.StatusServiceUnavailable, "Model not loaded")
		logEnd(r, lvl, http.StatusServiceUnavailable, start, nil)
		return
	}

	instructions := a.store.Get()
	if req.CustomInstructions != nil && *req.CustomInstructions != "" {
		instructions = *req.CustomInstructions
	}
	prompt := buildPrompt(instructions, *req.Message)

	if lvl >= LevelInfo {
		ev := zlog.Info().Str("path", r.URL.Path).Int("max_length", params.MaxLength).Float64("temperature", params.Temperature).
			Bool("custom_instructions", req.CustomInstructions != nil && *req.CustomInstructions != "")
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			ev = ev.Str("request_id", rid)
		}
		if lvl >= LevelDebug {
			ev = ev.Str("prompt", prompt)
		}
		ev.Msg("chat start")
	}

	ctx, cancel := chatContext(r.Context())
	defer cancel()
	raw, err := a.svc.Generate(ctx, prompt, params)
	if err != nil {
		// Client went away: nobody to answer.
		if r.Context().Err() != nil {
			incChatRejected("canceled")
			return
		}
		if serverBaseCtx.Err() != nil {
			incChatRejected("shutting_down")
			writeJSONError(w, http.StatusServiceUnavailable, "Server shutting down")
			logEnd(r, lvl, http.StatusServiceUnavailable, start, err)
			return
		}
		status := http.StatusInternalServerError
		msg := "Error generating response: " + err.Error()
		var he HTTPError
		if manager.IsModelNotLoaded(err) {
			status, msg = http.StatusServiceUnavailable, "Model not loaded"
			incChatRejected("not_loaded")
		} else if errors.As(err, &he) && he.StatusCode() != http.StatusInternalServerError {
			status = he.StatusCode()
			incChatRejected("backend_unavailable")
		} else {
			incChatRejected("generation_error")
		}
		writeJSONError(w, status, msg)
		logEnd(r, lvl, status, start, err)
		return
	}

	reply := extractReply(raw)
	if lvl >= LevelDebug {
		zlog.Debug().Str("raw", raw).Str("reply", reply).Msg("chat output")
	}
	writeJSON(w, http.StatusOK, types.ChatResponse{Response: reply, ModelUsed: a.svc.ModelName()})
	logEnd(r, lvl, http.StatusOK, start, nil)
}
