package httpapi

import (
	"net/http"

	"wromgpt/pkg/types"
)

// handleGetInstructions godoc
// @Summary      Current system instructions
// @Tags         instructions
// @Produce      json
// @Success      200  {object}  types.InstructionsResponse
// @Router       /api/instructions [get]
func (a *api) handleGetInstructions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.InstructionsResponse{Instructions: a.store.Get()})
}

// handleSetInstructions godoc
// @Summary      Replace system instructions
// @Description  Replaces the instructions injected into every chat prompt. Not persisted across restarts.
// @Tags         instructions
// @Accept       json
// @Produce      json
// @Param        request  body      types.InstructionsRequest  true  "New instructions"
// @Success      200      {object}  types.InstructionsUpdateResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Router       /api/instructions [post]
func (a *api) handleSetInstructions(w http.ResponseWriter, r *http.Request) {
	var req types.InstructionsRequest
	if status, err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, status, err.Error())
		return
	}
	if req.Instructions == nil {
		writeJSONError(w, http.StatusBadRequest, "instructions is required")
		return
	}
	a.store.Set(*req.Instructions)
	instructionUpdatesTotal.Inc()
	zlog.Info().Int("length", len(*req.Instructions)).Msg("system instructions updated")
	writeJSON(w, http.StatusOK, types.InstructionsUpdateResponse{
		Status:       "success",
		Message:      "System instructions updated",
		Instructions: *req.Instructions,
	})
}
