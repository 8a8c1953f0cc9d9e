package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// errUnsupportedMediaType is returned by decodeJSON for non-JSON bodies.
var errUnsupportedMediaType = errors.New("Content-Type must be application/json")

// decodeJSON enforces the JSON content type and the body size limit, then
// decodes into dst. The returned status is the one to report on error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) (int, error) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return http.StatusUnsupportedMediaType, errUnsupportedMediaType
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		// Oversized bodies also land here; report 400 without size details.
		return http.StatusBadRequest, errors.New("invalid JSON body")
	}
	return http.StatusOK, nil
}
