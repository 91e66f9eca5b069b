package kit

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string, details any) {
	WriteJSON(w, status, ErrorResponse{
		Error:     msg,
		Details:   details,
		RequestID: chimw.GetReqID(r.Context()),
	})
}

// WriteUpstreamError relays a failed upstream call. raw is passed through
// untouched when it is valid JSON, otherwise as a string.
func WriteUpstreamError(w http.ResponseWriter, r *http.Request, status int, msg, message string, raw []byte) {
	var details any
	if len(raw) > 0 {
		if json.Valid(raw) {
			details = json.RawMessage(raw)
		} else {
			details = string(raw)
		}
	}
	WriteJSON(w, status, ErrorResponse{
		Error:     msg,
		Message:   message,
		Details:   details,
		RequestID: chimw.GetReqID(r.Context()),
	})
}
