package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// errorResponse is the JSON body for all error responses.
type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response with the given status code and payload.
func respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are already written; nothing left to do but log.
		slog.Error("Error encoding JSON response", "error", err)
	}
}

// respondError writes a JSON error response with the given status code and message.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, errorResponse{Error: message})
}
