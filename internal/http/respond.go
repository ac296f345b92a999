package http

import (
	"encoding/json"
	"net/http"
)

// envelope is the uniform JSON wrapper returned by every API endpoint
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondData writes a success envelope with the given payload
func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// respondMessage writes a success envelope with a payload and a
// human-readable message
func respondMessage(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

// respondError writes a failure envelope
func respondError(w http.ResponseWriter, status int, errMsg string) {
	writeJSON(w, status, envelope{Success: false, Error: errMsg})
}

// respondErrorDetails writes a failure envelope carrying field-level
// validation details
func respondErrorDetails(w http.ResponseWriter, status int, errMsg string, details any) {
	writeJSON(w, status, envelope{Success: false, Error: errMsg, Details: details})
}
