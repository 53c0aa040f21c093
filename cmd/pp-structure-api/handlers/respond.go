// Package handlers implements the HTTP handlers of the PP-Structure API.
package handlers

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes an error body. detail carries the client-facing message.
func writeError(w http.ResponseWriter, status int, message, detail string) {
	writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
		"detail":  detail,
	})
}
