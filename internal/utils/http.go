// Package utils provides utility functions used throughout the gateway.
package utils

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ErrorBody is the JSON error body returned by the JSON endpoints.
type ErrorBody struct {
	Error string `json:"error"`
}

// RespondWithJSON sends a JSON response with the given status code and data.
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			GetLogger().Error("Failed to encode JSON response", err)
		}
	}
}

// RespondWithError sends a JSON error body with the given status code and message.
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithJSON(w, statusCode, ErrorBody{Error: message})
}

// RespondWithText sends a plain-text body, used by the streaming endpoints
// where a JSON body would be mistaken for media.
func RespondWithText(w http.ResponseWriter, statusCode int, message string) {
	http.Error(w, message, statusCode)
}

// GetRequestIP gets the client IP address from the request
func GetRequestIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.RemoteAddr
	}

	if strings.Contains(ip, ",") {
		ip = strings.TrimSpace(strings.Split(ip, ",")[0])
	}

	// Strip port
	if idx := strings.LastIndex(ip, ":"); idx != -1 && !strings.HasSuffix(ip, "]") {
		ip = ip[:idx]
	}

	return ip
}
