package httputil

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// TooManyRequests writes a 429 with a Retry-After header and the
// whole-seconds wait in the body.
func TooManyRequests(w http.ResponseWriter, resetIn int) {
	w.Header().Set("Retry-After", strconv.Itoa(resetIn))
	JSON(w, http.StatusTooManyRequests, map[string]any{
		"error":    "too many attempts, try again later",
		"reset_in": resetIn,
	})
}
