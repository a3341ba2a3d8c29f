package utils

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// ParsePositiveInt returns def for empty, malformed or non-positive input.
func ParsePositiveInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// ParseBool accepts only the literal "true", the way query flags are sent by the web client.
func ParseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

// WriteJSONError writes the error envelope shared by middleware and handlers.
func WriteJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	})
}
