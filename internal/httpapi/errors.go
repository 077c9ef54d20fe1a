// Package httpapi exposes the inventory HTTP API.
package httpapi

import "github.com/gin-gonic/gin"

// jsonError represents a JSON error payload.
type jsonError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeJSONError aborts the request with a JSON error payload.
func writeJSONError(c *gin.Context, status int, message, details string) {
	c.AbortWithStatusJSON(status, jsonError{Error: message, Details: details})
}
