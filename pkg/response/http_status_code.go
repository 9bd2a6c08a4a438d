package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the JSON error envelope every handler returns.
type Body struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Mapping pairs a sentinel error with the status it is reported as.
type Mapping struct {
	Err    error
	Status int
}

// StatusFor returns the status of the first mapping err matches, or 500.
func StatusFor(err error, mappings []Mapping) int {
	for _, m := range mappings {
		if errors.Is(err, m.Err) {
			return m.Status
		}
	}
	return http.StatusInternalServerError
}

func Error(c *gin.Context, status int, message, details string) {
	c.AbortWithStatusJSON(status, Body{Code: status, Message: message, Details: details})
}

// FromError writes err with the status found in mappings. Internal errors are
// not echoed to the client.
func FromError(c *gin.Context, err error, mappings []Mapping) {
	status := StatusFor(err, mappings)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		Error(c, status, "internal server error", "")
		return
	}
	Error(c, status, err.Error(), "")
}
