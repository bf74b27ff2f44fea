package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mail2shivb/fileupload/internal/core/domain"
)

// StatusClientClosedRequest is recorded when the caller went away before a
// response could be written.
const StatusClientClosedRequest = 499

// AskResponse is the success body of POST /api/ask.
type AskResponse struct {
	Text string `json:"text"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// statusFor maps an error category to an HTTP status.
func statusFor(category string) int {
	switch category {
	case "invalid_request":
		return http.StatusBadRequest
	case "auth_error", "upload_error", "retrieval_error", "completion_error":
		return http.StatusBadGateway
	case "timeout":
		return http.StatusGatewayTimeout
	case "canceled":
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as a JSON error body.
func writeError(c *gin.Context, err error) {
	info := domain.DescribeError(err)
	status := statusFor(info.Category)

	// Nobody is listening any more; record the outcome without a body.
	if info.Category == "canceled" && c.Request.Context().Err() != nil {
		c.AbortWithStatus(StatusClientClosedRequest)
		return
	}

	c.AbortWithStatusJSON(status, info)
}

// invalidRequest renders a 400 with the given message.
func invalidRequest(c *gin.Context, format string, args ...any) {
	writeError(c, fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidInput}, args...)...))
}

// tooLarge renders a 413 when the body exceeded the configured limit.
func tooLarge(c *gin.Context, limit int64) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, domain.ErrorInfo{
		Category: "invalid_request",
		Message:  fmt.Sprintf("request body exceeds %d bytes", limit),
	})
}

// isTooLarge reports whether err came from http.MaxBytesReader.
func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	// Some multipart paths flatten the error to text.
	return strings.Contains(err.Error(), "request body too large")
}
