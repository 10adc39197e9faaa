// internal/common/errors/handler.go
package errors

import (
	"github.com/gin-gonic/gin"
)

// ErrorHandler turns any error into exactly one HTTP error response.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string    `json:"error"`
	Code  ErrorCode `json:"code"`
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Respond normalizes err, logs it and aborts the request with the mapped status.
func (h *ErrorHandler) Respond(c *gin.Context, err error) {
	stdErr := Normalize(err)
	if stdErr == nil {
		stdErr = NewInternalError(nil)
	}

	h.logError(c, stdErr)

	c.AbortWithStatusJSON(stdErr.Status(), ErrorBody{
		Error: stdErr.Message,
		Code:  stdErr.Code,
	})
}

func (h *ErrorHandler) logError(c *gin.Context, stdErr *StandardError) {
	fields := map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
		"status":        stdErr.Status(),
		"path":          c.FullPath(),
	}
	if requestID, ok := c.Get("requestId"); ok {
		fields["requestId"] = requestID
	}
	for k, v := range stdErr.Metadata {
		fields[k] = v
	}

	if stdErr.Status() < 500 {
		h.logger.Warn("request rejected", fields)
		return
	}
	h.logger.Error("request failed", fields)
}
