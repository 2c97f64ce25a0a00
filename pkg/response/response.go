package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the single failure shape of the API. It never carries internal detail.
type ErrorResponse struct {
	StatusCode int               `json:"statusCode"`
	Message    string            `json:"message"`
	Error      string            `json:"error,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	RequestID  string            `json:"requestId,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

func Error(ctx *gin.Context, status int, message string, details map[string]string) ErrorResponse {
	if status == 0 {
		status = http.StatusBadRequest
	}
	return ErrorResponse{
		StatusCode: status,
		Message:    message,
		Error:      http.StatusText(status),
		Details:    details,
		RequestID:  ctx.GetString("request_id"),
		Timestamp:  time.Now().UTC(),
	}
}

// Fail writes an ErrorResponse and stops the handler chain.
func Fail(ctx *gin.Context, status int, message string, details map[string]string) {
	resp := Error(ctx, status, message, details)
	ctx.AbortWithStatusJSON(resp.StatusCode, resp)
}

// JSON writes data as the response body.
func JSON[T any](ctx *gin.Context, status int, data T) {
	if status == 0 {
		status = http.StatusOK
	}
	ctx.JSON(status, data)
}

type List[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func NewList[T any](items []T) List[T] {
	if items == nil {
		items = []T{}
	}
	return List[T]{Items: items, Count: len(items)}
}
