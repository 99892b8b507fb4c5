package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	radar "github.com/krisalay/package-radar"
	"github.com/krisalay/package-radar/fetcherr"
	"github.com/krisalay/package-radar/internal/logging"
)

// ErrorResponse is the body of every failed package request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Status    int    `json:"status,omitempty"`
	Retryable bool   `json:"retryable"`
}

func writeError(c *gin.Context, err error) {
	kind := fetcherr.KindOf(err)
	resp := ErrorResponse{
		Error:     err.Error(),
		Kind:      kind.String(),
		Status:    fetcherr.StatusOf(err),
		Retryable: fetcherr.IsRetryable(err),
	}

	code := statusFor(err, kind)
	logging.FromContext(c.Request.Context()).Warn().
		Err(err).
		Str("kind", resp.Kind).
		Int("code", code).
		Msg("request failed")
	c.JSON(code, resp)
}

func statusFor(err error, kind fetcherr.Kind) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	case errors.Is(err, radar.ErrUnknownNamespace):
		return http.StatusBadRequest
	}

	switch kind {
	case fetcherr.KindNotFound:
		return http.StatusNotFound
	case fetcherr.KindValidation:
		return http.StatusUnprocessableEntity
	case fetcherr.KindNetwork:
		return http.StatusBadGateway
	case fetcherr.KindUpstream:
		switch fetcherr.StatusOf(err) {
		case http.StatusNotFound:
			return http.StatusNotFound
		case http.StatusTooManyRequests:
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
