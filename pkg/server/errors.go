package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"bucketfs/pkg/log"
	"bucketfs/pkg/models"
)

// statusFor maps an error category to an HTTP status.
func statusFor(err error) int {
	switch models.Category(err) {
	case "validation":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	case "limit_exceeded":
		return http.StatusRequestEntityTooLarge
	case "dependency":
		return http.StatusBadGateway
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error body. Internal errors are logged and hidden.
func fail(ctx echo.Context, op string, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("op", op).Str("path", ctx.Request().URL.Path).Msg("Request failed")
		if status == http.StatusInternalServerError {
			return ctx.JSON(status, map[string]string{
				"error":    "internal server error",
				"category": models.Category(err),
			})
		}
	} else {
		log.Warn().Err(err).Str("op", op).Str("path", ctx.Request().URL.Path).Msg("Request rejected")
	}

	return ctx.JSON(status, map[string]string{
		"error":    err.Error(),
		"category": models.Category(err),
	})
}

// badRequest reports malformed parameters or bodies.
func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, map[string]string{
		"error":    message,
		"category": "validation",
	})
}
