package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/talentflow/recruiting/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable {
			c.Response().Header().Set("Retry-After", "1")
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "email or password is incorrect, please try again"
	case errors.Is(err, domain.ErrInvalidAssertion):
		return http.StatusUnauthorized, "the sign-in link is invalid or has expired, please try again"
	case errors.Is(err, domain.ErrAccountDisabled):
		return http.StatusForbidden, "this account has been disabled"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "too many sign-in attempts, please wait a moment and try again"
	case errors.Is(err, domain.ErrAccountExists):
		return http.StatusConflict, "an account with this email already exists"
	case errors.Is(err, domain.ErrNoActiveSession):
		return http.StatusUnauthorized, "no active session"
	case errors.Is(err, domain.ErrInvalidProfile):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusNotFound, "profile not found"
	case errors.Is(err, domain.ErrStoreConflict):
		return http.StatusConflict, "the profile was changed concurrently, please retry"
	case errors.Is(err, domain.ErrStoreUnavailable):
		log.Warn().Err(err).Str("path", c.Path()).Msg("profile store unavailable")
		return http.StatusServiceUnavailable, "profile service is temporarily unavailable"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
