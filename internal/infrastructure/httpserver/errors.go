package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
)

// errorBody is the JSON shape of every failed API response.
type errorBody struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Code    apperr.Code         `json:"code,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// statusFor maps an error kind to its HTTP status. Conflicts are reported
// as 400 alongside other field errors.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindConflict:
		return http.StatusBadRequest
	case apperr.KindAuthentication:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// handleError renders apperr values with their status and field messages.
// Untyped errors become a generic 500 without internal detail.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	body := errorBody{Status: "error", Message: "An unexpected error occurred."}

	var he *echo.HTTPError
	if appErr, ok := apperr.As(err); ok && appErr.Kind != apperr.KindInternal && appErr.Kind != apperr.KindTransient {
		code = statusFor(appErr.Kind)
		body.Message = appErr.Message
		body.Code = appErr.Code
		body.Errors = appErr.Fields
	} else if errors.As(err, &he) {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			body.Message = msg
		} else {
			body.Message = http.StatusText(he.Code)
		}
	}

	if code >= http.StatusInternalServerError && s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).WithError(err).Error("request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil && s.logger != nil {
		s.logger.WithError(err).Error("failed to write error response")
	}
}
