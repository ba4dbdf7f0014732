package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/TomascpMarques/to-orderly/internal/logging"
	"github.com/TomascpMarques/to-orderly/internal/templates"
)

const notFoundReason = "The requested resource was not found."

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Error  string `json:"error,omitempty"`
	Reason string `json:"reason"`
}

// apiError is an error with a fixed status and code, raised by handlers for
// request problems that never reach the service.
type apiError struct {
	status int
	code   string
	reason string
}

func (e *apiError) Error() string { return e.reason }

var errBadQuery = &apiError{status: http.StatusBadRequest, code: "bad_query", reason: "Bad query parameters"}

func statusFor(code string) int {
	switch code {
	case "duplicate_field", "unimplemented_conversion", "malformed_input", "invalid_table", "bad_template_schema":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "already_exists":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse maps err to a status and body.
func errorResponse(err error) (int, ErrorBody) {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.status, ErrorBody{Error: ae.code, Reason: ae.reason}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			return http.StatusNotFound, ErrorBody{Reason: notFoundReason}
		case http.StatusRequestEntityTooLarge:
			return he.Code, ErrorBody{Error: "body_too_large", Reason: http.StatusText(he.Code)}
		default:
			return he.Code, ErrorBody{Error: "http_error", Reason: http.StatusText(he.Code)}
		}
	}

	code := templates.Code(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		return status, ErrorBody{Error: "internal", Reason: "An error occurred"}
	}
	return status, ErrorBody{Error: code, Reason: err.Error()}
}

// handleError is the echo HTTPErrorHandler.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, body := errorResponse(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(c.Request().Context(), s.log).Error("api: internal error", "path", c.Path(), "err", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.log.Warn("api: write error response", "err", err)
	}
}
