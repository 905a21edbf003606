package web

// errors.go maps service errors onto HTTP responses.
//
// The technical error is logged with the request ID; the client gets the
// user message from core.MapError plus a stable code.

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/migrator/internal/core"
	"github.com/JonMunkholm/migrator/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`

	// MigrationID is set when the request created a migration before failing.
	MigrationID int64 `json:"migration_id,omitempty"`
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrJobTerminal), errors.Is(err, core.ErrJobStarted):
		return http.StatusConflict
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrInvalidJob),
		errors.Is(err, core.ErrUnknownTarget),
		errors.Is(err, core.ErrUnsupportedFormat),
		errors.Is(err, core.ErrSpreadsheetUnavailable):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user-facing form. A zero status is
// derived from the error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	status, resp := s.errorResponse(r, err, status)
	writeJSON(w, status, resp)
}

// respondJobError is respondError for a request that already created
// migration id.
func (s *Server) respondJobError(w http.ResponseWriter, r *http.Request, id int64, err error) {
	status, resp := s.errorResponse(r, err, 0)
	resp.MigrationID = id
	writeJSON(w, status, resp)
}

func (s *Server) errorResponse(r *http.Request, err error, status int) (int, ErrorResponse) {
	if status == 0 {
		status = statusFor(err)
	}
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	return status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
}
