package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"kassa/internal/auth"
	"kassa/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the ledger error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is an internal error and keeps its detail out of the
// response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		writeJSON(w, statusFor(coreErr.Code), errorResponse{Error: coreErr.Msg, Field: coreErr.Field})
		return
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		s.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func statusFor(code core.Code) int {
	switch code {
	case core.CodeValidation, core.CodeInvariant:
		return http.StatusBadRequest
	case core.CodeReferential, core.CodeNotFound:
		return http.StatusNotFound
	case core.CodeOwnership:
		return http.StatusForbidden
	case core.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
