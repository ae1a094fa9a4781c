package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/rs/zerolog"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message, details string) {
	respondJSON(w, r, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// handleError maps the domain error taxonomy onto HTTP statuses. The raw failure reason is
// passed through in details so the shopper sees why the request failed.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status  int
		code    string
		message string
	)

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		respondError(w, r, http.StatusBadRequest, "invalid_argument", ve.Error(), ve.Field)
		return
	case errors.Is(err, domain.ErrValidation):
		status, code, message = http.StatusBadRequest, "invalid_argument", "invalid request"
	case errors.Is(err, domain.ErrSubmission):
		status, code, message = http.StatusBadGateway, "submission_failed", "order could not be placed"
	case errors.Is(err, domain.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, domain.ErrFetch):
		status, code, message = http.StatusBadGateway, "fetch_failed", "cart could not be loaded"
	case errors.Is(err, context.DeadlineExceeded):
		status, code, message = http.StatusGatewayTimeout, "timeout", "request timed out"
	case errors.Is(err, domain.ErrNetwork):
		status, code, message = http.StatusBadGateway, "upstream_error", "catalog request failed"
	default:
		status, code, message = http.StatusInternalServerError, "internal_error", "internal server error"
	}

	ev := zerolog.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		ev = zerolog.Ctx(r.Context()).Error()
	}
	ev.Err(err).Int("status", status).Msg("request failed")

	respondError(w, r, status, code, message, err.Error())
}
