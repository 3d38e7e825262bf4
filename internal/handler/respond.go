// Package handler exposes the service operations over HTTP with chi.
// Caller identity comes from the X-User-ID header set by the gateway;
// authentication itself is out of scope here.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"campus-events/internal/ledger"
	"campus-events/internal/otp"
	"campus-events/internal/repository"
	"campus-events/internal/service"
)

// validate is the shared request validator.
var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Error().Err(err).Msg("failed to encode response")
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// respondServiceError maps domain errors onto HTTP status codes. Unknown
// errors become an opaque 500 so internals never leak.
func respondServiceError(w http.ResponseWriter, err error) {
	var modErr *service.ModerationError
	if errors.As(err, &modErr) {
		respondError(w, http.StatusUnprocessableEntity, modErr.Error())
		return
	}

	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrItemNotFound),
		errors.Is(err, repository.ErrReportNotFound),
		errors.Is(err, repository.ErrTransactionNotFound),
		errors.Is(err, repository.ErrNotRegistered):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrAlreadyJoined),
		errors.Is(err, repository.ErrEmailTaken),
		errors.Is(err, service.ErrAlreadyVerified),
		errors.Is(err, service.ErrAlreadyUsed):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		respondError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrOwnEvent),
		errors.Is(err, service.ErrOwnItem),
		errors.Is(err, service.ErrSelfReview),
		errors.Is(err, service.ErrSelfReport),
		errors.Is(err, service.ErrNotEligible):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrEventFull),
		errors.Is(err, service.ErrEventCancelled),
		errors.Is(err, service.ErrEventStarted),
		errors.Is(err, service.ErrItemUnavailable),
		errors.Is(err, service.ErrInvalidTicket),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrMissingPhone),
		errors.Is(err, service.ErrPaymentFailed),
		errors.Is(err, service.ErrVerificationRejected),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, otp.ErrCodeMismatch),
		errors.Is(err, otp.ErrCodeExpired):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrExternalService):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		log.Error().Err(err).Msg("unhandled service error")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeAndValidate parses the JSON body into dst and runs the validator.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
