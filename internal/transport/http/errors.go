package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vitikevich-landau/event-booking-api/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidEventID     = "invalid_event_id"
	codeInvalidUserID      = "invalid_user_id"
	codeEventNameRequired  = "event_name_required"
	codeInvalidTotalSeats  = "invalid_total_seats"
	codeEventNotFound      = "event_not_found"
	codeNoSeatsAvailable   = "no_seats_available"
	codeAlreadyBooked      = "already_booked"
	codeStorageUnavailable = "storage_unavailable"
	codeRateLimited        = "rate_limited"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps the domain error taxonomy onto HTTP status codes.
// Unknown errors become opaque 500s so storage details never leak.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidEventID):
		writeError(w, http.StatusBadRequest, codeInvalidEventID, err.Error())
	case errors.Is(err, domain.ErrInvalidUserID):
		writeError(w, http.StatusBadRequest, codeInvalidUserID, err.Error())
	case errors.Is(err, domain.ErrEventNameRequired):
		writeError(w, http.StatusBadRequest, codeEventNameRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidTotalSeats):
		writeError(w, http.StatusBadRequest, codeInvalidTotalSeats, err.Error())
	case errors.Is(err, domain.ErrEventNotFound):
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	case errors.Is(err, domain.ErrNoSeatsAvailable):
		writeError(w, http.StatusConflict, codeNoSeatsAvailable, err.Error())
	case errors.Is(err, domain.ErrAlreadyBooked):
		writeError(w, http.StatusConflict, codeAlreadyBooked, err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeStorageUnavailable, "storage unavailable, retry later")
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
