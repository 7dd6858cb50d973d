package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vitikevich-landau/event-booking-api/internal/domain"
)

// Reserver is the minimal interface needed to book and inspect seats.
type Reserver interface {
	Reserve(ctx context.Context, eventID int64, userID string) (domain.Reservation, error)
	ListByEvent(ctx context.Context, eventID int64) ([]domain.Reservation, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Reservation, error)
	Exists(ctx context.Context, eventID int64, userID string) (bool, error)
}

type createReservationRequest struct {
	EventID int64  `json:"event_id"`
	UserID  string `json:"user_id"`
}

type reservationResponse struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// HandleCreateReservation returns an HTTP handler for booking one seat.
func HandleCreateReservation(svc Reserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createReservationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := svc.Reserve(r.Context(), req.EventID, req.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, newReservationResponse(res))
	}
}

// HandleListEventReservations returns an HTTP handler for an event's
// reservations, newest first.
func HandleListEventReservations(svc Reserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := eventIDParam(w, r)
		if !ok {
			return
		}

		list, err := svc.ListByEvent(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newReservationListResponse(list))
	}
}

// HandleListUserReservations returns an HTTP handler for a user's
// reservations across all events, newest first.
func HandleListUserReservations(svc Reserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		list, err := svc.ListByUser(r.Context(), userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newReservationListResponse(list))
	}
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

// HandleReservationExists returns an HTTP handler reporting whether a user
// holds a seat for an event.
func HandleReservationExists(svc Reserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := eventIDParam(w, r)
		if !ok {
			return
		}
		userID := chi.URLParam(r, "userID")

		exists, err := svc.Exists(r.Context(), id, userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, existsResponse{Exists: exists})
	}
}

func newReservationResponse(res domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:        res.ID,
		EventID:   res.EventID,
		UserID:    res.UserID,
		CreatedAt: res.CreatedAt,
	}
}

func newReservationListResponse(list []domain.Reservation) []reservationResponse {
	resp := make([]reservationResponse, 0, len(list))
	for _, res := range list {
		resp = append(resp, newReservationResponse(res))
	}
	return resp
}
