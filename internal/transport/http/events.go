package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vitikevich-landau/event-booking-api/internal/domain"
)

// EventReader is the minimal interface needed to serve the event catalog.
type EventReader interface {
	ListEvents(ctx context.Context) ([]domain.Event, error)
	GetEventAvailability(ctx context.Context, id int64) (domain.EventAvailability, error)
}

type eventResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	TotalSeats int       `json:"total_seats"`
	CreatedAt  time.Time `json:"created_at"`
}

type eventDetailResponse struct {
	eventResponse
	AvailableSeats int `json:"available_seats"`
}

// HandleListEvents returns an HTTP handler for listing the catalog,
// newest first.
func HandleListEvents(svc EventReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := svc.ListEvents(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]eventResponse, 0, len(events))
		for _, e := range events {
			resp = append(resp, newEventResponse(e))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleGetEvent returns an HTTP handler for a single event together with
// its live availability.
func HandleGetEvent(svc EventReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := eventIDParam(w, r)
		if !ok {
			return
		}

		ea, err := svc.GetEventAvailability(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, eventDetailResponse{
			eventResponse:  newEventResponse(ea.Event),
			AvailableSeats: ea.AvailableSeats,
		})
	}
}

func newEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:         e.ID,
		Name:       e.Name,
		TotalSeats: e.TotalSeats,
		CreatedAt:  e.CreatedAt,
	}
}

// eventIDParam parses the {eventID} route parameter. Non-numeric or
// non-positive values are rejected before touching storage.
func eventIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "eventID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, codeInvalidEventID, "event id must be a positive integer")
		return 0, false
	}
	return id, true
}
