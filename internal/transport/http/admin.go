package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vitikevich-landau/event-booking-api/internal/app"
	"github.com/vitikevich-landau/event-booking-api/internal/domain"
)

// EventCreator is the minimal interface needed to create catalog events.
type EventCreator interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (domain.Event, error)
}

type createEventRequest struct {
	Name       string `json:"name"`
	TotalSeats int    `json:"total_seats"`
}

// HandleCreateEvent returns an HTTP handler for the admin event creation
// path. Seat capacity is fixed at creation time.
func HandleCreateEvent(svc EventCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createEventRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		event, err := svc.CreateEvent(r.Context(), app.CreateEventInput{
			Name:       req.Name,
			TotalSeats: req.TotalSeats,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, newEventResponse(event))
	}
}
