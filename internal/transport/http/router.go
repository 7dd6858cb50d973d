package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RouterConfig carries the services and middleware the router wires up.
type RouterConfig struct {
	Events       EventReader
	Admin        EventCreator
	Reservations Reserver
	Logger       *zap.Logger
	CORSOrigins  []string
	RateLimiter  *RateLimiter // nil disables rate limiting
}

// NewRouter assembles the public API surface.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(CORS(cfg.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", HealthHandler)

	r.Get("/events", HandleListEvents(cfg.Events))
	r.Get("/events/{eventID}", HandleGetEvent(cfg.Events))
	r.Get("/events/{eventID}/reservations", HandleListEventReservations(cfg.Reservations))
	r.Get("/events/{eventID}/reservations/{userID}", HandleReservationExists(cfg.Reservations))
	r.Get("/users/{userID}/reservations", HandleListUserReservations(cfg.Reservations))

	createReservation := http.Handler(HandleCreateReservation(cfg.Reservations))
	if cfg.RateLimiter != nil {
		createReservation = cfg.RateLimiter.Middleware(createReservation)
	}
	r.Method(http.MethodPost, "/reservations", createReservation)

	r.Get("/admin/events", HandleListEvents(cfg.Events))
	r.Post("/admin/events", HandleCreateEvent(cfg.Admin))

	return r
}
