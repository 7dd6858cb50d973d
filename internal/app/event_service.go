package app

import (
	"context"

	"github.com/vitikevich-landau/event-booking-api/internal/clock"
	"github.com/vitikevich-landau/event-booking-api/internal/domain"
)

type EventRepository interface {
	GetEvent(ctx context.Context, id int64) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	AvailableSeats(ctx context.Context, id int64) (int, error)
	CreateEvent(ctx context.Context, event *domain.Event) error
}

// EventService is the event catalog: read-only lookups plus the out-of-band
// admin creation path. Reservations never write through this service.
type EventService struct {
	repo  EventRepository
	clock clock.Clock
}

func NewEventService(repo EventRepository, clk clock.Clock) *EventService {
	return &EventService{
		repo:  repo,
		clock: clk,
	}
}

func (s *EventService) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	if id <= 0 {
		return domain.Event{}, domain.ErrInvalidEventID
	}
	return s.repo.GetEvent(ctx, id)
}

func (s *EventService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx)
}

func (s *EventService) AvailableSeats(ctx context.Context, id int64) (int, error) {
	if id <= 0 {
		return 0, domain.ErrInvalidEventID
	}
	return s.repo.AvailableSeats(ctx, id)
}

// GetEventAvailability returns the event together with its live availability.
func (s *EventService) GetEventAvailability(ctx context.Context, id int64) (domain.EventAvailability, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return domain.EventAvailability{}, err
	}
	available, err := s.repo.AvailableSeats(ctx, id)
	if err != nil {
		return domain.EventAvailability{}, err
	}
	return domain.EventAvailability{Event: event, AvailableSeats: available}, nil
}

type CreateEventInput struct {
	Name       string
	TotalSeats int
}

func (s *EventService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	if in.Name == "" {
		return domain.Event{}, domain.ErrEventNameRequired
	}
	if in.TotalSeats <= 0 {
		return domain.Event{}, domain.ErrInvalidTotalSeats
	}

	event := domain.Event{
		Name:       in.Name,
		TotalSeats: in.TotalSeats,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.CreateEvent(ctx, &event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}
