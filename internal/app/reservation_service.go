package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vitikevich-landau/event-booking-api/internal/clock"
	"github.com/vitikevich-landau/event-booking-api/internal/domain"
	"github.com/vitikevich-landau/event-booking-api/internal/outbox"
)

type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetEventForUpdate(ctx context.Context, eventID int64) (domain.Event, error)
	CountByEvent(ctx context.Context, eventID int64) (int, error)
	CreateReservation(ctx context.Context, res *domain.Reservation) error
	ListByEvent(ctx context.Context, eventID int64) ([]domain.Reservation, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Reservation, error)
	Exists(ctx context.Context, eventID int64, userID string) (bool, error)
}

// OutboxAppender records an integration event inside the caller's transaction.
type OutboxAppender interface {
	Append(ctx context.Context, topic string, payload []byte, now time.Time) error
}

// ReservationService is the reservation engine: one write operation that
// serializes capacity checking and insertion per event, plus lock-free reads.
type ReservationService struct {
	repo   ReservationRepository
	outbox OutboxAppender
	clock  clock.Clock
}

func NewReservationService(repo ReservationRepository, ob OutboxAppender, clk clock.Clock) *ReservationService {
	return &ReservationService{
		repo:   repo,
		outbox: ob,
		clock:  clk,
	}
}

// Reserve books one seat for (eventID, userID). The capacity check and the
// insert run under the same event row lock: two callers racing for the last
// seat cannot both observe it free. The unique constraint on
// (event_id, user_id) backstops the duplicate check independently of the lock.
func (s *ReservationService) Reserve(ctx context.Context, eventID int64, userID string) (domain.Reservation, error) {
	if eventID <= 0 {
		return domain.Reservation{}, domain.ErrInvalidEventID
	}
	if userID == "" || len(userID) > domain.MaxUserIDLen {
		return domain.Reservation{}, domain.ErrInvalidUserID
	}

	now := s.clock.Now()
	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.repo.GetEventForUpdate(txCtx, eventID)
		if err != nil {
			return err
		}

		count, err := s.repo.CountByEvent(txCtx, eventID)
		if err != nil {
			return err
		}
		if count >= event.TotalSeats {
			return domain.ErrNoSeatsAvailable
		}

		res := domain.Reservation{
			EventID:   eventID,
			UserID:    userID,
			CreatedAt: now,
		}
		if err := s.repo.CreateReservation(txCtx, &res); err != nil {
			return err
		}

		if s.outbox != nil {
			payload, err := json.Marshal(outbox.ReservationCreatedEvent{
				ReservationID: res.ID,
				EventID:       event.ID,
				EventName:     event.Name,
				UserID:        userID,
				CreatedAt:     now,
			})
			if err != nil {
				return fmt.Errorf("marshal reservation event: %w", err)
			}
			if err := s.outbox.Append(txCtx, outbox.TopicReservationCreated, payload, now); err != nil {
				return err
			}
		}

		result = res
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return result, nil
}

func (s *ReservationService) ListByEvent(ctx context.Context, eventID int64) ([]domain.Reservation, error) {
	if eventID <= 0 {
		return nil, domain.ErrInvalidEventID
	}
	return s.repo.ListByEvent(ctx, eventID)
}

func (s *ReservationService) ListByUser(ctx context.Context, userID string) ([]domain.Reservation, error) {
	if userID == "" || len(userID) > domain.MaxUserIDLen {
		return nil, domain.ErrInvalidUserID
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *ReservationService) Exists(ctx context.Context, eventID int64, userID string) (bool, error) {
	if eventID <= 0 {
		return false, domain.ErrInvalidEventID
	}
	if userID == "" || len(userID) > domain.MaxUserIDLen {
		return false, domain.ErrInvalidUserID
	}
	return s.repo.Exists(ctx, eventID, userID)
}
