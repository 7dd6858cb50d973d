package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitikevich-landau/event-booking-api/internal/domain"
)

// EventRepository provides read access to the event catalog plus the single
// out-of-band write (admin event creation).
type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	const query = `SELECT id, name, total_seats, created_at FROM events WHERE id = $1`
	var e domain.Event
	err := r.queryRow(ctx, query, id).Scan(&e.ID, &e.Name, &e.TotalSeats, &e.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		if err = translateErr(err); err == domain.ErrStorageUnavailable {
			return domain.Event{}, err
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (r *EventRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	const query = `SELECT id, name, total_seats, created_at FROM events ORDER BY id DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		if err = translateErr(err); err == domain.ErrStorageUnavailable {
			return nil, err
		}
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.TotalSeats, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", translateErr(err))
	}
	return events, nil
}

// AvailableSeats returns total_seats minus the live reservation count. The
// LEFT JOIN keeps a row for events with zero reservations.
func (r *EventRepository) AvailableSeats(ctx context.Context, id int64) (int, error) {
	const query = `
SELECT e.total_seats - COUNT(r.id)
FROM events e
LEFT JOIN reservations r ON r.event_id = e.id
WHERE e.id = $1
GROUP BY e.total_seats`

	var available int
	err := r.queryRow(ctx, query, id).Scan(&available)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.ErrEventNotFound
		}
		if err = translateErr(err); err == domain.ErrStorageUnavailable {
			return 0, err
		}
		return 0, fmt.Errorf("available seats: %w", err)
	}
	return available, nil
}

func (r *EventRepository) CreateEvent(ctx context.Context, event *domain.Event) error {
	const stmt = `
INSERT INTO events (name, total_seats, created_at)
VALUES ($1, $2, $3)
RETURNING id`

	err := r.queryRow(ctx, stmt, event.Name, event.TotalSeats, event.CreatedAt).Scan(&event.ID)
	if err != nil {
		if err = translateErr(err); err == domain.ErrStorageUnavailable {
			return err
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *EventRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
