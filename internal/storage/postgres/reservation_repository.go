package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitikevich-landau/event-booking-api/internal/domain"
)

// ReservationRepository persists reservations. The write path is designed to
// run inside WithTx: GetEventForUpdate takes the per-event row lock that
// serializes concurrent reserve calls for the same event while leaving other
// events untouched.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// GetEventForUpdate locks the event row until the surrounding transaction
// commits or rolls back. Concurrent callers for the same event block here.
func (r *ReservationRepository) GetEventForUpdate(ctx context.Context, eventID int64) (domain.Event, error) {
	const query = `SELECT id, name, total_seats, created_at FROM events WHERE id = $1 FOR UPDATE`
	var e domain.Event
	err := r.queryRow(ctx, query, eventID).Scan(&e.ID, &e.Name, &e.TotalSeats, &e.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		if err = translateErr(err); err == domain.ErrStorageUnavailable {
			return domain.Event{}, err
		}
		return domain.Event{}, fmt.Errorf("lock event: %w", err)
	}
	return e, nil
}

// CountByEvent counts reservations for the event. Called under the event row
// lock, the count cannot change before the transaction ends.
func (r *ReservationRepository) CountByEvent(ctx context.Context, eventID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM reservations WHERE event_id = $1`
	var count int
	if err := r.queryRow(ctx, query, eventID).Scan(&count); err != nil {
		if err = translateErr(err); err == domain.ErrStorageUnavailable {
			return 0, err
		}
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return count, nil
}

// CreateReservation inserts the row and fills in the generated ID. The unique
// constraint on (event_id, user_id) is the second line of defense against
// duplicates; its violation maps to ErrAlreadyBooked.
func (r *ReservationRepository) CreateReservation(ctx context.Context, res *domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (event_id, user_id, created_at)
VALUES ($1, $2, $3)
RETURNING id`

	err := r.queryRow(ctx, stmt, res.EventID, res.UserID, res.CreatedAt).Scan(&res.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyBooked
		}
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		if err = translateErr(err); err == domain.ErrStorageUnavailable {
			return err
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) ListByEvent(ctx context.Context, eventID int64) ([]domain.Reservation, error) {
	const query = `
SELECT id, event_id, user_id, created_at
FROM reservations
WHERE event_id = $1
ORDER BY id DESC`

	return r.list(ctx, query, eventID)
}

func (r *ReservationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Reservation, error) {
	const query = `
SELECT id, event_id, user_id, created_at
FROM reservations
WHERE user_id = $1
ORDER BY id DESC`

	return r.list(ctx, query, userID)
}

func (r *ReservationRepository) Exists(ctx context.Context, eventID int64, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM reservations WHERE event_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.queryRow(ctx, query, eventID, userID).Scan(&exists); err != nil {
		if err = translateErr(err); err == domain.ErrStorageUnavailable {
			return false, err
		}
		return false, fmt.Errorf("reservation exists: %w", err)
	}
	return exists, nil
}

func (r *ReservationRepository) list(ctx context.Context, query string, arg any) ([]domain.Reservation, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		if err = translateErr(err); err == domain.ErrStorageUnavailable {
			return nil, err
		}
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Reservation, 0)
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.EventID, &res.UserID, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reservations: %w", translateErr(err))
	}
	return out, nil
}

func (r *ReservationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
