package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitikevich-landau/event-booking-api/internal/outbox"
)

// OutboxRepository stores integration events in the same database as the state
// they describe, so a reservation and its event row commit or roll back as one
// unit. The relay worker drains unpublished rows.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Append inserts an outbox row inside the caller's transaction.
func (r *OutboxRepository) Append(ctx context.Context, topic string, payload []byte, now time.Time) error {
	const stmt = `INSERT INTO outbox (topic, payload, created_at) VALUES ($1, $2, $3)`
	if _, err := r.exec(ctx, stmt, topic, payload, now); err != nil {
		return fmt.Errorf("append outbox: %w", translateErr(err))
	}
	return nil
}

// ClaimUnpublished locks and returns up to limit unpublished rows, oldest
// first. SKIP LOCKED lets multiple relay instances drain in parallel without
// double-publishing within a polling round.
func (r *OutboxRepository) ClaimUnpublished(ctx context.Context, limit int) ([]outbox.Message, error) {
	const query = `
SELECT id, topic, payload
FROM outbox
WHERE published_at IS NULL
ORDER BY id
LIMIT $1
FOR UPDATE SKIP LOCKED`

	rows, err := r.query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox: %w", translateErr(err))
	}
	defer rows.Close()

	msgs := make([]outbox.Message, 0, limit)
	for rows.Next() {
		var m outbox.Message
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim outbox: %w", translateErr(err))
	}
	return msgs, nil
}

// MarkPublished stamps the row after a successful broker publish.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id int64, now time.Time) error {
	const stmt = `UPDATE outbox SET published_at = $2 WHERE id = $1`
	if _, err := r.exec(ctx, stmt, id, now); err != nil {
		return fmt.Errorf("mark outbox published: %w", translateErr(err))
	}
	return nil
}

func (r *OutboxRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *OutboxRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *OutboxRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
