package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vitikevich-landau/event-booking-api/internal/clock"
)

// Store is the slice of the outbox repository the relay needs.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ClaimUnpublished(ctx context.Context, limit int) ([]Message, error)
	MarkPublished(ctx context.Context, id int64, now time.Time) error
}

// Publisher delivers one message to the broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Relay polls the outbox and publishes unpublished rows in order. A row is
// marked published in the same transaction that claimed it, so a crash
// between publish and mark can only cause redelivery, never loss.
type Relay struct {
	store     Store
	publisher Publisher
	logger    *zap.Logger
	clock     clock.Clock
	interval  time.Duration
	batchSize int
}

func NewRelay(store Store, publisher Publisher, logger *zap.Logger, clk clock.Clock, interval time.Duration, batchSize int) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		logger:    logger,
		clock:     clk,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run polls until ctx is cancelled. Publish failures are logged and retried
// on the next round; the loop never stops on its own.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.drainOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("outbox drain failed", zap.Error(err))
			}
		}
	}
}

func (r *Relay) drainOnce(ctx context.Context) error {
	return r.store.WithTx(ctx, func(txCtx context.Context) error {
		msgs, err := r.store.ClaimUnpublished(txCtx, r.batchSize)
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			if err := r.publisher.Publish(ctx, msg.Topic, msg.Payload); err != nil {
				// Leave the row unpublished; the next round retries it.
				r.logger.Warn("publish failed",
					zap.Int64("outbox_id", msg.ID),
					zap.String("topic", msg.Topic),
					zap.Error(err),
				)
				return nil
			}
			if err := r.store.MarkPublished(txCtx, msg.ID, r.clock.Now()); err != nil {
				return err
			}
		}
		return nil
	})
}
