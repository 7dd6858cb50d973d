// Package outbox relays integration events from the transactional outbox
// table to a message broker. Rows are written in the same database
// transaction as the state change they describe, so the stream never
// announces a reservation that did not commit.
package outbox

import "time"

// TopicReservationCreated is the queue/routing key for new reservations.
const TopicReservationCreated = "reservation.created"

// Message is one unpublished outbox row.
type Message struct {
	ID      int64
	Topic   string
	Payload []byte
}

// ReservationCreatedEvent is the payload published for each committed
// reservation. It carries enough for downstream consumers to act without
// querying the primary database.
type ReservationCreatedEvent struct {
	ReservationID int64     `json:"reservation_id"`
	EventID       int64     `json:"event_id"`
	EventName     string    `json:"event_name"`
	UserID        string    `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
}
