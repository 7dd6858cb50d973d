package domain

import "time"

// Reservation is one seat held by a user for an event. At most one reservation
// exists per (event, user) pair; rows are never updated after creation.
type Reservation struct {
	ID        int64
	EventID   int64
	UserID    string
	CreatedAt time.Time
}

// MaxUserIDLen bounds the opaque user identifier.
const MaxUserIDLen = 255
