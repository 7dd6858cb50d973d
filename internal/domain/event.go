package domain

import "time"

// Event is a bookable event with a fixed seat pool. Events are created out of
// band (seed data or the admin endpoint) and are immutable afterwards.
type Event struct {
	ID         int64
	Name       string
	TotalSeats int
	CreatedAt  time.Time
}

// EventAvailability pairs an event with its live available-seat count.
type EventAvailability struct {
	Event
	AvailableSeats int
}
