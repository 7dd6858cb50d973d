package domain

import "errors"

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrNoSeatsAvailable   = errors.New("no seats available")
	ErrAlreadyBooked      = errors.New("user has already booked this event")
	ErrInvalidEventID     = errors.New("invalid event id")
	ErrInvalidUserID      = errors.New("invalid user id")
	ErrEventNameRequired  = errors.New("event name required")
	ErrInvalidTotalSeats  = errors.New("total seats must be positive")
	ErrStorageUnavailable = errors.New("storage unavailable")
)
