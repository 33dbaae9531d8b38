package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNameRequired    = errors.New("name required")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrNoSeats         = errors.New("no seats selected")
	ErrSessionRequired = errors.New("session id required")
	ErrInvalidCode     = errors.New("invalid booking code")
	ErrSeatNotFound    = errors.New("seat not found")
	ErrRowNotFound     = errors.New("row not found")
	ErrSeatBooked      = errors.New("seat already booked")
	ErrBookingNotFound = errors.New("booking not found")
	ErrHasBookings     = errors.New("confirmed bookings exist")
	ErrInvalidGrid     = errors.New("invalid grid size")
	ErrInvalidID       = errors.New("invalid id")
	ErrCodeTaken       = errors.New("booking code already taken")
	ErrCodeExists      = errors.New("person already has a booking code")
	ErrCodeExhausted   = errors.New("could not allocate a booking code")
)

// SeatsUnavailableError reports exactly which requested seats blocked an
// acquire or a booking: already booked, staff reserved, or held by another
// session. The whole call fails and no seat state changes.
type SeatsUnavailableError struct {
	Seats []Seat
}

func (e *SeatsUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %s", strings.Join(e.Labels(), ", "))
}

func (e *SeatsUnavailableError) SeatIDs() []string {
	ids := make([]string, 0, len(e.Seats))
	for _, s := range e.Seats {
		ids = append(ids, s.ID)
	}
	return ids
}

func (e *SeatsUnavailableError) Labels() []string {
	labels := make([]string, 0, len(e.Seats))
	for _, s := range e.Seats {
		labels = append(labels, s.Label())
	}
	return labels
}
