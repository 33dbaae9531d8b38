package domain

import (
	"strconv"
	"time"
)

// Seat is one seat in the current catalog generation. Identity is the ID;
// (Row, Number) is unique within a generation but IDs change when the
// catalog is regenerated.
type Seat struct {
	ID            string
	Row           string
	Number        int
	StaffReserved bool
}

// Label is the display name of the seat, row letter plus number ("C7").
func (s Seat) Label() string {
	return s.Row + strconv.Itoa(s.Number)
}

// SeatState is the state one viewer observes for a seat. The Italian tags
// are the public contract and are rendered as-is by the frontend.
type SeatState string

const (
	SeatOccupied     SeatState = "occupato"
	SeatHeld         SeatState = "bloccato"
	SeatHeldByViewer SeatState = "bloccato_da_me"
	SeatUnavailable  SeatState = "non_disponibile"
	SeatAvailable    SeatState = "disponibile"
)

// StateOf projects the observable state of a seat for a viewer session.
// It is computed on every read and never stored. A confirmed booking wins
// over the staff flag, the staff flag wins over holds.
func StateOf(seat Seat, hold *Hold, booked bool, viewerSession string, now time.Time) SeatState {
	if booked {
		return SeatOccupied
	}
	if seat.StaffReserved {
		return SeatUnavailable
	}
	if hold != nil && !hold.Expired(now) {
		if viewerSession != "" && hold.SessionID == viewerSession {
			return SeatHeldByViewer
		}
		return SeatHeld
	}
	return SeatAvailable
}
