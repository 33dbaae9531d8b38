package domain

import (
	"regexp"
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confermata"
	BookingCancelled BookingStatus = "cancellata"
)

// Booking permanently assigns a seat to a person. Bookings are only created
// by the booking engine and only ever change status through the admin
// cancellation escape hatch; a seat carries at most one confirmed booking.
type Booking struct {
	ID        string
	SeatID    string
	Name      string
	Email     string // normalized: trimmed, lowercased
	Status    BookingStatus
	CreatedAt time.Time
}

// BookingWithSeat pairs a booking with its seat for retrieval and export.
type BookingWithSeat struct {
	Booking
	Seat Seat
}

// BookingCode maps a person to their 6-digit retrieval code. The same
// (name, email) pair always resolves to the same code for the life of the
// show; codes are globally unique.
type BookingCode struct {
	Name      string
	Email     string
	Code      string
	CreatedAt time.Time
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NormalizeEmail folds an email address the same way for booking creation
// and retrieval: trimmed and lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// ValidEmail accepts a basic local@domain.tld shape. The address must
// already be normalized.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidCode accepts exactly six ASCII digits.
func ValidCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
