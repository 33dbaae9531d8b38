package domain

import "time"

// Hold is a time-bounded exclusive claim on one seat by one browsing
// session. At most one hold exists per seat at any instant; expiry is the
// only cancellation mechanism besides an explicit release.
type Hold struct {
	SeatID     string
	SessionID  string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the hold is no longer live at the given instant.
func (h Hold) Expired(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}
