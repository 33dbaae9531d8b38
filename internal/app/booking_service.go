package app

import (
	"context"
	"sort"
	"time"

	"github.com/donatogr/teatro-prenotazioni/internal/clock"
	"github.com/donatogr/teatro-prenotazioni/internal/domain"
)

type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	PurgeExpiredHolds(ctx context.Context, now time.Time) (int, error)
	SeatsForUpdate(ctx context.Context, seatIDs []string) ([]domain.Seat, error)
	BookedSeatIDs(ctx context.Context, seatIDs []string) ([]string, error)
	HoldsBySeat(ctx context.Context, seatIDs []string, now time.Time) ([]domain.Hold, error)
	CreateBookings(ctx context.Context, bookings []domain.Booking) error
	DeleteHoldsBySeat(ctx context.Context, seatIDs []string) error
	CodeByPerson(ctx context.Context, name, email string) (*domain.BookingCode, error)
	CreateCode(ctx context.Context, code domain.BookingCode) error
	BookingsByEmailCode(ctx context.Context, email, code string) ([]domain.BookingWithSeat, error)
	ConfirmedBySeat(ctx context.Context) ([]domain.BookingWithSeat, error)
	ConfirmedNewestFirst(ctx context.Context) ([]domain.BookingWithSeat, error)
	GetBooking(ctx context.Context, bookingID string) (domain.Booking, error)
	SetBookingStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error
}

const codeAttempts = 10

type BookingService struct {
	repo  BookingRepository
	clock clock.Clock
}

func NewBookingService(repo BookingRepository, clk clock.Clock) *BookingService {
	return &BookingService{
		repo:  repo,
		clock: clk,
	}
}

type BookInput struct {
	SeatIDs   []string
	Name      string
	Email     string
	SessionID string
}

type BookResult struct {
	Bookings  []domain.BookingWithSeat
	Code      string
	CodeIsNew bool
}

// Book converts the requested seats into confirmed bookings in a single
// transaction. Seats must be free or held by the caller's session; holding
// first is not required. The person's retrieval code is resolved inside
// the same transaction so concurrent first-time bookings for one person
// cannot mint two codes. Any failure leaves all seat state untouched.
func (s *BookingService) Book(ctx context.Context, in BookInput) (BookResult, error) {
	name := domain.NormalizeName(in.Name)
	if name == "" {
		return BookResult{}, domain.ErrNameRequired
	}
	email := domain.NormalizeEmail(in.Email)
	if !domain.ValidEmail(email) {
		return BookResult{}, domain.ErrInvalidEmail
	}
	ids := dedupe(in.SeatIDs)
	if len(ids) == 0 {
		return BookResult{}, domain.ErrNoSeats
	}

	now := s.clock.Now()
	var result BookResult
	var locked []domain.Seat

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.PurgeExpiredHolds(txCtx, now); err != nil {
			return err
		}

		seats, err := s.repo.SeatsForUpdate(txCtx, ids)
		if err != nil {
			return err
		}
		if len(seats) != len(ids) {
			return domain.ErrSeatNotFound
		}
		locked = seats

		conflicts, err := s.unavailableSeats(txCtx, seats, ids, in.SessionID, now)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &domain.SeatsUnavailableError{Seats: conflicts}
		}

		seatByID := make(map[string]domain.Seat, len(seats))
		for _, seat := range seats {
			seatByID[seat.ID] = seat
		}

		bookings := make([]domain.Booking, 0, len(ids))
		withSeats := make([]domain.BookingWithSeat, 0, len(ids))
		for _, id := range ids {
			b := domain.Booking{
				ID:        newID(),
				SeatID:    id,
				Name:      name,
				Email:     email,
				Status:    domain.BookingConfirmed,
				CreatedAt: now,
			}
			bookings = append(bookings, b)
			withSeats = append(withSeats, domain.BookingWithSeat{Booking: b, Seat: seatByID[id]})
		}

		if err := s.repo.CreateBookings(txCtx, bookings); err != nil {
			// The row locks make a losing race here unlikely, but the
			// partial unique index is the final arbiter.
			return err
		}

		// Booked seats never keep holds behind, whichever session owned them.
		if err := s.repo.DeleteHoldsBySeat(txCtx, ids); err != nil {
			return err
		}

		code, isNew, err := s.resolveCode(txCtx, name, email, now)
		if err != nil {
			return err
		}

		result = BookResult{Bookings: withSeats, Code: code, CodeIsNew: isNew}
		return nil
	})
	if err != nil {
		if err == domain.ErrSeatBooked {
			return BookResult{}, s.bookConflict(ctx, locked, ids)
		}
		return BookResult{}, err
	}
	return result, nil
}

// bookConflict names the seats that lost a booking race. The unique
// violation aborted the transaction, so the re-read runs outside it;
// when it no longer shows a winner every requested seat is reported.
func (s *BookingService) bookConflict(ctx context.Context, seats []domain.Seat, ids []string) error {
	bookedIDs, err := s.repo.BookedSeatIDs(ctx, ids)
	if err != nil || len(bookedIDs) == 0 {
		return &domain.SeatsUnavailableError{Seats: seats}
	}
	booked := make(map[string]struct{}, len(bookedIDs))
	for _, id := range bookedIDs {
		booked[id] = struct{}{}
	}
	var conflicts []domain.Seat
	for _, seat := range seats {
		if _, ok := booked[seat.ID]; ok {
			conflicts = append(conflicts, seat)
		}
	}
	if len(conflicts) == 0 {
		return &domain.SeatsUnavailableError{Seats: seats}
	}
	return &domain.SeatsUnavailableError{Seats: conflicts}
}

// resolveCode reuses the person's existing code or mints a fresh unique
// one, retrying on collisions.
func (s *BookingService) resolveCode(ctx context.Context, name, email string, now time.Time) (string, bool, error) {
	existing, err := s.repo.CodeByPerson(ctx, name, email)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		return existing.Code, false, nil
	}

	for i := 0; i < codeAttempts; i++ {
		code, err := newBookingCode()
		if err != nil {
			return "", false, err
		}
		err = s.repo.CreateCode(ctx, domain.BookingCode{
			Name:      name,
			Email:     email,
			Code:      code,
			CreatedAt: now,
		})
		if err == nil {
			return code, true, nil
		}
		if err == domain.ErrCodeTaken {
			continue
		}
		if err == domain.ErrCodeExists {
			// A concurrent booking for the same person won; reuse theirs.
			existing, err := s.repo.CodeByPerson(ctx, name, email)
			if err != nil {
				return "", false, err
			}
			if existing != nil {
				return existing.Code, false, nil
			}
		}
		return "", false, err
	}
	return "", false, domain.ErrCodeExhausted
}

// FindByCode returns the confirmed bookings matching an email and its
// retrieval code. An unknown pairing yields an empty list, never an
// error: whether the email exists with a different code is deliberately
// not revealed.
func (s *BookingService) FindByCode(ctx context.Context, email, code string) ([]domain.BookingWithSeat, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrInvalidEmail
	}
	code = domain.NormalizeName(code)
	if !domain.ValidCode(code) {
		return nil, domain.ErrInvalidCode
	}
	return s.repo.BookingsByEmailCode(ctx, email, code)
}

// ListBookings returns all confirmed bookings, newest first.
func (s *BookingService) ListBookings(ctx context.Context) ([]domain.BookingWithSeat, error) {
	return s.repo.ConfirmedNewestFirst(ctx)
}

// Cancel marks a booking cancelled, freeing its seat. This is the
// administrative escape hatch; clients have no way to trigger it.
func (s *BookingService) Cancel(ctx context.Context, bookingID string) error {
	if bookingID == "" {
		return domain.ErrBookingNotFound
	}
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetBooking(txCtx, bookingID); err != nil {
			return err
		}
		return s.repo.SetBookingStatus(txCtx, bookingID, domain.BookingCancelled)
	})
}

type SeatExport struct {
	Row    string
	Number int
	Seat   string
	Name   string
	Email  string
}

// ExportBySeat lists every confirmed booking in seat order.
func (s *BookingService) ExportBySeat(ctx context.Context) ([]SeatExport, error) {
	bookings, err := s.repo.ConfirmedBySeat(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SeatExport, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, SeatExport{
			Row:    b.Seat.Row,
			Number: b.Seat.Number,
			Seat:   b.Seat.Label(),
			Name:   b.Name,
			Email:  b.Email,
		})
	}
	return out, nil
}

type PersonExport struct {
	Name          string
	Email         string
	Count         int
	Seats         []string
	FirstBookedAt time.Time
}

// ExportByPerson aggregates confirmed bookings per person, largest groups
// first.
func (s *BookingService) ExportByPerson(ctx context.Context) ([]PersonExport, error) {
	bookings, err := s.repo.ConfirmedBySeat(ctx)
	if err != nil {
		return nil, err
	}

	type personKey struct{ name, email string }
	byPerson := make(map[personKey]*PersonExport)
	var order []personKey
	for _, b := range bookings {
		key := personKey{b.Name, b.Email}
		p, ok := byPerson[key]
		if !ok {
			p = &PersonExport{Name: b.Name, Email: b.Email, FirstBookedAt: b.CreatedAt}
			byPerson[key] = p
			order = append(order, key)
		}
		p.Count++
		p.Seats = append(p.Seats, b.Seat.Label())
		if b.CreatedAt.Before(p.FirstBookedAt) {
			p.FirstBookedAt = b.CreatedAt
		}
	}

	out := make([]PersonExport, 0, len(order))
	for _, key := range order {
		out = append(out, *byPerson[key])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (s *BookingService) unavailableSeats(ctx context.Context, seats []domain.Seat, ids []string, sessionID string, now time.Time) ([]domain.Seat, error) {
	bookedIDs, err := s.repo.BookedSeatIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	booked := make(map[string]struct{}, len(bookedIDs))
	for _, id := range bookedIDs {
		booked[id] = struct{}{}
	}

	holds, err := s.repo.HoldsBySeat(ctx, ids, now)
	if err != nil {
		return nil, err
	}
	heldBy := make(map[string]string, len(holds))
	for _, h := range holds {
		heldBy[h.SeatID] = h.SessionID
	}

	var conflicts []domain.Seat
	for _, seat := range seats {
		if _, ok := booked[seat.ID]; ok {
			conflicts = append(conflicts, seat)
			continue
		}
		if seat.StaffReserved {
			conflicts = append(conflicts, seat)
			continue
		}
		// A hold by a different session blocks the booking; an anonymous
		// booking request (no session) cannot claim anyone's hold.
		if owner, ok := heldBy[seat.ID]; ok && (sessionID == "" || owner != sessionID) {
			conflicts = append(conflicts, seat)
		}
	}
	return conflicts, nil
}
