package app

import (
	"context"
	"sort"
	"time"

	"github.com/donatogr/teatro-prenotazioni/internal/domain"
)

// fakeStore is an in-memory stand-in for the Postgres repositories. It
// implements HoldRepository, BookingRepository, SeatRepository and
// ShowRepository so every service test shares one backing state.
type fakeStore struct {
	seats    []domain.Seat
	holds    map[string]domain.Hold
	bookings []domain.Booking
	codes    []domain.BookingCode
	settings domain.ShowSettings

	gridRows   int
	gridPerRow int
	gridGroups []domain.RowGroup

	// codeConflicts makes the next N CreateCode calls fail as if the
	// generated value already belonged to someone else.
	codeConflicts int
	// racedCode, when set, makes the first CreateCode call fail as if a
	// concurrent booking already inserted this code for the same person.
	racedCode string

	// The hooks model a concurrent transaction committing right before
	// the named call acquires its locks.
	onLockCatalog   func(f *fakeStore)
	onSeatForUpdate func(f *fakeStore)
	onCreateBooking func(f *fakeStore)
}

func newFakeStore(seats []domain.Seat) *fakeStore {
	return &fakeStore{
		seats: append([]domain.Seat{}, seats...),
		holds: make(map[string]domain.Hold),
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	purged := 0
	for id, h := range f.holds {
		if h.Expired(now) {
			delete(f.holds, id)
			purged++
		}
	}
	return purged, nil
}

func (f *fakeStore) PurgeExpiredHolds(ctx context.Context, now time.Time) (int, error) {
	return f.PurgeExpired(ctx, now)
}

func (f *fakeStore) SeatsForUpdate(_ context.Context, seatIDs []string) ([]domain.Seat, error) {
	want := make(map[string]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		want[id] = struct{}{}
	}
	var out []domain.Seat
	for _, seat := range f.seats {
		if _, ok := want[seat.ID]; ok {
			out = append(out, seat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) BookedSeatIDs(_ context.Context, seatIDs []string) ([]string, error) {
	want := make(map[string]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		want[id] = struct{}{}
	}
	var out []string
	for _, b := range f.bookings {
		if b.Status != domain.BookingConfirmed {
			continue
		}
		if _, ok := want[b.SeatID]; ok {
			out = append(out, b.SeatID)
		}
	}
	return out, nil
}

func (f *fakeStore) HoldsBySeat(_ context.Context, seatIDs []string, now time.Time) ([]domain.Hold, error) {
	var out []domain.Hold
	for _, id := range seatIDs {
		if h, ok := f.holds[id]; ok && !h.Expired(now) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertHolds(_ context.Context, holds []domain.Hold) error {
	for _, h := range holds {
		f.holds[h.SeatID] = h
	}
	return nil
}

func (f *fakeStore) ExtendHolds(_ context.Context, sessionID string, seatIDs []string, now, expiresAt time.Time) error {
	for _, id := range seatIDs {
		h, ok := f.holds[id]
		if !ok || h.SessionID != sessionID || h.Expired(now) {
			continue
		}
		h.ExpiresAt = expiresAt
		f.holds[id] = h
	}
	return nil
}

func (f *fakeStore) DeleteHolds(_ context.Context, sessionID string, seatIDs []string) error {
	for _, id := range seatIDs {
		if h, ok := f.holds[id]; ok && h.SessionID == sessionID {
			delete(f.holds, id)
		}
	}
	return nil
}

func (f *fakeStore) CreateBookings(_ context.Context, bookings []domain.Booking) error {
	if f.onCreateBooking != nil {
		f.onCreateBooking(f)
		f.onCreateBooking = nil
	}
	taken := make(map[string]struct{})
	for _, b := range f.bookings {
		if b.Status == domain.BookingConfirmed {
			taken[b.SeatID] = struct{}{}
		}
	}
	for _, b := range bookings {
		if _, ok := taken[b.SeatID]; ok {
			return domain.ErrSeatBooked
		}
		taken[b.SeatID] = struct{}{}
	}
	f.bookings = append(f.bookings, bookings...)
	return nil
}

func (f *fakeStore) DeleteHoldsBySeat(_ context.Context, seatIDs []string) error {
	for _, id := range seatIDs {
		delete(f.holds, id)
	}
	return nil
}

func (f *fakeStore) CodeByPerson(_ context.Context, name, email string) (*domain.BookingCode, error) {
	for i := range f.codes {
		if f.codes[i].Name == name && f.codes[i].Email == email {
			c := f.codes[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateCode(_ context.Context, code domain.BookingCode) error {
	if f.racedCode != "" {
		f.codes = append(f.codes, domain.BookingCode{
			Name:      code.Name,
			Email:     code.Email,
			Code:      f.racedCode,
			CreatedAt: code.CreatedAt,
		})
		f.racedCode = ""
		return domain.ErrCodeExists
	}
	if f.codeConflicts > 0 {
		f.codeConflicts--
		return domain.ErrCodeTaken
	}
	for _, c := range f.codes {
		if c.Name == code.Name && c.Email == code.Email {
			return domain.ErrCodeExists
		}
		if c.Code == code.Code {
			return domain.ErrCodeTaken
		}
	}
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeStore) BookingsByEmailCode(_ context.Context, email, code string) ([]domain.BookingWithSeat, error) {
	people := make(map[string]struct{})
	for _, c := range f.codes {
		if c.Email == email && c.Code == code {
			people[c.Name+"|"+c.Email] = struct{}{}
		}
	}
	var out []domain.BookingWithSeat
	for _, b := range f.bookings {
		if b.Status != domain.BookingConfirmed {
			continue
		}
		if _, ok := people[b.Name+"|"+b.Email]; !ok {
			continue
		}
		out = append(out, domain.BookingWithSeat{Booking: b, Seat: f.seatByID(b.SeatID)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) ConfirmedBySeat(_ context.Context) ([]domain.BookingWithSeat, error) {
	var out []domain.BookingWithSeat
	for _, b := range f.bookings {
		if b.Status != domain.BookingConfirmed {
			continue
		}
		out = append(out, domain.BookingWithSeat{Booking: b, Seat: f.seatByID(b.SeatID)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seat.Row != out[j].Seat.Row {
			return out[i].Seat.Row < out[j].Seat.Row
		}
		return out[i].Seat.Number < out[j].Seat.Number
	})
	return out, nil
}

func (f *fakeStore) ConfirmedNewestFirst(_ context.Context) ([]domain.BookingWithSeat, error) {
	out, _ := f.ConfirmedBySeat(context.Background())
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) GetBooking(_ context.Context, bookingID string) (domain.Booking, error) {
	for _, b := range f.bookings {
		if b.ID == bookingID {
			return b, nil
		}
	}
	return domain.Booking{}, domain.ErrBookingNotFound
}

func (f *fakeStore) SetBookingStatus(_ context.Context, bookingID string, status domain.BookingStatus) error {
	for i := range f.bookings {
		if f.bookings[i].ID == bookingID {
			f.bookings[i].Status = status
			return nil
		}
	}
	return domain.ErrBookingNotFound
}

func (f *fakeStore) ListSeats(_ context.Context) ([]domain.Seat, error) {
	out := append([]domain.Seat{}, f.seats...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (f *fakeStore) ActiveHolds(_ context.Context, now time.Time) ([]domain.Hold, error) {
	var out []domain.Hold
	for _, h := range f.holds {
		if !h.Expired(now) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeStore) ConfirmedBookings(_ context.Context) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range f.bookings {
		if b.Status == domain.BookingConfirmed {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) RowExists(_ context.Context, row string) (bool, error) {
	for _, seat := range f.seats {
		if seat.Row == row {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) SetRowReserved(ctx context.Context, row string, reserved bool) (int, error) {
	bookedIDs, _ := f.BookedSeatIDs(ctx, f.allSeatIDs())
	booked := make(map[string]struct{}, len(bookedIDs))
	for _, id := range bookedIDs {
		booked[id] = struct{}{}
	}
	affected := 0
	for i := range f.seats {
		if f.seats[i].Row != row {
			continue
		}
		if _, ok := booked[f.seats[i].ID]; ok {
			continue
		}
		f.seats[i].StaffReserved = reserved
		affected++
	}
	return affected, nil
}

func (f *fakeStore) SeatForUpdate(_ context.Context, seatID string) (domain.Seat, error) {
	if f.onSeatForUpdate != nil {
		f.onSeatForUpdate(f)
		f.onSeatForUpdate = nil
	}
	for _, seat := range f.seats {
		if seat.ID == seatID {
			return seat, nil
		}
	}
	return domain.Seat{}, domain.ErrSeatNotFound
}

func (f *fakeStore) SeatBooked(ctx context.Context, seatID string) (bool, error) {
	ids, _ := f.BookedSeatIDs(ctx, []string{seatID})
	return len(ids) > 0, nil
}

func (f *fakeStore) SetSeatReserved(_ context.Context, seatID string, reserved bool) error {
	for i := range f.seats {
		if f.seats[i].ID == seatID {
			f.seats[i].StaffReserved = reserved
			return nil
		}
	}
	return domain.ErrSeatNotFound
}

func (f *fakeStore) LockCatalog(_ context.Context) error {
	if f.onLockCatalog != nil {
		f.onLockCatalog(f)
		f.onLockCatalog = nil
	}
	return nil
}

func (f *fakeStore) CountConfirmedBookings(_ context.Context) (int, error) {
	count := 0
	for _, b := range f.bookings {
		if b.Status == domain.BookingConfirmed {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ReplaceSeats(_ context.Context, seats []domain.Seat) error {
	f.seats = append([]domain.Seat{}, seats...)
	f.holds = make(map[string]domain.Hold)
	f.bookings = nil
	return nil
}

func (f *fakeStore) SaveGrid(_ context.Context, rowCount, seatsPerRow int, groups []domain.RowGroup) error {
	f.gridRows = rowCount
	f.gridPerRow = seatsPerRow
	f.gridGroups = groups
	return nil
}

func (f *fakeStore) GetSettings(_ context.Context) (domain.ShowSettings, error) {
	return f.settings, nil
}

func (f *fakeStore) SaveSettings(_ context.Context, s domain.ShowSettings) error {
	f.settings = s
	return nil
}

func (f *fakeStore) seatByID(id string) domain.Seat {
	for _, seat := range f.seats {
		if seat.ID == id {
			return seat
		}
	}
	return domain.Seat{}
}

func (f *fakeStore) allSeatIDs() []string {
	ids := make([]string, 0, len(f.seats))
	for _, seat := range f.seats {
		ids = append(ids, seat.ID)
	}
	return ids
}
