package app

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/donatogr/teatro-prenotazioni/internal/clock"
	"github.com/donatogr/teatro-prenotazioni/internal/domain"
)

type SeatRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListSeats(ctx context.Context) ([]domain.Seat, error)
	ActiveHolds(ctx context.Context, now time.Time) ([]domain.Hold, error)
	ConfirmedBookings(ctx context.Context) ([]domain.Booking, error)
	RowExists(ctx context.Context, row string) (bool, error)
	SetRowReserved(ctx context.Context, row string, reserved bool) (int, error)
	SeatForUpdate(ctx context.Context, seatID string) (domain.Seat, error)
	SeatBooked(ctx context.Context, seatID string) (bool, error)
	SetSeatReserved(ctx context.Context, seatID string, reserved bool) error
	LockCatalog(ctx context.Context) error
	CountConfirmedBookings(ctx context.Context) (int, error)
	ReplaceSeats(ctx context.Context, seats []domain.Seat) error
	SaveGrid(ctx context.Context, rowCount, seatsPerRow int, groups []domain.RowGroup) error
}

// maxGridDim bounds both grid dimensions of a regenerated catalog,
// matching the admin panel's 1..50 inputs.
const maxGridDim = 50

type SeatService struct {
	repo  SeatRepository
	clock clock.Clock
}

func NewSeatService(repo SeatRepository, clk clock.Clock) *SeatService {
	return &SeatService{
		repo:  repo,
		clock: clk,
	}
}

// SeatView is a seat plus the state one viewer observes for it. BookedBy
// is set only on occupied seats and only surfaced to admin callers.
type SeatView struct {
	Seat     domain.Seat
	State    domain.SeatState
	BookedBy *domain.Booking
}

// ListSeats projects the catalog for a viewer session. Pure read: expired
// holds are filtered out, not deleted.
func (s *SeatService) ListSeats(ctx context.Context, viewerSession string) ([]SeatView, error) {
	now := s.clock.Now()

	seats, err := s.repo.ListSeats(ctx)
	if err != nil {
		return nil, err
	}
	holds, err := s.repo.ActiveHolds(ctx, now)
	if err != nil {
		return nil, err
	}
	bookings, err := s.repo.ConfirmedBookings(ctx)
	if err != nil {
		return nil, err
	}

	holdBySeat := make(map[string]domain.Hold, len(holds))
	for _, h := range holds {
		holdBySeat[h.SeatID] = h
	}
	bookingBySeat := make(map[string]domain.Booking, len(bookings))
	for _, b := range bookings {
		bookingBySeat[b.SeatID] = b
	}

	views := make([]SeatView, 0, len(seats))
	for _, seat := range seats {
		var hold *domain.Hold
		if h, ok := holdBySeat[seat.ID]; ok {
			hold = &h
		}
		booking, booked := bookingBySeat[seat.ID]

		view := SeatView{
			Seat:  seat,
			State: domain.StateOf(seat, hold, booked, viewerSession, now),
		}
		if booked {
			b := booking
			view.BookedBy = &b
		}
		views = append(views, view)
	}
	return views, nil
}

type RowsInfo struct {
	Rows     []string
	Reserved []string
}

// ListRows reports every row label and which rows carry at least one
// staff-reserved seat.
func (s *SeatService) ListRows(ctx context.Context) (RowsInfo, error) {
	seats, err := s.repo.ListSeats(ctx)
	if err != nil {
		return RowsInfo{}, err
	}

	seen := make(map[string]struct{})
	reserved := make(map[string]struct{})
	var info RowsInfo
	for _, seat := range seats {
		if _, ok := seen[seat.Row]; !ok {
			seen[seat.Row] = struct{}{}
			info.Rows = append(info.Rows, seat.Row)
		}
		if seat.StaffReserved {
			if _, ok := reserved[seat.Row]; !ok {
				reserved[seat.Row] = struct{}{}
				info.Reserved = append(info.Reserved, seat.Row)
			}
		}
	}
	sort.Strings(info.Rows)
	sort.Strings(info.Reserved)
	return info, nil
}

// SetRowReserved flips the staff flag on a whole row, skipping seats with
// a confirmed booking; skipped seats do not count toward the total.
func (s *SeatService) SetRowReserved(ctx context.Context, row string, reserved bool) (int, error) {
	row = strings.ToUpper(strings.TrimSpace(row))
	if row == "" {
		return 0, domain.ErrRowNotFound
	}

	var affected int
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		exists, err := s.repo.RowExists(txCtx, row)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrRowNotFound
		}
		affected, err = s.repo.SetRowReserved(txCtx, row, reserved)
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// SetSeatReserved flips the staff flag on one seat. Booked seats cannot be
// staff reserved: the flag would be meaningless on a permanently occupied
// seat. The seat row is locked first so a concurrent booking cannot land
// between the booked-check and the update.
func (s *SeatService) SetSeatReserved(ctx context.Context, seatID string, reserved bool) error {
	if seatID == "" {
		return domain.ErrSeatNotFound
	}
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.SeatForUpdate(txCtx, seatID); err != nil {
			return err
		}
		booked, err := s.repo.SeatBooked(txCtx, seatID)
		if err != nil {
			return err
		}
		if booked {
			return domain.ErrSeatBooked
		}
		return s.repo.SetSeatReserved(txCtx, seatID, reserved)
	})
}

// Regenerate replaces the whole catalog with a fresh rows x seatsPerRow
// grid of new seat identities. All-or-nothing: any confirmed booking
// anywhere aborts the call, so a booking can never be orphaned.
func (s *SeatService) Regenerate(ctx context.Context, rows, seatsPerRow int, groups []domain.RowGroup) (int, error) {
	if rows < 1 || rows > maxGridDim || seatsPerRow < 1 || seatsPerRow > maxGridDim {
		return 0, domain.ErrInvalidGrid
	}

	var created int
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		// Exclude concurrent bookers for the whole swap: without the
		// catalog lock a booking committing after the count would be
		// cascaded away with the old seats.
		if err := s.repo.LockCatalog(txCtx); err != nil {
			return err
		}
		count, err := s.repo.CountConfirmedBookings(txCtx)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrHasBookings
		}

		seats := make([]domain.Seat, 0, rows*seatsPerRow)
		for i := 0; i < rows; i++ {
			row := rowLabel(i)
			for n := 1; n <= seatsPerRow; n++ {
				seats = append(seats, domain.Seat{
					ID:     newID(),
					Row:    row,
					Number: n,
				})
			}
		}

		if err := s.repo.ReplaceSeats(txCtx, seats); err != nil {
			return err
		}
		if err := s.repo.SaveGrid(txCtx, rows, seatsPerRow, groups); err != nil {
			return err
		}
		created = len(seats)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// rowLabel names rows A..Z, then AA..AZ for grids deeper than the
// alphabet.
func rowLabel(i int) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	if i < len(letters) {
		return string(letters[i])
	}
	return string(letters[i/len(letters)-1]) + string(letters[i%len(letters)])
}
