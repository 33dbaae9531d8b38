package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/donatogr/teatro-prenotazioni/internal/clock"
	"github.com/donatogr/teatro-prenotazioni/internal/domain"
)

func TestSeatService_ListSeats(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	store := newFakeStore(testSeats)
	store.holds["seat-a1"] = domain.Hold{SeatID: "seat-a1", SessionID: "sess-1", ExpiresAt: now.Add(time.Minute)}
	store.holds["seat-b1"] = domain.Hold{SeatID: "seat-b1", SessionID: "sess-other", ExpiresAt: now.Add(-time.Second)}
	store.bookings = []domain.Booking{
		{ID: "bk-1", SeatID: "seat-a2", Name: "Maria Rossi", Email: "maria@example.com", Status: domain.BookingConfirmed, CreatedAt: now},
	}
	svc := NewSeatService(store, clock.NewFixed(now))

	views, err := svc.ListSeats(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(views) != 4 {
		t.Fatalf("expected 4 seats, got %d", len(views))
	}

	byID := make(map[string]SeatView, len(views))
	for _, v := range views {
		byID[v.Seat.ID] = v
	}

	if got := byID["seat-a1"].State; got != domain.SeatHeldByViewer {
		t.Fatalf("seat-a1: expected %s, got %s", domain.SeatHeldByViewer, got)
	}
	if got := byID["seat-a2"].State; got != domain.SeatOccupied {
		t.Fatalf("seat-a2: expected %s, got %s", domain.SeatOccupied, got)
	}
	if byID["seat-a2"].BookedBy == nil || byID["seat-a2"].BookedBy.Name != "Maria Rossi" {
		t.Fatalf("seat-a2: expected booking holder attached")
	}
	// The expired hold is filtered, not surfaced.
	if got := byID["seat-b1"].State; got != domain.SeatAvailable {
		t.Fatalf("seat-b1: expected %s, got %s", domain.SeatAvailable, got)
	}
	if got := byID["seat-b2"].State; got != domain.SeatUnavailable {
		t.Fatalf("seat-b2: expected %s, got %s", domain.SeatUnavailable, got)
	}

	// A different viewer sees the first seat as plainly held.
	other, err := svc.ListSeats(context.Background(), "sess-2")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, v := range other {
		if v.Seat.ID == "seat-a1" && v.State != domain.SeatHeld {
			t.Fatalf("seat-a1 for stranger: expected %s, got %s", domain.SeatHeld, v.State)
		}
	}
}

func TestSeatService_ListRows(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	svc := NewSeatService(newFakeStore(testSeats), clock.NewFixed(now))

	info, err := svc.ListRows(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(info.Rows) != 2 || info.Rows[0] != "A" || info.Rows[1] != "B" {
		t.Fatalf("unexpected rows: %v", info.Rows)
	}
	if len(info.Reserved) != 1 || info.Reserved[0] != "B" {
		t.Fatalf("unexpected reserved rows: %v", info.Reserved)
	}
}

func TestSeatService_SetRowReserved(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

	t.Run("reserves the whole row, skipping booked seats", func(t *testing.T) {
		store := newFakeStore(testSeats)
		store.bookings = []domain.Booking{
			{ID: "bk-1", SeatID: "seat-a1", Name: "Maria Rossi", Email: "maria@example.com", Status: domain.BookingConfirmed, CreatedAt: now},
		}
		svc := NewSeatService(store, clock.NewFixed(now))

		affected, err := svc.SetRowReserved(context.Background(), "a", true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if affected != 1 {
			t.Fatalf("expected 1 affected seat, got %d", affected)
		}
		a1, _ := store.SeatForUpdate(context.Background(), "seat-a1")
		if a1.StaffReserved {
			t.Fatalf("booked seat must keep its flag")
		}
		a2, _ := store.SeatForUpdate(context.Background(), "seat-a2")
		if !a2.StaffReserved {
			t.Fatalf("free seat should be reserved")
		}
	})

	t.Run("unknown row", func(t *testing.T) {
		svc := NewSeatService(newFakeStore(testSeats), clock.NewFixed(now))
		if _, err := svc.SetRowReserved(context.Background(), "Z", true); !errors.Is(err, domain.ErrRowNotFound) {
			t.Fatalf("expected ErrRowNotFound, got %v", err)
		}
		if _, err := svc.SetRowReserved(context.Background(), "  ", true); !errors.Is(err, domain.ErrRowNotFound) {
			t.Fatalf("expected ErrRowNotFound for blank row, got %v", err)
		}
	})
}

func TestSeatService_SetSeatReserved(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

	t.Run("flips the flag", func(t *testing.T) {
		store := newFakeStore(testSeats)
		svc := NewSeatService(store, clock.NewFixed(now))

		if err := svc.SetSeatReserved(context.Background(), "seat-a1", true); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		seat, _ := store.SeatForUpdate(context.Background(), "seat-a1")
		if !seat.StaffReserved {
			t.Fatalf("expected seat reserved")
		}
	})

	t.Run("booked seat is refused", func(t *testing.T) {
		store := newFakeStore(testSeats)
		store.bookings = []domain.Booking{
			{ID: "bk-1", SeatID: "seat-a1", Name: "Maria Rossi", Email: "maria@example.com", Status: domain.BookingConfirmed, CreatedAt: now},
		}
		svc := NewSeatService(store, clock.NewFixed(now))

		if err := svc.SetSeatReserved(context.Background(), "seat-a1", true); !errors.Is(err, domain.ErrSeatBooked) {
			t.Fatalf("expected ErrSeatBooked, got %v", err)
		}
	})

	t.Run("booking landing before the row lock is refused", func(t *testing.T) {
		store := newFakeStore(testSeats)
		store.onSeatForUpdate = func(f *fakeStore) {
			f.bookings = append(f.bookings, domain.Booking{
				ID: "bk-raced", SeatID: "seat-a1", Name: "Luca Bianchi", Email: "luca@example.com",
				Status: domain.BookingConfirmed, CreatedAt: now,
			})
		}
		svc := NewSeatService(store, clock.NewFixed(now))

		if err := svc.SetSeatReserved(context.Background(), "seat-a1", true); !errors.Is(err, domain.ErrSeatBooked) {
			t.Fatalf("expected ErrSeatBooked, got %v", err)
		}
		seat, _ := store.SeatForUpdate(context.Background(), "seat-a1")
		if seat.StaffReserved {
			t.Fatalf("booked seat must not end up staff reserved")
		}
	})

	t.Run("unknown seat", func(t *testing.T) {
		svc := NewSeatService(newFakeStore(testSeats), clock.NewFixed(now))
		if err := svc.SetSeatReserved(context.Background(), "seat-missing", true); !errors.Is(err, domain.ErrSeatNotFound) {
			t.Fatalf("expected ErrSeatNotFound, got %v", err)
		}
	})
}

func TestSeatService_Regenerate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	groups := []domain.RowGroup{{Letters: "AB", Name: "Platea"}}

	t.Run("builds the new grid", func(t *testing.T) {
		store := newFakeStore(testSeats)
		svc := NewSeatService(store, clock.NewFixed(now))

		created, err := svc.Regenerate(context.Background(), 3, 4, groups)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if created != 12 {
			t.Fatalf("expected 12 seats, got %d", created)
		}
		if len(store.seats) != 12 {
			t.Fatalf("expected catalog replaced, got %d seats", len(store.seats))
		}
		if store.gridRows != 3 || store.gridPerRow != 4 {
			t.Fatalf("expected grid 3x4 persisted, got %dx%d", store.gridRows, store.gridPerRow)
		}

		seen := make(map[string]struct{})
		for _, seat := range store.seats {
			if seat.ID == "" {
				t.Fatalf("expected fresh seat ids")
			}
			if _, dup := seen[seat.ID]; dup {
				t.Fatalf("duplicate seat id %s", seat.ID)
			}
			seen[seat.ID] = struct{}{}
			if seat.Row != "A" && seat.Row != "B" && seat.Row != "C" {
				t.Fatalf("unexpected row %s", seat.Row)
			}
		}
	})

	t.Run("bounds are enforced", func(t *testing.T) {
		svc := NewSeatService(newFakeStore(testSeats), clock.NewFixed(now))
		for _, dims := range [][2]int{{0, 10}, {10, 0}, {51, 10}, {10, 51}} {
			if _, err := svc.Regenerate(context.Background(), dims[0], dims[1], nil); !errors.Is(err, domain.ErrInvalidGrid) {
				t.Fatalf("dims %v: expected ErrInvalidGrid, got %v", dims, err)
			}
		}
	})

	t.Run("refused while confirmed bookings exist", func(t *testing.T) {
		store := newFakeStore(testSeats)
		store.bookings = []domain.Booking{
			{ID: "bk-1", SeatID: "seat-a1", Name: "Maria Rossi", Email: "maria@example.com", Status: domain.BookingConfirmed, CreatedAt: now},
		}
		svc := NewSeatService(store, clock.NewFixed(now))

		if _, err := svc.Regenerate(context.Background(), 2, 2, nil); !errors.Is(err, domain.ErrHasBookings) {
			t.Fatalf("expected ErrHasBookings, got %v", err)
		}
		if len(store.seats) != len(testSeats) {
			t.Fatalf("expected catalog untouched")
		}
	})

	t.Run("booking landing before the catalog lock aborts", func(t *testing.T) {
		store := newFakeStore(testSeats)
		store.onLockCatalog = func(f *fakeStore) {
			f.bookings = append(f.bookings, domain.Booking{
				ID: "bk-raced", SeatID: "seat-a1", Name: "Maria Rossi", Email: "maria@example.com",
				Status: domain.BookingConfirmed, CreatedAt: now,
			})
		}
		svc := NewSeatService(store, clock.NewFixed(now))

		if _, err := svc.Regenerate(context.Background(), 2, 2, nil); !errors.Is(err, domain.ErrHasBookings) {
			t.Fatalf("expected ErrHasBookings, got %v", err)
		}
		if len(store.bookings) != 1 || store.bookings[0].Status != domain.BookingConfirmed {
			t.Fatalf("expected the raced booking preserved")
		}
		if len(store.seats) != len(testSeats) {
			t.Fatalf("expected catalog untouched")
		}
	})

	t.Run("cancelled bookings do not block", func(t *testing.T) {
		store := newFakeStore(testSeats)
		store.bookings = []domain.Booking{
			{ID: "bk-1", SeatID: "seat-a1", Name: "Maria Rossi", Email: "maria@example.com", Status: domain.BookingCancelled, CreatedAt: now},
		}
		svc := NewSeatService(store, clock.NewFixed(now))

		if _, err := svc.Regenerate(context.Background(), 2, 2, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestRowLabel(t *testing.T) {
	t.Parallel()

	cases := map[int]string{
		0:  "A",
		1:  "B",
		25: "Z",
		26: "AA",
		27: "AB",
		51: "AZ",
		52: "BA",
	}
	for i, want := range cases {
		if got := rowLabel(i); got != want {
			t.Fatalf("rowLabel(%d) = %q, want %q", i, got, want)
		}
	}
}
