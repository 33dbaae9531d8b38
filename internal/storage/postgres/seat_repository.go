package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/donatogr/teatro-prenotazioni/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SeatRepository struct {
	pool *pgxpool.Pool
}

func NewSeatRepository(pool *pgxpool.Pool) *SeatRepository {
	return &SeatRepository{pool: pool}
}

func (r *SeatRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *SeatRepository) ListSeats(ctx context.Context) ([]domain.Seat, error) {
	const query = `
SELECT id, row_label, number, staff_reserved
FROM seats
ORDER BY row_label, number`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	defer rows.Close()

	var seats []domain.Seat
	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(&s.ID, &s.Row, &s.Number, &s.StaffReserved); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seats = append(seats, s)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate seats: %w", rows.Err())
	}
	return seats, nil
}

func (r *SeatRepository) ActiveHolds(ctx context.Context, now time.Time) ([]domain.Hold, error) {
	const query = `
SELECT seat_id, session_id, acquired_at, expires_at
FROM holds
WHERE expires_at > $1`

	rows, err := r.query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list holds: %w", err)
	}
	defer rows.Close()

	var holds []domain.Hold
	for rows.Next() {
		var h domain.Hold
		if err := rows.Scan(&h.SeatID, &h.SessionID, &h.AcquiredAt, &h.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		holds = append(holds, h)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate holds: %w", rows.Err())
	}
	return holds, nil
}

func (r *SeatRepository) ConfirmedBookings(ctx context.Context) ([]domain.Booking, error) {
	const query = `
SELECT id, seat_id, name, email, status, created_at
FROM bookings
WHERE status = 'confermata'`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.SeatID, &b.Name, &b.Email, &b.Status, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate bookings: %w", rows.Err())
	}
	return bookings, nil
}

func (r *SeatRepository) RowExists(ctx context.Context, row string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM seats WHERE row_label = $1)`
	var exists bool
	if err := r.queryRow(ctx, query, row).Scan(&exists); err != nil {
		return false, fmt.Errorf("check row: %w", err)
	}
	return exists, nil
}

// SetRowReserved flips the staff flag on every seat of a row that has no
// confirmed booking and reports how many seats changed.
func (r *SeatRepository) SetRowReserved(ctx context.Context, row string, reserved bool) (int, error) {
	const stmt = `
UPDATE seats
SET staff_reserved = $2
WHERE row_label = $1
  AND id NOT IN (SELECT seat_id FROM bookings WHERE status = 'confermata')`

	tag, err := r.exec(ctx, stmt, row, reserved)
	if err != nil {
		return 0, fmt.Errorf("set row reserved: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// SeatForUpdate loads one seat and locks its row, so concurrent bookers
// of the same seat serialize behind the caller's transaction.
func (r *SeatRepository) SeatForUpdate(ctx context.Context, seatID string) (domain.Seat, error) {
	const query = `SELECT id, row_label, number, staff_reserved FROM seats WHERE id = $1 FOR UPDATE`
	var s domain.Seat
	err := r.queryRow(ctx, query, seatID).Scan(&s.ID, &s.Row, &s.Number, &s.StaffReserved)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Seat{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Seat{}, domain.ErrSeatNotFound
		}
		return domain.Seat{}, fmt.Errorf("get seat: %w", err)
	}
	return s, nil
}

func (r *SeatRepository) SeatBooked(ctx context.Context, seatID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM bookings WHERE seat_id = $1 AND status = 'confermata')`
	var booked bool
	if err := r.queryRow(ctx, query, seatID).Scan(&booked); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("check seat booked: %w", err)
	}
	return booked, nil
}

func (r *SeatRepository) SetSeatReserved(ctx context.Context, seatID string, reserved bool) error {
	const stmt = `UPDATE seats SET staff_reserved = $2 WHERE id = $1`
	tag, err := r.exec(ctx, stmt, seatID, reserved)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set seat reserved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSeatNotFound
	}
	return nil
}

// LockCatalog takes an exclusive table lock on seats. Regeneration runs
// behind it so a booking transaction, which locks seat rows, can neither
// slip between the confirmed-bookings count and the catalog swap nor
// start against seats that are about to disappear.
func (r *SeatRepository) LockCatalog(ctx context.Context) error {
	if _, err := r.exec(ctx, `LOCK TABLE seats IN ACCESS EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock seats: %w", err)
	}
	return nil
}

func (r *SeatRepository) CountConfirmedBookings(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM bookings WHERE status = 'confermata'`
	var count int
	if err := r.queryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return count, nil
}

// ReplaceSeats swaps the whole catalog for a fresh generation. Holds and
// cancelled bookings referencing the old seats go away via ON DELETE
// CASCADE; the caller guarantees no confirmed booking exists.
func (r *SeatRepository) ReplaceSeats(ctx context.Context, seats []domain.Seat) error {
	if _, err := r.exec(ctx, `DELETE FROM seats`); err != nil {
		return fmt.Errorf("clear seats: %w", err)
	}
	const stmt = `INSERT INTO seats (id, row_label, number, staff_reserved) VALUES ($1, $2, $3, $4)`
	for _, s := range seats {
		if _, err := r.exec(ctx, stmt, s.ID, s.Row, s.Number, s.StaffReserved); err != nil {
			return fmt.Errorf("insert seat %s: %w", s.Label(), err)
		}
	}
	return nil
}

// SaveGrid records the generated grid dimensions and display groups in the
// show settings so the admin panel reflects the live catalog.
func (r *SeatRepository) SaveGrid(ctx context.Context, rowCount, seatsPerRow int, groups []domain.RowGroup) error {
	if groups == nil {
		groups = []domain.RowGroup{}
	}
	payload, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("marshal row groups: %w", err)
	}

	const stmt = `
INSERT INTO show_settings (id, row_count, seats_per_row, row_groups)
VALUES (1, $1, $2, $3::jsonb)
ON CONFLICT (id) DO UPDATE
SET row_count = EXCLUDED.row_count,
    seats_per_row = EXCLUDED.seats_per_row,
    row_groups = EXCLUDED.row_groups`

	if _, err := r.exec(ctx, stmt, rowCount, seatsPerRow, payload); err != nil {
		return fmt.Errorf("save grid: %w", err)
	}
	return nil
}

func (r *SeatRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *SeatRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *SeatRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
