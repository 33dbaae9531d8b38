package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/donatogr/teatro-prenotazioni/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *BookingRepository) PurgeExpiredHolds(ctx context.Context, now time.Time) (int, error) {
	const stmt = `DELETE FROM holds WHERE expires_at <= $1`
	tag, err := r.exec(ctx, stmt, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired holds: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *BookingRepository) SeatsForUpdate(ctx context.Context, seatIDs []string) ([]domain.Seat, error) {
	const query = `
SELECT id, row_label, number, staff_reserved
FROM seats
WHERE id = ANY($1::uuid[])
ORDER BY id
FOR UPDATE`

	rows, err := r.query(ctx, query, seatIDs)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("lock seats: %w", err)
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
		if isInvalidUUID(rows.Err()) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate seats: %w", rows.Err())
	}
	return seats, nil
}

func (r *BookingRepository) BookedSeatIDs(ctx context.Context, seatIDs []string) ([]string, error) {
	const query = `
SELECT seat_id
FROM bookings
WHERE seat_id = ANY($1::uuid[]) AND status = 'confermata'`

	rows, err := r.query(ctx, query, seatIDs)
	if err != nil {
		return nil, fmt.Errorf("booked seats: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan booked seat: %w", err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate booked seats: %w", rows.Err())
	}
	return ids, nil
}

func (r *BookingRepository) HoldsBySeat(ctx context.Context, seatIDs []string, now time.Time) ([]domain.Hold, error) {
	const query = `
SELECT seat_id, session_id, acquired_at, expires_at
FROM holds
WHERE seat_id = ANY($1::uuid[]) AND expires_at > $2`

	rows, err := r.query(ctx, query, seatIDs, now)
	if err != nil {
		return nil, fmt.Errorf("holds by seat: %w", err)
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

func (r *BookingRepository) CreateBookings(ctx context.Context, bookings []domain.Booking) error {
	const stmt = `
INSERT INTO bookings (id, seat_id, name, email, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	for _, b := range bookings {
		_, err := r.exec(ctx, stmt, b.ID, b.SeatID, b.Name, b.Email, b.Status, b.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrSeatBooked
			}
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("create booking: %w", err)
		}
	}
	return nil
}

// DeleteHoldsBySeat drops every hold on the given seats regardless of
// owning session; booked seats never keep a hold behind.
func (r *BookingRepository) DeleteHoldsBySeat(ctx context.Context, seatIDs []string) error {
	const stmt = `DELETE FROM holds WHERE seat_id = ANY($1::uuid[])`
	if _, err := r.exec(ctx, stmt, seatIDs); err != nil {
		return fmt.Errorf("delete holds: %w", err)
	}
	return nil
}

func (r *BookingRepository) CodeByPerson(ctx context.Context, name, email string) (*domain.BookingCode, error) {
	const query = `SELECT name, email, code, created_at FROM booking_codes WHERE name = $1 AND email = $2`
	var c domain.BookingCode
	err := r.queryRow(ctx, query, name, email).Scan(&c.Name, &c.Email, &c.Code, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("code by person: %w", err)
	}
	return &c, nil
}

// CreateCode inserts a fresh code. ErrCodeExists means the person already
// has a code (a concurrent first booking won the race, re-read it);
// ErrCodeTaken means the generated code collided and the caller should
// roll a new one.
func (r *BookingRepository) CreateCode(ctx context.Context, code domain.BookingCode) error {
	const stmt = `INSERT INTO booking_codes (name, email, code, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.exec(ctx, stmt, code.Name, code.Email, code.Code, code.CreatedAt)
	if err != nil {
		switch uniqueViolationConstraint(err) {
		case "booking_codes_pkey":
			return domain.ErrCodeExists
		case "booking_codes_code_key":
			return domain.ErrCodeTaken
		}
		return fmt.Errorf("create code: %w", err)
	}
	return nil
}

func (r *BookingRepository) BookingsByEmailCode(ctx context.Context, email, code string) ([]domain.BookingWithSeat, error) {
	const query = `
SELECT b.id, b.seat_id, b.name, b.email, b.status, b.created_at,
       s.id, s.row_label, s.number, s.staff_reserved
FROM bookings b
JOIN booking_codes c ON c.name = b.name AND c.email = b.email
JOIN seats s ON s.id = b.seat_id
WHERE c.email = $1 AND c.code = $2 AND b.status = 'confermata'
ORDER BY b.created_at DESC`

	return r.queryBookingsWithSeat(ctx, query, email, code)
}

// ConfirmedBySeat lists confirmed bookings in seat order for exports.
func (r *BookingRepository) ConfirmedBySeat(ctx context.Context) ([]domain.BookingWithSeat, error) {
	const query = `
SELECT b.id, b.seat_id, b.name, b.email, b.status, b.created_at,
       s.id, s.row_label, s.number, s.staff_reserved
FROM bookings b
JOIN seats s ON s.id = b.seat_id
WHERE b.status = 'confermata'
ORDER BY s.row_label, s.number`

	return r.queryBookingsWithSeat(ctx, query)
}

// ConfirmedNewestFirst lists confirmed bookings for the admin overview.
func (r *BookingRepository) ConfirmedNewestFirst(ctx context.Context) ([]domain.BookingWithSeat, error) {
	const query = `
SELECT b.id, b.seat_id, b.name, b.email, b.status, b.created_at,
       s.id, s.row_label, s.number, s.staff_reserved
FROM bookings b
JOIN seats s ON s.id = b.seat_id
WHERE b.status = 'confermata'
ORDER BY b.created_at DESC`

	return r.queryBookingsWithSeat(ctx, query)
}

func (r *BookingRepository) GetBooking(ctx context.Context, bookingID string) (domain.Booking, error) {
	const query = `SELECT id, seat_id, name, email, status, created_at FROM bookings WHERE id = $1`
	var b domain.Booking
	err := r.queryRow(ctx, query, bookingID).Scan(&b.ID, &b.SeatID, &b.Name, &b.Email, &b.Status, &b.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Booking{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (r *BookingRepository) SetBookingStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error {
	const stmt = `UPDATE bookings SET status = $2 WHERE id = $1`
	tag, err := r.exec(ctx, stmt, bookingID, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) queryBookingsWithSeat(ctx context.Context, sql string, args ...any) ([]domain.BookingWithSeat, error) {
	rows, err := r.query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var out []domain.BookingWithSeat
	for rows.Next() {
		var b domain.BookingWithSeat
		if err := rows.Scan(
			&b.ID, &b.SeatID, &b.Name, &b.Email, &b.Status, &b.CreatedAt,
			&b.Seat.ID, &b.Seat.Row, &b.Seat.Number, &b.Seat.StaffReserved,
		); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate bookings: %w", rows.Err())
	}
	return out, nil
}

func (r *BookingRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *BookingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *BookingRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
