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

type HoldRepository struct {
	pool *pgxpool.Pool
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{pool: pool}
}

func (r *HoldRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *HoldRepository) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	const stmt = `DELETE FROM holds WHERE expires_at <= $1`
	tag, err := r.exec(ctx, stmt, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired holds: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// SeatsForUpdate locks the requested seat rows in ascending id order so
// overlapping multi-seat calls cannot deadlock.
func (r *HoldRepository) SeatsForUpdate(ctx context.Context, seatIDs []string) ([]domain.Seat, error) {
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

func (r *HoldRepository) BookedSeatIDs(ctx context.Context, seatIDs []string) ([]string, error) {
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

func (r *HoldRepository) HoldsBySeat(ctx context.Context, seatIDs []string, now time.Time) ([]domain.Hold, error) {
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

// UpsertHolds grants or refreshes holds. The caller has already verified
// under row locks that no live foreign hold exists on any of the seats.
func (r *HoldRepository) UpsertHolds(ctx context.Context, holds []domain.Hold) error {
	const stmt = `
INSERT INTO holds (seat_id, session_id, acquired_at, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (seat_id) DO UPDATE
SET session_id = EXCLUDED.session_id,
    acquired_at = EXCLUDED.acquired_at,
    expires_at = EXCLUDED.expires_at`

	for _, h := range holds {
		if _, err := r.exec(ctx, stmt, h.SeatID, h.SessionID, h.AcquiredAt, h.ExpiresAt); err != nil {
			return fmt.Errorf("upsert hold %s: %w", h.SeatID, err)
		}
	}
	return nil
}

// ExtendHolds pushes the expiry of the session's still-live holds on the
// given seats. Seats the session does not hold are silently left alone.
func (r *HoldRepository) ExtendHolds(ctx context.Context, sessionID string, seatIDs []string, now, expiresAt time.Time) error {
	const stmt = `
UPDATE holds
SET expires_at = $4
WHERE session_id = $1 AND seat_id = ANY($2::uuid[]) AND expires_at > $3`

	if _, err := r.exec(ctx, stmt, sessionID, seatIDs, now, expiresAt); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("extend holds: %w", err)
	}
	return nil
}

func (r *HoldRepository) DeleteHolds(ctx context.Context, sessionID string, seatIDs []string) error {
	const stmt = `DELETE FROM holds WHERE session_id = $1 AND seat_id = ANY($2::uuid[])`
	if _, err := r.exec(ctx, stmt, sessionID, seatIDs); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete holds: %w", err)
	}
	return nil
}

func (r *HoldRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *HoldRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
