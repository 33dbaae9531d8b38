package app

import (
	"context"
	"log"
	"time"

	"github.com/donatogr/teatro-prenotazioni/internal/clock"
	"github.com/donatogr/teatro-prenotazioni/internal/domain"
)

type HoldRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
	SeatsForUpdate(ctx context.Context, seatIDs []string) ([]domain.Seat, error)
	BookedSeatIDs(ctx context.Context, seatIDs []string) ([]string, error)
	HoldsBySeat(ctx context.Context, seatIDs []string, now time.Time) ([]domain.Hold, error)
	UpsertHolds(ctx context.Context, holds []domain.Hold) error
	ExtendHolds(ctx context.Context, sessionID string, seatIDs []string, now, expiresAt time.Time) error
	DeleteHolds(ctx context.Context, sessionID string, seatIDs []string) error
}

// DefaultHoldTTL matches the user-facing "reserved for 5 minutes" contract.
const DefaultHoldTTL = 5 * time.Minute

type HoldService struct {
	repo    HoldRepository
	clock   clock.Clock
	holdTTL time.Duration
}

func NewHoldService(repo HoldRepository, clk clock.Clock, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		repo:    repo,
		clock:   clk,
		holdTTL: DefaultHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default TTL for new and renewed holds.
func WithHoldTTL(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

type AcquireResult struct {
	Holds     []domain.Hold
	ExpiresAt time.Time
}

// Acquire grants or refreshes holds for every requested seat at once.
// If any seat is booked, staff reserved, or held by another session the
// whole call fails with SeatsUnavailableError naming the offenders and no
// hold changes. First committer wins; losers re-poll and retry.
func (s *HoldService) Acquire(ctx context.Context, sessionID string, seatIDs []string) (AcquireResult, error) {
	if sessionID == "" {
		return AcquireResult{}, domain.ErrSessionRequired
	}
	ids := dedupe(seatIDs)
	if len(ids) == 0 {
		return AcquireResult{}, domain.ErrNoSeats
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.holdTTL)
	var result AcquireResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.PurgeExpired(txCtx, now); err != nil {
			return err
		}

		seats, err := s.repo.SeatsForUpdate(txCtx, ids)
		if err != nil {
			return err
		}
		if len(seats) != len(ids) {
			return domain.ErrSeatNotFound
		}

		conflicts, err := s.unavailableSeats(txCtx, seats, ids, sessionID, now)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &domain.SeatsUnavailableError{Seats: conflicts}
		}

		holds := make([]domain.Hold, 0, len(ids))
		for _, id := range ids {
			holds = append(holds, domain.Hold{
				SeatID:     id,
				SessionID:  sessionID,
				AcquiredAt: now,
				ExpiresAt:  expiresAt,
			})
		}
		if err := s.repo.UpsertHolds(txCtx, holds); err != nil {
			return err
		}

		result = AcquireResult{Holds: holds, ExpiresAt: expiresAt}
		return nil
	})
	if err != nil {
		return AcquireResult{}, err
	}
	return result, nil
}

// Renew extends the session's holds on the given seats. Seats not held by
// the session, already expired, or unknown are silently skipped: renewal
// racing with expiry or replacement is expected and non-fatal.
func (s *HoldService) Renew(ctx context.Context, sessionID string, seatIDs []string) error {
	ids := dedupe(seatIDs)
	if sessionID == "" || len(ids) == 0 {
		return nil
	}

	now := s.clock.Now()
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.PurgeExpired(txCtx, now); err != nil {
			return err
		}
		return s.repo.ExtendHolds(txCtx, sessionID, ids, now, now.Add(s.holdTTL))
	})
}

// Release drops the session's holds on the given seats. Releasing a free
// or foreign-held seat is a no-op.
func (s *HoldService) Release(ctx context.Context, sessionID string, seatIDs []string) error {
	ids := dedupe(seatIDs)
	if sessionID == "" || len(ids) == 0 {
		return nil
	}
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.DeleteHolds(txCtx, sessionID, ids)
	})
}

// Sweep purges every expired hold. Mutating calls already purge lazily;
// the sweep keeps the table tidy while traffic is idle.
func (s *HoldService) Sweep(ctx context.Context) (int, error) {
	return s.repo.PurgeExpired(ctx, s.clock.Now())
}

// RunSweeper purges expired holds on a ticker until ctx is cancelled.
func (s *HoldService) RunSweeper(ctx context.Context, interval time.Duration, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Printf("hold sweeper stopped")
			return
		case <-ticker.C:
			purged, err := s.Sweep(ctx)
			if err != nil {
				logger.Printf("hold sweep failed: %v", err)
				continue
			}
			if purged > 0 {
				logger.Printf("hold sweep purged %d expired holds", purged)
			}
		}
	}
}

func (s *HoldService) unavailableSeats(ctx context.Context, seats []domain.Seat, ids []string, sessionID string, now time.Time) ([]domain.Seat, error) {
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
		if owner, ok := heldBy[seat.ID]; ok && owner != sessionID {
			conflicts = append(conflicts, seat)
		}
	}
	return conflicts, nil
}
