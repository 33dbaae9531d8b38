package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/donatogr/teatro-prenotazioni/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ShowRepository struct {
	pool *pgxpool.Pool
}

func NewShowRepository(pool *pgxpool.Pool) *ShowRepository {
	return &ShowRepository{pool: pool}
}

// GetSettings returns the singleton show settings, or the zero value when
// nothing has been configured yet.
func (r *ShowRepository) GetSettings(ctx context.Context) (domain.ShowSettings, error) {
	const query = `
SELECT theater_name, theater_address, show_name, event_at, row_count, seats_per_row, row_groups
FROM show_settings
WHERE id = 1`

	var s domain.ShowSettings
	var groups []byte
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.TheaterName, &s.TheaterAddress, &s.ShowName,
		&s.EventAt, &s.RowCount, &s.SeatsPerRow, &groups,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.ShowSettings{}, nil
		}
		return domain.ShowSettings{}, fmt.Errorf("get settings: %w", err)
	}
	if len(groups) > 0 {
		if err := json.Unmarshal(groups, &s.RowGroups); err != nil {
			return domain.ShowSettings{}, fmt.Errorf("decode row groups: %w", err)
		}
	}
	return s, nil
}

func (r *ShowRepository) SaveSettings(ctx context.Context, s domain.ShowSettings) error {
	if s.RowGroups == nil {
		s.RowGroups = []domain.RowGroup{}
	}
	groups, err := json.Marshal(s.RowGroups)
	if err != nil {
		return fmt.Errorf("marshal row groups: %w", err)
	}

	const stmt = `
INSERT INTO show_settings (id, theater_name, theater_address, show_name, event_at, row_count, seats_per_row, row_groups)
VALUES (1, $1, $2, $3, $4, $5, $6, $7::jsonb)
ON CONFLICT (id) DO UPDATE
SET theater_name = EXCLUDED.theater_name,
    theater_address = EXCLUDED.theater_address,
    show_name = EXCLUDED.show_name,
    event_at = EXCLUDED.event_at,
    row_count = EXCLUDED.row_count,
    seats_per_row = EXCLUDED.seats_per_row,
    row_groups = EXCLUDED.row_groups`

	if _, err := r.pool.Exec(ctx, stmt,
		s.TheaterName, s.TheaterAddress, s.ShowName,
		s.EventAt, s.RowCount, s.SeatsPerRow, groups,
	); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
