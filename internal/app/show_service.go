package app

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/donatogr/teatro-prenotazioni/internal/domain"
)

type ShowRepository interface {
	GetSettings(ctx context.Context) (domain.ShowSettings, error)
	SaveSettings(ctx context.Context, s domain.ShowSettings) error
}

type ShowService struct {
	repo ShowRepository
}

func NewShowService(repo ShowRepository) *ShowService {
	return &ShowService{repo: repo}
}

// PublicShow is the subset of the show settings served without
// authentication on the public page.
type PublicShow struct {
	TheaterName string
	ShowName    string
	EventAt     *time.Time
	RowGroups   []domain.RowGroup
}

func (s *ShowService) PublicInfo(ctx context.Context) (PublicShow, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return PublicShow{}, err
	}
	groups := settings.RowGroups
	if groups == nil {
		groups = []domain.RowGroup{}
	}
	return PublicShow{
		TheaterName: settings.TheaterName,
		ShowName:    settings.ShowName,
		EventAt:     settings.EventAt,
		RowGroups:   groups,
	}, nil
}

func (s *ShowService) Settings(ctx context.Context) (domain.ShowSettings, error) {
	return s.repo.GetSettings(ctx)
}

// UpdateSettings sanitizes and stores the show configuration: names are
// trimmed and capped, grid dimensions outside 1..50 are dropped rather
// than rejected, and incomplete row groups are filtered out.
func (s *ShowService) UpdateSettings(ctx context.Context, in domain.ShowSettings) error {
	in.TheaterName = truncate(strings.TrimSpace(in.TheaterName), 120)
	in.TheaterAddress = truncate(strings.TrimSpace(in.TheaterAddress), 255)
	in.ShowName = truncate(strings.TrimSpace(in.ShowName), 120)

	in.RowCount = clampGrid(in.RowCount)
	in.SeatsPerRow = clampGrid(in.SeatsPerRow)

	groups := make([]domain.RowGroup, 0, len(in.RowGroups))
	for _, g := range in.RowGroups {
		g.Letters = strings.ToUpper(strings.TrimSpace(g.Letters))
		g.Name = strings.TrimSpace(g.Name)
		if g.Letters == "" || g.Name == "" {
			continue
		}
		groups = append(groups, g)
	}
	in.RowGroups = groups

	return s.repo.SaveSettings(ctx, in)
}

func clampGrid(v *int) *int {
	if v == nil || *v < 1 || *v > maxGridDim {
		return nil
	}
	return v
}

// truncate caps a string at max characters, never splitting a multibyte
// character.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
