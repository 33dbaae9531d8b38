package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/donatogr/teatro-prenotazioni/internal/app"
	"github.com/donatogr/teatro-prenotazioni/internal/domain"
)

// ShowReader serves the public show presentation data.
type ShowReader interface {
	PublicInfo(ctx context.Context) (app.PublicShow, error)
}

// HandleShowInfo serves the public header data: show name, venue and
// the row grouping used to render the seat map legend.
func HandleShowInfo(svc ShowReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		info, err := svc.PublicInfo(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			TheaterName string            `json:"nome_teatro"`
			ShowName    string            `json:"nome_spettacolo"`
			EventAt     *time.Time        `json:"data_ora_evento"`
			RowGroups   []domain.RowGroup `json:"gruppi_file"`
		}{
			TheaterName: info.TheaterName,
			ShowName:    info.ShowName,
			EventAt:     info.EventAt,
			RowGroups:   info.RowGroups,
		})
	}
}
