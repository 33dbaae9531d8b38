package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/donatogr/teatro-prenotazioni/internal/app"
)

// SeatLister is the minimal interface needed to serve the seat map.
type SeatLister interface {
	ListSeats(ctx context.Context, viewerSession string) ([]app.SeatView, error)
}

type seatResponse struct {
	ID            string `json:"id"`
	Row           string `json:"fila"`
	Number        int    `json:"numero"`
	Label         string `json:"posto"`
	StaffReserved bool   `json:"riservato_staff"`
	State         string `json:"stato"`
	BookedName    string `json:"prenotazione_nome,omitempty"`
	BookedEmail   string `json:"prenotazione_email,omitempty"`
}

// HandleListSeats serves the seat map with per-viewer derived state.
// Booking holder details are only exposed on the admin variant.
func HandleListSeats(svc SeatLister, exposeBookings bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		viewer := sessionID(r)
		if exposeBookings {
			// Admin view is session-agnostic: held seats all render as
			// bloccato.
			viewer = ""
		}

		views, err := svc.ListSeats(r.Context(), viewer)
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		resp := make([]seatResponse, 0, len(views))
		for _, v := range views {
			seat := seatResponse{
				ID:            v.Seat.ID,
				Row:           v.Seat.Row,
				Number:        v.Seat.Number,
				Label:         v.Seat.Label(),
				StaffReserved: v.Seat.StaffReserved,
				State:         string(v.State),
			}
			if exposeBookings && v.BookedBy != nil {
				seat.BookedName = v.BookedBy.Name
				seat.BookedEmail = v.BookedBy.Email
			}
			resp = append(resp, seat)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
