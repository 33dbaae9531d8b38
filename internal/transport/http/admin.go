package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/donatogr/teatro-prenotazioni/internal/app"
	"github.com/donatogr/teatro-prenotazioni/internal/domain"
)

// SeatAdmin covers the staff-side catalog operations.
type SeatAdmin interface {
	ListRows(ctx context.Context) (app.RowsInfo, error)
	SetRowReserved(ctx context.Context, row string, reserved bool) (int, error)
	SetSeatReserved(ctx context.Context, seatID string, reserved bool) error
	Regenerate(ctx context.Context, rows, seatsPerRow int, groups []domain.RowGroup) (int, error)
}

// BookingAdmin covers the staff-side booking operations.
type BookingAdmin interface {
	ListBookings(ctx context.Context) ([]domain.BookingWithSeat, error)
	Cancel(ctx context.Context, bookingID string) error
	ExportBySeat(ctx context.Context) ([]app.SeatExport, error)
	ExportByPerson(ctx context.Context) ([]app.PersonExport, error)
}

// ShowAdmin covers reading and updating the show settings.
type ShowAdmin interface {
	Settings(ctx context.Context) (domain.ShowSettings, error)
	UpdateSettings(ctx context.Context, in domain.ShowSettings) error
}

// HandleAdminRows serves GET /admin/rows and PUT /admin/rows/{row}.
func HandleAdminRows(svc SeatAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			info, err := svc.ListRows(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(struct {
				Rows     []string `json:"file"`
				Reserved []string `json:"riservate"`
			}{Rows: info.Rows, Reserved: info.Reserved})
		case r.Method == http.MethodPut:
			handleSetRowReserved(svc, w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func handleSetRowReserved(svc SeatAdmin, w http.ResponseWriter, r *http.Request) {
	row := pathSuffix(r.URL.Path, "/admin/rows/")
	if row == "" {
		writeError(w, http.StatusNotFound, codeRowNotFound, "row not found")
		return
	}

	var req struct {
		Reserved bool `json:"riservata"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	affected, err := svc.SetRowReserved(r.Context(), row, req.Reserved)
	if err != nil {
		if errors.Is(err, domain.ErrRowNotFound) {
			writeError(w, http.StatusNotFound, codeRowNotFound, "row not found")
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		OK       bool `json:"ok"`
		Affected int  `json:"aggiornati"`
	}{OK: true, Affected: affected})
}

// HandleAdminSeat serves PUT /admin/seats/{id}, toggling the staff flag.
func HandleAdminSeat(svc SeatAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		id := pathSuffix(r.URL.Path, "/admin/seats/")
		if id == "" {
			writeError(w, http.StatusNotFound, codeSeatNotFound, "seat not found")
			return
		}

		var req struct {
			Reserved bool `json:"riservato_staff"`
		}
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		if err := svc.SetSeatReserved(r.Context(), id, req.Reserved); err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidID), errors.Is(err, domain.ErrSeatNotFound):
				writeError(w, http.StatusNotFound, codeSeatNotFound, "seat not found")
			case errors.Is(err, domain.ErrSeatBooked):
				writeError(w, http.StatusConflict, codeSeatBooked, "seat has a confirmed booking")
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			OK       bool `json:"ok"`
			Reserved bool `json:"riservato_staff"`
		}{OK: true, Reserved: req.Reserved})
	}
}

// HandleAdminRegenerate rebuilds the seat catalog with new dimensions.
// Refused while any confirmed booking exists.
func HandleAdminRegenerate(svc SeatAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req struct {
			Rows        int               `json:"numero_file"`
			SeatsPerRow int               `json:"posti_per_fila"`
			RowGroups   []domain.RowGroup `json:"gruppi_file"`
		}
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		created, err := svc.Regenerate(r.Context(), req.Rows, req.SeatsPerRow, req.RowGroups)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidGrid):
				writeError(w, http.StatusBadRequest, codeInvalidGrid, "rows and seats per row must be between 1 and 50")
			case errors.Is(err, domain.ErrHasBookings):
				writeError(w, http.StatusConflict, codeHasBookings, "cannot regenerate while confirmed bookings exist")
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			OK      bool `json:"ok"`
			Created int  `json:"creati"`
		}{OK: true, Created: created})
	}
}

// HandleAdminBookings serves GET /admin/bookings and
// DELETE /admin/bookings/{id}.
func HandleAdminBookings(svc BookingAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			items, err := svc.ListBookings(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(struct {
				Bookings []bookingResponse `json:"prenotazioni"`
			}{Bookings: toBookingResponses(items)})
		case http.MethodDelete:
			id := pathSuffix(r.URL.Path, "/admin/bookings/")
			if id == "" {
				writeError(w, http.StatusNotFound, codeBookingNotFound, "booking not found")
				return
			}
			if err := svc.Cancel(r.Context(), id); err != nil {
				switch {
				case errors.Is(err, domain.ErrInvalidID), errors.Is(err, domain.ErrBookingNotFound):
					writeError(w, http.StatusNotFound, codeBookingNotFound, "booking not found")
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

type seatExportResponse struct {
	Row    string `json:"fila"`
	Number int    `json:"numero"`
	Seat   string `json:"posto"`
	Name   string `json:"nome"`
	Email  string `json:"email"`
}

type personExportResponse struct {
	Name          string    `json:"nome"`
	Email         string    `json:"email"`
	Count         int       `json:"numero_posti"`
	Seats         []string  `json:"posti"`
	FirstBookedAt time.Time `json:"prima_prenotazione"`
}

// HandleAdminExport serves both export views in one payload.
func HandleAdminExport(svc BookingAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		bySeat, err := svc.ExportBySeat(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}
		byPerson, err := svc.ExportByPerson(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		seats := make([]seatExportResponse, 0, len(bySeat))
		for _, e := range bySeat {
			seats = append(seats, seatExportResponse{
				Row:    e.Row,
				Number: e.Number,
				Seat:   e.Seat,
				Name:   e.Name,
				Email:  e.Email,
			})
		}
		people := make([]personExportResponse, 0, len(byPerson))
		for _, e := range byPerson {
			people = append(people, personExportResponse{
				Name:          e.Name,
				Email:         e.Email,
				Count:         e.Count,
				Seats:         e.Seats,
				FirstBookedAt: e.FirstBookedAt,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			BySeat   []seatExportResponse   `json:"bySeat"`
			ByPerson []personExportResponse `json:"byPerson"`
		}{BySeat: seats, ByPerson: people})
	}
}

type settingsPayload struct {
	TheaterName    string            `json:"nome_teatro"`
	TheaterAddress string            `json:"indirizzo_teatro"`
	ShowName       string            `json:"nome_spettacolo"`
	EventAt        *string           `json:"data_ora_evento"`
	RowCount       *int              `json:"numero_file"`
	SeatsPerRow    *int              `json:"posti_per_fila"`
	RowGroups      []domain.RowGroup `json:"gruppi_file"`
}

// HandleAdminSettings serves GET and PUT on /admin/settings.
func HandleAdminSettings(svc ShowAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s, err := svc.Settings(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			var eventAt *string
			if s.EventAt != nil {
				v := s.EventAt.Format(time.RFC3339)
				eventAt = &v
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(settingsPayload{
				TheaterName:    s.TheaterName,
				TheaterAddress: s.TheaterAddress,
				ShowName:       s.ShowName,
				EventAt:        eventAt,
				RowCount:       s.RowCount,
				SeatsPerRow:    s.SeatsPerRow,
				RowGroups:      s.RowGroups,
			})
		case http.MethodPut:
			var req settingsPayload
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			var eventAt *time.Time
			if req.EventAt != nil && strings.TrimSpace(*req.EventAt) != "" {
				t, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.EventAt))
				if err != nil {
					writeError(w, http.StatusBadRequest, codeInvalidEventAt, "data_ora_evento must be RFC 3339")
					return
				}
				eventAt = &t
			}

			err := svc.UpdateSettings(r.Context(), domain.ShowSettings{
				TheaterName:    req.TheaterName,
				TheaterAddress: req.TheaterAddress,
				ShowName:       req.ShowName,
				EventAt:        eventAt,
				RowCount:       req.RowCount,
				SeatsPerRow:    req.SeatsPerRow,
				RowGroups:      req.RowGroups,
			})
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// pathSuffix extracts the final path segment after prefix, rejecting
// anything with further slashes.
func pathSuffix(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path || rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}
