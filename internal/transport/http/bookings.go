package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/donatogr/teatro-prenotazioni/internal/app"
	"github.com/donatogr/teatro-prenotazioni/internal/domain"
)

// Booker covers booking creation and viewer-side retrieval.
type Booker interface {
	Book(ctx context.Context, in app.BookInput) (app.BookResult, error)
	FindByCode(ctx context.Context, email, code string) ([]domain.BookingWithSeat, error)
}

type bookRequest struct {
	SessionID string   `json:"session_id"`
	SeatIDs   []string `json:"posto_ids"`
	Name      string   `json:"nome"`
	Email     string   `json:"email"`
}

type bookingResponse struct {
	ID        string    `json:"id"`
	SeatID    string    `json:"posto_id"`
	Row       string    `json:"posto_fila"`
	Number    int       `json:"posto_numero"`
	Label     string    `json:"posto"`
	Name      string    `json:"nome"`
	Email     string    `json:"email"`
	Status    string    `json:"stato"`
	CreatedAt time.Time `json:"creata_il"`
}

func toBookingResponses(items []domain.BookingWithSeat) []bookingResponse {
	out := make([]bookingResponse, 0, len(items))
	for _, it := range items {
		out = append(out, bookingResponse{
			ID:        it.ID,
			SeatID:    it.SeatID,
			Row:       it.Seat.Row,
			Number:    it.Seat.Number,
			Label:     it.Seat.Label(),
			Name:      it.Name,
			Email:     it.Email,
			Status:    string(it.Status),
			CreatedAt: it.CreatedAt,
		})
	}
	return out
}

// HandleBook confirms the requested seats and issues or reuses the
// six digit retrieval code of the booking holder.
func HandleBook(svc Booker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req bookRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.SessionID == "" {
			req.SessionID = sessionID(r)
		}

		res, err := svc.Book(r.Context(), app.BookInput{
			SeatIDs:   req.SeatIDs,
			Name:      req.Name,
			Email:     req.Email,
			SessionID: req.SessionID,
		})
		if err != nil {
			var unavailable *domain.SeatsUnavailableError
			switch {
			case errors.Is(err, domain.ErrNameRequired):
				writeError(w, http.StatusBadRequest, codeNameRequired, "name is required")
			case errors.Is(err, domain.ErrInvalidEmail):
				writeError(w, http.StatusBadRequest, codeInvalidEmail, "a valid email is required")
			case errors.Is(err, domain.ErrNoSeats):
				writeError(w, http.StatusBadRequest, codeNoSeats, "no seats requested")
			case errors.Is(err, domain.ErrInvalidID), errors.Is(err, domain.ErrSeatNotFound):
				writeError(w, http.StatusNotFound, codeSeatNotFound, "seat not found")
			case errors.As(err, &unavailable):
				writeSeatsConflict(w, "some seats are not available", unavailable.SeatIDs(), unavailable.Labels())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(struct {
			Bookings  []bookingResponse `json:"prenotazioni"`
			Code      string            `json:"codice"`
			CodeIsNew bool              `json:"codice_nuovo"`
		}{
			Bookings:  toBookingResponses(res.Bookings),
			Code:      res.Code,
			CodeIsNew: res.CodeIsNew,
		})
	}
}

// HandleRetrieveBookings looks up confirmed bookings by email and code.
// An unknown pairing is not an error, it yields an empty list.
func HandleRetrieveBookings(svc Booker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req struct {
			Email string `json:"email"`
			Code  string `json:"codice"`
		}
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		items, err := svc.FindByCode(r.Context(), req.Email, req.Code)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidEmail):
				writeError(w, http.StatusBadRequest, codeInvalidEmail, "a valid email is required")
			case errors.Is(err, domain.ErrInvalidCode):
				writeError(w, http.StatusBadRequest, codeInvalidCode, "code must be six digits")
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Bookings []bookingResponse `json:"prenotazioni"`
		}{Bookings: toBookingResponses(items)})
	}
}
