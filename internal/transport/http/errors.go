package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeNameRequired       = "name_required"
	codeInvalidEmail       = "invalid_email"
	codeInvalidCode        = "invalid_code"
	codeNoSeats            = "no_seats_selected"
	codeSessionRequired    = "session_required"
	codeSeatNotFound       = "seat_not_found"
	codeRowNotFound        = "row_not_found"
	codeSeatBooked         = "seat_booked"
	codeBookingNotFound    = "booking_not_found"
	codeSeatsUnavailable   = "seats_unavailable"
	codeHasBookings        = "has_bookings"
	codeInvalidGrid        = "invalid_grid"
	codeInvalidID          = "invalid_id"
	codeInvalidEventAt     = "invalid_event_at"
	codeUnauthorized       = "unauthorized"
	codeForbidden          = "forbidden"
	codeTooManyRequests    = "too_many_requests"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

type seatsConflictResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code"`
	Seats  []string `json:"conflitti"`
	Labels []string `json:"conflitti_etichette"`
}

// writeSeatsConflict names the exact offending seats so the frontend can
// highlight which selections to change.
func writeSeatsConflict(w http.ResponseWriter, msg string, seatIDs, labels []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	_ = json.NewEncoder(w).Encode(seatsConflictResponse{
		Error:  msg,
		Code:   codeSeatsUnavailable,
		Seats:  seatIDs,
		Labels: labels,
	})
}
