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

// HoldManager covers the hold lifecycle operations exposed over HTTP.
type HoldManager interface {
	Acquire(ctx context.Context, sessionID string, seatIDs []string) (app.AcquireResult, error)
	Renew(ctx context.Context, sessionID string, seatIDs []string) error
	Release(ctx context.Context, sessionID string, seatIDs []string) error
}

type holdRequest struct {
	SessionID string   `json:"session_id"`
	SeatIDs   []string `json:"posto_ids"`
}

type acquireResponse struct {
	OK      bool      `json:"ok"`
	Held    []string  `json:"bloccati"`
	Expires time.Time `json:"scadenza"`
}

func decodeHoldRequest(w http.ResponseWriter, r *http.Request) (holdRequest, bool) {
	var req holdRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return req, false
	}
	if req.SessionID == "" {
		req.SessionID = sessionID(r)
	}
	return req, true
}

// HandleHolds dispatches hold acquisition and release on /holds.
func HandleHolds(svc HoldManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handleAcquire(svc, w, r)
		case http.MethodDelete:
			handleRelease(svc, w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func handleAcquire(svc HoldManager, w http.ResponseWriter, r *http.Request) {
	req, ok := decodeHoldRequest(w, r)
	if !ok {
		return
	}

	res, err := svc.Acquire(r.Context(), req.SessionID, req.SeatIDs)
	if err != nil {
		var unavailable *domain.SeatsUnavailableError
		switch {
		case errors.Is(err, domain.ErrSessionRequired):
			writeError(w, http.StatusBadRequest, codeSessionRequired, "session_id is required")
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

	held := make([]string, 0, len(res.Holds))
	for _, h := range res.Holds {
		held = append(held, h.SeatID)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(acquireResponse{OK: true, Held: held, Expires: res.ExpiresAt})
}

func handleRelease(svc HoldManager, w http.ResponseWriter, r *http.Request) {
	req, ok := decodeHoldRequest(w, r)
	if !ok {
		return
	}

	if err := svc.Release(r.Context(), req.SessionID, req.SeatIDs); err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionRequired):
			writeError(w, http.StatusBadRequest, codeSessionRequired, "session_id is required")
		case errors.Is(err, domain.ErrInvalidID):
			writeError(w, http.StatusNotFound, codeSeatNotFound, "seat not found")
		default:
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// HandleRenewHolds extends the expiry of the caller's active holds.
func HandleRenewHolds(svc HoldManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut && r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		req, ok := decodeHoldRequest(w, r)
		if !ok {
			return
		}

		if err := svc.Renew(r.Context(), req.SessionID, req.SeatIDs); err != nil {
			switch {
			case errors.Is(err, domain.ErrSessionRequired):
				writeError(w, http.StatusBadRequest, codeSessionRequired, "session_id is required")
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusNotFound, codeSeatNotFound, "seat not found")
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}
}
