package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/donatogr/teatro-prenotazioni/internal/app"
	"github.com/donatogr/teatro-prenotazioni/internal/domain"
)

func TestHandleListSeats(t *testing.T) {
	t.Parallel()

	views := []app.SeatView{
		{
			Seat:  domain.Seat{ID: "seat-1", Row: "A", Number: 1},
			State: domain.SeatAvailable,
		},
		{
			Seat:  domain.Seat{ID: "seat-2", Row: "A", Number: 2},
			State: domain.SeatOccupied,
			BookedBy: &domain.Booking{
				ID: "bk-1", SeatID: "seat-2", Name: "Maria Rossi", Email: "maria@example.com", Status: domain.BookingConfirmed,
			},
		},
	}

	t.Run("public view hides booking holders", func(t *testing.T) {
		svc := &stubSeatLister{views: views}
		req := httptest.NewRequest(http.MethodGet, "/seats", nil)
		req.Header.Set("X-Session-Id", "sess-1")
		rec := httptest.NewRecorder()

		HandleListSeats(svc, false).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if svc.gotViewer != "sess-1" {
			t.Fatalf("expected viewer session forwarded, got %q", svc.gotViewer)
		}
		body := rec.Body.String()
		if !strings.Contains(body, `"stato":"occupato"`) {
			t.Fatalf("expected occupied state in %q", body)
		}
		if strings.Contains(body, "maria@example.com") {
			t.Fatalf("public payload must not leak booking emails: %q", body)
		}
	})

	t.Run("admin view exposes booking holders and ignores the session", func(t *testing.T) {
		svc := &stubSeatLister{views: views}
		req := httptest.NewRequest(http.MethodGet, "/admin/seats", nil)
		req.Header.Set("X-Session-Id", "sess-1")
		rec := httptest.NewRecorder()

		HandleListSeats(svc, true).ServeHTTP(rec, req)

		if svc.gotViewer != "" {
			t.Fatalf("expected no viewer session for admin, got %q", svc.gotViewer)
		}
		body := rec.Body.String()
		if !strings.Contains(body, `"prenotazione_nome":"Maria Rossi"`) {
			t.Fatalf("expected booking holder in admin payload: %q", body)
		}
	})

	t.Run("session via query parameter", func(t *testing.T) {
		svc := &stubSeatLister{}
		req := httptest.NewRequest(http.MethodGet, "/seats?session_id=sess-q", nil)
		rec := httptest.NewRecorder()

		HandleListSeats(svc, false).ServeHTTP(rec, req)

		if svc.gotViewer != "sess-q" {
			t.Fatalf("expected session from query, got %q", svc.gotViewer)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/seats", nil)
		rec := httptest.NewRecorder()

		HandleListSeats(&stubSeatLister{}, false).ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("service failure", func(t *testing.T) {
		svc := &stubSeatLister{err: errors.New("boom")}
		req := httptest.NewRequest(http.MethodGet, "/seats", nil)
		rec := httptest.NewRecorder()

		HandleListSeats(svc, false).ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

type stubSeatLister struct {
	views     []app.SeatView
	err       error
	gotViewer string
}

func (s *stubSeatLister) ListSeats(_ context.Context, viewerSession string) ([]app.SeatView, error) {
	s.gotViewer = viewerSession
	return s.views, s.err
}
