package http

import (
	"crypto/subtle"
	"log"
	"net/http"
	"time"
)

// RequestLogger logs basic request details and latency.
func RequestLogger(next http.Handler, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Printf(
			"request method=%s path=%s status=%d duration=%s",
			r.Method,
			r.URL.Path,
			rec.status,
			time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequireAdmin gates a handler behind the shared admin password presented
// in the X-Admin-Password header. How the password is provisioned is the
// operator's concern; the core only cares about authorized versus not.
func RequireAdmin(password string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if password == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "admin access disabled")
			return
		}
		got := r.Header.Get("X-Admin-Password")
		if subtle.ConstantTimeCompare([]byte(got), []byte(password)) != 1 {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionID pulls the browsing session from header or query; an empty
// session is fine for anonymous listing.
func sessionID(r *http.Request) string {
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	return r.URL.Query().Get("session_id")
}
