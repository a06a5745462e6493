package server

import (
	"net/http"
	"time"

	"github.com/apicus/apicus/internal/analyzer"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the request's trace ID in both directions.
const RequestIDHeader = "X-Request-ID"

// requestID propagates X-Request-ID, generating one when absent, and stores
// it as the analyzer trace ID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, rid)
		next.ServeHTTP(w, r.WithContext(analyzer.WithTraceID(r.Context(), rid)))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// accessLog logs every request and records it in m.
func accessLog(logger zerolog.Logger, m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			elapsed := time.Since(start)
			m.RecordHTTPRequest(route, r.Method, sw.status, elapsed)

			logger.Info().
				Str(analyzer.FieldTraceID, analyzer.TraceIDFromContext(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", route).
				Int("status", sw.status).
				Int64(analyzer.FieldDurationMs, elapsed.Milliseconds()).
				Msg("request handled")
		})
	}
}
