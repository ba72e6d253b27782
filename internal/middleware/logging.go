// Package middleware provides HTTP middleware for the catalog server.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// requestInfo is shared down the chain so handlers further in can report
// back to Logger and Recoverer. LoadSession fills userID.
type requestInfo struct {
	userID uuid.UUID
}

type requestInfoKey struct{}

func withRequestInfo(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, &requestInfo{})
}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}

// requestAttrs are the attributes every request log line starts with.
func requestAttrs(r *http.Request) []any {
	attrs := []any{
		"request_id", chimw.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	}
	if info := requestInfoFrom(r.Context()); info != nil && info.userID != uuid.Nil {
		attrs = append(attrs, "user_id", info.userID.String())
	}
	return attrs
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader captures the status code before writing it.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Write ensures a default 200 status if WriteHeader was never called.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

// Logger writes one line per request: request id, signed-in user, status
// and duration. Server errors log at error level and client errors at
// warn.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		r = r.WithContext(withRequestInfo(r.Context()))

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		level := slog.LevelInfo
		switch {
		case wrapped.statusCode >= 500:
			level = slog.LevelError
		case wrapped.statusCode >= 400:
			level = slog.LevelWarn
		}
		attrs := append(requestAttrs(r),
			"status", wrapped.statusCode,
			"duration", time.Since(start).String(),
			"client", ClientIP(r),
		)
		slog.Log(r.Context(), level, "http request", attrs...)
	})
}
