package util

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type requestIDContextKey string

const (
	requestIDHeader = "X-Request-Id"
	requestIDCtxKey = requestIDContextKey("request_id")
)

// WithRequestID propagates an incoming request id or generates one when absent.
// The id is set on both response header and request context, together with a
// child slog.Logger carrying "request_id" so downstream code can call
// util.LoggerFromContext(ctx).
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = NewID()
		}
		w.Header().Set(requestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), requestIDCtxKey, requestID)
		logger := slog.Default().With("request_id", requestID)
		ctx = ContextWithLogger(ctx, logger)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the request id from the context.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDCtxKey).(string)
	return id
}

// RequestIDFromRequest returns the request id from the request context.
func RequestIDFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	return RequestIDFromContext(r.Context())
}
