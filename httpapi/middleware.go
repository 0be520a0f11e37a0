package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/jonwraymond/contractsig/observe"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-Id"

// requestID reuses an inbound request id or assigns a new UUID. The id is
// stored under chi's key so middleware.GetReqID finds it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accessLog writes one line per request.
func accessLog(logger observe.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			fields := []observe.Field{
				{Key: "method", Value: r.Method},
				{Key: "path", Value: r.URL.Path},
				{Key: "status", Value: ww.Status()},
				{Key: "bytes", Value: ww.BytesWritten()},
				{Key: "duration_ms", Value: float64(time.Since(start).Microseconds()) / 1000},
				{Key: "request_id", Value: middleware.GetReqID(r.Context())},
			}
			if ww.Status() >= http.StatusInternalServerError {
				logger.Warn(r.Context(), "request failed", fields...)
				return
			}
			logger.Info(r.Context(), "request", fields...)
		})
	}
}
