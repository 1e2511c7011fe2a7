package middleware

import (
	"log/slog"
	"net/http"
)

// RequestSizeLimiter caps request body sizes with http.MaxBytesReader.
// Handlers reading past the limit get a read error, which surfaces as a
// normal decode failure.
type RequestSizeLimiter struct {
	maxSize int64
	logger  *slog.Logger
}

// NewRequestSizeLimiter creates a size limiter for request bodies.
func NewRequestSizeLimiter(maxSize int64, logger *slog.Logger) *RequestSizeLimiter {
	return &RequestSizeLimiter{
		maxSize: maxSize,
		logger:  logger.With(slog.String("component", "request_size")),
	}
}

// Middleware returns the HTTP middleware function.
func (rsl *RequestSizeLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if r.ContentLength > rsl.maxSize {
				rsl.logger.Warn("Request rejected by Content-Length",
					slog.Int64("content_length", r.ContentLength),
					slog.Int64("max_size_bytes", rsl.maxSize),
					slog.String("path", r.URL.Path))
				http.Error(w, "Request payload too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, rsl.maxSize)
		}
		next.ServeHTTP(w, r)
	})
}
