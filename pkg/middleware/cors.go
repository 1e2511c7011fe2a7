// Package middleware holds the HTTP middleware shared by the gateway's
// routes: CORS, request size limits, and request logging.
package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSConfig holds CORS configuration options.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// CORSMiddleware applies the configured CORS policy. Origins are matched
// exactly; "*" allows any origin.
type CORSMiddleware struct {
	allowedOrigins   []string
	allowedMethods   []string
	allowedHeaders   []string
	exposedHeaders   []string
	allowCredentials bool
	maxAge           int
	logger           *slog.Logger
}

// NewCORSMiddleware creates CORS middleware. When no methods or headers are
// configured, a restrictive default set is used rather than "*".
func NewCORSMiddleware(config CORSConfig, logger *slog.Logger) *CORSMiddleware {
	if len(config.AllowedMethods) == 0 {
		config.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(config.AllowedHeaders) == 0 {
		config.AllowedHeaders = []string{"Content-Type", "Authorization", "Accept", "Origin"}
	}
	if len(config.ExposedHeaders) == 0 {
		config.ExposedHeaders = []string{"X-Cache", "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	}

	maxAge := int(config.MaxAge.Seconds())
	if maxAge == 0 {
		maxAge = 86400
	}

	return &CORSMiddleware{
		allowedOrigins:   config.AllowedOrigins,
		allowedMethods:   config.AllowedMethods,
		allowedHeaders:   config.AllowedHeaders,
		exposedHeaders:   config.ExposedHeaders,
		allowCredentials: config.AllowCredentials,
		maxAge:           maxAge,
		logger:           logger.With(slog.String("component", "cors")),
	}
}

// Middleware returns the CORS handler wrapper.
func (c *CORSMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if !c.isOriginAllowed(origin) {
			// Disallowed origins get no CORS headers at all.
			c.logger.Warn("CORS request blocked",
				slog.String("origin", origin),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
			return
		}

		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(c.allowedMethods, ", "))
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(c.allowedHeaders, ", "))
		w.Header().Set("Access-Control-Expose-Headers", strings.Join(c.exposedHeaders, ", "))
		if c.allowCredentials {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Max-Age", strconv.Itoa(c.maxAge))

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (c *CORSMiddleware) isOriginAllowed(origin string) bool {
	if origin == "" {
		// Same-origin or non-browser client.
		return true
	}
	for _, allowed := range c.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
