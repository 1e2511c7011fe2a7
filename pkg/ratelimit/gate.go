// Package ratelimit decides whether a client may proceed, using a
// short-TTL local cache of decisions in front of a shared fixed-window
// counter.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/inkstream/note-gateway/pkg/cache"
)

var (
	gateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "note_gateway_rate_limit_decisions_total",
		Help: "Rate limit gate decisions by outcome.",
	}, []string{"outcome"}) // allowed, denied, error

	gateLocalHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "note_gateway_rate_limit_local_cache_hits_total",
		Help: "Gate checks served from the local decision cache.",
	})
)

// Decision is the immutable result of one gate check.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// Limiter is the upstream fixed-window counter shared across instances.
type Limiter interface {
	Limit(ctx context.Context, clientID string) (Decision, error)
}

// GateConfig holds configuration for the rate limit gate.
type GateConfig struct {
	// LocalTTL is how long a decision is served from the local cache
	// before the upstream limiter is consulted again. Keeping it shorter
	// than the upstream window bounds the staleness a client can exploit.
	LocalTTL time.Duration

	// LocalMaxEntries bounds the decision cache.
	LocalMaxEntries int
}

// DefaultGateConfig returns a configuration with sensible defaults.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		LocalTTL:        5 * time.Minute,
		LocalMaxEntries: 4096,
	}
}

// Gate answers "may this client proceed" with a local write-through cache in
// front of the upstream limiter. Cached decisions are returned unchanged
// whether they allowed or denied; this trades a small staleness window for
// not hitting the upstream store on every request.
type Gate struct {
	upstream Limiter
	local    *cache.TTLCache[string, Decision]
	logger   *slog.Logger
}

// NewGate creates a gate fronting the given upstream limiter.
func NewGate(upstream Limiter, config GateConfig, logger *slog.Logger) *Gate {
	if config.LocalTTL <= 0 {
		config.LocalTTL = DefaultGateConfig().LocalTTL
	}
	if config.LocalMaxEntries <= 0 {
		config.LocalMaxEntries = DefaultGateConfig().LocalMaxEntries
	}
	return &Gate{
		upstream: upstream,
		local: cache.New[string, Decision](cache.Config{
			MaxEntries: config.LocalMaxEntries,
			DefaultTTL: config.LocalTTL,
		}),
		logger: logger.With(slog.String("component", "rate_limit_gate")),
	}
}

// Check returns the current decision for clientID. An error means the
// upstream limiter was unreachable; the caller decides policy, the gate
// neither allows nor denies on its own.
func (g *Gate) Check(ctx context.Context, clientID string) (Decision, error) {
	if decision, ok := g.local.Get(clientID); ok {
		gateLocalHits.Inc()
		return decision, nil
	}

	decision, err := g.upstream.Limit(ctx, clientID)
	if err != nil {
		gateDecisions.WithLabelValues("error").Inc()
		g.logger.Error("Upstream limiter check failed",
			slog.String("client_id", clientID),
			slog.String("error", err.Error()))
		return Decision{}, err
	}

	// Cache denials too: a blocked client hammering the endpoint should
	// not translate into upstream round trips.
	g.local.Set(clientID, decision)

	if decision.Allowed {
		gateDecisions.WithLabelValues("allowed").Inc()
	} else {
		gateDecisions.WithLabelValues("denied").Inc()
		g.logger.Warn("Client rate limited",
			slog.String("client_id", clientID),
			slog.Int("limit", decision.Limit),
			slog.Time("reset_at", decision.ResetAt))
	}

	return decision, nil
}

// Reset drops all locally cached decisions.
func (g *Gate) Reset() {
	g.local.Clear()
}

// ClientID derives the rate-limit identity for a request: the first
// X-Forwarded-For entry, trimmed. Requests with no forwarded address share
// the "anonymous" bucket, and distinct clients behind one proxy collapse to
// a single identity.
func ClientID(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	return "anonymous"
}
