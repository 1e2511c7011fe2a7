package ai

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/inkstream/note-gateway/pkg/cache"
)

var memoLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "note_gateway_ai_memo_lookups_total",
	Help: "AI response memoizer lookups by result.",
}, []string{"result"}) // hit, miss

// MemoizerConfig holds configuration for the response memoizer.
type MemoizerConfig struct {
	MaxEntries int
	TTL        time.Duration
}

// DefaultMemoizerConfig returns the reference defaults: 1000 entries kept
// for one hour.
func DefaultMemoizerConfig() MemoizerConfig {
	return MemoizerConfig{
		MaxEntries: 1000,
		TTL:        time.Hour,
	}
}

// Memoizer caches complete AI responses keyed by request fingerprint so an
// identical request replays the stored text instead of re-invoking the
// model.
type Memoizer struct {
	cache  *cache.TTLCache[string, string]
	logger *slog.Logger
}

// NewMemoizer creates a memoizer with the given configuration.
func NewMemoizer(config MemoizerConfig, logger *slog.Logger) *Memoizer {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultMemoizerConfig().MaxEntries
	}
	if config.TTL <= 0 {
		config.TTL = DefaultMemoizerConfig().TTL
	}
	return &Memoizer{
		cache: cache.New[string, string](cache.Config{
			MaxEntries: config.MaxEntries,
			DefaultTTL: config.TTL,
		}),
		logger: logger.With(slog.String("component", "response_memoizer")),
	}
}

// WithCache returns the response stream for fingerprint, along with whether
// it was served from cache. On a hit the stored text is replayed as a
// single chunk and generate is never invoked. On a miss the live stream is
// teed: chunks flow to the caller in order and unbuffered while being
// accumulated; the accumulation is written to the cache only after the
// stream ends cleanly. A mid-stream failure discards the partial
// accumulation, so no partial entry is ever cached.
func (m *Memoizer) WithCache(ctx context.Context, fingerprint string, generate func(context.Context) (Stream, error)) (Stream, bool, error) {
	if text, ok := m.cache.Get(fingerprint); ok {
		memoLookups.WithLabelValues("hit").Inc()
		m.logger.Debug("Replaying cached response", slog.String("fingerprint", fingerprint))
		return NewReplayStream(text), true, nil
	}

	memoLookups.WithLabelValues("miss").Inc()

	live, err := generate(ctx)
	if err != nil {
		return nil, false, err
	}

	return &teeStream{
		inner:       live,
		fingerprint: fingerprint,
		memoizer:    m,
	}, false, nil
}

// Clear drops every cached response. Called by mutation endpoints that
// share this cache namespace, since cached reads do not see writes.
func (m *Memoizer) Clear() {
	m.cache.Clear()
	m.logger.Debug("Response cache cleared")
}

// Len returns the number of cached responses.
func (m *Memoizer) Len() int {
	return m.cache.Len()
}

// Stats exposes the underlying cache counters.
func (m *Memoizer) Stats() cache.Stats {
	return m.cache.GetStats()
}

// teeStream forwards chunks from the live stream while accumulating them.
// The cache write happens when io.EOF is observed, strictly after the last
// chunk has been handed to the caller.
type teeStream struct {
	inner       Stream
	fingerprint string
	memoizer    *Memoizer
	acc         strings.Builder
	stored      bool
}

func (ts *teeStream) Recv() (string, error) {
	chunk, err := ts.inner.Recv()
	if err == io.EOF {
		if !ts.stored {
			ts.stored = true
			ts.memoizer.cache.Set(ts.fingerprint, ts.acc.String())
		}
		return "", io.EOF
	}
	if err != nil {
		// Partial output is never cached.
		return "", err
	}
	ts.acc.WriteString(chunk)
	return chunk, nil
}
