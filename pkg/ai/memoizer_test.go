package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// scriptedStream yields the given chunks, then the terminal error (io.EOF
// for a clean end).
type scriptedStream struct {
	chunks   []string
	terminal error
}

func (ss *scriptedStream) Recv() (string, error) {
	if len(ss.chunks) == 0 {
		return "", ss.terminal
	}
	chunk := ss.chunks[0]
	ss.chunks = ss.chunks[1:]
	return chunk, nil
}

func TestMemoizer_ReplayEquivalence(t *testing.T) {
	m := NewMemoizer(MemoizerConfig{MaxEntries: 10, TTL: time.Minute}, testLogger())

	calls := 0
	generate := func(context.Context) (Stream, error) {
		calls++
		return &scriptedStream{chunks: []string{"Hel", "lo"}, terminal: io.EOF}, nil
	}

	stream, hit, err := m.WithCache(context.Background(), "fp-1", generate)
	require.NoError(t, err)
	assert.False(t, hit)

	text, err := Collect(stream)
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)

	// Second call replays from cache without touching the generator.
	stream, hit, err = m.WithCache(context.Background(), "fp-1", generate)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, calls, "generator must not be invoked on a cache hit")

	chunk, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Hello", chunk, "replay is a single chunk")
	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestMemoizer_ChunkOrderPreserved(t *testing.T) {
	m := NewMemoizer(MemoizerConfig{MaxEntries: 10, TTL: time.Minute}, testLogger())

	chunks := []string{"a", "b", "c", "d"}
	stream, _, err := m.WithCache(context.Background(), "fp-order", func(context.Context) (Stream, error) {
		return &scriptedStream{chunks: append([]string(nil), chunks...), terminal: io.EOF}, nil
	})
	require.NoError(t, err)

	for i, want := range chunks {
		got, err := stream.Recv()
		require.NoError(t, err)
		assert.Equal(t, want, got, "chunk %d out of order", i)
	}
	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestMemoizer_CacheWriteOnlyAfterCleanEnd(t *testing.T) {
	m := NewMemoizer(MemoizerConfig{MaxEntries: 10, TTL: time.Minute}, testLogger())

	stream, _, err := m.WithCache(context.Background(), "fp-2", func(context.Context) (Stream, error) {
		return &scriptedStream{chunks: []string{"partial"}, terminal: io.EOF}, nil
	})
	require.NoError(t, err)

	// Nothing cached until the consumer drains the stream.
	_, _ = stream.Recv()
	assert.Equal(t, 0, m.Len(), "cache write must not precede end of stream")

	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 1, m.Len())
}

func TestMemoizer_PartialFailureNotCached(t *testing.T) {
	m := NewMemoizer(MemoizerConfig{MaxEntries: 10, TTL: time.Minute}, testLogger())

	streamErr := errors.New("backend dropped connection")
	stream, hit, err := m.WithCache(context.Background(), "fp-3", func(context.Context) (Stream, error) {
		return &scriptedStream{chunks: []string{"half a resp"}, terminal: streamErr}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)

	_, err = stream.Recv()
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.ErrorIs(t, err, streamErr, "failure must propagate to the caller")

	assert.Equal(t, 0, m.Len(), "partial output must never be cached")

	// The next request for the same fingerprint goes back to the generator.
	_, hit, err = m.WithCache(context.Background(), "fp-3", func(context.Context) (Stream, error) {
		return &scriptedStream{terminal: io.EOF}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoizer_GeneratorErrorPropagates(t *testing.T) {
	m := NewMemoizer(MemoizerConfig{MaxEntries: 10, TTL: time.Minute}, testLogger())

	genErr := errors.New("breaker open")
	_, _, err := m.WithCache(context.Background(), "fp-4", func(context.Context) (Stream, error) {
		return nil, genErr
	})
	assert.ErrorIs(t, err, genErr)
	assert.Equal(t, 0, m.Len())
}

func TestMemoizer_Clear(t *testing.T) {
	m := NewMemoizer(MemoizerConfig{MaxEntries: 10, TTL: time.Minute}, testLogger())

	stream, _, err := m.WithCache(context.Background(), "fp-5", func(context.Context) (Stream, error) {
		return &scriptedStream{chunks: []string{"text"}, terminal: io.EOF}, nil
	})
	require.NoError(t, err)
	_, err = Collect(stream)
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())

	m.Clear()
	assert.Equal(t, 0, m.Len())

	_, hit, err := m.WithCache(context.Background(), "fp-5", func(context.Context) (Stream, error) {
		return &scriptedStream{terminal: io.EOF}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit, "cleared entries must not be served")
}
