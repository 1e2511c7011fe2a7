package ai

import (
	"context"
	"io"
)

// Stream yields model output as discrete text chunks. Recv returns io.EOF
// after the final chunk; any other error means the stream failed and no
// further chunks will arrive. A replayed cache hit satisfies the same
// contract as a live stream.
type Stream interface {
	Recv() (string, error)
}

// Generator is the external generation capability: prompt in, chunk stream
// out. The model backend behind it is opaque to the pipeline.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Stream, error)
}

// replayStream returns one stored chunk, then io.EOF.
type replayStream struct {
	text string
	done bool
}

// NewReplayStream wraps an already-complete text as a stream of length one.
func NewReplayStream(text string) Stream {
	return &replayStream{text: text}
}

func (rs *replayStream) Recv() (string, error) {
	if rs.done {
		return "", io.EOF
	}
	rs.done = true
	return rs.text, nil
}

// Collect drains a stream and returns the concatenated text. Used by the
// legacy non-streaming callers and in tests.
func Collect(s Stream) (string, error) {
	var b []byte
	for {
		chunk, err := s.Recv()
		if err == io.EOF {
			return string(b), nil
		}
		if err != nil {
			return "", err
		}
		b = append(b, chunk...)
	}
}
