package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// ClientConfig holds configuration for the model backend client.
type ClientConfig struct {
	// APIURL is the chat completions endpoint of an OpenAI-compatible
	// backend.
	APIURL string

	APIKey string

	Model string

	// Timeout bounds the whole request including the stream.
	Timeout time.Duration

	// BreakerThreshold is the number of consecutive failures that opens
	// the circuit.
	BreakerThreshold int

	// BreakerCooldown is how long the circuit stays open before probing.
	BreakerCooldown time.Duration
}

// DefaultClientConfig returns a configuration with sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:          60 * time.Second,
		BreakerThreshold: 5,
		BreakerCooldown:  30 * time.Second,
	}
}

// Client streams completions from an OpenAI-compatible backend. Requests go
// through a circuit breaker so a failing backend sheds load fast instead of
// stacking up timeouts.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a streaming model client.
func NewClient(config ClientConfig, logger *slog.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultClientConfig().Timeout
	}
	if config.BreakerThreshold <= 0 {
		config.BreakerThreshold = DefaultClientConfig().BreakerThreshold
	}
	if config.BreakerCooldown <= 0 {
		config.BreakerCooldown = DefaultClientConfig().BreakerCooldown
	}

	clientLogger := logger.With(slog.String("component", "llm_client"))

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "llm-backend",
		Timeout: config.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.BreakerThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			clientLogger.Warn("Circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker:    breaker,
		logger:     clientLogger,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatStreamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate sends the prompt and returns the token stream. The breaker wraps
// connection establishment; once the stream is open, read errors surface
// through Recv.
func (c *Client) Generate(ctx context.Context, prompt string) (Stream, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.openStream(ctx, prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	return result.(Stream), nil
}

func (c *Client) openStream(ctx context.Context, prompt string) (Stream, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.config.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	scanner := bufio.NewScanner(resp.Body)
	// A single delta can exceed bufio's default 64KB token limit.
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	return &sseStream{
		body:    resp.Body,
		scanner: scanner,
	}, nil
}

// maxEventSize caps one SSE event line.
const maxEventSize = 1 << 20

// sseStream decodes "data:" lines from a chat completions event stream into
// text chunks.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func (s *sseStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return "", s.finish(nil)
		}

		var event chatStreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return "", s.finish(fmt.Errorf("malformed stream event: %w", err))
		}
		if len(event.Choices) == 0 {
			continue
		}
		if content := event.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
		if event.Choices[0].FinishReason != nil {
			return "", s.finish(nil)
		}
	}

	if err := s.scanner.Err(); err != nil {
		return "", s.finish(fmt.Errorf("stream read failed: %w", err))
	}
	// Stream ended without a [DONE] marker; treat as clean end.
	return "", s.finish(nil)
}

// finish closes the body and records the terminal error. A nil error maps
// to io.EOF.
func (s *sseStream) finish(err error) error {
	s.done = true
	s.body.Close()
	if err != nil {
		return err
	}
	return io.EOF
}
