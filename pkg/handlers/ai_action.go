// Package handlers wires the HTTP surface of the note gateway: the AI
// action pipeline and the note/folder CRUD endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/inkstream/note-gateway/pkg/ai"
	"github.com/inkstream/note-gateway/pkg/ratelimit"
	"github.com/inkstream/note-gateway/pkg/sanitize"
)

var (
	aiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "note_gateway_ai_requests_total",
		Help: "AI action requests by action and outcome.",
	}, []string{"action", "outcome"}) // served, cache_hit, rejected, throttled, failed

	aiStreamedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "note_gateway_ai_streamed_bytes_total",
		Help: "Bytes of AI output streamed to clients.",
	})
)

// actionRequest is the wire shape of an AI action request.
type actionRequest struct {
	Content  string `json:"content"`
	Action   string `json:"action"`
	Question string `json:"question,omitempty"`
}

// throttledResponse is the structured rejection payload for rate-limited
// clients.
type throttledResponse struct {
	Message        string             `json:"message"`
	RateLimitState ratelimit.Decision `json:"rateLimitState"`
}

// AIActionHandler runs the edge pipeline for AI text actions:
// validate, rate-limit, memo lookup, generate, stream, cache.
type AIActionHandler struct {
	prompts   ai.PromptSet
	gate      *ratelimit.Gate
	memoizer  *ai.Memoizer
	generator ai.Generator
	logger    *slog.Logger
}

// NewAIActionHandler creates the pipeline handler. All collaborators are
// injected so tests can supply fakes.
func NewAIActionHandler(prompts ai.PromptSet, gate *ratelimit.Gate, memoizer *ai.Memoizer, generator ai.Generator, logger *slog.Logger) *AIActionHandler {
	return &AIActionHandler{
		prompts:   prompts,
		gate:      gate,
		memoizer:  memoizer,
		generator: generator,
		logger:    logger.With(slog.String("component", "ai_action_handler")),
	}
}

// HandleAIAction serves POST /ai-action.
func (h *AIActionHandler) HandleAIAction(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "")
}

// HandleSummarize serves POST /summarize, the legacy narrow variant with a
// fixed action.
func (h *AIActionHandler) HandleSummarize(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, ai.ActionSummarize)
}

// serve runs the pipeline. forcedAction, when non-empty, overrides whatever
// the body carries.
func (h *AIActionHandler) serve(w http.ResponseWriter, r *http.Request, forcedAction ai.Action) {
	request, err := h.validate(r, forcedAction)
	if err != nil {
		label := string(forcedAction)
		if label == "" {
			label = "unknown"
		}
		aiRequests.WithLabelValues(label, "rejected").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	action := ai.Action(request.Action)

	// Rate limiting happens before any expensive work.
	clientID := ratelimit.ClientID(r)
	decision, err := h.gate.Check(r.Context(), clientID)
	if err != nil {
		// Fail closed: a broken limiter must not open the floodgates to
		// the model backend.
		aiRequests.WithLabelValues(string(action), "failed").Inc()
		http.Error(w, "Rate limiter unavailable", http.StatusInternalServerError)
		return
	}

	setRateLimitHeaders(w, decision)
	if !decision.Allowed {
		aiRequests.WithLabelValues(string(action), "throttled").Inc()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(throttledResponse{
			Message:        "Too many requests. Please try again later.",
			RateLimitState: decision,
		})
		return
	}

	fingerprint := ai.Fingerprint(action, request.Content, request.Question)
	stream, hit, err := h.memoizer.WithCache(r.Context(), fingerprint, func(ctx context.Context) (ai.Stream, error) {
		prompt, err := h.prompts.BuildPrompt(action, request.Content, request.Question)
		if err != nil {
			return nil, err
		}
		return h.generator.Generate(ctx, prompt)
	})
	if err != nil {
		aiRequests.WithLabelValues(string(action), "failed").Inc()
		h.logger.Error("Generation failed",
			slog.String("action", string(action)),
			slog.String("error", err.Error()))
		http.Error(w, "Generation failed", http.StatusBadGateway)
		return
	}

	if hit {
		aiRequests.WithLabelValues(string(action), "cache_hit").Inc()
	} else {
		aiRequests.WithLabelValues(string(action), "served").Inc()
	}

	h.streamOut(w, r, stream, hit, action)
}

// validate parses and sanitizes the request, returning the cleaned payload.
func (h *AIActionHandler) validate(r *http.Request, forcedAction ai.Action) (*actionRequest, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return nil, fmt.Errorf("Content-Type must be application/json")
	}

	var request actionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, fmt.Errorf("invalid JSON body")
	}

	if forcedAction != "" {
		request.Action = string(forcedAction)
	}
	action, err := ai.ParseAction(request.Action)
	if err != nil {
		return nil, fmt.Errorf("missing or invalid action")
	}
	request.Action = string(action)

	// Sanitize before anything downstream sees the text: the fingerprint,
	// the prompt, and any storage all receive the cleaned form.
	request.Content = sanitize.String(request.Content)
	request.Question = sanitize.String(request.Question)

	if request.Content == "" {
		return nil, fmt.Errorf("content must not be empty")
	}
	if action.RequiresQuestion() && request.Question == "" {
		return nil, fmt.Errorf("question is required for the ask action")
	}
	return &request, nil
}

// streamOut relays the response stream to the client chunk by chunk.
func (h *AIActionHandler) streamOut(w http.ResponseWriter, r *http.Request, stream ai.Stream, hit bool, action ai.Action) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}

	flusher, canFlush := w.(http.Flusher)
	wrote := false
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			// Streaming offers no retroactive correction: output already
			// sent stays sent. Only a stream that failed before producing
			// anything can still carry a status code.
			h.logger.Error("Stream failed mid-response",
				slog.String("action", string(action)),
				slog.Bool("partial_output", wrote),
				slog.String("error", err.Error()))
			if !wrote {
				http.Error(w, "Generation failed", http.StatusBadGateway)
			}
			return
		}

		if _, err := io.WriteString(w, chunk); err != nil {
			// Client went away; the request context cancellation tears
			// down the backend stream and nothing is cached.
			h.logger.Debug("Client disconnected mid-stream",
				slog.String("action", string(action)))
			return
		}
		wrote = true
		aiStreamedBytes.Add(float64(len(chunk)))
		if canFlush {
			flusher.Flush()
		}

		select {
		case <-r.Context().Done():
			return
		default:
		}
	}
}

func setRateLimitHeaders(w http.ResponseWriter, decision ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))
}
