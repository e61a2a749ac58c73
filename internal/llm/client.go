// Package llm is a minimal client for an OpenAI-compatible chat completions
// endpoint (OpenRouter by default). It sends one user message and returns the
// text of the first choice.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2"
)

const (
	DefaultURL   = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel = "deepseek/deepseek-chat-v3-0324:free"
)

const maxResponseBytes = 4 << 20

// ErrEmptyCompletion is returned when the endpoint answers 2xx but carries no
// choice text.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Config configures a Client. URL and Model fall back to DefaultURL and
// DefaultModel when empty.
type Config struct {
	URL     string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	url     string
	model   string
	http    *http.Client
	logger  *slog.Logger
	metrics *Metrics
}

// New creates a Client. metrics may be nil.
func New(ctx context.Context, cfg Config, metrics *Metrics, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: API key is required")
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.APIKey,
	}))
	httpClient.Timeout = cfg.Timeout

	return &Client{
		url:     cfg.URL,
		model:   cfg.Model,
		http:    httpClient,
		logger:  logger,
		metrics: metrics,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message and returns the first
// choice's content. Transport failures, timeouts, non-2xx answers and
// malformed bodies are all returned as errors.
func (c *Client) Complete(ctx context.Context, prompt string) (text string, err error) {
	start := time.Now()
	defer func() {
		c.metrics.observe(err, time.Since(start))
	}()

	buf, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("llm: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("llm: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: calling %s: %w", c.model, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("llm: reading response: %w", err)
	}

	c.logger.Debug("completion call",
		slog.String("model", c.model),
		slog.Int("status", resp.StatusCode),
		slog.Int("response_bytes", len(data)),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("llm: HTTP %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("llm: decoding response: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

// Metrics counts completion calls by outcome and records their latency.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates and registers the completion metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moodquest",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Text-generation calls by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "moodquest",
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Latency of text-generation calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		}),
	}
	reg.MustRegister(m.calls, m.duration)
	return m
}

func (m *Metrics) observe(err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		var te interface{ Timeout() bool }
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &te) && te.Timeout()) {
			outcome = "timeout"
		}
	}
	m.calls.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}
