package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/circuitbreaker"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/metrics"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/tracing"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "nestle-chat-widget/1.0"
	maxErrorBody     = 64 << 10
	maxReplyBody     = 8 << 20
)

// Client talks to the assistant backend. Every call goes through a circuit
// breaker, carries a traceparent header and is recorded in metrics.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	settings  circuitbreaker.Settings
	inner     *http.Client
	logger    *zap.Logger

	http *circuitbreaker.HTTPClient
}

// Option configures the Client.
type Option func(*Client)

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient sets the underlying http.Client (its Timeout is left alone).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.inner = h }
}

// WithBreakerSettings overrides the circuit breaker settings.
func WithBreakerSettings(s circuitbreaker.Settings) Option {
	return func(c *Client) { c.settings = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient returns a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: defaultUserAgent,
		timeout:   defaultTimeout,
		settings:  circuitbreaker.DefaultSettings(),
		logger:    zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.inner == nil {
		c.inner = &http.Client{Timeout: c.timeout}
	}
	c.http = circuitbreaker.NewHTTPClient(c.inner, "assistant-backend", "backend", c.settings, c.logger)
	return c
}

// BaseURL is the backend root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// BreakerState reports the backend circuit breaker state.
func (c *Client) BreakerState() circuitbreaker.State { return c.http.Breaker().State() }

// Chat asks the assistant a question.
func (c *Client) Chat(ctx context.Context, question string) (ChatResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return ChatResponse{}, ErrEmptyQuestion
	}

	var out ChatResponse
	if err := c.do(ctx, "chat", http.MethodPost, "/chat", ChatRequest{Question: question}, &out); err != nil {
		return ChatResponse{}, err
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	return out, nil
}

// GraphStats fetches node and relationship counts.
func (c *Client) GraphStats(ctx context.Context) (GraphStats, error) {
	var out GraphStats
	if err := c.do(ctx, "graph_stats", http.MethodGet, "/graph/stats", nil, &out); err != nil {
		return GraphStats{}, err
	}
	if out.Nodes == nil {
		out.Nodes = map[string]int{}
	}
	if out.Relationships == nil {
		out.Relationships = map[string]int{}
	}
	return out, nil
}

// AddNode creates a node. req is validated first.
func (c *Client) AddNode(ctx context.Context, req NodeRequest) (MutationResult, error) {
	if err := req.Validate(); err != nil {
		return MutationResult{}, err
	}
	if req.Properties == nil {
		req.Properties = map[string]any{}
	}
	var out MutationResult
	err := c.do(ctx, "add_node", http.MethodPost, "/graph/add-node", req, &out)
	return out, err
}

// AddRelationship links two nodes. req is validated first.
func (c *Client) AddRelationship(ctx context.Context, req RelationshipRequest) (MutationResult, error) {
	req.RelationshipType = strings.ToUpper(req.RelationshipType)
	if err := req.Validate(); err != nil {
		return MutationResult{}, err
	}
	if req.Properties == nil {
		req.Properties = map[string]any{}
	}
	var out MutationResult
	err := c.do(ctx, "add_relationship", http.MethodPost, "/graph/add-relationship", req, &out)
	return out, err
}

// Health calls the backend health endpoint.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, "health", http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	url := c.baseURL + path
	ctx, span := tracing.StartHTTPSpan(ctx, op, method, url)
	defer span.End()

	start := time.Now()
	status := "error"
	defer func() {
		metrics.RecordBackend(op, status, time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	tracing.InjectTraceparent(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Backend call failed",
			zap.String("operation", op),
			zap.String("url", url),
			zap.Error(err),
		)
		return fmt.Errorf("backend %s: %w", op, err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		se := &StatusError{Operation: op, Code: resp.StatusCode, Message: errorMessage(data)}
		c.logger.Warn("Backend returned an error status",
			zap.String("operation", op),
			zap.Int("status", resp.StatusCode),
			zap.String("message", se.Message),
		)
		return se
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplyBody)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

// errorMessage pulls a human readable message out of an error body.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		for _, m := range []string{body.Message, body.Error, body.Detail} {
			if m != "" {
				return m
			}
		}
	}
	return strings.TrimSpace(string(data))
}
