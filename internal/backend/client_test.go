package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/circuitbreaker"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithLogger(zaptest.NewLogger(t)), WithTimeout(5 * time.Second)}, opts...)
	return NewClient(srv.URL+"/", opts...)
}

func TestChat(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "What is in a KitKat?", req.Question)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"Wafer and chocolate.","sources":["https://www.kitkat.com","https://www.kitkat.com"]}`))
	}))

	resp, err := c.Chat(context.Background(), "  What is in a KitKat?  ")
	require.NoError(t, err)
	assert.Equal(t, "Wafer and chocolate.", resp.Answer)
	assert.Equal(t, []string{"https://www.kitkat.com", "https://www.kitkat.com"}, resp.Sources)
}

func TestChatMissingSources(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"Hello"}`))
	}))

	resp, err := c.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.NotNil(t, resp.Sources)
	assert.Empty(t, resp.Sources)
}

func TestChatEmptyQuestion(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	_, err := c.Chat(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Zero(t, calls.Load())
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"No question provided"}`))
	}))

	_, err := c.Chat(context.Background(), "hi")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "No question provided", se.Message)
	assert.Equal(t, "chat", se.Operation)
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	s := circuitbreaker.DefaultSettings()
	s.FailureThreshold = 2
	s.OpenTimeout = time.Hour

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}), WithBreakerSettings(s))

	for i := 0; i < 2; i++ {
		_, err := c.Chat(context.Background(), "hi")
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusInternalServerError, se.Code)
	}

	_, err := c.Chat(context.Background(), "hi")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitBreakerOpen)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, circuitbreaker.StateOpen, c.BreakerState())
}

func TestGraphStats(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graph/stats", r.URL.Path)
		_, _ = w.Write([]byte(`{"nodes":{"Product":12,"Brand":3},"relationships":{"MADE_BY":12},"total_nodes":15,"total_relationships":12}`))
	}))

	stats, err := c.GraphStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Product": 12, "Brand": 3}, stats.Nodes)
	assert.Equal(t, 15, stats.TotalNodes)
	assert.Equal(t, 12, stats.TotalRelationships)
}

func TestGraphStatsEmptyMaps(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_nodes":0,"total_relationships":0}`))
	}))

	stats, err := c.GraphStats(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, stats.Nodes)
	assert.NotNil(t, stats.Relationships)
}

func TestAddNode(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graph/add-node", r.URL.Path)
		var req NodeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Product", req.NodeType)
		assert.Equal(t, "Aero", req.Name)
		assert.Equal(t, "Bubbly bar", req.Properties["description"])
		_, _ = w.Write([]byte(`{"success":true,"message":"Node created"}`))
	}))

	res, err := c.AddNode(context.Background(), NewNodeRequest(" Product ", "Aero", "Bubbly bar"))
	require.NoError(t, err)
	assert.Equal(t, MutationResult{Success: true, Message: "Node created"}, res)
}

func TestAddRelationship(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RelationshipRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "MADE_BY", req.RelationshipType)
		assert.NotNil(t, req.Properties)
		_, _ = w.Write([]byte(`{"success":false,"message":"Node not found"}`))
	}))

	res, err := c.AddRelationship(context.Background(), RelationshipRequest{
		FromNode: "Aero", ToNode: "Nestlé", RelationshipType: "made_by",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Node not found", res.Message)
}

func TestMutationValidation(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	ctx := context.Background()

	tests := []struct {
		name  string
		call  func() error
		field string
	}{
		{"missing node type", func() error { _, err := c.AddNode(ctx, NewNodeRequest("", "Aero", "")); return err }, "node_type"},
		{"bad node type", func() error { _, err := c.AddNode(ctx, NewNodeRequest("Pro duct", "Aero", "")); return err }, "node_type"},
		{"missing name", func() error { _, err := c.AddNode(ctx, NewNodeRequest("Product", " ", "")); return err }, "name"},
		{"missing from", func() error {
			_, err := c.AddRelationship(ctx, NewRelationshipRequest("", "b", "x"))
			return err
		}, "from_node"},
		{"missing to", func() error {
			_, err := c.AddRelationship(ctx, NewRelationshipRequest("a", "", "x"))
			return err
		}, "to_node"},
		{"bad type", func() error {
			_, err := c.AddRelationship(ctx, NewRelationshipRequest("a", "b", "MADE-BY"))
			return err
		}, "relationship_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assert.ErrorIs(t, err, ErrInvalidInput)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
	assert.Zero(t, calls.Load())
}

func TestNewNodeRequestDescription(t *testing.T) {
	assert.Empty(t, NewNodeRequest("Product", "Aero", "  ").Properties)
	assert.Equal(t, map[string]any{"description": "x"}, NewNodeRequest("Product", "Aero", "x").Properties)
	assert.Equal(t, "IS_A", NewRelationshipRequest("a", "b", " is_a ").RelationshipType)
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy","neo4j_available":true,"timestamp":"2024-01-01T00:00:00"}`))
	}))

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.True(t, h.Neo4jAvailable)
}

func TestUserAgentHeader(t *testing.T) {
	var got atomic.Value
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}), WithUserAgent("widget-test"))

	_, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "widget-test", got.Load())
}

func TestContextCancelled(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Health(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
