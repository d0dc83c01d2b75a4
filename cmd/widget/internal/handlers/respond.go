package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/backend"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/circuitbreaker"
)

const maxBodyBytes = 1 << 20

// Assistant answers chat questions.
type Assistant interface {
	Chat(ctx context.Context, question string) (backend.ChatResponse, error)
}

// GraphStore reads and edits the assistant's knowledge graph.
type GraphStore interface {
	GraphStats(ctx context.Context) (backend.GraphStats, error)
	AddNode(ctx context.Context, req backend.NodeRequest) (backend.MutationResult, error)
	AddRelationship(ctx context.Context, req backend.RelationshipRequest) (backend.MutationResult, error)
}

// HealthProber reports the assistant backend's own health.
type HealthProber interface {
	Health(ctx context.Context) (backend.Health, error)
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, status int, errMsg, message string) {
	writeJSON(w, status, ErrorResponse{Error: errMsg, Message: message})
}

func sendBadRequest(w http.ResponseWriter, message string) {
	sendError(w, http.StatusBadRequest, "Bad request", message)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return errors.New("request body too large")
	}
	if len(body) == 0 {
		return errors.New("request body is empty")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// backendStatus maps a backend call failure to the status returned to the browser.
func backendStatus(err error) int {
	var se *backend.StatusError
	switch {
	case errors.Is(err, backend.ErrEmptyQuestion), errors.Is(err, backend.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &se) && se.Code >= 400 && se.Code < 500:
		return se.Code
	default:
		return http.StatusBadGateway
	}
}
