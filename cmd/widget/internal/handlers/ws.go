package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Dhwanijoshi3/nestle-chatbot/cmd/widget/internal/middleware"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/metrics"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/render"
)

const (
	wsReadLimit    = 4096
	wsPongWait     = 60 * time.Second
	wsPingInterval = 20 * time.Second
	wsWriteWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsReply struct {
	Type string `json:"type"`
	ChatReply
}

type wsError struct {
	Type     string `json:"type"`
	Error    string `json:"error"`
	Message  string `json:"message"`
	HTML     string `json:"html"`
	UserHTML string `json:"user_html,omitempty"`
}

// WebSocket handles GET /ws. Each client message {question} gets exactly one
// {type: "message"} or {type: "error"} reply, in order. Questions over the
// client's rate limit are answered with a "Too Many Requests" error frame.
func (h *ChatHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}()

	ctx := r.Context()
	client := middleware.ClientKey(r)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				h.logger.Debug("WebSocket read ended", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var req ChatRequest
		var out interface{}
		if err := json.Unmarshal(data, &req); err != nil {
			out = wsError{Type: "error", Error: "Bad request", Message: "invalid JSON", HTML: h.composer.ErrorHTML()}
		} else if strings.TrimSpace(req.Question) == "" {
			out = wsError{Type: "error", Error: "Bad request", Message: "No question provided", HTML: h.composer.ErrorHTML()}
		} else if !h.allowMessage(ctx, client) {
			out = wsError{
				Type:     "error",
				Error:    http.StatusText(http.StatusTooManyRequests),
				Message:  "Too many requests. Please wait a moment before asking again.",
				HTML:     h.composer.ErrorHTML(),
				UserHTML: h.composer.UserHTML(req.Question),
			}
		} else if reply, err := h.Turn(ctx, req.Question); err != nil {
			out = wsError{
				Type:     "error",
				Error:    http.StatusText(backendStatus(err)),
				Message:  render.ErrorMessage,
				HTML:     h.composer.ErrorHTML(),
				UserHTML: h.composer.UserHTML(req.Question),
			}
		} else {
			out = wsReply{Type: "message", ChatReply: reply}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(out); err != nil {
			h.logger.Debug("WebSocket write failed", zap.Error(err))
			return
		}
	}
}

// allowMessage fails open when the limiter itself errors.
func (h *ChatHandler) allowMessage(ctx context.Context, client string) bool {
	if h.limiter == nil {
		return true
	}
	d, err := h.limiter.Allow(ctx, client)
	if err != nil {
		h.logger.Error("Rate limit check failed", zap.String("limiter", h.limiter.Name()), zap.Error(err))
		return true
	}
	if !d.Allowed {
		h.logger.Warn("Rate limit exceeded",
			zap.String("client", client),
			zap.String("path", "/ws"),
			zap.String("trace_id", middleware.TraceID(ctx)),
		)
		metrics.RateLimited.WithLabelValues(h.limiter.Name()).Inc()
		return false
	}
	return true
}
