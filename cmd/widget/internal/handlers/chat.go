package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Dhwanijoshi3/nestle-chatbot/cmd/widget/internal/middleware"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/backend"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/formatting"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/render"
)

// ChatRequest is the browser's chat payload.
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatReply is one rendered assistant turn.
type ChatReply struct {
	Answer     string             `json:"answer"`
	Sources    []string           `json:"sources"`
	References []render.Reference `json:"references"`
	Blocks     []formatting.Block `json:"blocks"`
	Simple     bool               `json:"simple"`
	HTML       string             `json:"html"`
	UserHTML   string             `json:"user_html"`
}

// ChatErrorResponse carries the apology bubble so the page can show it as-is.
type ChatErrorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	HTML     string `json:"html"`
	UserHTML string `json:"user_html,omitempty"`
}

// ChatHandler handles chat turns
type ChatHandler struct {
	assistant Assistant
	composer  *render.Composer
	limiter   middleware.Limiter
	logger    *zap.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(assistant Assistant, composer *render.Composer, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		assistant: assistant,
		composer:  composer,
		logger:    logger,
	}
}

// LimitMessages makes the WebSocket check limiter before every question it
// forwards. HTTP chat is limited by the router instead.
func (h *ChatHandler) LimitMessages(limiter middleware.Limiter) {
	h.limiter = limiter
}

// Chat handles POST /chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		sendBadRequest(w, "No question provided")
		return
	}

	reply, err := h.Turn(r.Context(), req.Question)
	if err != nil {
		status := backendStatus(err)
		writeJSON(w, status, ChatErrorResponse{
			Error:    http.StatusText(status),
			Message:  render.ErrorMessage,
			HTML:     h.composer.ErrorHTML(),
			UserHTML: h.composer.UserHTML(req.Question),
		})
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// Turn asks the assistant and composes the rendered reply.
func (h *ChatHandler) Turn(ctx context.Context, question string) (ChatReply, error) {
	resp, err := h.assistant.Chat(ctx, question)
	if err != nil {
		h.logger.Error("Chat request failed",
			zap.Int("question_len", len(question)),
			zap.Error(err),
		)
		return ChatReply{}, err
	}

	msg, err := h.composer.Compose(ctx, resp.Answer, resp.Sources)
	if err != nil {
		return ChatReply{}, err
	}

	return ChatReply{
		Answer:     msg.Answer,
		Sources:    msg.Sources,
		References: msg.References,
		Blocks:     msg.Formatted.Blocks,
		Simple:     msg.Formatted.Simple,
		HTML:       msg.HTML,
		UserHTML:   h.composer.UserHTML(question),
	}, nil
}

var _ Assistant = (*backend.Client)(nil)
