package handlers

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"go.uber.org/zap"
)

//go:embed static
var staticFiles embed.FS

var indexPage = template.Must(template.ParseFS(staticFiles, "static/index.html"))

// PageHandler serves the widget page and its assets
type PageHandler struct {
	assistantName string
	logger        *zap.Logger
	assets        http.Handler
}

// NewPageHandler creates a new page handler
func NewPageHandler(assistantName string, logger *zap.Logger) *PageHandler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return &PageHandler{
		assistantName: assistantName,
		logger:        logger,
		assets:        http.StripPrefix("/static/", http.FileServer(http.FS(sub))),
	}
}

// Index handles GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	data := struct {
		AssistantName string
	}{AssistantName: h.assistantName}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage.Execute(w, data); err != nil {
		h.logger.Error("Failed to render page", zap.Error(err))
	}
}

// Static handles GET /static/*
func (h *PageHandler) Static(w http.ResponseWriter, r *http.Request) {
	h.assets.ServeHTTP(w, r)
}
