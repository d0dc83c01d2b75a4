package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/backend"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/render"
)

// GraphStatsResponse is the backend's stats plus the rendered panel.
type GraphStatsResponse struct {
	backend.GraphStats
	HTML string `json:"html"`
}

// AddNodeRequest accepts either a description field or the backend's
// properties map.
type AddNodeRequest struct {
	NodeType    string                 `json:"node_type"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
}

// AddRelationshipRequest is the browser's relationship form.
type AddRelationshipRequest struct {
	FromNode         string `json:"from_node"`
	ToNode           string `json:"to_node"`
	RelationshipType string `json:"relationship_type"`
}

// GraphHandler handles the graph manager endpoints
type GraphHandler struct {
	store    GraphStore
	composer *render.Composer
	logger   *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(store GraphStore, composer *render.Composer, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{
		store:    store,
		composer: composer,
		logger:   logger,
	}
}

// Stats handles GET /graph/stats
func (h *GraphHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GraphStats(r.Context())
	if err != nil {
		h.logger.Error("Failed to fetch graph stats", zap.Error(err))
		sendError(w, backendStatus(err), "Backend unavailable", "Error loading graph statistics")
		return
	}

	writeJSON(w, http.StatusOK, GraphStatsResponse{
		GraphStats: stats,
		HTML:       h.composer.GraphStatsHTML(stats),
	})
}

// AddNode handles POST /graph/add-node
func (h *GraphHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	var req AddNodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, backend.MutationResult{Message: err.Error()})
		return
	}

	desc := req.Description
	if d, ok := req.Properties["description"].(string); ok && desc == "" {
		desc = d
	}
	node := backend.NewNodeRequest(req.NodeType, req.Name, desc)
	for k, v := range req.Properties {
		if _, set := node.Properties[k]; !set {
			node.Properties[k] = v
		}
	}

	if err := node.Validate(); err != nil {
		h.writeMutation(w, "add node", backend.MutationResult{}, err)
		return
	}

	res, err := h.store.AddNode(r.Context(), node)
	h.writeMutation(w, "add node", res, err)
}

// AddRelationship handles POST /graph/add-relationship
func (h *GraphHandler) AddRelationship(w http.ResponseWriter, r *http.Request) {
	var req AddRelationshipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, backend.MutationResult{Message: err.Error()})
		return
	}

	rel := backend.NewRelationshipRequest(req.FromNode, req.ToNode, req.RelationshipType)
	if err := rel.Validate(); err != nil {
		h.writeMutation(w, "add relationship", backend.MutationResult{}, err)
		return
	}

	res, err := h.store.AddRelationship(r.Context(), rel)
	h.writeMutation(w, "add relationship", res, err)
}

// writeMutation always answers with a MutationResult so the page can show
// "Success: ..." or "Error: ...".
func (h *GraphHandler) writeMutation(w http.ResponseWriter, op string, res backend.MutationResult, err error) {
	if err == nil {
		h.logger.Info("Graph mutation",
			zap.String("op", op),
			zap.Bool("success", res.Success),
			zap.String("message", res.Message),
		)
		writeJSON(w, http.StatusOK, res)
		return
	}

	var se *backend.StatusError
	message := "Error: could not " + op
	switch {
	case errors.Is(err, backend.ErrInvalidInput):
		message = err.Error()
	case errors.As(err, &se) && se.Message != "":
		message = se.Message
	}

	status := backendStatus(err)
	if status >= 500 {
		h.logger.Error("Graph mutation failed", zap.String("op", op), zap.Error(err))
	}
	writeJSON(w, status, backend.MutationResult{Success: false, Message: message})
}
