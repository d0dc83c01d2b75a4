package backend

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatResponse is the assistant's reply: raw answer text plus cited links.
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// GraphStats counts nodes and relationships per label/type.
type GraphStats struct {
	Nodes              map[string]int `json:"nodes"`
	Relationships      map[string]int `json:"relationships"`
	TotalNodes         int            `json:"total_nodes"`
	TotalRelationships int            `json:"total_relationships"`
}

// NodeRequest creates a node in the graph store.
type NodeRequest struct {
	NodeType   string         `json:"node_type"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties"`
}

// RelationshipRequest links two existing nodes by name.
type RelationshipRequest struct {
	FromNode         string         `json:"from_node"`
	ToNode           string         `json:"to_node"`
	RelationshipType string         `json:"relationship_type"`
	Properties       map[string]any `json:"properties"`
}

// MutationResult is returned by the graph mutation endpoints.
type MutationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Health mirrors the backend's GET /health body.
type Health struct {
	Status         string `json:"status"`
	Neo4jAvailable bool   `json:"neo4j_available"`
	Timestamp      string `json:"timestamp,omitempty"`
}

var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrInvalidInput  = errors.New("invalid input")
)

// ValidationError names the offending field. It matches ErrInvalidInput.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// StatusError is a non-2xx reply from the backend.
type StatusError struct {
	Operation string
	Code      int
	Message   string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %s: status %d: %s", e.Operation, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %s: status %d", e.Operation, e.Code)
}

// Graph labels and relationship types end up in Cypher, so they are limited
// to identifiers.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewNodeRequest builds a request from the add-node form. A non-empty
// description becomes the "description" property.
func NewNodeRequest(nodeType, name, description string) NodeRequest {
	props := map[string]any{}
	if d := strings.TrimSpace(description); d != "" {
		props["description"] = d
	}
	return NodeRequest{
		NodeType:   strings.TrimSpace(nodeType),
		Name:       strings.TrimSpace(name),
		Properties: props,
	}
}

// Validate checks required fields.
func (r NodeRequest) Validate() error {
	switch {
	case r.NodeType == "":
		return &ValidationError{Field: "node_type", Reason: "is required"}
	case !identifierPattern.MatchString(r.NodeType):
		return &ValidationError{Field: "node_type", Reason: "must be letters, digits or underscores"}
	case r.Name == "":
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	return nil
}

// NewRelationshipRequest builds a request from the add-relationship form.
// The relationship type is upper-cased.
func NewRelationshipRequest(from, to, relType string) RelationshipRequest {
	return RelationshipRequest{
		FromNode:         strings.TrimSpace(from),
		ToNode:           strings.TrimSpace(to),
		RelationshipType: strings.ToUpper(strings.TrimSpace(relType)),
		Properties:       map[string]any{},
	}
}

// Validate checks required fields.
func (r RelationshipRequest) Validate() error {
	switch {
	case r.FromNode == "":
		return &ValidationError{Field: "from_node", Reason: "is required"}
	case r.ToNode == "":
		return &ValidationError{Field: "to_node", Reason: "is required"}
	case r.RelationshipType == "":
		return &ValidationError{Field: "relationship_type", Reason: "is required"}
	case !identifierPattern.MatchString(r.RelationshipType):
		return &ValidationError{Field: "relationship_type", Reason: "must be letters, digits or underscores"}
	}
	return nil
}
