package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/formatting"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/sources"
)

// FormatAnswerTool turns raw assistant text into display blocks and HTML.
type FormatAnswerTool struct{}

func (t *FormatAnswerTool) Name() string { return "format_answer" }
func (t *FormatAnswerTool) Description() string {
	return "Format raw assistant answer text into headings, numbered items and paragraphs. Returns the structured blocks and the rendered HTML fragment."
}
func (t *FormatAnswerTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Raw answer text",
			},
		},
		"required": []string{"text"},
	}
}

// FormatAnswerResult is the payload of format_answer.
type FormatAnswerResult struct {
	Blocks []formatting.Block `json:"blocks"`
	Simple bool               `json:"simple"`
	HTML   string             `json:"html"`
}

func (t *FormatAnswerTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	raw, ok := args["text"]
	if !ok {
		return nil, errors.New("text is required")
	}
	text, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("text must be a string, got %T", raw)
	}

	answer := formatting.Format(text)
	return FormatAnswerResult{
		Blocks: answer.Blocks,
		Simple: answer.Simple,
		HTML:   formatting.RenderHTML(answer),
	}, nil
}

// NormalizeSourcesTool dedupes source links and gives each a display label.
type NormalizeSourcesTool struct {
	normalizer *sources.Normalizer
}

func (t *NormalizeSourcesTool) Name() string { return "normalize_sources" }
func (t *NormalizeSourcesTool) Description() string {
	return "Deduplicate source links, unwrap search-engine redirects and return a canonical URL with a display label for each."
}
func (t *NormalizeSourcesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"sources": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Raw source links in citation order",
			},
		},
		"required": []string{"sources"},
	}
}

// NormalizeSourcesResult is the payload of normalize_sources.
type NormalizeSourcesResult struct {
	Sources []sources.Source `json:"sources"`
}

func (t *NormalizeSourcesTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	raw, err := stringSliceArg(args, "sources")
	if err != nil {
		return nil, err
	}
	list, err := t.normalizer.NormalizeAll(ctx, raw)
	if err != nil {
		return nil, err
	}
	return NormalizeSourcesResult{Sources: list}, nil
}

// stringSliceArg accepts both []string and the []interface{} produced by
// JSON decoding.
func stringSliceArg(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("%s is required", key)
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string, got %T", key, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be an array of strings, got %T", key, raw)
	}
}
