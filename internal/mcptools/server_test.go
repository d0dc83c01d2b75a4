package mcptools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/formatting"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/sources"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer("widget-test", "1.0.0", nil, zaptest.NewLogger(t))
}

func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	tool, ok := s.tools[name]
	require.True(t, ok, "tool %s not registered", name)

	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := s.wrapTool(tool)(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	return res
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t)
	assert.ElementsMatch(t, []string{"format_answer", "normalize_sources"}, s.ToolNames())
}

func TestFormatAnswerTool(t *testing.T) {
	s := newTestServer(t)
	res := callTool(t, s, "format_answer", map[string]interface{}{
		"text": "### KitKat\n1. **Wafer**: crisp",
	})
	assert.False(t, res.IsError)

	var out FormatAnswerResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &out))
	require.Len(t, out.Blocks, 2)
	assert.Equal(t, formatting.BlockHeading, out.Blocks[0].Kind)
	assert.Equal(t, "Wafer:", out.Blocks[1].Title)
	assert.False(t, out.Simple)
	assert.Equal(t, formatting.FormatHTML("### KitKat\n1. **Wafer**: crisp"), out.HTML)
}

func TestFormatAnswerToolArguments(t *testing.T) {
	s := newTestServer(t)

	res := callTool(t, s, "format_answer", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "text is required")

	res = callTool(t, s, "format_answer", map[string]interface{}{"text": 42})
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "must be a string")
}

func TestNormalizeSourcesTool(t *testing.T) {
	s := newTestServer(t)
	res := callTool(t, s, "normalize_sources", map[string]interface{}{
		"sources": []interface{}{
			"https://www.nestle.ca/en/brands",
			"madewithnestle.ca/recipes",
			"https://www.nestle.ca/en/brands",
		},
	})
	assert.False(t, res.IsError)

	var out NormalizeSourcesResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &out))
	assert.Equal(t, []sources.Source{
		{CanonicalURL: "https://www.nestle.ca/en/brands", DisplayLabel: "Nestlé Official - Brands"},
		{CanonicalURL: "https://madewithnestle.ca/recipes", DisplayLabel: "Made with Nestlé - Recipes"},
	}, out.Sources)
}

func TestNormalizeSourcesToolArguments(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing", map[string]interface{}{}, "sources is required"},
		{"not an array", map[string]interface{}{"sources": "https://a.com"}, "must be an array"},
		{"non-string item", map[string]interface{}{"sources": []interface{}{"https://a.com", 3}}, "sources[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, s, "normalize_sources", tt.args)
			assert.True(t, res.IsError)
			assert.Contains(t, textOf(t, res), tt.want)
		})
	}
}

func TestExecuteTool(t *testing.T) {
	n := sources.NewNormalizer([]sources.Brand{{Match: "kitkat", Label: "KitKat"}})
	s := NewServer("widget-test", "1.0.0", n, nil)

	out, err := s.ExecuteTool(context.Background(), "normalize_sources", map[string]interface{}{
		"sources": []string{"kitkat.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "KitKat", out.(NormalizeSourcesResult).Sources[0].DisplayLabel)

	_, err = s.ExecuteTool(context.Background(), "missing", nil)
	assert.Error(t, err)
}

func TestNormalizeSourcesCancelled(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ExecuteTool(ctx, "normalize_sources", map[string]interface{}{"sources": []string{"https://a.com"}})
	assert.ErrorIs(t, err, context.Canceled)
}
