// Package mcptools exposes the answer formatter and source normalizer as
// MCP tools.
package mcptools

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/sources"
)

// Tool describes the contract for MCP tool implementations.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// Server wires the MCP runtime to the widget tools.
type Server struct {
	tools     map[string]Tool
	mcpServer *mcpserver.MCPServer
	logger    *zap.Logger
}

// NewServer registers every tool. A nil normalizer uses the default brand table.
func NewServer(name, version string, normalizer *sources.Normalizer, logger *zap.Logger) *Server {
	if normalizer == nil {
		normalizer = sources.NewNormalizer(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		tools: make(map[string]Tool),
		mcpServer: mcpserver.NewMCPServer(
			name,
			version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithLogging(),
			mcpserver.WithRecovery(),
		),
		logger: logger,
	}

	s.registerTool(&FormatAnswerTool{})
	s.registerTool(&NormalizeSourcesTool{normalizer: normalizer})
	return s
}

// Start serves MCP over the process's stdin/stdout.
func (s *Server) Start(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve speaks MCP over in/out until ctx is done or in closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, in, out)
}

// ToolNames lists the registered tools.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	return names
}

// ExecuteTool runs a tool directly, bypassing the protocol.
func (s *Server) ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	tool, exists := s.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool.Execute(ctx, args)
}

func (s *Server) registerTool(tool Tool) {
	s.tools[tool.Name()] = tool

	schema, err := json.Marshal(tool.InputSchema())
	if err != nil {
		schema = []byte(`{"type":"object"}`)
	}

	mcpTool := mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema)
	s.mcpServer.AddTool(mcpTool, s.wrapTool(tool))
}

func (s *Server) wrapTool(tool Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}

		result, err := tool.Execute(ctx, args)
		if err != nil {
			s.logger.Warn("Tool call failed", zap.String("tool", tool.Name()), zap.Error(err))
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("tool %s failed: %v", tool.Name(), err))},
				IsError: true,
			}, nil
		}

		payload, err := json.Marshal(result)
		if err != nil {
			payload = []byte(fmt.Sprintf(`{"success":false,"error":"tool %s failed to encode payload"}`, tool.Name()))
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(payload))},
		}, nil
	}
}
