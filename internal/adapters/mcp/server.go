// Package mcpadapter exposes the tool vocabulary over the Model Context
// Protocol so external MCP clients can drive the same operations the
// chat orchestration uses.
package mcpadapter

import (
	"context"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
	"github.com/kirillkom/relationship-assistant/internal/core/usecase"
)

const serverVersion = "1.0.0"

type Server struct {
	registry *usecase.ToolRegistry
	mcp      *server.MCPServer
}

// NewServer builds an MCP server whose tools mirror the registry's
// schemas one to one. Dispatch handles validation, so handlers only
// translate between protocols.
func NewServer(registry *usecase.ToolRegistry) *Server {
	srv := server.NewMCPServer(
		"relationship-assistant",
		serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	for _, schema := range registry.Schemas() {
		srv.AddTool(buildTool(schema), makeHandler(registry, schema.Name))
	}

	return &Server{registry: registry, mcp: srv}
}

// ServeStdio blocks serving the MCP protocol over stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func buildTool(schema domain.ToolSchema) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(schema.Description)}
	for _, arg := range schema.Args {
		opts = append(opts, argOption(arg))
	}
	return mcp.NewTool(schema.Name, opts...)
}

func argOption(arg domain.ArgSpec) mcp.ToolOption {
	props := []mcp.PropertyOption{mcp.Description(arg.Description)}
	if arg.Required {
		props = append(props, mcp.Required())
	}
	if len(arg.Enum) > 0 {
		props = append(props, mcp.Enum(arg.Enum...))
	}

	switch arg.Type {
	case "integer", "number":
		return mcp.WithNumber(arg.Name, props...)
	case "boolean":
		return mcp.WithBoolean(arg.Name, props...)
	case "array":
		props = append(props, mcp.Items(map[string]any{"type": "string"}))
		return mcp.WithArray(arg.Name, props...)
	default:
		return mcp.WithString(arg.Name, props...)
	}
}

func makeHandler(registry *usecase.ToolRegistry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := registry.Dispatch(ctx, domain.ToolRequest{
			ID:   uuid.NewString(),
			Name: name,
			Args: req.GetArguments(),
		})
		if result.Status == domain.ToolStatusError {
			return mcp.NewToolResultError(result.Content), nil
		}
		return mcp.NewToolResultText(result.Content), nil
	}
}
