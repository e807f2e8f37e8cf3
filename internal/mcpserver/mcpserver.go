// Package mcpserver exposes the conversation tools over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/comigor/meditranslate-go/internal/logger"
	"github.com/comigor/meditranslate-go/pkg/tools"
)

const (
	Name    = "meditranslate"
	Version = "0.1.0"
)

// New registers every tool in manager on a new MCP server.
func New(manager *tools.ToolManager) *server.MCPServer {
	s := server.NewMCPServer(Name, Version, server.WithToolCapabilities(false))
	for _, t := range manager.List() {
		s.AddTool(Definition(t), Handler(t))
		logger.L.Debug("mcp tool registered", "tool", t.Name())
	}
	return s
}

// Definition describes t in MCP terms. Every parameter is a string.
func Definition(t tools.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.Description())}
	for _, p := range t.Params() {
		propOpts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		opts = append(opts, mcp.WithString(p.Name, propOpts...))
	}
	return mcp.NewTool(t.Name(), opts...)
}

// Handler adapts t to an MCP tool handler. Tool failures are reported as
// error results rather than protocol errors.
func Handler(t tools.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
		}
		out, err := t.Run(ctx, args)
		if err != nil {
			logger.FromContext(ctx).Warn("mcp tool failed", "tool", t.Name(), "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

// ServeStdio blocks serving s on stdin and stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
