// Package mcptools is a minimal MCP tool server: an ordered registry of
// schema-described tools, a dispatcher that validates arguments and invokes
// handlers, and a session that serves both over jsonrpc2.
package mcptools

import (
	"context"
	"log/slog"

	"github.com/y0ug/mcptools/internal/client"
	"github.com/y0ug/mcptools/internal/mcp"
)

type (
	Tool                    = mcp.Tool
	ToolInputSchema         = mcp.ToolInputSchema
	Property                = mcp.Property
	Content                 = mcp.Content
	CallToolResult          = mcp.CallToolResult
	Implementation          = mcp.Implementation
	InitializeRequestParams = mcp.InitializeRequestParams
	InitializeResult        = mcp.InitializeResult
	ServerCapabilities      = mcp.ServerCapabilities
	Resource                = mcp.Resource
	ResourceTemplate        = mcp.ResourceTemplate
	ReadResourceResult      = mcp.ReadResourceResult

	Client = client.Client
)

// TextContent builds a text content item.
func TextContent(text string) Content {
	return mcp.TextContent(text)
}

// NewClient starts serverCmd and connects an MCP client to its stdio.
func NewClient(
	ctx context.Context,
	logger *slog.Logger,
	serverCmd string,
	args ...string,
) (Client, error) {
	return client.New(ctx, logger, serverCmd, args...)
}

// StrPtr returns a pointer to s, for Tool.Description literals.
func StrPtr(s string) *string {
	return &s
}
