package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aussiebroadwan/mcpauth/pkg/httpx"
	"github.com/aussiebroadwan/mcpauth/pkg/slogx"
)

const (
	// MCPEndpointPath is where the streamable HTTP transport is mounted.
	MCPEndpointPath = "/mcp"

	mcpServerName        = "Simple MCP Test Server"
	mcpServerDescription = "A simple MCP server for testing authorization flow"
)

// MCPServerInfo is the payload of the server_info tool.
type MCPServerInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	ToolsCount  int    `json:"tools_count"`
	Description string `json:"description"`
}

// mcpTools holds the demo tool handlers. Every call has already passed the
// resource guard.
type mcpTools struct {
	version string
	now     func() time.Time
}

// NewMCPHandler builds the streamable HTTP MCP server with the demo tools.
// The handler must be mounted behind the resource guard; the caller's Access
// is carried into every tool call context.
func NewMCPHandler(version string, now func() time.Time) http.Handler {
	if now == nil {
		now = time.Now
	}
	tools := &mcpTools{version: version, now: now}

	s := server.NewMCPServer(mcpServerName, version, server.WithToolCapabilities(false))
	for _, t := range tools.definitions() {
		s.AddTool(t.tool, t.handler)
	}

	return server.NewStreamableHTTPServer(s,
		server.WithEndpointPath(MCPEndpointPath),
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if access, ok := httpx.AccessFromContext(r.Context()); ok {
				ctx = httpx.WithAccess(ctx, access)
			}
			return slogx.WithContext(ctx, slogx.FromContext(r.Context()))
		}),
	)
}

type mcpTool struct {
	tool    mcp.Tool
	handler server.ToolHandlerFunc
}

func objectSchema(properties map[string]any, required ...string) mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func (t *mcpTools) definitions() []mcpTool {
	return []mcpTool{
		{
			tool: mcp.Tool{
				Name:        "echo",
				Description: "Echo back the input text",
				InputSchema: objectSchema(map[string]any{
					"text": map[string]any{"type": "string", "description": "Text to echo back"},
				}, "text"),
			},
			handler: t.echo,
		},
		{
			tool: mcp.Tool{
				Name:        "add_numbers",
				Description: "Add two numbers together",
				InputSchema: objectSchema(map[string]any{
					"a": map[string]any{"type": "number", "description": "First number"},
					"b": map[string]any{"type": "number", "description": "Second number"},
				}, "a", "b"),
			},
			handler: t.addNumbers,
		},
		{
			tool: mcp.Tool{
				Name:        "get_time",
				Description: "Get current server time",
				InputSchema: objectSchema(map[string]any{}),
			},
			handler: t.getTime,
		},
		{
			tool: mcp.Tool{
				Name:        "square",
				Description: "Calculate the square of a number",
				InputSchema: objectSchema(map[string]any{
					"number": map[string]any{"type": "number", "description": "Number to square"},
				}, "number"),
			},
			handler: t.square,
		},
		{
			tool: mcp.Tool{
				Name:        "greet",
				Description: "Generate a simple greeting",
				InputSchema: objectSchema(map[string]any{
					"name": map[string]any{"type": "string", "description": "Name to greet", "default": "World"},
				}),
			},
			handler: t.greet,
		},
		{
			tool: mcp.Tool{
				Name:        "server_info",
				Description: "Get basic server information",
				InputSchema: objectSchema(map[string]any{}),
			},
			handler: t.serverInfo,
		},
	}
}

func (t *mcpTools) echo(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Echo: " + text), nil
}

func (t *mcpTools) addNumbers(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		A *float64 `json:"a"`
		B *float64 `json:"b"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}
	if args.A == nil || args.B == nil {
		return mcp.NewToolResultError("both a and b are required"), nil
	}
	return mcp.NewToolResultText(formatNumber(*args.A + *args.B)), nil
}

func (t *mcpTools) getTime(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("Current server time: " + t.now().Format(time.RFC3339)), nil
}

func (t *mcpTools) square(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := request.RequireFloat("number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatNumber(n * n)), nil
}

func (t *mcpTools) greet(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "World")
	return mcp.NewToolResultText(fmt.Sprintf("Hello, %s! Welcome to the Simple MCP Server.", name)), nil
}

func (t *mcpTools) serverInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultStructuredOnly(MCPServerInfo{
		Name:        mcpServerName,
		Version:     t.version,
		ToolsCount:  len(t.definitions()),
		Description: mcpServerDescription,
	}), nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
