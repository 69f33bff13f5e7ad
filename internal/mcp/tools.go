// Package mcp exposes the tool registry as an MCP server over stdio or
// Streamable HTTP.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/toolgate/internal/executor"
	"github.com/bobmcallan/toolgate/internal/tooldef"
)

// Dispatcher is the registry surface the MCP layer needs.
type Dispatcher interface {
	Tools() []tooldef.ToolDefinition
	ExecuteTool(ctx context.Context, name string, args map[string]any) executor.Result
}

// BuildMCPTool converts a tool definition into an mcp.Tool, passing the
// input schema through unchanged.
func BuildMCPTool(def tooldef.ToolDefinition) mcp.Tool {
	schema, err := json.Marshal(def.Schema())
	if err != nil {
		schema = []byte(`{"type":"object","properties":{}}`)
	}
	return mcp.NewToolWithRawSchema(def.Name, def.Description, schema)
}

// ToolHandler routes an MCP tool call to the registry.
func ToolHandler(d Dispatcher, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := d.ExecuteTool(ctx, name, r.GetArguments())
		return toCallToolResult(res), nil
	}
}

// RegisterTools adds every registry tool to s and returns the count.
func RegisterTools(s *server.MCPServer, d Dispatcher) int {
	defs := d.Tools()
	for _, def := range defs {
		s.AddTool(BuildMCPTool(def), ToolHandler(d, def.Name))
	}
	return len(defs)
}

func toCallToolResult(res executor.Result) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(res.Content)},
		IsError: res.IsError,
	}
}
