package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/toolgate/internal/common"
)

// VersionToolName is the built-in version tool.
const VersionToolName = "get_version"

// VersionTool returns the mcp.Tool definition for get_version.
func VersionTool() mcp.Tool {
	return mcp.NewTool(VersionToolName,
		mcp.WithDescription("Get toolgate version and tool count. Use this to verify connectivity."),
	)
}

// VersionToolHandler reports build info and the number of registered tools.
func VersionToolHandler(d Dispatcher) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := json.Marshal(struct {
			common.VersionInfo
			Tools int `json:"tools"`
		}{common.GetVersionInfo(), len(d.Tools())})
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent("Error: failed to marshal version info")},
				IsError: true,
			}, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(out))},
		}, nil
	}
}
