package executor

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// rpcRequest is an outbound JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id"`
}

func newRPCRequest(id, method string, params any) rpcRequest {
	return rpcRequest{JSONRPC: mcp.JSONRPC_VERSION, Method: method, Params: params, ID: id}
}

// toolsCallParams is the params object of tools/call.
type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// RemoteTool is one entry of a remote tools/list response.
type RemoteTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// parseToolList accepts a bare array of tools or an object with a tools
// field, optionally wrapped in a JSON-RPC result envelope.
func parseToolList(body []byte) ([]RemoteTool, bool) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false
	}
	if m, ok := doc.(map[string]any); ok {
		if result, ok := m["result"]; ok {
			doc = result
		}
	}

	var list []any
	switch t := doc.(type) {
	case []any:
		list = t
	case map[string]any:
		tools, ok := t["tools"].([]any)
		if !ok {
			return nil, false
		}
		list = tools
	default:
		return nil, false
	}

	tools := make([]RemoteTool, 0, len(list))
	for _, item := range list {
		raw, err := json.Marshal(item)
		if err != nil {
			continue
		}
		var rt RemoteTool
		if err := json.Unmarshal(raw, &rt); err != nil {
			continue
		}
		tools = append(tools, rt)
	}
	return tools, true
}
