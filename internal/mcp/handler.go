package mcp

import (
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/toolgate/internal/common"
)

// NewServer builds an MCP server advertising every registry tool plus
// get_version. A registry tool called get_version takes precedence.
func NewServer(name, version string, d Dispatcher, logger *common.Logger) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(name, version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	hasVersion := false
	for _, def := range d.Tools() {
		if def.Name == VersionToolName {
			hasVersion = true
			break
		}
	}
	if !hasVersion {
		s.AddTool(VersionTool(), VersionToolHandler(d))
	}

	count := RegisterTools(s, d)
	logger.Info().Int("tools", count).Str("name", name).Msg("MCP server initialized")
	return s
}

// Handler serves the MCP endpoint over Streamable HTTP.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// NewHandler wraps s in a stateless Streamable HTTP server.
func NewHandler(s *mcpserver.MCPServer, logger *common.Logger) *Handler {
	return &Handler{
		streamable: mcpserver.NewStreamableHTTPServer(s, mcpserver.WithStateLess(true)),
		logger:     logger,
	}
}

// ServeHTTP delegates to the mcp-go Streamable HTTP server.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}

// ServeStdio serves s on stdin/stdout until EOF or a signal.
func ServeStdio(s *mcpserver.MCPServer) error {
	return mcpserver.ServeStdio(s)
}
