package handlers

import (
	"net/http"

	"github.com/bobmcallan/toolgate/internal/common"
	"github.com/bobmcallan/toolgate/internal/tooldef"
)

// ToolSummary is the public view of a registered tool. Connection details
// and credentials are never exposed.
type ToolSummary struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Type        string         `json:"type"`
	Backend     string         `json:"backend,omitempty"`
	Target      string         `json:"target,omitempty"`
	Required    []string       `json:"required,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolsHandler lists registered tools.
type ToolsHandler struct {
	logger *common.Logger
	tools  func() []tooldef.ToolDefinition
}

// NewToolsHandler creates a tools handler backed by a tool listing.
func NewToolsHandler(logger *common.Logger, tools func() []tooldef.ToolDefinition) *ToolsHandler {
	return &ToolsHandler{logger: logger, tools: tools}
}

// ServeHTTP handles GET /api/tools.
func (h *ToolsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	defs := h.tools()
	out := make([]ToolSummary, 0, len(defs))
	for _, d := range defs {
		s := ToolSummary{
			Name:        d.Name,
			Description: d.Description,
			Type:        d.Type,
			Required:    d.RequiredArguments(),
			InputSchema: d.Schema(),
		}
		if d.Type == tooldef.TypeCommand {
			s.Backend = d.Backend
			if s.Backend == "" {
				s.Backend = tooldef.BackendDocker
			}
			s.Target = d.Target
		}
		out = append(out, s)
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"count": len(out),
		"tools": out,
	})
}
