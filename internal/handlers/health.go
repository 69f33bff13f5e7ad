package handlers

import (
	"net/http"

	"github.com/bobmcallan/toolgate/internal/common"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	logger *common.Logger
	tools  func() int
}

// NewHealthHandler creates a health handler. tools reports the number of
// registered tools.
func NewHealthHandler(logger *common.Logger, tools func() int) *HealthHandler {
	return &HealthHandler{logger: logger, tools: tools}
}

// ServeHTTP handles GET /api/health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	count := 0
	if h.tools != nil {
		count = h.tools()
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tools":  count,
	})
}
