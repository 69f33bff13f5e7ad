package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bobmcallan/toolgate/internal/common"
	"github.com/bobmcallan/toolgate/internal/config"
	"github.com/bobmcallan/toolgate/internal/tooldef"
)

func TestNewWithDefinitions_RegistersTools(t *testing.T) {
	cfg := config.NewDefaultConfig()
	defs := []tooldef.ToolDefinition{
		{Name: "ls", Type: tooldef.TypeCommand, Target: "web", CommandTemplate: "ls {path}"},
		{Name: "remote", Type: tooldef.TypeCommand, Backend: tooldef.BackendSSH, Target: "host", CommandTemplate: "uptime"},
		{Name: "broken", Type: tooldef.TypeCommand, Backend: "telnet", Target: "host", CommandTemplate: "uptime"},
	}

	a, err := NewWithDefinitions(context.Background(), cfg, defs, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("NewWithDefinitions failed: %v", err)
	}
	defer a.Close()

	if got := a.Registry.Len(); got != 2 {
		t.Errorf("expected 2 tools, got %d", got)
	}
	if _, ok := a.Registry.Get("broken"); ok {
		t.Error("tool with unknown backend should not be registered")
	}
	if a.MCPServer == nil || a.MCPHandler == nil {
		t.Error("expected MCP server and handler")
	}
	if a.HealthHandler == nil || a.VersionHandler == nil || a.ToolsHandler == nil {
		t.Error("expected HTTP handlers")
	}
}

func TestNew_LoadsFromPaths(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Tools.Paths = []string{t.TempDir()}

	a, err := New(context.Background(), cfg, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := a.Registry.Len(); got != 0 {
		t.Errorf("expected empty registry, got %d", got)
	}
}

func TestNewWithDefinitions_SharesProxyClient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":{"tools":[{"name":"ping"},{"name":"pong"}]}}`))
	}))
	defer srv.Close()

	cfg := config.NewDefaultConfig()
	defs := []tooldef.ToolDefinition{
		{Name: "remote", Type: tooldef.TypeMCPServer, ServerURL: srv.URL, DiscoverTools: true, ToolPrefix: "r_"},
	}

	a, err := NewWithDefinitions(context.Background(), cfg, defs, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("NewWithDefinitions failed: %v", err)
	}
	if _, ok := a.Registry.Get("r_ping"); !ok {
		t.Error("expected discovered tool r_ping")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 discovery request, got %d", n)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
