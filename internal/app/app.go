// Package app wires configuration, backends, the tool registry and the
// HTTP handlers into one application.
package app

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/toolgate/internal/backend"
	"github.com/bobmcallan/toolgate/internal/cache"
	"github.com/bobmcallan/toolgate/internal/common"
	"github.com/bobmcallan/toolgate/internal/config"
	"github.com/bobmcallan/toolgate/internal/handlers"
	"github.com/bobmcallan/toolgate/internal/mcp"
	"github.com/bobmcallan/toolgate/internal/registry"
	"github.com/bobmcallan/toolgate/internal/tooldef"
)

// App holds all application components and dependencies.
type App struct {
	Config   *config.Config
	Logger   *common.Logger
	Registry *registry.Registry

	// httpClient is shared by every MCP proxy tool
	httpClient *http.Client

	// MCP server shared by the stdio and HTTP transports
	MCPServer  *mcpserver.MCPServer
	MCPHandler *mcp.Handler

	// HTTP handlers
	HealthHandler  *handlers.HealthHandler
	VersionHandler *handlers.VersionHandler
	ToolsHandler   *handlers.ToolsHandler
}

// New initializes the application: tool definitions are loaded from the
// configured paths and registered before any transport starts.
func New(ctx context.Context, cfg *config.Config, logger *common.Logger) (*App, error) {
	defs := tooldef.NewLoader(nil, logger).LoadPaths(cfg.Tools.Paths)
	return NewWithDefinitions(ctx, cfg, defs, logger)
}

// NewWithDefinitions initializes the application from already-loaded
// definitions.
func NewWithDefinitions(ctx context.Context, cfg *config.Config, defs []tooldef.ToolDefinition, logger *common.Logger) (*App, error) {
	a := &App{
		Config:     cfg,
		Logger:     logger,
		httpClient: &http.Client{},
	}

	a.Registry = registry.New(registry.Options{
		Backends:         a.initBackends(),
		HTTPClient:       a.httpClient,
		DiscoveryTimeout: cfg.Discovery.Timeout(),
		Preprocessor:     registry.PathPreprocessor(cfg.Paths.HostRoot, cfg.Paths.ContainerRoot),
	}, logger)
	a.Registry.LoadTools(ctx, defs)

	a.MCPServer = mcp.NewServer(cfg.Server.Name, common.GetVersionInfo().Version, a.Registry, logger)
	a.initHandlers()

	logger.Info().Int("tools", a.Registry.Len()).Msg("application initialization complete")

	return a, nil
}

// initBackends builds the docker and ssh backends over one shared runner.
func (a *App) initBackends() map[string]backend.Backend {
	exec := a.Config.Execution
	runner := backend.NewExecRunner(exec.Timeout(), exec.MaxOutputBytes)

	docker := backend.NewDockerBackend(backend.DockerConfig{
		Binary:         exec.DockerBinary,
		Group:          exec.DockerGroup,
		LabelKey:       exec.LabelKey,
		DefaultProject: exec.ExpectedProject(),
		FallbackUser:   exec.FallbackUser,
		DefaultUIDPath: exec.UIDPath,
	}, runner, cache.New[bool](), cache.New[string](), a.Logger)

	ssh := backend.NewSSHBackend(backend.SSHConfig{
		Binary:      exec.SSHBinary,
		DefaultUser: exec.SSHUser,
	}, runner, a.Logger)

	return map[string]backend.Backend{
		tooldef.BackendDocker: docker,
		tooldef.BackendSSH:    ssh,
	}
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.MCPHandler = mcp.NewHandler(a.MCPServer, a.Logger)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger, a.Registry.Len)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.ToolsHandler = handlers.NewToolsHandler(a.Logger, a.Registry.Tools)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close releases idle connections held for proxied MCP servers.
func (a *App) Close() error {
	a.httpClient.CloseIdleConnections()
	a.Logger.Debug().Msg("application closed")
	return nil
}
