// Package registry owns the set of dispatchable tools. It builds executors
// from tool definitions, expands discovery-enabled MCP servers into one tool
// per remote tool, and is the single entry point for tool calls.
package registry

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bobmcallan/toolgate/internal/backend"
	"github.com/bobmcallan/toolgate/internal/common"
	apperrors "github.com/bobmcallan/toolgate/internal/errors"
	"github.com/bobmcallan/toolgate/internal/executor"
	"github.com/bobmcallan/toolgate/internal/tooldef"
	"github.com/bobmcallan/toolgate/internal/validate"
)

// DefaultDiscoveryTimeout bounds a remote tools/list during load.
const DefaultDiscoveryTimeout = 15 * time.Second

// Preprocessor rewrites validated arguments before execution. It must return
// a new map and leave its input untouched.
type Preprocessor func(args map[string]any) map[string]any

// PathPreprocessor rewrites host paths to container paths in every argument.
// It returns nil when either root is empty.
func PathPreprocessor(hostRoot, containerRoot string) Preprocessor {
	if hostRoot == "" || containerRoot == "" {
		return nil
	}
	return func(args map[string]any) map[string]any {
		return validate.NormalizeArguments(args, hostRoot, containerRoot)
	}
}

// RegisteredTool pairs a definition with its executor.
type RegisteredTool struct {
	Definition tooldef.ToolDefinition
	Executor   executor.Executor
}

// Options configures a Registry.
type Options struct {
	// Backends maps backend names ("docker", "ssh") to implementations.
	Backends map[string]backend.Backend
	// HTTPClient is shared by every proxy executor.
	HTTPClient *http.Client
	// DiscoveryTimeout applies to definitions without timeout_seconds.
	DiscoveryTimeout time.Duration
	// Preprocessor, if set, runs on arguments after validation.
	Preprocessor Preprocessor
}

// Registry holds registered tools in registration order. Tools are added
// during load and only read afterwards.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]RegisteredTool
	order  []string
	opts   Options
	logger *common.Logger
}

// New creates an empty registry.
func New(opts Options, logger *common.Logger) *Registry {
	if opts.DiscoveryTimeout <= 0 {
		opts.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &Registry{
		tools:  make(map[string]RegisteredTool),
		opts:   opts,
		logger: logger,
	}
}

// LoadTools registers defs in order and returns the number of tools added.
// A bad definition is logged and skipped; it never stops the others.
func (r *Registry) LoadTools(ctx context.Context, defs []tooldef.ToolDefinition) int {
	added := 0
	for _, def := range defs {
		added += r.loadSingleTool(ctx, def)
	}
	r.logger.Info().Int("tools", added).Int("definitions", len(defs)).Msg("tools loaded")
	return added
}

func (r *Registry) loadSingleTool(ctx context.Context, def tooldef.ToolDefinition) int {
	if def.Name == "" {
		r.logger.Warn().Str("type", def.Type).Msg("skipping tool definition without name")
		return 0
	}
	if !def.IsEnabled() {
		r.logger.Info().Str("tool", def.Name).Msg("tool disabled, skipping")
		return 0
	}

	if def.Type == tooldef.TypeMCPServer && def.DiscoverTools {
		proxy, err := executor.NewProxyExecutor(def, r.opts.HTTPClient, r.logger)
		if err != nil {
			r.logger.Error().Str("tool", def.Name).Err(err).Msg("cannot create tool")
			return 0
		}
		return r.discoverAndBindRemoteTools(ctx, def, proxy)
	}

	exec, err := r.createExecutor(def)
	if err != nil {
		r.logger.Error().Str("tool", def.Name).Str("type", def.Type).Err(err).Msg("cannot create tool")
		return 0
	}
	if !r.register(def, exec) {
		return 0
	}
	return 1
}

// createExecutor builds the executor for def according to its type.
func (r *Registry) createExecutor(def tooldef.ToolDefinition) (executor.Executor, error) {
	switch def.Type {
	case tooldef.TypeCommand:
		name := def.Backend
		if name == "" {
			name = tooldef.BackendDocker
		}
		be, ok := r.opts.Backends[name]
		if !ok || be == nil {
			return nil, apperrors.Newf(apperrors.CodeConfig, "unknown backend %q", name)
		}
		return executor.NewCommandExecutor(def, be, r.logger)
	case tooldef.TypeMCPServer:
		return executor.NewProxyExecutor(def, r.opts.HTTPClient, r.logger)
	default:
		return nil, apperrors.Newf(apperrors.CodeConfig, "unknown tool type %q", def.Type)
	}
}

type fetchResult struct {
	tools []executor.RemoteTool
	err   error
}

// discoverAndBindRemoteTools lists the remote server's tools and registers a
// bound executor for each. The fetch is abandoned and its request cancelled
// when the discovery timeout fires first.
func (r *Registry) discoverAndBindRemoteTools(ctx context.Context, def tooldef.ToolDefinition, proxy *executor.ProxyExecutor) int {
	timeout := def.Timeout(r.opts.DiscoveryTimeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan fetchResult, 1)
	go func() {
		tools, err := proxy.FetchRemoteTools(ctx)
		ch <- fetchResult{tools: tools, err: err}
	}()

	var res fetchResult
	select {
	case res = <-ch:
	case <-ctx.Done():
		r.logger.Warn().
			Str("tool", def.Name).
			Str("server", def.ServerURL).
			Dur("timeout", timeout).
			Msg("tool discovery timed out, no tools registered")
		return 0
	}

	if res.err != nil {
		r.logger.Warn().Str("tool", def.Name).Str("server", def.ServerURL).Err(res.err).Msg("tool discovery failed, no tools registered")
		return 0
	}
	if len(res.tools) == 0 {
		r.logger.Warn().Str("tool", def.Name).Str("server", def.ServerURL).Msg("remote server returned no tools")
		return 0
	}

	added := 0
	for _, rt := range res.tools {
		if rt.Name == "" {
			continue
		}
		local := tooldef.ToolDefinition{
			Name:           def.ToolPrefix + rt.Name,
			Description:    rt.Description,
			Type:           tooldef.TypeMCPServer,
			InputSchema:    rt.InputSchema,
			ServerURL:      def.ServerURL,
			TimeoutSeconds: def.TimeoutSeconds,
		}
		if r.register(local, executor.NewBoundExecutor(proxy, rt.Name)) {
			added++
		}
	}

	r.logger.Info().
		Str("tool", def.Name).
		Str("server", def.ServerURL).
		Int("discovered", len(res.tools)).
		Int("registered", added).
		Msg("remote tools bound")
	return added
}

// register adds a tool. The first registration of a name wins; later ones
// are dropped with a warning.
func (r *Registry) register(def tooldef.ToolDefinition, exec executor.Executor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.tools[def.Name]; ok {
		r.logger.Warn().
			Str("tool", def.Name).
			Str("existing_type", existing.Definition.Type).
			Str("skipped_type", def.Type).
			Msg("skipping duplicate tool name")
		return false
	}
	r.tools[def.Name] = RegisteredTool{Definition: def, Executor: exec}
	r.order = append(r.order, def.Name)
	return true
}

// Get returns the registered tool called name.
func (r *Registry) Get(name string) (RegisteredTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns every registered definition in registration order.
func (r *Registry) Tools() []tooldef.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]tooldef.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
