// Package tooldef defines the declarative tool definition model and loads it
// from YAML, JSON and TOML files.
package tooldef

import "time"

// Tool types.
const (
	TypeCommand   = "command"
	TypeMCPServer = "mcp_server"
)

// Backend names for command tools.
const (
	BackendDocker = "docker"
	BackendSSH    = "ssh"
)

// Auth types for mcp_server tools.
const (
	AuthBearer = "bearer"
	AuthBasic  = "basic"
)

// ValidationRule rejects a value matching Pattern.
type ValidationRule struct {
	Pattern string `json:"pattern" yaml:"pattern" toml:"pattern"`
	Message string `json:"message,omitempty" yaml:"message,omitempty" toml:"message,omitempty"`
}

// ToolDefinition is one configured tool. It is immutable after load.
type ToolDefinition struct {
	Name        string         `json:"name" yaml:"name" toml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Type        string         `json:"type" yaml:"type" toml:"type"`
	Enabled     *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty" yaml:"input_schema,omitempty" toml:"input_schema,omitempty"`

	// command
	CommandTemplate    string           `json:"command_template,omitempty" yaml:"command_template,omitempty" toml:"command_template,omitempty"`
	Backend            string           `json:"backend,omitempty" yaml:"backend,omitempty" toml:"backend,omitempty"`
	Target             string           `json:"target,omitempty" yaml:"target,omitempty" toml:"target,omitempty"`
	Project            string           `json:"project,omitempty" yaml:"project,omitempty" toml:"project,omitempty"`
	DefaultArgs        map[string]any   `json:"default_args,omitempty" yaml:"default_args,omitempty" toml:"default_args,omitempty"`
	DisallowedCommands []string         `json:"disallowed_commands,omitempty" yaml:"disallowed_commands,omitempty" toml:"disallowed_commands,omitempty"`
	ValidationRules    []ValidationRule `json:"validation_rules,omitempty" yaml:"validation_rules,omitempty" toml:"validation_rules,omitempty"`
	Shell              string           `json:"shell,omitempty" yaml:"shell,omitempty" toml:"shell,omitempty"`
	ShellFlag          string           `json:"shell_flag,omitempty" yaml:"shell_flag,omitempty" toml:"shell_flag,omitempty"`
	User               string           `json:"user,omitempty" yaml:"user,omitempty" toml:"user,omitempty"`
	WorkingDir         string           `json:"working_dir,omitempty" yaml:"working_dir,omitempty" toml:"working_dir,omitempty"`
	QuoteArguments     bool             `json:"quote_arguments,omitempty" yaml:"quote_arguments,omitempty" toml:"quote_arguments,omitempty"`

	// mcp_server
	ServerURL        string            `json:"server_url,omitempty" yaml:"server_url,omitempty" toml:"server_url,omitempty"`
	AuthToken        string            `json:"auth_token,omitempty" yaml:"auth_token,omitempty" toml:"auth_token,omitempty"`
	AuthType         string            `json:"auth_type,omitempty" yaml:"auth_type,omitempty" toml:"auth_type,omitempty"`
	Username         string            `json:"username,omitempty" yaml:"username,omitempty" toml:"username,omitempty"`
	Password         string            `json:"password,omitempty" yaml:"password,omitempty" toml:"password,omitempty"`
	Headers          map[string]string `json:"headers,omitempty" yaml:"headers,omitempty" toml:"headers,omitempty"`
	ForwardArguments bool              `json:"forward_arguments,omitempty" yaml:"forward_arguments,omitempty" toml:"forward_arguments,omitempty"`
	DiscoverTools    bool              `json:"discover_tools,omitempty" yaml:"discover_tools,omitempty" toml:"discover_tools,omitempty"`
	ToolPrefix       string            `json:"tool_prefix,omitempty" yaml:"tool_prefix,omitempty" toml:"tool_prefix,omitempty"`

	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" toml:"timeout_seconds,omitempty"`
}

// IsEnabled reports whether the tool should be loaded. Unset means enabled.
func (d ToolDefinition) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// Timeout returns the configured timeout, or fallback when unset.
func (d ToolDefinition) Timeout(fallback time.Duration) time.Duration {
	if d.TimeoutSeconds > 0 {
		return time.Duration(d.TimeoutSeconds) * time.Second
	}
	return fallback
}

// RequiredArguments lists input_schema.required.
func (d ToolDefinition) RequiredArguments() []string {
	raw, ok := d.InputSchema["required"]
	if !ok {
		return nil
	}
	var out []string
	switch t := raw.(type) {
	case []string:
		out = append(out, t...)
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// Schema returns input_schema, or an empty object schema when none is set.
func (d ToolDefinition) Schema() map[string]any {
	if len(d.InputSchema) == 0 {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return d.InputSchema
}
