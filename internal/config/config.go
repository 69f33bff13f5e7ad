package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/toolgate/internal/common"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig         `toml:"server"`
	Tools     ToolsConfig          `toml:"tools"`
	Execution ExecutionConfig      `toml:"execution"`
	Paths     PathsConfig          `toml:"paths"`
	Discovery DiscoveryConfig      `toml:"discovery"`
	Logging   common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
	Name string `toml:"name"`
}

// ToolsConfig lists tool definition files and directories, loaded in order.
type ToolsConfig struct {
	Paths []string `toml:"paths"`
}

// ExecutionConfig contains backend settings.
type ExecutionConfig struct {
	DefaultProject string `toml:"default_project"`
	Project        string `toml:"project"`
	DockerBinary   string `toml:"docker_binary"`
	DockerGroup    string `toml:"docker_group"`
	SSHBinary      string `toml:"ssh_binary"`
	SSHUser        string `toml:"ssh_user"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxOutputBytes int64  `toml:"max_output_bytes"`
	LabelKey       string `toml:"label_key"`
	FallbackUser   string `toml:"fallback_user"`
	UIDPath        string `toml:"uid_path"`
}

// Timeout returns the process timeout as a duration.
func (c ExecutionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ExpectedProject is the project every container must carry, unless a tool
// names its own.
func (c ExecutionConfig) ExpectedProject() string {
	if c.Project != "" {
		return c.Project
	}
	return c.DefaultProject
}

// PathsConfig maps host paths in arguments to container paths.
type PathsConfig struct {
	HostRoot      string `toml:"host_root"`
	ContainerRoot string `toml:"container_root"`
}

// DiscoveryConfig bounds remote tool discovery.
type DiscoveryConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Timeout returns the discovery timeout as a duration.
func (c DiscoveryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadDotEnv loads variables from .env files into the process environment
// without overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// applyEnvOverrides applies TOOLGATE_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("TOOLGATE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("TOOLGATE_HOST"); host != "" {
		config.Server.Host = host
	}
	if tools := os.Getenv("TOOLGATE_TOOLS"); tools != "" {
		config.Tools.Paths = splitList(tools)
	}
	if project := os.Getenv("TOOLGATE_PROJECT"); project != "" {
		config.Execution.Project = project
	}
	if root := os.Getenv("TOOLGATE_HOST_ROOT"); root != "" {
		config.Paths.HostRoot = root
	}
	if root := os.Getenv("TOOLGATE_CONTAINER_ROOT"); root != "" {
		config.Paths.ContainerRoot = root
	}
	if user := os.Getenv("TOOLGATE_SSH_USER"); user != "" {
		config.Execution.SSHUser = user
	}
	if group, ok := os.LookupEnv("TOOLGATE_DOCKER_GROUP"); ok {
		config.Execution.DockerGroup = group
	}
	if level := os.Getenv("TOOLGATE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string, tools []string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if len(tools) > 0 {
		config.Tools.Paths = tools
	}
}

// Validate returns a list of configuration problems. An empty list means
// the configuration is usable.
func (c *Config) Validate() []string {
	var issues []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if len(c.Tools.Paths) == 0 {
		issues = append(issues, "tools.paths is empty: no tools will be loaded")
	}
	if c.Execution.TimeoutSeconds <= 0 {
		issues = append(issues, "execution.timeout_seconds must be positive")
	}
	if c.Execution.MaxOutputBytes <= 0 {
		issues = append(issues, "execution.max_output_bytes must be positive")
	}
	if (c.Paths.HostRoot == "") != (c.Paths.ContainerRoot == "") {
		issues = append(issues, "paths.host_root and paths.container_root must be set together")
	}
	if c.Discovery.TimeoutSeconds <= 0 {
		issues = append(issues, "discovery.timeout_seconds must be positive")
	}
	return issues
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
