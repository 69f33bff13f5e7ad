package config

import "github.com/bobmcallan/toolgate/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 4250,
			Host: "localhost",
			Name: "toolgate",
		},
		Tools: ToolsConfig{
			Paths: []string{"./tools"},
		},
		Execution: ExecutionConfig{
			DefaultProject: "default-project",
			DockerBinary:   "docker",
			SSHBinary:      "ssh",
			TimeoutSeconds: 120,
			MaxOutputBytes: 10 << 20,
			LabelKey:       "com.docker.compose.project",
			FallbackUser:   "www-data",
			UIDPath:        "/var/www/html",
		},
		Discovery: DiscoveryConfig{
			TimeoutSeconds: 15,
		},
		Logging: common.LoggingConfig{
			Level:   "info",
			Outputs: []string{"console"},
		},
	}
}
