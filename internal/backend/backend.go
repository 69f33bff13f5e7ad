// Package backend runs rendered commands against existing execution targets:
// docker containers (DockerBackend) or remote hosts over ssh (SSHBackend).
package backend

import (
	"context"
	"time"
)

// Request describes one command to run on a target.
type Request struct {
	// Target is a container name for docker or a host for ssh.
	Target string
	// Command is the fully rendered command string.
	Command string
	// User is a literal user, a UID directive (see ParseUIDDirective), or empty.
	User string
	// Shell and ShellFlag wrap Command, e.g. "sh" "-c".
	Shell      string
	ShellFlag  string
	WorkingDir string
	// Project is the expected owner project label; empty means the configured default.
	Project string
	// Timeout bounds the process; zero uses the runner default.
	Timeout time.Duration
}

// Backend executes a Request and returns its combined output.
type Backend interface {
	Name() string
	Execute(ctx context.Context, req Request) (string, error)
}

const (
	defaultShell     = "sh"
	defaultShellFlag = "-c"
)

func shellOf(req Request) (string, string) {
	shell, flag := req.Shell, req.ShellFlag
	if shell == "" {
		shell = defaultShell
	}
	if flag == "" {
		flag = defaultShellFlag
	}
	return shell, flag
}
