package backend

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strconv"

	"github.com/bobmcallan/toolgate/internal/common"
	apperrors "github.com/bobmcallan/toolgate/internal/errors"
)

const (
	defaultSSHBinary         = "ssh"
	defaultSSHConnectTimeout = 10
)

// SSHConfig configures SSHBackend.
type SSHConfig struct {
	// Binary is the ssh client, default "ssh".
	Binary string
	// DefaultUser is used when a request names no user.
	DefaultUser string
	// ConnectTimeout in seconds, default 10.
	ConnectTimeout int
}

// SSHBackend runs commands on remote hosts through the ssh client.
//
// Host key verification is disabled: targets are ephemeral development hosts
// whose keys change on every rebuild. Do not point this backend at hosts
// where a man-in-the-middle matters.
type SSHBackend struct {
	cfg    SSHConfig
	runner Runner
	logger *common.Logger
	// currentUser is swapped in tests.
	currentUser func() string
}

// NewSSHBackend creates an ssh backend.
func NewSSHBackend(cfg SSHConfig, runner Runner, logger *common.Logger) *SSHBackend {
	if cfg.Binary == "" {
		cfg.Binary = defaultSSHBinary
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultSSHConnectTimeout
	}
	return &SSHBackend{
		cfg:         cfg,
		runner:      runner,
		logger:      logger,
		currentUser: processUser,
	}
}

// Name returns "ssh".
func (b *SSHBackend) Name() string { return "ssh" }

// Execute runs req.Command on req.Target as the resolved user.
func (b *SSHBackend) Execute(ctx context.Context, req Request) (string, error) {
	if req.Target == "" {
		return "", apperrors.New(apperrors.CodeExecution, "ssh backend requires a target host")
	}

	login := b.ResolveUser(req.User)
	dest := req.Target
	if login != "" {
		dest = login + "@" + req.Target
	}

	argv := []string{
		b.cfg.Binary,
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "BatchMode=yes",
		"-o", "ConnectTimeout=" + strconv.Itoa(b.cfg.ConnectTimeout),
		"-o", "LogLevel=ERROR",
		dest,
		RemoteCommand(req),
	}

	common.LoggerFrom(ctx, b.logger).Debug().
		Str("host", req.Target).
		Str("user", login).
		Str("command", req.Command).
		Msg("ssh exec")

	out, err := b.runner.Run(ctx, req.Timeout, argv...)
	return string(out), err
}

// ResolveUser picks the login: explicit, configured default, then the
// identity of the gateway process.
func (b *SSHBackend) ResolveUser(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if b.cfg.DefaultUser != "" {
		return b.cfg.DefaultUser
	}
	return b.currentUser()
}

// RemoteCommand renders the string handed to the remote login shell:
// an optional cd followed by the command run through the requested shell.
func RemoteCommand(req Request) string {
	shell, flag := shellOf(req)
	cmd := fmt.Sprintf("%s %s %s", shell, flag, ShellQuote(req.Command))
	if req.WorkingDir != "" {
		cmd = "cd " + ShellQuote(req.WorkingDir) + " && " + cmd
	}
	return cmd
}

func processUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
