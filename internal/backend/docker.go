package backend

import (
	"context"
	"strings"

	"github.com/bobmcallan/toolgate/internal/cache"
	"github.com/bobmcallan/toolgate/internal/common"
	apperrors "github.com/bobmcallan/toolgate/internal/errors"
)

const (
	// UIDDirective asks the backend to run as the owner of a path inside the
	// target: "auto_uid" or "auto_uid:/some/path".
	UIDDirective = "auto_uid"
	// WildcardProject disables the ownership mismatch check.
	WildcardProject = "default-project"

	defaultDockerBinary = "docker"
	defaultLabelKey     = "com.docker.compose.project"
	defaultFallbackUser = "www-data"
	defaultUIDPath      = "/var/www/html"
	superUser           = "root"
)

// DockerConfig configures DockerBackend.
type DockerConfig struct {
	// Binary is the docker CLI, default "docker".
	Binary string
	// Group, when set, wraps every docker invocation as `sg <group> -c "<cmd>"`
	// so the gateway can reach the daemon without running in the docker group.
	Group string
	// LabelKey is the container label holding the owning project.
	LabelKey string
	// DefaultProject is used when a request names no project.
	DefaultProject string
	// FallbackUser is returned when UID resolution fails.
	FallbackUser string
	// DefaultUIDPath is the path whose owner auto_uid resolves to.
	DefaultUIDPath string
}

func (c DockerConfig) withDefaults() DockerConfig {
	if c.Binary == "" {
		c.Binary = defaultDockerBinary
	}
	if c.LabelKey == "" {
		c.LabelKey = defaultLabelKey
	}
	if c.DefaultProject == "" {
		c.DefaultProject = WildcardProject
	}
	if c.FallbackUser == "" {
		c.FallbackUser = defaultFallbackUser
	}
	if c.DefaultUIDPath == "" {
		c.DefaultUIDPath = defaultUIDPath
	}
	return c
}

// DockerBackend executes commands inside existing containers with docker exec.
// Container ownership and resolved UIDs are memoized in caches shared by all
// executors for the process lifetime.
type DockerBackend struct {
	cfg       DockerConfig
	runner    Runner
	ownership *cache.Store[bool]
	uids      *cache.Store[string]
	logger    *common.Logger
}

// NewDockerBackend creates a docker backend. The caches are injected so their
// sharing scope is explicit; pass fresh stores in tests.
func NewDockerBackend(cfg DockerConfig, runner Runner, ownership *cache.Store[bool], uids *cache.Store[string], logger *common.Logger) *DockerBackend {
	if ownership == nil {
		ownership = cache.New[bool]()
	}
	if uids == nil {
		uids = cache.New[string]()
	}
	return &DockerBackend{
		cfg:       cfg.withDefaults(),
		runner:    runner,
		ownership: ownership,
		uids:      uids,
		logger:    logger,
	}
}

// Name returns "docker".
func (b *DockerBackend) Name() string { return "docker" }

// Execute validates ownership of the target, resolves the effective user and
// runs the command through the target's shell.
func (b *DockerBackend) Execute(ctx context.Context, req Request) (string, error) {
	if req.Target == "" {
		return "", apperrors.New(apperrors.CodeExecution, "docker backend requires a target container")
	}

	if err := b.ValidateOwnership(ctx, req.Target, req.Project); err != nil {
		return "", err
	}

	user := b.ResolveUser(ctx, req.Target, req.User)

	shell, flag := shellOf(req)
	argv := []string{b.cfg.Binary, "exec"}
	if user != "" {
		argv = append(argv, "-u", user)
	}
	if req.WorkingDir != "" {
		argv = append(argv, "-w", req.WorkingDir)
	}
	argv = append(argv, req.Target, shell, flag, req.Command)

	common.LoggerFrom(ctx, b.logger).Debug().
		Str("target", req.Target).
		Str("user", user).
		Str("command", req.Command).
		Msg("docker exec")

	out, err := b.runner.Run(ctx, req.Timeout, b.wrap(argv)...)
	if err != nil {
		return string(out), err
	}
	return string(out), nil
}

// ParseUIDDirective reports whether user is an auto_uid directive and returns
// the path whose owner should be used.
func ParseUIDDirective(user, defaultPath string) (string, bool) {
	if user == UIDDirective {
		return defaultPath, true
	}
	if path, ok := strings.CutPrefix(user, UIDDirective+":"); ok {
		if path == "" {
			path = defaultPath
		}
		return path, true
	}
	return "", false
}

// ResolveUser turns a user spec into the identity passed to docker exec -u.
// Directives are resolved to the numeric owner of the path inside the target.
// Resolution never fails: any error yields the fallback user, which is cached
// like a successful lookup.
//
// The stat runs detached from the caller's cancellation, bounded by the
// runner timeout: its result is shared with every concurrent caller and
// cached, so one caller going away must not decide it.
func (b *DockerBackend) ResolveUser(ctx context.Context, target, user string) string {
	path, ok := ParseUIDDirective(user, b.cfg.DefaultUIDPath)
	if !ok {
		return user
	}

	return b.uids.Resolve(cache.MakeKey(target, path), func() (string, bool) {
		statCtx := context.WithoutCancel(ctx)
		argv := []string{b.cfg.Binary, "exec", "-u", superUser, target, "stat", "-c", "%u", path}
		out, err := b.runner.Run(statCtx, 0, b.wrap(argv)...)
		uid := strings.TrimSpace(string(out))
		if err != nil || !isNumeric(uid) {
			common.LoggerFrom(ctx, b.logger).Warn().
				Str("target", target).
				Str("path", path).
				Str("fallback", b.cfg.FallbackUser).
				Str("error", errString(err, uid)).
				Msg("uid resolution failed, using fallback user")
			return b.cfg.FallbackUser, true
		}
		common.LoggerFrom(ctx, b.logger).Debug().Str("target", target).Str("path", path).Str("uid", uid).Msg("resolved uid")
		return uid, true
	})
}

// ValidateOwnership checks that target carries the expected project label.
// Only an explicit mismatch fails; a failed lookup is logged and allowed so
// that a missing or restarting container does not block dispatch. Successful
// validations are cached per (target, project).
func (b *DockerBackend) ValidateOwnership(ctx context.Context, target, project string) error {
	if project == "" {
		project = b.cfg.DefaultProject
	}
	if project == WildcardProject {
		return nil
	}

	_, err := b.ownership.ResolveErr(cache.MakeKey(target, project), func() (bool, bool, error) {
		declared, err := b.inspectProject(ctx, target)
		if err != nil {
			common.LoggerFrom(ctx, b.logger).Warn().
				Str("target", target).
				Str("project", project).
				Err(err).
				Msg("ownership check failed, proceeding")
			return false, false, nil
		}
		if declared == "" {
			common.LoggerFrom(ctx, b.logger).Warn().
				Str("target", target).
				Str("label", b.cfg.LabelKey).
				Msg("target declares no project label, proceeding")
			return false, false, nil
		}
		if declared != project {
			return false, false, apperrors.Newf(apperrors.CodeOwnershipMismatch,
				"container %s belongs to project %q, expected %q", target, declared, project)
		}
		return true, true, nil
	})
	return err
}

func (b *DockerBackend) inspectProject(ctx context.Context, target string) (string, error) {
	format := `{{ index .Config.Labels "` + b.cfg.LabelKey + `" }}`
	argv := []string{b.cfg.Binary, "inspect", "--format", format, target}
	out, err := b.runner.Run(ctx, 0, b.wrap(argv)...)
	if err != nil {
		return "", err
	}
	declared := strings.TrimSpace(string(out))
	if declared == "<no value>" {
		declared = ""
	}
	return declared, nil
}

// wrap applies the privilege-activation wrapper when a group is configured.
func (b *DockerBackend) wrap(argv []string) []string {
	if b.cfg.Group == "" {
		return argv
	}
	return []string{"sg", b.cfg.Group, "-c", JoinArgs(argv)}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func errString(err error, out string) string {
	if err != nil {
		return err.Error()
	}
	return "unexpected stat output: " + out
}
