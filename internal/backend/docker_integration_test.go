//go:build integration

package backend

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"

	"github.com/bobmcallan/toolgate/internal/cache"
	"github.com/bobmcallan/toolgate/internal/common"
	apperrors "github.com/bobmcallan/toolgate/internal/errors"
)

// startTarget runs a long-lived alpine container labelled as belonging to
// project and returns its ID.
func startTarget(t *testing.T, project string) string {
	t.Helper()

	ctx := context.Background()
	c, err := testcontainers.Run(ctx, "alpine:3.20",
		testcontainers.WithCmd("sleep", "300"),
		testcontainers.WithLabels(map[string]string{defaultLabelKey: project}),
	)
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		c.Terminate(cleanupCtx)
	})
	return c.GetContainerID()
}

func newIntegrationBackend(project string) *DockerBackend {
	return NewDockerBackend(DockerConfig{DefaultProject: project},
		NewExecRunner(30*time.Second, 0), cache.New[bool](), cache.New[string](), common.NewSilentLogger())
}

func TestDockerBackend_Integration_Exec(t *testing.T) {
	id := startTarget(t, "shop")
	b := newIntegrationBackend("shop")

	out, err := b.Execute(context.Background(), Request{Target: id, Command: "echo hello && id -u"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	lines := strings.Fields(out)
	if len(lines) != 2 || lines[0] != "hello" || lines[1] != "0" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestDockerBackend_Integration_WorkingDirAndUser(t *testing.T) {
	id := startTarget(t, "shop")
	b := newIntegrationBackend("shop")

	out, err := b.Execute(context.Background(), Request{Target: id, Command: "pwd; id -un", WorkingDir: "/tmp", User: "nobody"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := strings.Fields(out); len(got) != 2 || got[0] != "/tmp" || got[1] != "nobody" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestDockerBackend_Integration_AutoUID(t *testing.T) {
	id := startTarget(t, "shop")
	b := newIntegrationBackend("shop")

	// /tmp is owned by root in alpine.
	if got := b.ResolveUser(context.Background(), id, "auto_uid:/tmp"); got != "0" {
		t.Errorf("expected uid 0, got %q", got)
	}
	if got := b.ResolveUser(context.Background(), id, "auto_uid:/does/not/exist"); got != defaultFallbackUser {
		t.Errorf("expected fallback user, got %q", got)
	}
}

func TestDockerBackend_Integration_OwnershipMismatch(t *testing.T) {
	id := startTarget(t, "other")
	b := newIntegrationBackend("shop")

	_, err := b.Execute(context.Background(), Request{Target: id, Command: "true"})
	if apperrors.CodeOf(err) != apperrors.CodeOwnershipMismatch {
		t.Fatalf("expected ownership mismatch, got %v", err)
	}
}

func TestDockerBackend_Integration_NonZeroExit(t *testing.T) {
	id := startTarget(t, "shop")
	b := newIntegrationBackend("shop")

	_, err := b.Execute(context.Background(), Request{Target: id, Command: "echo oops >&2; exit 3"})
	if apperrors.CodeOf(err) != apperrors.CodeExecution {
		t.Fatalf("expected execution error, got %v", err)
	}
}
