package backend

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	apperrors "github.com/bobmcallan/toolgate/internal/errors"
)

const (
	// DefaultTimeout bounds every spawned process unless overridden.
	DefaultTimeout = 120 * time.Second
	// DefaultMaxOutputBytes caps captured stdout+stderr.
	DefaultMaxOutputBytes int64 = 10 << 20
)

// Runner spawns a local process and returns its combined output.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, argv ...string) ([]byte, error)
}

// ExecRunner runs processes with os/exec, enforcing a wall-clock timeout and
// an output cap. The whole process group is killed on timeout or overflow.
type ExecRunner struct {
	Timeout        time.Duration
	MaxOutputBytes int64
}

// NewExecRunner creates an ExecRunner; zero values select the defaults.
func NewExecRunner(timeout time.Duration, maxOutputBytes int64) *ExecRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxOutputBytes <= 0 {
		maxOutputBytes = DefaultMaxOutputBytes
	}
	return &ExecRunner{Timeout: timeout, MaxOutputBytes: maxOutputBytes}
}

// Run executes argv. Failures carry execution, execution_timeout or
// output_too_large codes.
func (r *ExecRunner) Run(ctx context.Context, timeout time.Duration, argv ...string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, apperrors.New(apperrors.CodeExecution, "empty command")
	}
	if timeout <= 0 {
		timeout = r.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limit := r.MaxOutputBytes
	if limit <= 0 {
		limit = DefaultMaxOutputBytes
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	configureProcessGroup(cmd)
	cmd.WaitDelay = 2 * time.Second

	out := &cappedBuffer{limit: limit, onOverflow: cancel}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()

	switch {
	case out.overflow:
		return out.Bytes(), apperrors.Newf(apperrors.CodeOutputTooLarge,
			"output exceeded %d bytes", limit)
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		if deadline, ok := runCtx.Deadline(); ok && ctx.Err() != nil {
			return out.Bytes(), apperrors.Newf(apperrors.CodeExecutionTimeout,
				"command timed out at caller deadline %s", deadline.Format(time.RFC3339))
		}
		return out.Bytes(), apperrors.Newf(apperrors.CodeExecutionTimeout,
			"command timed out after %s", timeout)
	case ctx.Err() != nil:
		return out.Bytes(), apperrors.Wrap(apperrors.CodeExecution, "command canceled", ctx.Err())
	case err != nil:
		msg := strings.TrimSpace(string(out.Bytes()))
		if msg == "" {
			msg = fmt.Sprintf("%s failed", argv[0])
		}
		return out.Bytes(), apperrors.Wrap(apperrors.CodeExecution, msg, err)
	}
	return out.Bytes(), nil
}

// cappedBuffer collects output up to limit bytes. Writing past the limit
// marks the buffer as overflowed and triggers onOverflow once.
type cappedBuffer struct {
	buf        []byte
	limit      int64
	overflow   bool
	onOverflow func()
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.overflow {
		return 0, errOutputLimit
	}
	remaining := b.limit - int64(len(b.buf))
	if int64(len(p)) > remaining {
		b.buf = append(b.buf, p[:remaining]...)
		b.overflow = true
		if b.onOverflow != nil {
			b.onOverflow()
		}
		return int(remaining), errOutputLimit
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte {
	return b.buf
}

var errOutputLimit = errors.New("output limit reached")
