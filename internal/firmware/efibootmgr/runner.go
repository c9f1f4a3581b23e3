package efibootmgr

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

const (
	// DefaultCommand is the boot manager binary this package drives.
	DefaultCommand = "efibootmgr"

	// DefaultTimeout bounds a single invocation. A call that exceeds it
	// fails and is never retried: repeating privileged firmware writes
	// automatically is unsafe.
	DefaultTimeout = 10 * time.Second
)

// Runner invokes the firmware boot manager tool and returns its output.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExecRunner shells out to the efibootmgr binary. Every invocation with
// mutating arguments is live; there is no dry-run mode.
type ExecRunner struct {
	Command string
	Timeout time.Duration
	Log     logr.Logger
}

func (r *ExecRunner) command() string {
	if r.Command == "" {
		return DefaultCommand
	}
	return r.Command
}

func (r *ExecRunner) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

// CheckAvailable verifies the binary can be found in PATH.
func (r *ExecRunner) CheckAvailable() error {
	if _, err := exec.LookPath(r.command()); err != nil {
		return Wrapf(err, "%s is not installed or not in PATH", r.command())
	}
	return nil
}

// Run executes the tool with the given arguments. A timeout, launch failure,
// non-zero exit, or empty standard output all fail as operational errors.
func (r *ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.command(), args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.Log.V(1).Info("invoking boot manager", "command", r.command(), "args", args)

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", Errorf("%s timed out after %s", r.command(), r.timeout())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = "no error output"
			}
			return "", Errorf("%s exited with status %d: %s", r.command(), exitErr.ExitCode(), msg)
		}
		return "", Wrapf(err, "running %s", r.command())
	}
	if strings.TrimSpace(stdout.String()) == "" {
		return "", Errorf("%s produced no output", r.command())
	}
	return stdout.String(), nil
}

// SetOrder writes order as the firmware boot order. This is the single
// irreversible external mutation this package performs.
func SetOrder(ctx context.Context, r Runner, order Order) error {
	if len(order) == 0 {
		return Errorf("refusing to set an empty boot order")
	}
	_, err := r.Run(ctx, "-o", order.String())
	return err
}
