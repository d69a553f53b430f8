package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"nomnomhub/internal/pkg"
)

// DefaultTimeout bounds a blocking editor run when no timeout is configured
const DefaultTimeout = 10 * time.Minute

// Runner starts editor processes
type Runner interface {
	// Run blocks until the process exits
	Run(ctx context.Context, exe string, args ...string) error
	// Start launches the process and returns without waiting
	Start(exe string, args ...string) error
}

// ProcessRunner runs real processes through os/exec
type ProcessRunner struct {
	Timeout time.Duration
}

// NewProcessRunner creates a runner; a zero timeout means DefaultTimeout
func NewProcessRunner(timeout time.Duration) *ProcessRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ProcessRunner{Timeout: timeout}
}

func (r *ProcessRunner) Run(ctx context.Context, exe string, args ...string) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		hubErr := pkg.NewError(pkg.ErrExternalProcess, fmt.Sprintf("%s: %v", exe, err)).
			With("args", strings.Join(args, " "))
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			hubErr.With("stderr", msg)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			hubErr.Message = fmt.Sprintf("%s: timed out after %s", exe, timeout)
		}
		return hubErr
	}
	return nil
}

func (r *ProcessRunner) Start(exe string, args ...string) error {
	cmd := exec.Command(exe, args...)
	if err := cmd.Start(); err != nil {
		return pkg.NewError(pkg.ErrExternalProcess, fmt.Sprintf("%s: %v", exe, err))
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// CreateProject asks the editor to create an empty project at projectPath and
// waits for it to quit
func CreateProject(ctx context.Context, runner Runner, install Install, projectPath string) error {
	return runner.Run(ctx, install.ExePath, "-createProject", projectPath, "-quit")
}

// OpenProject launches the editor on an existing project
func OpenProject(runner Runner, install Install, projectPath string) error {
	return runner.Start(install.ExePath, "-projectPath", strings.ReplaceAll(projectPath, "\\", "/"))
}

// Open launches the editor with arbitrary arguments
func Open(runner Runner, install Install, args ...string) error {
	return runner.Start(install.ExePath, args...)
}
