// Package git drives a local git working tree by shelling out to the git
// binary. Every invocation captures stdout and stderr and surfaces failures
// as typed errors so callers can branch on anticipated recoverable cases
// instead of string-matching output.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Runner runs git commands in a local working tree.
type Runner struct {
	gitPath string
	dir     string
	logger  zerolog.Logger
}

// NewRunner returns a Runner for the working tree at dir.
func NewRunner(dir string, logger zerolog.Logger) (*Runner, error) {
	p, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("no 'git' program on path: %w", err)
	}
	return &Runner{gitPath: p, dir: dir, logger: logger}, nil
}

// Dir returns the working tree directory of the runner.
func (r *Runner) Dir() string {
	return r.dir
}

// RunResult contains the captured output of a git command.
type RunResult struct {
	Stdout string
	Stderr string
}

// Run runs a git command. Omit the 'git' part of the command.
func (r *Runner) Run(ctx context.Context, args ...string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, r.gitPath, args...)
	cmd.Dir = r.dir
	cmd.Env = os.Environ()

	cmdStdout := &bytes.Buffer{}
	cmdStderr := &bytes.Buffer{}
	cmd.Stdout = cmdStdout
	cmd.Stderr = cmdStderr

	r.logger.Debug().Strs("args", args).Msg("executing git")

	err := cmd.Run()
	if err != nil {
		// ProcessState is nil when the command never started.
		exitCode := -1
		if cmd.ProcessState != nil {
			exitCode = cmd.ProcessState.ExitCode()
		}
		execErr := &ExecError{
			Args:     args,
			Err:      err,
			Stdout:   cmdStdout.String(),
			Stderr:   cmdStderr.String(),
			ExitCode: exitCode,
		}
		r.logger.Debug().Int("exit", execErr.ExitCode).Str("stderr", execErr.Stderr).Msg("git failed")
		return RunResult{}, execErr
	}
	return RunResult{
		Stdout: cmdStdout.String(),
		Stderr: cmdStderr.String(),
	}, nil
}

// ExecError is returned when a git command exits non-zero.
type ExecError struct {
	Args     []string
	Err      error
	Stdout   string
	Stderr   string
	ExitCode int
}

func (e *ExecError) Error() string {
	b := new(strings.Builder)
	b.WriteString("git ")
	b.WriteString(strings.Join(e.Args, " "))
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString(": ")
		b.WriteString(s)
	}
	return b.String()
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// ExitCode extracts the exit code from a git error, or -1 when err is not
// an ExecError.
func ExitCode(err error) int {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return execErr.ExitCode
	}
	return -1
}
