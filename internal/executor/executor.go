// Package executor runs the vendor CLIs (gh, glab, ssh) that back the
// code-hosting commands.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/dverbeek/agent-skills/internal/logger"
)

// installHints maps known binaries to a short install pointer shown
// when the binary is missing.
var installHints = map[string]string{
	"gh":   "install the GitHub CLI from https://cli.github.com",
	"glab": "install the GitLab CLI from https://gitlab.com/gitlab-org/cli",
	"ssh":  "install an OpenSSH client",
}

// NotFoundError indicates the backing CLI binary is not installed.
type NotFoundError struct {
	Binary string
}

func (e *NotFoundError) Error() string {
	if hint, ok := installHints[e.Binary]; ok {
		return fmt.Sprintf("%s not found in PATH; %s", e.Binary, hint)
	}
	return fmt.Sprintf("%s not found in PATH", e.Binary)
}

// IsNotFound reports whether err means the CLI binary is missing.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Result holds the outcome of one command run. ExitCode is non-zero
// when the command ran but failed.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Options tweaks a single run.
type Options struct {
	// Stdin is piped to the command when non-empty.
	Stdin string
	// Dir sets the working directory.
	Dir string
	// Env entries are appended to the current environment.
	Env []string
}

// Runner executes external commands. The zero value is ready to use.
type Runner struct{}

// Run executes binary with args and captures its output. It returns an
// error only when the command could not be run at all; a non-zero exit
// is reported through Result.ExitCode so callers can pass the vendor
// CLI's own error output through.
func (r *Runner) Run(ctx context.Context, binary string, args []string, opts Options) (*Result, error) {
	path := Which(binary)
	if path == "" {
		return nil, &NotFoundError{Binary: binary}
	}

	logger.Debugw("running command", "binary", binary, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, path, args...)
	if opts.Stdin != "" {
		cmd.Stdin = strings.NewReader(opts.Stdin)
	}
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("failed to run %s: %w", binary, err)
	}
	return result, nil
}

// Output runs binary with args and returns its stdout, turning a
// non-zero exit into an error built from the command's stderr.
func (r *Runner) Output(ctx context.Context, binary string, args []string, opts Options) (string, error) {
	result, err := r.Run(ctx, binary, args, opts)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		msg := strings.TrimSpace(result.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(result.Stdout)
		}
		if msg == "" {
			msg = fmt.Sprintf("exit status %d", result.ExitCode)
		}
		return "", fmt.Errorf("%s: %s", binary, msg)
	}
	return result.Stdout, nil
}
