package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Policy decides what a failed git invocation turns into.
type Policy int

const (
	// FailHard returns a *CommandError for timeouts, non-zero exits and a
	// missing binary.
	FailHard Policy = iota
	// ReturnEmptyOnFailure logs the failure and returns empty output with a
	// nil error so the scan continues with partial data.
	ReturnEmptyOnFailure
)

func (p Policy) String() string {
	switch p {
	case FailHard:
		return "fail-hard"
	case ReturnEmptyOnFailure:
		return "return-empty-on-failure"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// Call is one git invocation.
type Call struct {
	Dir     string
	Args    []string
	Timeout time.Duration
	Policy  Policy
}

// CommandError describes a failed invocation.
type CommandError struct {
	Args     []string
	ExitCode int // -1 when the process never ran or was killed
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// waitDelay bounds how long Run keeps reading output after git itself has
// exited or been killed, in case forked helpers still hold the pipes.
const waitDelay = 2 * time.Second

// Runner executes the git binary.
type Runner struct {
	GitPath string
	Log     *zap.SugaredLogger
}

// NewRunner returns a Runner for the given binary, "git" when empty.
func NewRunner(gitPath string, log *zap.SugaredLogger) *Runner {
	if gitPath == "" {
		gitPath = "git"
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Runner{GitPath: gitPath, Log: log}
}

// Run executes the call and returns stdout.
func (r *Runner) Run(ctx context.Context, c Call) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.GitPath, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(err, exec.ErrWaitDelay) {
		r.Log.Debugw("git exited but a helper kept its output open", "args", c.Args)
		err = nil
	}
	if err == nil {
		return stdout.String(), nil
	}

	cerr := &CommandError{Args: c.Args, ExitCode: -1, Stderr: stderr.String(), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		cerr.Err = fmt.Errorf("%w after %s", ctxErr, c.Timeout)
	}

	if c.Policy == ReturnEmptyOnFailure {
		r.Log.Warnw("git command failed, continuing with empty output",
			"args", c.Args, "exit_code", cerr.ExitCode, "error", cerr.Err, "stderr", strings.TrimSpace(cerr.Stderr))
		return "", nil
	}
	return "", cerr
}
