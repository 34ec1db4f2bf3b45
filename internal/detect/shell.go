package detect

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"time"
)

var ErrCommandTimeout = errors.New("detect: command timed out")

type CommandResult struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// CommandRunner executes a shell command line. A non-zero exit is reported in
// the result, not as an error; errors mean the command could not run to completion.
type CommandRunner interface {
	Run(ctx context.Context, command string) (*CommandResult, error)
}

// ShellRunner runs commands through the platform shell.
type ShellRunner struct {
	// WaitDelay bounds how long Run waits for output pipes after the process is killed.
	WaitDelay time.Duration
}

func shellArgs(command string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", command}
	}
	return "sh", []string{"-c", command}
}

func (r ShellRunner) Run(ctx context.Context, command string) (*CommandResult, error) {
	name, args := shellArgs(command)
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = time.Second
	}

	start := time.Now()
	err := cmd.Run()
	result := &CommandResult{
		Output:   out.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			result.ExitCode = -1
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return result, ErrCommandTimeout
			}
			return result, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		result.ExitCode = -1
		return result, err
	}
	return result, nil
}
