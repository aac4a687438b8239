// Package formatter runs the external formatter once over a whole batch.
package formatter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"fencefmt/internal/trace"
)

// DefaultCommand is the formatter used when none is configured.
const DefaultCommand = "rustfmt"

// DefaultArgs precede the request argument on the formatter command line.
var DefaultArgs = []string{"--file-lines"}

// ErrNotFound reports that the formatter is not on PATH.
var ErrNotFound = errors.New("formatter not found in PATH")

// Tool describes how to invoke the formatter.
type Tool struct {
	Command string
	Args    []string // placed before the request argument
	Dir     string   // working directory; empty means the current one
}

// DefaultTool returns the rustfmt --file-lines invocation.
func DefaultTool() Tool {
	return Tool{Command: DefaultCommand, Args: append([]string(nil), DefaultArgs...)}
}

// String renders the command line without the request argument.
func (t Tool) String() string {
	parts := append([]string{t.Command}, t.Args...)
	return strings.Join(parts, " ")
}

// Result holds the captured output of a finished formatter process.
type Result struct {
	Command  string
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Elapsed  time.Duration
}

// ExitError is returned when the formatter exits with a non-zero status.
type ExitError struct {
	Command string
	Code    int
	Stdout  []byte
	Stderr  []byte
	Err     error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
	if line := firstLine(e.Stderr); line != "" {
		msg += ": " + line
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Run invokes tool once with request as its final argument. Stdin is the null
// device; stdout and stderr are captured and returned after the process exits.
// There is no timeout: Run blocks until the formatter terminates or ctx is
// cancelled.
func Run(ctx context.Context, tool Tool, request []byte) (Result, error) {
	command := strings.TrimSpace(tool.Command)
	if command == "" {
		command = DefaultCommand
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return Result{Command: command}, fmt.Errorf("%s: %w", command, ErrNotFound)
	}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeStage, "formatter", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")
	span.WithExtra("command", command)
	span.WithExtra("request_bytes", fmt.Sprint(len(request)))

	args := make([]string, 0, len(tool.Args)+1)
	args = append(args, tool.Args...)
	args = append(args, string(request))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = tool.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	res := Result{
		Command: command,
		Stdout:  stdout.Bytes(),
		Stderr:  stderr.Bytes(),
		Elapsed: time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	span.WithExtra("exit_code", fmt.Sprint(res.ExitCode))

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return res, &ExitError{
				Command: command,
				Code:    exitErr.ExitCode(),
				Stdout:  res.Stdout,
				Stderr:  res.Stderr,
				Err:     runErr,
			}
		}
		return res, fmt.Errorf("%s: %w", command, runErr)
	}
	return res, nil
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
