package formatter

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"fencefmt/internal/testkit"
)

func TestRunPassesRequestAsLastArgument(t *testing.T) {
	ff := testkit.InstallFakeFormatter(t, "fakefmt", "formatted", "note", 0)
	request := []byte(`[{"file":"a.md","range":[2,3]}]`)

	res, err := Run(context.Background(), Tool{Command: "fakefmt", Args: []string{"--file-lines"}}, request)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"--file-lines", string(request)}, ff.Args(t)); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
	if string(res.Stdout) != "formatted" || string(res.Stderr) != "note" {
		t.Fatalf("captured stdout=%q stderr=%q", res.Stdout, res.Stderr)
	}
	if res.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0", res.ExitCode)
	}
	if got := ff.Stdin(t); got != "" {
		t.Fatalf("formatter read %q from stdin, want nothing", got)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	testkit.InstallFakeFormatter(t, "fakefmt", "", "error: bad range\nmore detail", 3)

	res, err := Run(context.Background(), Tool{Command: "fakefmt"}, []byte("[]"))
	if err == nil {
		t.Fatalf("expected error for non-zero exit")
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != 3 {
		t.Fatalf("Code = %d, want 3", exitErr.Code)
	}
	if !strings.Contains(string(exitErr.Stderr), "bad range") {
		t.Fatalf("Stderr = %q, want captured stderr", exitErr.Stderr)
	}
	if !strings.Contains(err.Error(), "exited with status 3: error: bad range") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	var execErr *exec.ExitError
	if !errors.As(err, &execErr) {
		t.Fatalf("ExitError should unwrap to *exec.ExitError")
	}
	if res.ExitCode != 3 {
		t.Fatalf("Result.ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestRunMissingCommand(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := Run(context.Background(), Tool{Command: "definitely-not-a-formatter"}, []byte("[]"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDefaultTool(t *testing.T) {
	tool := DefaultTool()
	if tool.String() != "rustfmt --file-lines" {
		t.Fatalf("DefaultTool() = %q", tool.String())
	}
	tool.Args[0] = "--changed"
	if DefaultArgs[0] != "--file-lines" {
		t.Fatalf("DefaultTool shares its args slice with DefaultArgs")
	}
}
