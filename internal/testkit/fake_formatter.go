// Package testkit holds helpers shared by tests across packages.
package testkit

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// FakeFormatter is a shell script standing in for the external formatter.
// Every invocation writes its arguments, one per line, to ArgsFile and its
// stdin to StdinFile.
type FakeFormatter struct {
	Name      string
	Dir       string
	ArgsFile  string
	StdinFile string
}

// InstallFakeFormatter writes a formatter named name into a temp dir that is
// prepended to PATH for the rest of the test. The script prints stdout and
// stderr and exits with exitCode.
func InstallFakeFormatter(t *testing.T, name, stdout, stderr string, exitCode int) *FakeFormatter {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake formatter requires a POSIX shell")
	}
	dir := t.TempDir()
	ff := &FakeFormatter{
		Name:      name,
		Dir:       dir,
		ArgsFile:  filepath.Join(dir, "args.txt"),
		StdinFile: filepath.Join(dir, "stdin.txt"),
	}
	script := fmt.Sprintf(`#!/bin/sh
: > %[1]q
for arg in "$@"; do
	printf '%%s\n' "$arg" >> %[1]q
done
cat > %[2]q
printf '%%s' %[3]q
printf '%%s' %[4]q >&2
exit %[5]d
`, ff.ArgsFile, ff.StdinFile, stdout, stderr, exitCode)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake formatter: %v", err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return ff
}

// Args returns the arguments recorded by the last invocation.
func (f *FakeFormatter) Args(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(f.ArgsFile)
	if err != nil {
		t.Fatalf("formatter was not invoked: %v", err)
	}
	var args []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			args = append(args, string(data[start:i]))
			start = i + 1
		}
	}
	return args
}

// Invoked reports whether the formatter ran at least once.
func (f *FakeFormatter) Invoked() bool {
	_, err := os.Stat(f.ArgsFile)
	return err == nil
}

// Stdin returns what the last invocation read from stdin.
func (f *FakeFormatter) Stdin(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.StdinFile)
	if err != nil {
		t.Fatalf("read fake formatter stdin: %v", err)
	}
	return string(data)
}

// WriteTree creates files under root from a path → content map.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}
