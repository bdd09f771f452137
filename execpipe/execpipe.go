// Package execpipe runs external tools such as the schema compiler.
package execpipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/goaux/stacktrace/v2"
)

// CheckPath checks if the given executable can be resolved.
// A name containing a path separator is checked as a path, anything else is
// searched for in the system's PATH.
func CheckPath(executable string) error {
	_, err := stacktrace.Trace2(exec.LookPath(executable))
	return err
}

// Run executes an external command with the given arguments.
//
// The command reads its stdin from r, which may be nil, and its stdout is
// copied to w, which may also be nil to discard it. Stderr is captured and
// included in the returned error when the command fails. Cancelling ctx kills
// the process.
func Run(ctx context.Context, w io.Writer, r io.Reader, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = r
	if w == nil {
		w = io.Discard
	}
	cmd.Stdout = w
	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr
	if err := stacktrace.Trace(cmd.Run()); err != nil {
		return &Error{Name: name, Args: args, Stderr: stderr.String(), Err: err}
	}
	return nil
}

// Error is returned by [Run] when the command could not be started or exited
// with a non-zero status.
type Error struct {
	Name   string
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s, cause=%v, stderr=%q", e.Name, e.Err, strings.TrimSpace(e.Stderr))
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode reports the exit status of the failed command, or -1 if it never
// ran to completion.
func (e *Error) ExitCode() int {
	var ee *exec.ExitError
	if errors.As(e.Err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// CommandLine renders name and args the way a shell user would type them.
func CommandLine(name string, args ...string) string {
	var b strings.Builder
	b.WriteString(quote(name))
	for _, v := range args {
		b.WriteByte(' ')
		b.WriteString(quote(v))
	}
	return b.String()
}

func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`*?[]{}()<>|&;#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
