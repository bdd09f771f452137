// Package flatc drives the FlatBuffers schema compiler.
//
// The compiler is treated as an opaque external tool: it is given a list of
// schema files and an output directory, and writes the generated bindings
// there. This package only knows the command line contract for each target
// language.
package flatc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/takumakei/fbs-gen-go/execpipe"
)

// Target is a language the compiler generates bindings for.
type Target int

const (
	Kotlin Target = iota + 1
	Cpp
)

// Targets lists every supported target in generation order.
var Targets = []Target{Kotlin, Cpp}

func (t Target) String() string {
	switch t {
	case Kotlin:
		return "kotlin"
	case Cpp:
		return "cpp"
	}
	return fmt.Sprintf("Target(%d)", int(t))
}

// ErrUnknownTarget is returned for a target the compiler contract does not
// cover.
var ErrUnknownTarget = errors.New("unknown target")

// ParseTarget parses the name of a target. "c++" is accepted as an alias of
// "cpp".
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kotlin", "kt":
		return Kotlin, nil
	case "cpp", "c++":
		return Cpp, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTarget, s)
}

// Args returns the compiler arguments that generate target bindings for files
// into out.
func Args(target Target, out string, files []string) ([]string, error) {
	var args []string
	switch target {
	case Kotlin:
		args = []string{"--kotlin", "--gen-mutable"}
	case Cpp:
		args = []string{"--cpp", "--cpp-std", "c++17", "--scoped-enums", "--no-emit-min-max-enum-values"}
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownTarget, target)
	}
	args = append(args, "-o", out)
	return append(args, files...), nil
}

// Runner executes an external command. [execpipe.Run] is the default.
type Runner func(ctx context.Context, w io.Writer, r io.Reader, name string, args ...string) error

// Compiler invokes the schema compiler found at Path.
type Compiler struct {
	Path string

	// Stdout receives the compiler's standard output. Nil discards it.
	Stdout io.Writer

	// Run overrides how the compiler process is started.
	Run Runner
}

// Command renders the command line that Compile would execute.
func (c *Compiler) Command(target Target, out string, files []string) (string, error) {
	args, err := Args(target, out, files)
	if err != nil {
		return "", err
	}
	return execpipe.CommandLine(c.Path, args...), nil
}

// Compile generates target bindings for files into out.
func (c *Compiler) Compile(ctx context.Context, target Target, out string, files []string) error {
	args, err := Args(target, out, files)
	if err != nil {
		return err
	}
	run := c.Run
	if run == nil {
		run = execpipe.Run
	}
	if err := run(ctx, c.Stdout, nil, c.Path, args...); err != nil {
		return fmt.Errorf("flatc %v: %w", target, err)
	}
	return nil
}
