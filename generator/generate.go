package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/takumakei/fbs-gen-go/execpipe"
	"github.com/takumakei/fbs-gen-go/flatc"
	"github.com/takumakei/fbs-gen-go/kotlinpost"
	"github.com/takumakei/fbs-gen-go/schemafs"
)

// ErrNoSchema is returned when the schema directory holds no schema file.
var ErrNoSchema = errors.New("no schema files found")

// Generator runs the schema compiler for each target and post-processes its
// output.
type Generator struct {
	Options Options
	Logger  *slog.Logger

	// Stdout receives the output of the external tools.
	Stdout io.Writer

	// Run starts external tools; nil means execpipe.Run.
	Run flatc.Runner
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return g.Logger
}

func (g *Generator) compiler() *flatc.Compiler {
	return &flatc.Compiler{Path: g.Options.Flatc, Stdout: g.Stdout, Run: g.Run}
}

func (g *Generator) run(ctx context.Context, name string, args ...string) error {
	run := g.Run
	if run == nil {
		run = execpipe.Run
	}
	return run(ctx, g.Stdout, nil, name, args...)
}

func (g *Generator) kotlinDir() string {
	o := g.Options.PostOptions()
	return filepath.Join(g.Options.Kotlin.Out, o.SourceDir())
}

func (g *Generator) aliasPath() string {
	return filepath.Join(g.Options.Kotlin.AliasDir, g.Options.Kotlin.AliasFile)
}

func (g *Generator) files() ([]string, error) {
	files, err := schemafs.Find(g.Options.SchemaDir, g.Options.SchemaExt)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSchema, g.Options.SchemaDir)
	}
	return files, nil
}

// Plan returns the steps Generate would take without running anything.
func (g *Generator) Plan() (*Plan, error) {
	targets, err := g.Options.ParseTargets()
	if err != nil {
		return nil, err
	}
	files, err := g.files()
	if err != nil {
		return nil, err
	}
	c := g.compiler()
	plan := &Plan{Files: files}
	for _, target := range targets {
		out := g.Options.Out(target)
		line, err := c.Command(target, out, files)
		if err != nil {
			return nil, err
		}
		step := Step{Target: target, Out: out, Command: line}
		switch target {
		case flatc.Kotlin:
			step.After = []string{
				"rewrite " + g.kotlinDir(),
				"write " + g.aliasPath(),
			}
		case flatc.Cpp:
			if g.Options.Cpp.Format {
				// formatCpp formats every header below out, not only the top level.
				step.After = []string{execpipe.CommandLine("find", out, "-type", "f", "-name", "*.h",
					"-exec", g.Options.Cpp.ClangFormat, "-i", "{}", "+")}
			}
		}
		plan.Steps = append(plan.Steps, step)
	}
	return plan, nil
}

// Generate enumerates the schema files, compiles them for every selected
// target in turn, and post-processes the output.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	log := g.logger()
	targets, err := g.Options.ParseTargets()
	if err != nil {
		return nil, err
	}
	files, err := g.files()
	if err != nil {
		return nil, err
	}
	log.Debug("schema files", "dir", g.Options.SchemaDir, "count", len(files))

	report := &Report{Files: files}
	c := g.compiler()
	for _, target := range targets {
		out := g.Options.Out(target)
		log.Info("compiling", "target", target, "out", out, "files", len(files))
		if err := c.Compile(ctx, target, out, files); err != nil {
			if err := g.skip(report, err); err != nil {
				return report, err
			}
		} else {
			report.Compiled = append(report.Compiled, target)
		}

		switch target {
		case flatc.Kotlin:
			err = g.postKotlin(report)
		case flatc.Cpp:
			err = g.formatCpp(ctx, report)
		}
		if err != nil {
			if err := g.skip(report, err); err != nil {
				return report, err
			}
		}
	}
	return report, nil
}

// skip records err when KeepGoing is set and returns it otherwise.
func (g *Generator) skip(report *Report, err error) error {
	if !g.Options.KeepGoing {
		return err
	}
	g.logger().Warn("step failed, continuing", "error", err)
	report.Failures = append(report.Failures, err)
	return nil
}

func (g *Generator) postKotlin(report *Report) error {
	log := g.logger()
	opts := g.Options.PostOptions()
	dir := g.kotlinDir()
	result, err := kotlinpost.ProcessDir(dir, opts)
	if err != nil {
		return fmt.Errorf("kotlin post-processing: %w", err)
	}
	report.Kotlin = result
	for _, path := range result.Rewritten {
		log.Debug("rewritten", "file", path)
	}
	log.Info("kotlin post-processed", "dir", dir, "classes", len(result.Classes),
		"rewritten", len(result.Rewritten), "unchanged", len(result.Unchanged))

	path, err := kotlinpost.WriteAlias(g.Options.Kotlin.AliasDir, opts, result.Classes)
	if err != nil {
		return fmt.Errorf("kotlin alias: %w", err)
	}
	report.Alias = path
	log.Info("alias written", "file", path)
	return nil
}

func (g *Generator) formatCpp(ctx context.Context, report *Report) error {
	if !g.Options.Cpp.Format {
		return nil
	}
	out := g.Options.Cpp.Out
	headers, err := schemafs.Find(out, ".h")
	if err != nil {
		return err
	}
	if len(headers) == 0 {
		return nil
	}
	args := append([]string{"-i"}, headers...)
	if err := g.run(ctx, g.Options.Cpp.ClangFormat, args...); err != nil {
		return fmt.Errorf("cpp format: %w", err)
	}
	report.Formatted = headers
	g.logger().Info("formatted", "files", len(headers))
	return nil
}
