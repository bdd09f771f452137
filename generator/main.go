// Package generator provides the command that compiles FlatBuffers schemas
// into Kotlin and C++ bindings and post-processes the generated sources.
package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/goaux/contextvalue"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/takumakei/fbs-gen-go/execpipe"
	"github.com/takumakei/fbs-gen-go/flatc"
)

// Main builds the command from config, executes it and exits with status 1
// on error.
func Main(ctx context.Context, config Config) {
	cmd := Command(config)
	ctx = contextvalue.With(ctx, &config)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err.Error())
		os.Exit(1)
	}
}

// Command returns the cobra command for config. The command expects config to
// be stored in its context with contextvalue.
func Command(config Config) *cobra.Command {
	flags = flagsType{}
	cmd := &cobra.Command{
		Use:     config.Use,
		Short:   config.Short,
		Long:    render(config.Long),
		Version: config.Version,
		Args:    cobra.MaximumNArgs(1),
		RunE:    run,

		ValidArgsFunction: validArgs,

		SilenceErrors: true,
		SilenceUsage:  true,
	}

	d := config.Defaults
	fl := cmd.Flags()
	fl.SortFlags = false
	fl.StringVarP(&flags.Config, "config", "c", config.ConfigFile, "Config `file.yaml`")
	fl.StringVarP(&flags.SchemaDir, "schema-dir", "s", d.SchemaDir, "Schema `directory`")
	fl.StringVar(&flags.SchemaExt, "ext", d.SchemaExt, "Schema file `extension` (default \".fbs\")")
	fl.StringVar(&flags.Flatc, "flatc", d.Flatc, "Schema compiler `executable`")
	fl.StringSliceVarP(&flags.Targets, "target", "t", d.Targets, "Target `languages` (kotlin, cpp)")
	fl.StringVar(&flags.KotlinOut, "kotlin-out", d.Kotlin.Out, "Kotlin output `directory`")
	fl.StringVar(&flags.KotlinAliasDir, "kotlin-alias-dir", d.Kotlin.AliasDir, "`directory` of the Kotlin alias file")
	fl.StringVar(&flags.CppOut, "cpp-out", d.Cpp.Out, "C++ output `directory`")
	fl.BoolVar(&flags.CppFormat, "format-cpp", d.Cpp.Format, "Run clang-format on the generated C++ headers")
	fl.StringVar(&flags.ClangFormat, "clang-format", d.Cpp.ClangFormat, "clang-format `executable`")
	fl.BoolVarP(&flags.KeepGoing, "keep-going", "k", d.KeepGoing, "Log failed steps and continue")
	fl.BoolVarP(&flags.DryRun, "dry-run", "n", false, "Print the commands without running them")
	fl.BoolVarP(&flags.Verbose, "verbose", "v", false, "Log every rewritten file")
	fl.BoolVarP(&flags.Quiet, "quiet", "q", false, "Log warnings and errors only")

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	cmd.MarkFlagFilename("config", "yaml", "yml")
	cmd.MarkFlagDirname("schema-dir")
	cmd.MarkFlagDirname("kotlin-out")
	cmd.MarkFlagDirname("kotlin-alias-dir")
	cmd.MarkFlagDirname("cpp-out")
	cmd.MarkFlagFilename("flatc")
	cmd.RegisterFlagCompletionFunc("target", func(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
		var list []cobra.Completion
		for _, t := range flatc.Targets {
			list = append(list, t.String())
		}
		return list, cobra.ShellCompDirectiveNoFileComp
	})
	cmd.RegisterFlagCompletionFunc("ext", func(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func render(usage string) string {
	if isTTY(os.Stdout) {
		r, err := glamour.NewTermRenderer(
			glamour.WithEnvironmentConfig(),
			glamour.WithWordWrap(100),
		)
		if err == nil { // if NO error
			if s, err := r.Render(usage); err == nil { // if NO error
				return s
			}
		}
	}
	return usage
}

func validArgs(_ *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveFilterDirs
}

var flags flagsType

type flagsType struct {
	Config         string
	SchemaDir      string
	SchemaExt      string
	Flatc          string
	Targets        []string
	KotlinOut      string
	KotlinAliasDir string
	CppOut         string
	CppFormat      bool
	ClangFormat    string
	KeepGoing      bool
	DryRun         bool
	Verbose        bool
	Quiet          bool
}

// apply copies the flags the user set explicitly onto opts.
func (f *flagsType) apply(fl *pflag.FlagSet, opts *Options) {
	set := map[string]func(){
		"schema-dir":       func() { opts.SchemaDir = f.SchemaDir },
		"ext":              func() { opts.SchemaExt = f.SchemaExt },
		"flatc":            func() { opts.Flatc = f.Flatc },
		"target":           func() { opts.Targets = f.Targets },
		"kotlin-out":       func() { opts.Kotlin.Out = f.KotlinOut },
		"kotlin-alias-dir": func() { opts.Kotlin.AliasDir = f.KotlinAliasDir },
		"cpp-out":          func() { opts.Cpp.Out = f.CppOut },
		"format-cpp":       func() { opts.Cpp.Format = f.CppFormat },
		"clang-format":     func() { opts.Cpp.ClangFormat = f.ClangFormat },
		"keep-going":       func() { opts.KeepGoing = f.KeepGoing },
	}
	fl.Visit(func(v *pflag.Flag) {
		if fn, ok := set[v.Name]; ok {
			fn()
		}
	})
}

// loadOptions layers the config file, the environment and the explicitly set
// flags over the defaults of config.
func loadOptions(cmd *cobra.Command, config *Config, args []string) (Options, error) {
	opts := config.Defaults
	fl := cmd.Flags()

	if flags.Config != "" {
		err := opts.LoadFile(flags.Config)
		if err != nil && (fl.Changed("config") || !errors.Is(err, fs.ErrNotExist)) {
			return opts, err
		}
	}
	if err := opts.ApplyEnv(); err != nil {
		return opts, err
	}
	flags.apply(fl, &opts)
	if len(args) > 0 {
		opts.SchemaDir = args[0]
	}
	return opts, opts.Validate()
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case flags.Verbose:
		level = slog.LevelDebug
	case flags.Quiet:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func run(cmd *cobra.Command, args []string) error {
	config, ok := contextvalue.From[*Config](cmd.Context())
	if !ok {
		panic("never")
	}

	opts, err := loadOptions(cmd, config, args)
	if err != nil {
		return err
	}

	g := &Generator{
		Options: opts,
		Logger:  newLogger(cmd.ErrOrStderr()),
		Stdout:  cmd.OutOrStdout(),
	}

	if flags.DryRun {
		plan, err := g.Plan()
		if err != nil {
			return err
		}
		return printPlan(cmd.OutOrStdout(), plan)
	}

	if err := execpipe.CheckPath(opts.Flatc); err != nil {
		return fmt.Errorf("%s was not found, consider using `--flatc`: %w", opts.Flatc, err)
	}
	if opts.Cpp.Format {
		if err := execpipe.CheckPath(opts.Cpp.ClangFormat); err != nil {
			return fmt.Errorf("%s was not found, consider using `--format-cpp=false`: %w", opts.Cpp.ClangFormat, err)
		}
	}

	report, err := g.Generate(cmd.Context())
	if err != nil {
		return err
	}
	if n := len(report.Failures); n > 0 {
		g.Logger.Warn("finished with failures", "count", n)
	}
	return nil
}

func printPlan(w io.Writer, plan *Plan) error {
	var b strings.Builder
	for _, step := range plan.Steps {
		fmt.Fprintf(&b, "# %v\n%s\n", step.Target, step.Command)
		for _, v := range step.After {
			fmt.Fprintf(&b, "%s\n", v)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func isTTY(io any) bool {
	if f, ok := io.(*os.File); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}
