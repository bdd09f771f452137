package generator

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	env "github.com/caarlos0/env/v11"
	"github.com/goaux/stacktrace/v2"
	"github.com/takumakei/fbs-gen-go/flatc"
	"github.com/takumakei/fbs-gen-go/kotlinpost"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of the environment variables read by [Options.ApplyEnv].
const EnvPrefix = "FBSGEN_"

// Options controls a generation run.
type Options struct {
	SchemaDir string   `yaml:"schema_dir" env:"SCHEMA_DIR"`
	SchemaExt string   `yaml:"schema_ext" env:"SCHEMA_EXT"`
	Flatc     string   `yaml:"flatc" env:"FLATC"`
	Targets   []string `yaml:"targets" env:"TARGETS" envSeparator:","`

	// KeepGoing logs failed steps and carries on instead of stopping.
	KeepGoing bool `yaml:"keep_going" env:"KEEP_GOING"`

	Kotlin KotlinOptions `yaml:"kotlin" envPrefix:"KOTLIN_"`
	Cpp    CppOptions    `yaml:"cpp" envPrefix:"CPP_"`
}

type KotlinOptions struct {
	Out           string `yaml:"out" env:"OUT"`
	AliasDir      string `yaml:"alias_dir" env:"ALIAS_DIR"`
	SourcePackage string `yaml:"source_package" env:"SOURCE_PACKAGE"`
	TargetPackage string `yaml:"target_package" env:"TARGET_PACKAGE"`
	AliasPackage  string `yaml:"alias_package" env:"ALIAS_PACKAGE"`
	AliasPrefix   string `yaml:"alias_prefix" env:"ALIAS_PREFIX"`
	AliasFile     string `yaml:"alias_file" env:"ALIAS_FILE"`
}

type CppOptions struct {
	Out         string `yaml:"out" env:"OUT"`
	Format      bool   `yaml:"format" env:"FORMAT"`
	ClangFormat string `yaml:"clang_format" env:"CLANG_FORMAT"`
}

// DefaultOptions returns the layout of the DexKit repository, relative to its
// schema directory.
func DefaultOptions() Options {
	post := kotlinpost.DefaultOptions()
	return Options{
		SchemaDir: "./fbs",
		Flatc:     "./flatc",
		Targets:   []string{flatc.Kotlin.String(), flatc.Cpp.String()},
		Kotlin: KotlinOptions{
			Out:           "../dexkit/src/main/java/org/luckypray",
			AliasDir:      "../dexkit/src/main/java/org/luckypray/dexkit",
			SourcePackage: post.SourcePackage,
			TargetPackage: post.TargetPackage,
			AliasPackage:  post.AliasPackage,
			AliasPrefix:   post.AliasPrefix,
			AliasFile:     post.AliasFile,
		},
		Cpp: CppOptions{
			Out:         "../Core/dexkit/include/schema",
			ClangFormat: "clang-format",
		},
	}
}

// LoadFile overlays the YAML file at path onto o. Keys missing from the file
// keep their current values; unknown keys are an error.
func (o *Options) LoadFile(path string) error {
	data, err := stacktrace.Trace2(os.ReadFile(path))
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(o); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays the FBSGEN_* environment variables onto o. Unset
// variables keep the current values.
func (o *Options) ApplyEnv() error {
	return stacktrace.Trace(env.ParseWithOptions(o, env.Options{Prefix: EnvPrefix}))
}

// PostOptions returns the Kotlin post-processing options.
func (o *Options) PostOptions() kotlinpost.Options {
	return kotlinpost.Options{
		SourcePackage: o.Kotlin.SourcePackage,
		TargetPackage: o.Kotlin.TargetPackage,
		AliasPackage:  o.Kotlin.AliasPackage,
		AliasPrefix:   o.Kotlin.AliasPrefix,
		AliasFile:     o.Kotlin.AliasFile,
	}
}

// ParseTargets returns the selected targets, deduplicated, in generation order.
func (o *Options) ParseTargets() ([]flatc.Target, error) {
	var list []flatc.Target
	for _, v := range o.Targets {
		t, err := flatc.ParseTarget(v)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return slices.DeleteFunc(slices.Clone(flatc.Targets), func(t flatc.Target) bool {
		return !slices.Contains(list, t)
	}), nil
}

// Out returns the output directory of target.
func (o *Options) Out(target flatc.Target) string {
	switch target {
	case flatc.Kotlin:
		return o.Kotlin.Out
	case flatc.Cpp:
		return o.Cpp.Out
	}
	return ""
}

// Validate reports options that cannot produce a run.
func (o *Options) Validate() error {
	targets, err := o.ParseTargets()
	if err != nil {
		return err
	}
	var errs []error
	if o.SchemaDir == "" {
		errs = append(errs, errors.New("schema_dir is empty"))
	}
	if o.Flatc == "" {
		errs = append(errs, errors.New("flatc is empty"))
	}
	if len(targets) == 0 {
		errs = append(errs, errors.New("no target selected"))
	}
	for _, t := range targets {
		if o.Out(t) == "" {
			errs = append(errs, fmt.Errorf("%v: out is empty", t))
		}
	}
	if slices.Contains(targets, flatc.Kotlin) {
		k := o.Kotlin
		if k.AliasDir == "" || k.AliasFile == "" {
			errs = append(errs, errors.New("kotlin: alias_dir and alias_file are required"))
		}
		if k.SourcePackage == "" || k.TargetPackage == "" || k.AliasPackage == "" {
			errs = append(errs, errors.New("kotlin: source_package, target_package and alias_package are required"))
		}
	}
	if o.Cpp.Format && o.Cpp.ClangFormat == "" {
		errs = append(errs, errors.New("cpp: clang_format is empty"))
	}
	return errors.Join(errs...)
}
