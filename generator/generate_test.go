package generator

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takumakei/fbs-gen-go/flatc"
)

// fakeFlatc emulates the schema compiler by writing one output file per
// class into the -o directory.
type fakeFlatc struct {
	t     *testing.T
	calls [][]string
	fail  map[string]error
}

func (f *fakeFlatc) run(_ context.Context, _ io.Writer, _ io.Reader, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	if err := f.fail[args[0]]; err != nil {
		return err
	}
	if name == "clang-format" {
		return nil
	}
	out := args[slices.Index(args, "-o")+1]
	switch args[0] {
	case "--kotlin":
		dir := filepath.Join(out, "dexkit", "schema")
		writeFile(f.t, filepath.Join(dir, "ClassMatcher.kt"),
			"package dexkit.schema\n\n@Suppress(\"unused\")\nclass ClassMatcher : Table() {\n    val method : dexkit.schema.MethodMatcher? get() = null\n}\n")
		writeFile(f.t, filepath.Join(dir, "MethodMatcher.kt"),
			"package dexkit.schema\n\nclass MethodMatcher : Table() {\n    companion object {\n        const val MethodMatcher = 0\n    }\n}\n")
	case "--cpp":
		writeFile(f.t, filepath.Join(out, "matchers_generated.h"), "#pragma once\n")
		writeFile(f.t, filepath.Join(out, "results_generated.h"), "#pragma once\n")
		writeFile(f.t, filepath.Join(out, "nested", "extra_generated.h"), "#pragma once\n")
	}
	return nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// testOptions lays out a DexKit-like tree under a temporary directory.
func testOptions(t *testing.T) Options {
	root := t.TempDir()
	opts := DefaultOptions()
	opts.SchemaDir = filepath.Join(root, "schema", "fbs")
	opts.Flatc = filepath.Join(root, "schema", "flatc")
	opts.Kotlin.Out = filepath.Join(root, "dexkit/src/main/java/org/luckypray")
	opts.Kotlin.AliasDir = filepath.Join(root, "dexkit/src/main/java/org/luckypray/dexkit")
	opts.Cpp.Out = filepath.Join(root, "Core/dexkit/include/schema")
	writeFile(t, filepath.Join(opts.SchemaDir, "matchers.fbs"), "namespace dexkit.schema;\n")
	writeFile(t, filepath.Join(opts.SchemaDir, "results", "results.fbs"), "namespace dexkit.schema;\n")
	return opts
}

func TestGenerate(t *testing.T) {
	opts := testOptions(t)
	fake := &fakeFlatc{t: t}
	g := &Generator{Options: opts, Run: fake.run}

	report, err := g.Generate(context.Background())
	require.NoError(t, err)

	files := []string{
		filepath.Join(opts.SchemaDir, "matchers.fbs"),
		filepath.Join(opts.SchemaDir, "results", "results.fbs"),
	}
	assert.Equal(t, files, report.Files)
	assert.Equal(t, []flatc.Target{flatc.Kotlin, flatc.Cpp}, report.Compiled)
	require.Len(t, fake.calls, 2)
	assert.Equal(t, append([]string{opts.Flatc, "--kotlin", "--gen-mutable", "-o", opts.Kotlin.Out}, files...), fake.calls[0])
	assert.Equal(t, append([]string{opts.Flatc, "--cpp", "--cpp-std", "c++17", "--scoped-enums", "--no-emit-min-max-enum-values", "-o", opts.Cpp.Out}, files...), fake.calls[1])

	dir := filepath.Join(opts.Kotlin.Out, "dexkit", "schema")
	assert.Equal(t, []string{"ClassMatcher", "MethodMatcher"}, report.Kotlin.Classes)
	assert.Equal(t,
		"package org.luckypray.dexkit.schema\n\n@Suppress(\"unused\")\ninternal class `-ClassMatcher` : Table() {\n    val method : `-MethodMatcher`? get() = null\n}\n",
		readFile(t, filepath.Join(dir, "ClassMatcher.kt")))
	assert.Equal(t,
		"package org.luckypray.dexkit.schema\n\ninternal class `-MethodMatcher` : Table() {\n    companion object {\n        const val MethodMatcher = 0\n    }\n}\n",
		readFile(t, filepath.Join(dir, "MethodMatcher.kt")))

	assert.Equal(t, filepath.Join(opts.Kotlin.AliasDir, "Alias.kt"), report.Alias)
	assert.Equal(t,
		"package org.luckypray.dexkit\n\n"+
			"internal typealias InnerClassMatcher = org.luckypray.dexkit.schema.`-ClassMatcher`\n"+
			"internal typealias InnerMethodMatcher = org.luckypray.dexkit.schema.`-MethodMatcher`\n\n",
		readFile(t, report.Alias))
	assert.Empty(t, report.Formatted)
	assert.Empty(t, report.Failures)
}

func TestGenerateSingleTarget(t *testing.T) {
	opts := testOptions(t)
	opts.Targets = []string{"cpp"}
	fake := &fakeFlatc{t: t}
	g := &Generator{Options: opts, Run: fake.run}

	report, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []flatc.Target{flatc.Cpp}, report.Compiled)
	assert.Len(t, fake.calls, 1)
	assert.Nil(t, report.Kotlin)
	assert.NoFileExists(t, filepath.Join(opts.Kotlin.AliasDir, "Alias.kt"))
}

func TestGenerateFormatCpp(t *testing.T) {
	opts := testOptions(t)
	opts.Targets = []string{"cpp"}
	opts.Cpp.Format = true
	fake := &fakeFlatc{t: t}
	g := &Generator{Options: opts, Run: fake.run}

	report, err := g.Generate(context.Background())
	require.NoError(t, err)
	headers := []string{
		filepath.Join(opts.Cpp.Out, "matchers_generated.h"),
		filepath.Join(opts.Cpp.Out, "nested", "extra_generated.h"),
		filepath.Join(opts.Cpp.Out, "results_generated.h"),
	}
	assert.Equal(t, headers, report.Formatted)
	require.Len(t, fake.calls, 2)
	assert.Equal(t, append([]string{"clang-format", "-i"}, headers...), fake.calls[1])
}

func TestGenerateNoSchema(t *testing.T) {
	opts := testOptions(t)
	opts.SchemaDir = t.TempDir()
	g := &Generator{Options: opts, Run: (&fakeFlatc{t: t}).run}
	_, err := g.Generate(context.Background())
	assert.ErrorIs(t, err, ErrNoSchema)
}

func TestGenerateCompileFailure(t *testing.T) {
	boom := errors.New("boom")
	opts := testOptions(t)
	fake := &fakeFlatc{t: t, fail: map[string]error{"--kotlin": boom}}
	g := &Generator{Options: opts, Run: fake.run}

	_, err := g.Generate(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, fake.calls, 1)
}

func TestGenerateKeepGoing(t *testing.T) {
	boom := errors.New("boom")
	opts := testOptions(t)
	opts.KeepGoing = true
	fake := &fakeFlatc{t: t, fail: map[string]error{"--kotlin": boom}}
	g := &Generator{Options: opts, Run: fake.run}

	report, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []flatc.Target{flatc.Cpp}, report.Compiled)
	// the failed compile and the post-processing of its missing output
	require.Len(t, report.Failures, 2)
	assert.ErrorIs(t, report.Failures[0], boom)
	assert.ErrorIs(t, report.Failures[1], os.ErrNotExist)
	assert.Len(t, fake.calls, 2)
}

func TestPlan(t *testing.T) {
	opts := testOptions(t)
	opts.Cpp.Format = true
	g := &Generator{Options: opts}

	plan, err := g.Plan()
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, flatc.Kotlin, plan.Steps[0].Target)
	assert.Equal(t, []string{
		"rewrite " + filepath.Join(opts.Kotlin.Out, "dexkit", "schema"),
		"write " + filepath.Join(opts.Kotlin.AliasDir, "Alias.kt"),
	}, plan.Steps[0].After)
	assert.Equal(t, flatc.Cpp, plan.Steps[1].Target)
	assert.Equal(t, []string{"find " + opts.Cpp.Out + " -type f -name '*.h' -exec clang-format -i '{}' +"}, plan.Steps[1].After)
	assert.Equal(t, opts.Cpp.Out, plan.Steps[1].Out)
}
