package kotlinpost

import (
	"bytes"
	_ "embed"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"github.com/goaux/stacktrace/v2"
)

const ext = ".kt"

// ClassNames returns the names of the Kotlin files directly in dir, without
// the extension, sorted. The compiler writes one class per file.
func ClassNames(dir string) ([]string, error) {
	list, err := stacktrace.Trace2(os.ReadDir(dir))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, v := range list {
		if v.Type().IsRegular() && strings.HasSuffix(v.Name(), ext) {
			names = append(names, strings.TrimSuffix(v.Name(), ext))
		}
	}
	slices.Sort(names)
	return names, nil
}

// Result reports what ProcessDir did.
type Result struct {
	// Classes are the class names found directly in the processed directory.
	Classes []string

	// Rewritten lists the files whose content changed.
	Rewritten []string

	// Unchanged lists the files that were already up to date.
	Unchanged []string
}

// ProcessDir rewrites every Kotlin file under dir in place. Each directory is
// rewritten with the class names of its own files.
func ProcessDir(dir string, opts Options) (*Result, error) {
	result := new(Result)
	if err := processDir(dir, opts, result, true); err != nil {
		return nil, err
	}
	return result, nil
}

func processDir(dir string, opts Options, result *Result, root bool) error {
	classes, err := ClassNames(dir)
	if err != nil {
		return err
	}
	if root {
		result.Classes = classes
	}
	rw, err := NewRewriter(opts, classes)
	if err != nil {
		return err
	}
	for _, name := range classes {
		path := filepath.Join(dir, name+ext)
		changed, err := rewriteFile(rw, path)
		if err != nil {
			return err
		}
		if changed {
			result.Rewritten = append(result.Rewritten, path)
		} else {
			result.Unchanged = append(result.Unchanged, path)
		}
	}

	list, err := stacktrace.Trace2(os.ReadDir(dir))
	if err != nil {
		return err
	}
	for _, v := range list {
		if v.IsDir() {
			if err := processDir(filepath.Join(dir, v.Name()), opts, result, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func rewriteFile(rw *Rewriter, path string) (bool, error) {
	content, err := stacktrace.Trace2(os.ReadFile(path))
	if err != nil {
		return false, err
	}
	out, err := rw.Rewrite(content)
	if err != nil {
		return false, err
	}
	if bytes.Equal(content, out) {
		return false, nil
	}
	return true, stacktrace.Trace(os.WriteFile(path, out, 0o644))
}

//go:embed alias.kt.tmpl
var aliasTemplate string

var aliasTmpl = template.Must(template.New("alias").Parse(aliasTemplate))

// Alias renders the alias file that exposes each namespaced class as
// AliasPrefix+Name.
func Alias(opts Options, classes []string) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := aliasTmpl.Execute(buf, map[string]any{
		"Package": opts.AliasPackage,
		"Prefix":  opts.AliasPrefix,
		"Target":  opts.TargetPackage,
		"Classes": classes,
	})
	if err != nil {
		return nil, stacktrace.Trace(err)
	}
	return buf.Bytes(), nil
}

// WriteAlias writes the alias file into dir and returns its path.
func WriteAlias(dir string, opts Options, classes []string) (string, error) {
	data, err := Alias(opts, classes)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", stacktrace.Trace(err)
	}
	path := filepath.Join(dir, opts.AliasFile)
	return path, stacktrace.Trace(os.WriteFile(path, data, 0o644))
}
