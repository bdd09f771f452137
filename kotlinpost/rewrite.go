// Package kotlinpost rewrites the Kotlin sources emitted by the schema
// compiler so they fit into the host library.
//
// The generated classes are moved to another package, made internal, and
// renamed to `-Name` so they cannot clash with the public API. An alias file
// then exposes each one as InnerName inside the library.
package kotlinpost

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/goaux/iter/bufioscanner"
	"github.com/goaux/stacktrace/v2"
)

const word = `[A-Za-z0-9_]`

// Rewriter applies the textual substitutions to generated Kotlin files.
// It is safe to rewrite a file twice; the second pass changes nothing.
type Rewriter struct {
	opts      Options
	classes   []string
	pkg       *regexp2.Regexp
	qualified *regexp2.Regexp
	names     *regexp2.Regexp
}

// NewRewriter returns a Rewriter that namespaces the given classes.
func NewRewriter(opts Options, classes []string) (*Rewriter, error) {
	r := &Rewriter{opts: opts, classes: classes}

	// When the target extends the source (schema -> schema.gen), text that
	// already carries the extension is left alone.
	var renamed string
	if rest, ok := strings.CutPrefix(opts.TargetPackage, opts.SourcePackage+"."); ok {
		renamed = `(?!` + regexp2.Escape(rest) + `(?!` + word + `))`
	}
	src := regexp2.Escape(opts.SourcePackage)
	decl := `^[ \t]*package[ \t]+`

	// The package declaration, including sub-packages of the source.
	re, err := regexp2.Compile(`(?<=`+decl+`)`+src+`(?!`+word+`)`+strings.Replace(renamed, `(?!`, `(?!\.`, 1), regexp2.Multiline)
	if err != nil {
		return nil, stacktrace.Trace(err)
	}
	r.pkg = re

	// References like dexkit.schema.Foo, but neither org.luckypray.dexkit.schema.Foo
	// nor the package declaration.
	re, err = regexp2.Compile(`(?<!`+word+`|\.|`+decl+`)`+src+`\.`+renamed, regexp2.Multiline)
	if err != nil {
		return nil, stacktrace.Trace(err)
	}
	r.qualified = re

	if len(classes) > 0 {
		alt := make([]string, len(classes))
		for i, v := range classes {
			alt[i] = regexp2.Escape(v)
		}
		pattern := "(?<!" + word + "|`-)(?:" + strings.Join(alt, "|") + ")(?!" + word + ")"
		re, err := regexp2.Compile(pattern, regexp2.None)
		if err != nil {
			return nil, stacktrace.Trace(err)
		}
		r.names = re
	}
	return r, nil
}

// Rewrite returns content with the package renamed, qualified references
// stripped, top-level classes made internal, and class names wrapped as
// `-Name` on every line that does not declare a constant.
func (r *Rewriter) Rewrite(content []byte) ([]byte, error) {
	s, err := r.pkg.ReplaceFunc(string(content), func(regexp2.Match) string {
		return r.opts.TargetPackage
	}, -1, -1)
	if err != nil {
		return nil, stacktrace.Trace(err)
	}
	s, err = r.qualified.Replace(s, "", -1, -1)
	if err != nil {
		return nil, stacktrace.Trace(err)
	}
	s = strings.ReplaceAll(s, "\nclass ", "\ninternal class ")

	if r.names == nil {
		return []byte(s), nil
	}

	sc := bufio.NewScanner(strings.NewReader(s))
	sc.Buffer(nil, len(s)+1)
	out := new(bytes.Buffer)
	out.Grow(len(s) + len(s)/8)
	first := true
	for _, line := range bufioscanner.New(sc).Text() {
		if !first {
			out.WriteByte('\n')
		}
		first = false
		if !strings.Contains(line, "const val") {
			line, err = r.names.ReplaceFunc(line, wrap, -1, -1)
			if err != nil {
				return nil, stacktrace.Trace(err)
			}
		}
		out.WriteString(line)
	}
	if err := sc.Err(); err != nil {
		return nil, stacktrace.Trace(err)
	}
	if strings.HasSuffix(s, "\n") {
		out.WriteByte('\n')
	}
	return out.Bytes(), nil
}

func wrap(m regexp2.Match) string {
	return "`-" + m.String() + "`"
}

func packageDir(pkg string) string {
	return filepath.FromSlash(strings.ReplaceAll(pkg, ".", "/"))
}
