// Package schemafs locates schema definition files on disk.
package schemafs

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goaux/stacktrace/v2"
)

// DefaultExt is the extension of FlatBuffers schema files.
const DefaultExt = ".fbs"

// Find walks root recursively and returns every regular file whose name ends
// with ext, sorted. The returned paths start with root exactly as given, so
// "./fbs" yields "./fbs/a.fbs". An empty ext means [DefaultExt].
func Find(root, ext string) ([]string, error) {
	if ext == "" {
		ext = DefaultExt
	}
	var list []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && strings.HasSuffix(d.Name(), ext) {
			list = append(list, underRoot(root, path))
		}
		return nil
	})
	if err != nil {
		return nil, stacktrace.Trace(err)
	}
	slices.Sort(list)
	return list, nil
}

// underRoot re-roots path, which WalkDir has cleaned, onto root as given.
func underRoot(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return path
	}
	if strings.HasSuffix(root, string(filepath.Separator)) {
		return root + rel
	}
	return root + string(filepath.Separator) + rel
}
