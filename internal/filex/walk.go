package filex

import (
	"io/fs"
	"iter"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dmitrijs2005/cryptkeeper/internal/models"
)

// Walk lazily enumerates root in pre-order: a directory is always yielded
// before anything inside it, siblings in lexical order. Directories whose
// base name or absolute path is listed in ignore are skipped with their
// contents (the root itself is never skipped). A root that is a regular
// file yields exactly one entry.
//
// Errors are yielded alongside the path they concern and the walk goes on
// with the next sibling. The sequence can be ranged over more than once;
// each range walks the filesystem afresh.
func Walk(root string, ignore []string) iter.Seq2[models.PathInfo, error] {
	return func(yield func(models.PathInfo, error) bool) {
		abs, err := filepath.Abs(root)
		if err != nil {
			yield(models.PathInfo{FullPath: root}, err)
			return
		}

		_ = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if !yield(models.PathInfo{FullPath: path, Name: filepath.Base(path)}, err) {
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() && path != abs && ignored(path, d.Name(), ignore) {
				return filepath.SkipDir
			}

			info := models.PathInfo{
				Name:     d.Name(),
				FullPath: path,
				Parent:   filepath.Dir(path),
				IsDir:    d.IsDir(),
				Depth:    depth(abs, path),
			}
			if !yield(info, nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func ignored(path, name string, ignore []string) bool {
	return slices.ContainsFunc(ignore, func(s string) bool {
		if s == "" {
			return false
		}
		if filepath.IsAbs(s) {
			return filepath.Clean(s) == path
		}
		return s == name
	})
}

func depth(root, path string) int {
	if path == root {
		return 0
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
