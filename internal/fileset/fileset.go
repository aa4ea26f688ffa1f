// Package fileset discovers source files under a directory tree.
package fileset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// FileSet is a set of fully-qualified file paths.
type FileSet map[string]struct{}

// DuplicatePathError reports a path that was inserted into a FileSet twice.
// It means the walk visited the same file more than once and the set
// cannot be trusted.
type DuplicatePathError struct {
	Path string
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("duplicate path in file set: %s", e.Path)
}

// Add inserts path, failing if it is already present.
func (s FileSet) Add(path string) error {
	if _, ok := s[path]; ok {
		return &DuplicatePathError{Path: path}
	}
	s[path] = struct{}{}
	return nil
}

func (s FileSet) Has(path string) bool {
	_, ok := s[path]
	return ok
}

func (s FileSet) Len() int { return len(s) }

// Sorted returns the members in lexicographic order.
func (s FileSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Collect walks root on the local filesystem and returns every file whose
// name ends with one of exts.
func Collect(root string, exts []string) (FileSet, error) {
	return CollectFS(os.DirFS(root), root, exts)
}

// CollectFS is like Collect but walks fsys, which must be rooted at root.
// Returned paths are root joined with the slash-separated path inside fsys.
//
// Extensions are tested in order and the first match wins, so a file
// matching several extensions is still added once.
func CollectFS(fsys fs.FS, root string, exts []string) (FileSet, error) {
	set := make(FileSet)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		for _, ext := range exts {
			if !strings.HasSuffix(name, ext) {
				continue
			}
			return set.Add(filepath.Join(root, filepath.FromSlash(p)))
		}
		return nil
	})
	if err != nil {
		if dup, ok := err.(*DuplicatePathError); ok {
			return nil, dup
		}
		return nil, eris.Wrapf(err, "failed to walk %s", root)
	}
	return set, nil
}

// Resolve joins every name onto root.
func Resolve(root string, names []string) FileSet {
	set := make(FileSet, len(names))
	for _, name := range names {
		set[filepath.Join(root, name)] = struct{}{}
	}
	return set
}
