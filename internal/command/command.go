// Package command composes toolchain invocations from a source tree.
package command

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/syntax"

	"github.com/beryl-lang/berylbuild/internal/fileset"
)

var (
	// ErrInvalidSpec is returned for specs that cannot produce a command.
	ErrInvalidSpec = eris.New("invalid command spec")

	// ErrInvalidOutputSpec is returned when the output name does not fit
	// the kind of artifact the flags ask for.
	ErrInvalidOutputSpec = eris.New("invalid output spec")
)

// CompileOnlyFlag makes the compiler stop after producing object files.
const CompileOnlyFlag = "-c"

// Vector is an argument vector: the binary followed by its arguments.
type Vector []string

// Name returns the binary.
func (v Vector) Name() string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Args returns everything after the binary.
func (v Vector) Args() []string {
	if len(v) == 0 {
		return nil
	}
	return v[1:]
}

// String renders v as a single POSIX shell line. Only arguments holding
// shell metacharacters are quoted.
func (v Vector) String() string {
	parts := make([]string, len(v))
	for i, arg := range v {
		parts[i] = quote(arg)
	}
	return strings.Join(parts, " ")
}

func quote(arg string) string {
	if arg != "" && strings.IndexFunc(arg, needsQuoting) < 0 {
		return arg
	}
	q, err := syntax.Quote(arg, syntax.LangPOSIX)
	if err != nil {
		return arg
	}
	return q
}

func needsQuoting(r rune) bool {
	switch {
	case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
		return false
	}
	return !strings.ContainsRune("_./=+-", r)
}

// Spec describes one compiler invocation over a source tree.
type Spec struct {
	Compiler string
	// Dir is the directory the command will run in. A relative Root is
	// resolved against it when looking for sources, and the sources are
	// then named relative to it too.
	Dir        string
	Root       string
	Exclude    []string // root-relative
	Extensions []string
	Flags      []string
	Output     string   // empty for compile-only builds
	Libs       []string // appended after the sources
}

// CompileOnly reports whether Flags contain -c.
func (s *Spec) CompileOnly() bool {
	return slices.Contains(s.Flags, CompileOnlyFlag)
}

// Compose builds the argument vector for spec:
//
//	compiler flags... [-o<output>] sources... libs...
//
// Sources are every file under Root matching Extensions, minus the
// excluded ones, in lexicographic order.
func Compose(spec Spec) (Vector, error) {
	if spec.Compiler == "" {
		return nil, eris.Wrap(ErrInvalidSpec, "no compiler given")
	}
	if len(spec.Extensions) == 0 {
		return nil, eris.Wrap(ErrInvalidSpec, "no source extensions given")
	}
	compileOnly := spec.CompileOnly()
	switch {
	case !compileOnly && spec.Output == "":
		return nil, eris.Wrap(ErrInvalidOutputSpec, "linking an executable requires an output name")
	case compileOnly && spec.Output != "":
		return nil, eris.Wrapf(ErrInvalidOutputSpec, "output %q given for a compile-only build", spec.Output)
	}

	sources, err := Sources(spec)
	if err != nil {
		return nil, err
	}

	cmd := make(Vector, 0, 2+len(spec.Flags)+len(sources)+len(spec.Libs))
	cmd = append(cmd, spec.Compiler)
	cmd = append(cmd, spec.Flags...)
	if spec.Output != "" {
		cmd = append(cmd, "-o"+spec.Output)
	}
	cmd = append(cmd, sources...)
	cmd = append(cmd, spec.Libs...)
	return cmd, nil
}

// Sources returns every file under spec.Root matching spec.Extensions that
// is not excluded, in lexicographic order.
func Sources(spec Spec) ([]string, error) {
	walkRoot := spec.Root
	if spec.Dir != "" && !filepath.IsAbs(spec.Root) {
		// the compiler resolves Root from the physical Dir
		dir, err := filepath.EvalSymlinks(spec.Dir)
		if err != nil {
			dir = spec.Dir
		}
		walkRoot = filepath.Join(dir, spec.Root)
	}
	excluded := fileset.Resolve(spec.Root, spec.Exclude)
	files, err := fileset.CollectFS(os.DirFS(walkRoot), spec.Root, spec.Extensions)
	if err != nil {
		return nil, err
	}

	sources := make([]string, 0, files.Len())
	for _, f := range files.Sorted() {
		if !excluded.Has(f) {
			sources = append(sources, f)
		}
	}
	if len(sources) == 0 {
		return nil, eris.Wrapf(ErrInvalidSpec, "no sources left under %s", spec.Root)
	}
	if spec.CompileOnly() {
		if err := checkObjectNames(sources); err != nil {
			return nil, err
		}
	}
	return sources, nil
}

// ObjectName returns the object file a compiler writes for src when run
// with -c in the current directory.
func ObjectName(src string) string {
	base := filepath.Base(src)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".o"
}

// checkObjectNames rejects source lists where two files would be compiled
// into the same object file.
func checkObjectNames(sources []string) error {
	seen := make(map[string]string, len(sources))
	for _, src := range sources {
		obj := ObjectName(src)
		if prev, ok := seen[obj]; ok {
			return eris.Wrapf(ErrInvalidSpec, "%s and %s both compile to %s", prev, src, obj)
		}
		seen[obj] = src
	}
	return nil
}
