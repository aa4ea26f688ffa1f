// Package variant turns a build recipe into toolchain steps and runs them.
package variant

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/beryl-lang/berylbuild/internal/command"
	"github.com/beryl-lang/berylbuild/internal/config"
	"github.com/beryl-lang/berylbuild/internal/fileset"
	"github.com/beryl-lang/berylbuild/internal/logging"
	"github.com/beryl-lang/berylbuild/internal/toolchain"
)

// ObjectExt is the extension of the object files collected for archiving.
const ObjectExt = ".o"

// Result describes a finished (or failed) variant build.
type Result struct {
	Kind     Kind
	States   []State          // every state entered, in order
	Commands []command.Vector // toolchain invocations, in order
	Artifact string           // executable or static library
	Objects  []string         // archived object files, relative to the output dir
	Header   string           // copied header, library variants only
}

// State returns the last state entered.
func (r *Result) State() State {
	if len(r.States) == 0 {
		return Configured
	}
	return r.States[len(r.States)-1]
}

// Builder builds variants from an explicit configuration.
type Builder struct {
	Config *config.Config
	Runner toolchain.Runner
	// DryRun must match the runner: objects are then predicted from the
	// source list because the compiler never ran.
	DryRun bool
}

// New returns a Builder for cfg that runs steps with runner.
func New(cfg *config.Config, runner toolchain.Runner) *Builder {
	return &Builder{Config: cfg, Runner: runner}
}

type build struct {
	*Builder
	res    *Result
	recipe *config.Variant
}

// Build runs every step of kind in order and stops at the first failure.
// The returned Result is never nil.
func (b *Builder) Build(ctx context.Context, kind Kind) (*Result, error) {
	logger := logging.Log(ctx).With().Str("variant", kind.String()).Logger()
	ctx = logging.WithLogger(ctx, &logger)

	bd := &build{Builder: b, res: &Result{Kind: kind}}
	bd.enter(ctx, Configured)

	err := bd.run(ctx)
	if err != nil {
		bd.enter(ctx, Failed)
		return bd.res, err
	}
	bd.enter(ctx, Done)
	logger.Info().Str("artifact", bd.res.Artifact).Msgf("built %s", bd.res.Artifact)
	return bd.res, nil
}

func (bd *build) enter(ctx context.Context, s State) {
	bd.res.States = append(bd.res.States, s)
	logging.Log(ctx).Debug().Str("state", s.String()).Msg("entering " + s.String())
}

func (bd *build) run(ctx context.Context) error {
	kind := bd.res.Kind
	if !kind.valid() {
		return eris.Wrapf(config.ErrConfiguration, "unknown variant %d", int(kind))
	}
	if bd.Config == nil || bd.Runner == nil {
		return eris.Wrap(config.ErrConfiguration, "builder needs a config and a runner")
	}
	if err := bd.Config.Validate(); err != nil {
		return err
	}
	bd.recipe = recipe(bd.Config, kind)

	if !bd.DryRun {
		dirs := []string{bd.Config.OutputDir}
		if bd.recipe.Output != "" {
			dirs = append(dirs, filepath.Dir(bd.recipe.Output))
		}
		for _, dir := range dirs {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return eris.Wrapf(err, "failed to create %s", dir)
			}
		}
	}

	if kind.IsLibrary() {
		return bd.buildLibrary(ctx)
	}
	return bd.buildExecutable(ctx)
}

func (bd *build) spec(dir, root string) command.Spec {
	cfg := bd.Config
	return command.Spec{
		Compiler:   cfg.Compiler,
		Dir:        dir,
		Root:       root,
		Exclude:    bd.recipe.Exclude,
		Extensions: cfg.Extensions,
		Flags:      bd.recipe.Flags,
		Output:     bd.recipe.Output,
		Libs:       bd.recipe.Libs,
	}
}

func (bd *build) exec(ctx context.Context, dir string, cmd command.Vector) error {
	bd.res.Commands = append(bd.res.Commands, cmd)
	return bd.Runner.Run(ctx, dir, cmd)
}

func (bd *build) buildExecutable(ctx context.Context) error {
	bd.enter(ctx, Composing)
	cmd, err := command.Compose(bd.spec("", bd.Config.SourceDir))
	if err != nil {
		return err
	}

	bd.enter(ctx, Compiling)
	if err := bd.exec(ctx, "", cmd); err != nil {
		return err
	}
	bd.res.Artifact = bd.recipe.Output
	return nil
}

// buildLibrary compiles inside the output directory, so the compiler
// drops one object per source there, then archives whatever objects the
// directory holds.
func (bd *build) buildLibrary(ctx context.Context) error {
	cfg := bd.Config
	outDir := cfg.OutputDir

	bd.enter(ctx, Composing)
	root, err := relativeTo(outDir, cfg.SourceDir)
	if err != nil {
		return err
	}
	spec := bd.spec(outDir, root)
	cmd, err := command.Compose(spec)
	if err != nil {
		return err
	}
	if err := bd.clean(ctx); err != nil {
		return err
	}

	bd.enter(ctx, Compiling)
	if err := bd.exec(ctx, outDir, cmd); err != nil {
		return err
	}

	bd.enter(ctx, CollectingObjects)
	objects, err := bd.objects(spec)
	if err != nil {
		return err
	}
	bd.res.Objects = objects

	bd.enter(ctx, Archiving)
	archive := command.Vector{cfg.Archiver, "rcs", cfg.LibraryName}
	archive = append(archive, objects...)
	if err := bd.exec(ctx, outDir, archive); err != nil {
		return err
	}
	bd.res.Artifact = filepath.Join(outDir, cfg.LibraryName)

	bd.enter(ctx, CopyingHeader)
	header := filepath.Join(outDir, cfg.Header)
	if err := bd.Runner.Copy(ctx, filepath.Join(cfg.SourceDir, cfg.Header), header); err != nil {
		return err
	}
	bd.res.Header = header
	return nil
}

// clean removes objects and the library left by an earlier build so the
// object scan only sees what this build compiles.
func (bd *build) clean(ctx context.Context) error {
	outDir := bd.Config.OutputDir
	if _, err := os.Stat(outDir); os.IsNotExist(err) {
		return nil
	}
	stale, err := fileset.Collect(outDir, []string{ObjectExt})
	if err != nil {
		return err
	}
	for _, p := range stale.Sorted() {
		if err := bd.Runner.Remove(ctx, p); err != nil {
			return err
		}
	}
	return bd.Runner.Remove(ctx, filepath.Join(outDir, bd.Config.LibraryName))
}

// objects returns the object files to archive, relative to the output
// directory and sorted.
func (bd *build) objects(spec command.Spec) ([]string, error) {
	outDir := bd.Config.OutputDir
	if bd.DryRun {
		sources, err := command.Sources(spec)
		if err != nil {
			return nil, err
		}
		objects := make([]string, len(sources))
		for i, src := range sources {
			objects[i] = command.ObjectName(src)
		}
		return objects, nil
	}

	found, err := fileset.Collect(outDir, []string{ObjectExt})
	if err != nil {
		return nil, err
	}
	if found.Len() == 0 {
		return nil, eris.Wrapf(config.ErrConfiguration, "no object files in %s", outDir)
	}
	objects := make([]string, 0, found.Len())
	for _, p := range found.Sorted() {
		rel, err := filepath.Rel(outDir, p)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to relativize %s", p)
		}
		objects = append(objects, rel)
	}
	return objects, nil
}

// relativeTo expresses target as a path relative to base, after
// resolving symlinks in both.
func relativeTo(base, target string) (string, error) {
	absBase, err := physical(base)
	if err != nil {
		return "", err
	}
	absTarget, err := physical(target)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil {
		return "", eris.Wrapf(config.ErrConfiguration, "%s cannot be reached from %s", target, base)
	}
	return rel, nil
}

// physical returns the absolute, symlink-free form of path. Missing
// trailing elements are kept as they are.
func physical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", eris.Wrapf(err, "failed to resolve %s", path)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	switch {
	case err == nil:
		return resolved, nil
	case !os.IsNotExist(err):
		return "", eris.Wrapf(err, "failed to resolve %s", path)
	}
	parent := filepath.Dir(abs)
	if parent == abs {
		return abs, nil
	}
	resolvedParent, err := physical(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(abs)), nil
}
