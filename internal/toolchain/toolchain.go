// Package toolchain runs compiler, archiver and copy steps one at a time.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/sys/execabs"

	"github.com/beryl-lang/berylbuild/internal/command"
	"github.com/beryl-lang/berylbuild/internal/logging"
)

// Runner executes toolchain steps. Implementations block until the step
// has finished.
type Runner interface {
	// Run executes cmd with dir as its working directory.
	Run(ctx context.Context, dir string, cmd command.Vector) error
	// Copy copies the file src to dst byte for byte.
	Copy(ctx context.Context, src, dst string) error
	// Remove deletes the file at path. A missing file is not an error.
	Remove(ctx context.Context, path string) error
}

// ToolchainError is returned when a spawned tool fails.
type ToolchainError struct {
	Command  command.Vector
	Dir      string
	ExitCode int   // -1 if the tool could not be started
	Err      error // underlying error, if any
}

func (e *ToolchainError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("%s: failed to start: %v", e.Command.Name(), e.Err)
	}
	return fmt.Sprintf("%s exited with status %d", e.Command.Name(), e.ExitCode)
}

func (e *ToolchainError) Unwrap() error { return e.Err }

// Exec runs steps as child processes of the current process.
type Exec struct {
	Stdout io.Writer
	Stderr io.Writer
	Env    map[string]string
	DryRun bool
}

var _ Runner = (*Exec)(nil)

// Run implements Runner.
func (x *Exec) Run(ctx context.Context, dir string, cmd command.Vector) error {
	if len(cmd) == 0 {
		return eris.New("empty command")
	}
	logging.Log(ctx).Info().
		Bool("command", true).
		Str("dir", dir).
		Msg(cmd.String())
	if x.DryRun {
		return nil
	}

	c := execabs.CommandContext(ctx, cmd.Name(), cmd.Args()...)
	c.Dir = dir
	c.Stdout = writerOr(x.Stdout, os.Stdout)
	c.Stderr = writerOr(x.Stderr, os.Stderr)
	if len(x.Env) > 0 {
		c.Env = mergeEnv(os.Environ(), x.Env)
	}

	err := c.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ToolchainError{Command: cmd, Dir: dir, ExitCode: exitErr.ExitCode(), Err: err}
	}
	return &ToolchainError{Command: cmd, Dir: dir, ExitCode: -1, Err: err}
}

// Copy implements Runner. The destination keeps the source's permissions.
func (x *Exec) Copy(ctx context.Context, src, dst string) error {
	logging.Log(ctx).Info().
		Bool("command", true).
		Msg(command.Vector{"cp", src, dst}.String())
	if x.DryRun {
		return nil
	}
	return copyFile(src, dst)
}

// Remove implements Runner.
func (x *Exec) Remove(ctx context.Context, path string) error {
	logging.Log(ctx).Debug().
		Bool("command", true).
		Msg(command.Vector{"rm", "-f", path}.String())
	if x.DryRun {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "failed to remove %s", path)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "failed to open %s", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return eris.Wrapf(err, "failed to stat %s", src)
	}
	if info.IsDir() {
		return eris.Errorf("%s is a directory", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return eris.Wrapf(err, "failed to copy %s to %s", src, dst)
	}
	if err := out.Close(); err != nil {
		return eris.Wrapf(err, "failed to close %s", dst)
	}
	return nil
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}

// mergeEnv returns base with every key in overrides replaced or appended,
// sorted by key.
func mergeEnv(base []string, overrides map[string]string) []string {
	env := make(map[string]string, len(base)+len(overrides))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	for k, v := range overrides {
		env[k] = v
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
