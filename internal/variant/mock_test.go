package variant

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/beryl-lang/berylbuild/internal/command"
	"github.com/beryl-lang/berylbuild/internal/toolchain"
)

type call struct {
	op   string // "run", "copy" or "remove"
	dir  string
	args command.Vector
}

// mockRunner records every step. Compile-only runs drop an empty object
// file per source into their working directory, like a real compiler.
// With dryRun set it only records, like Exec in dry-run mode.
type mockRunner struct {
	calls  []call
	failOn string // fail the first run whose binary has this name
	code   int
	dryRun bool
}

var _ toolchain.Runner = (*mockRunner)(nil)

func (m *mockRunner) Run(ctx context.Context, dir string, cmd command.Vector) error {
	m.calls = append(m.calls, call{op: "run", dir: dir, args: cmd})
	if m.failOn != "" && cmd.Name() == m.failOn {
		return &toolchain.ToolchainError{Command: cmd, Dir: dir, ExitCode: m.code}
	}

	compileOnly := false
	for _, arg := range cmd.Args() {
		if arg == command.CompileOnlyFlag {
			compileOnly = true
		}
	}
	if !compileOnly || m.dryRun {
		return nil
	}
	for _, arg := range cmd.Args() {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		obj := filepath.Join(dir, command.ObjectName(arg))
		if err := os.WriteFile(obj, nil, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockRunner) Copy(ctx context.Context, src, dst string) error {
	m.calls = append(m.calls, call{op: "copy", args: command.Vector{"cp", src, dst}})
	if m.dryRun {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func (m *mockRunner) Remove(ctx context.Context, path string) error {
	m.calls = append(m.calls, call{op: "remove", args: command.Vector{"rm", "-f", path}})
	if m.dryRun {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (m *mockRunner) runs() []call {
	var out []call
	for _, c := range m.calls {
		if c.op == "run" {
			out = append(out, c)
		}
	}
	return out
}
