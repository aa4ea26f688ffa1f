package variant

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/beryl-lang/berylbuild/internal/config"
	"github.com/beryl-lang/berylbuild/internal/toolchain"
)

func requireToolchain(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"cc", "ar"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH", bin)
		}
	}
}

func writeSources(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	files := map[string]string{
		"src/interpreter.h": "#ifndef INTERPRETER_H\n#define INTERPRETER_H\nint helper(int x);\n#endif\n",
		"src/helper.c":      "#include \"interpreter.h\"\nint helper(int x) { return x * 2; }\n",
		"src/main.c":        "#include \"interpreter.h\"\nint main(void) { return helper(0); }\n",
	}
	for name, content := range files {
		if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestReleaseE2E(t *testing.T) {
	requireToolchain(t)
	writeSources(t)

	runner := &toolchain.Exec{Stdout: io.Discard, Stderr: io.Discard}
	res, err := New(config.Default(), runner).Build(context.Background(), Release)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	info, err := os.Stat(filepath.Join("out", "interpreter.out"))
	if err != nil {
		t.Fatalf("executable not produced: %v", err)
	}
	if info.Mode()&0o111 == 0 {
		t.Errorf("%s is not executable", res.Artifact)
	}
	if err := exec.Command(filepath.Join(".", "out", "interpreter.out")).Run(); err != nil {
		t.Errorf("running the interpreter: %v", err)
	}
}

func TestLibraryE2E(t *testing.T) {
	requireToolchain(t)
	writeSources(t)

	runner := &toolchain.Exec{Stdout: io.Discard, Stderr: io.Discard}
	res, err := New(config.Default(), runner).Build(context.Background(), Library)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Objects) != 1 || res.Objects[0] != "helper.o" {
		t.Errorf("Objects = %v, want [helper.o]", res.Objects)
	}
	for _, p := range []string{"lib.ar", "interpreter.h", "helper.o"} {
		if _, err := os.Stat(filepath.Join("out", p)); err != nil {
			t.Errorf("out/%s missing: %v", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join("out", "main.o")); !os.IsNotExist(err) {
		t.Error("main.c must not be compiled into the library")
	}
}

func TestCompileErrorE2E(t *testing.T) {
	requireToolchain(t)
	writeSources(t)
	if err := os.WriteFile(filepath.Join("src", "broken.c"), []byte("this is not C\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &toolchain.Exec{Stdout: io.Discard, Stderr: io.Discard}
	res, err := New(config.Default(), runner).Build(context.Background(), Library)
	te, ok := err.(*toolchain.ToolchainError)
	if !ok {
		t.Fatalf("error = %v, want *toolchain.ToolchainError", err)
	}
	if te.ExitCode == 0 {
		t.Error("ExitCode = 0 for a failed compile")
	}
	if res.State() != Failed {
		t.Errorf("State = %v, want failed", res.State())
	}
	if _, err := os.Stat(filepath.Join("out", "lib.ar")); !os.IsNotExist(err) {
		t.Error("library archived after a failed compile")
	}
}
