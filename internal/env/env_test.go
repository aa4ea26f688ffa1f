package env

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

func TestUserConfigDir(t *testing.T) {
	dir, err := UserConfigDir()
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}

	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		t.Fatalf("os.UserConfigDir() returned error: %v", err)
	}
	if want := filepath.Join(userConfigDir, "berylbuild"); dir != want {
		t.Errorf("UserConfigDir() = %q, want %q", dir, want)
	}
}

func TestConfigFiles(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honoured on Linux")
	}
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)

	got := ConfigFiles("ci.toml")
	want := []string{
		"ci.toml",
		ProjectConfig,
		filepath.Join(home, "berylbuild", "config.toml"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ConfigFiles() = %v, want %v", got, want)
	}
}

func TestConfigFilesDoesNotAliasExtra(t *testing.T) {
	extra := make([]string, 1, 8)
	extra[0] = "a.toml"
	_ = ConfigFiles(extra...)
	if got := extra[:2][1]; got != "" {
		t.Errorf("ConfigFiles wrote into the caller's slice: %q", got)
	}
}
