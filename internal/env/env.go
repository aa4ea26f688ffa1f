// Package env locates berylbuild's configuration files.
package env

import (
	"os"
	"path/filepath"
)

// ProjectConfig is the per-project configuration file, looked up in the
// working directory.
const ProjectConfig = "berylbuild.toml"

// UserConfigDir returns the per-user berylbuild directory.
func UserConfigDir() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userConfigDir, "berylbuild"), nil
}

// ConfigFiles returns the configuration files to consider, most specific
// first: extra (in order), the project file, then the user file. The
// user file is omitted when no user config directory is known.
func ConfigFiles(extra ...string) []string {
	files := append([]string{}, extra...)
	files = append(files, ProjectConfig)
	if dir, err := UserConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, "config.toml"))
	}
	return files
}
