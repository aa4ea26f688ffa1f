// Package config holds the settings every build variant is composed from.
package config

import (
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/pelletier/go-toml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Version is the berylbuild release, compared against MinVersion.
const Version = "v0.3.0"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BERYLBUILD"

// ErrConfiguration marks every error caused by invalid settings.
var ErrConfiguration = eris.New("configuration error")

// Variant describes one compiler invocation recipe.
type Variant struct {
	Flags   []string `toml:"flags" yaml:"flags" usage:"Compiler flags, in order"`
	Exclude []string `toml:"exclude" yaml:"exclude,omitempty" usage:"Sources to leave out, relative to the source dir"`
	Output  string   `toml:"output" yaml:"output,omitempty" usage:"Executable to produce, relative to the working directory"`
	Libs    []string `toml:"libs" yaml:"libs,omitempty" usage:"Arguments placed after the sources"`
}

// Config describes all configuration options
type Config struct {
	MinVersion  string            `toml:"min_version" yaml:"min_version,omitempty" usage:"Oldest berylbuild release this project builds with"`
	Compiler    string            `toml:"compiler" yaml:"compiler" usage:"C compiler"`
	Archiver    string            `toml:"archiver" yaml:"archiver" usage:"Static library archiver"`
	Extensions  []string          `toml:"extensions" yaml:"extensions" usage:"Source file extensions"`
	SourceDir   string            `toml:"source_dir" yaml:"source_dir" usage:"Source tree root"`
	OutputDir   string            `toml:"output_dir" yaml:"output_dir" usage:"Directory receiving build artifacts"`
	Header      string            `toml:"header" yaml:"header" usage:"Public header copied next to libraries"`
	LibraryName string            `toml:"library_name" yaml:"library_name" usage:"Static library file name"`
	Env         map[string]string `toml:"env" yaml:"env,omitempty" usage:"Extra environment for toolchain processes"`

	Release Variant `toml:"release" yaml:"release"`
	Debug   Variant `toml:"debug" yaml:"debug"`
	Library Variant `toml:"library" yaml:"library"`
	Minimal Variant `toml:"minimal" yaml:"minimal"`

	Log struct {
		Level string `toml:"level" yaml:"level" usage:"Log level (debug, info, warn, error)"`
		JSON  bool   `toml:"json" yaml:"json" usage:"Output JSON lines instead of console messages"`
	} `toml:"log" yaml:"log"`
}

var logLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

// Default returns the built-in configuration for the Beryl source tree.
func Default() *Config {
	cfg := &Config{
		Compiler:    "cc",
		Archiver:    "ar",
		Extensions:  []string{".c"},
		SourceDir:   "src",
		OutputDir:   "out",
		Header:      "interpreter.h",
		LibraryName: "lib.ar",
		Release: Variant{
			Flags:  []string{"-DNO_INCLUDE_ASSERTS", "-DNO_TESTS", "-O2", "-std=c99"},
			Output: "out/interpreter.out",
			Libs:   []string{"-lm"},
		},
		Debug: Variant{
			Flags: []string{
				"-DDEBUG", "-Wall", "-Wpedantic", "-g", "-std=c99",
				"-fsanitize=address", "-fsanitize=undefined", "-fsanitize=leak",
			},
			Output: "out/a.out",
			Libs:   []string{"-lm"},
		},
		Library: Variant{
			Flags:   []string{"-O2", "-std=c99", "-c"},
			Exclude: []string{"main.c"},
		},
		Minimal: Variant{
			Flags: []string{"-O2", "-std=c99", "-c", "-DMINIMAL_BUILD"},
			Exclude: []string{
				"main.c",
				"io.c",
				"libs/datastructures_lib.c",
				"libs/io_lib.c",
				"libs/debug_lib.c",
				"libs/common_lib.c",
				"libs/math_lib.c",
				"libs/string_lib.c",
				"libs/modules_lib.c",
			},
		},
	}
	cfg.Log.Level = "info"
	return cfg
}

// Load returns Default() overlaid with the first existing TOML file out of
// files and then BERYLBUILD_* environment variables.
func Load(files ...string) (*Config, error) {
	cfg := Default()
	loader := aconfig.LoaderFor(cfg, aconfig.Config{
		SkipDefaults: true,
		SkipFlags:    true,
		EnvPrefix:    EnvPrefix,
		// BERYLBUILD_TRACE belongs to the logger
		AllowUnknownEnvs: true,
		Files:            files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, eris.Wrap(ErrConfiguration, err.Error())
	}
	return cfg, nil
}

// Validate verifies that all fields have usable values.
func (cfg *Config) Validate() error {
	for name, value := range map[string]string{
		"compiler":     cfg.Compiler,
		"archiver":     cfg.Archiver,
		"source_dir":   cfg.SourceDir,
		"output_dir":   cfg.OutputDir,
		"header":       cfg.Header,
		"library_name": cfg.LibraryName,
	} {
		if strings.TrimSpace(value) == "" {
			return eris.Wrapf(ErrConfiguration, "%s must not be empty", name)
		}
	}

	if len(cfg.Extensions) == 0 {
		return eris.Wrap(ErrConfiguration, "extensions must not be empty")
	}
	for _, ext := range cfg.Extensions {
		if strings.TrimSpace(ext) == "" {
			return eris.Wrap(ErrConfiguration, "extensions must not contain empty entries")
		}
	}

	if _, ok := logLevels[cfg.Log.Level]; !ok {
		return eris.Wrapf(ErrConfiguration, "invalid value for log.level: %s", cfg.Log.Level)
	}

	if cfg.MinVersion != "" {
		if !semver.IsValid(cfg.MinVersion) {
			return eris.Wrapf(ErrConfiguration, "invalid min_version %q", cfg.MinVersion)
		}
		if semver.Compare(Version, cfg.MinVersion) < 0 {
			return eris.Wrapf(ErrConfiguration, "project requires berylbuild %s, this is %s", cfg.MinVersion, Version)
		}
	}

	for name, v := range map[string]*Variant{"release": &cfg.Release, "debug": &cfg.Debug} {
		if v.Output == "" {
			return eris.Wrapf(ErrConfiguration, "%s.output must not be empty", name)
		}
		if slices.Contains(v.Flags, "-c") {
			return eris.Wrapf(ErrConfiguration, "%s.flags must not contain -c", name)
		}
		if err := checkExcludes(name, v.Exclude); err != nil {
			return err
		}
	}
	for name, v := range map[string]*Variant{"library": &cfg.Library, "minimal": &cfg.Minimal} {
		if !slices.Contains(v.Flags, "-c") {
			return eris.Wrapf(ErrConfiguration, "%s.flags must contain -c", name)
		}
		if v.Output != "" {
			return eris.Wrapf(ErrConfiguration, "%s.output must be empty, objects go to output_dir", name)
		}
		if err := checkExcludes(name, v.Exclude); err != nil {
			return err
		}
	}

	if filepath.Base(cfg.LibraryName) != cfg.LibraryName {
		return eris.Wrapf(ErrConfiguration, "library_name %q must be a plain file name", cfg.LibraryName)
	}
	return nil
}

func checkExcludes(variant string, names []string) error {
	for _, name := range names {
		clean := filepath.Clean(name)
		if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return eris.Wrapf(ErrConfiguration, "%s.exclude entry %q escapes the source dir", variant, name)
		}
	}
	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Config) LogLevel() zerolog.Level {
	return logLevels[cfg.Log.Level]
}

// Encode writes cfg to w as "toml" or "yaml".
func (cfg *Config) Encode(w io.Writer, format string) error {
	switch format {
	case "toml", "":
		enc := toml.NewEncoder(w).Order(toml.OrderPreserve)
		if err := enc.Encode(cfg); err != nil {
			return eris.Wrap(err, "failed to encode config as toml")
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return eris.Wrap(err, "failed to encode config as yaml")
		}
		return enc.Close()
	default:
		return eris.Wrapf(ErrConfiguration, "unknown format %q (must be toml or yaml)", format)
	}
}
