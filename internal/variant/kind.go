package variant

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/beryl-lang/berylbuild/internal/config"
)

// Kind names one of the build recipes.
type Kind int

const (
	Release        Kind = iota + 1 // standalone interpreter executable
	Debug                          // sanitizer-instrumented executable
	Library                        // full static library
	MinimalLibrary                 // static library without the optional runtime libraries
)

var kindNames = [...]string{
	Release:        "release",
	Debug:          "debug",
	Library:        "library",
	MinimalLibrary: "minimal",
}

var kindDescriptions = [...]string{
	Release:        "Standalone (Interpreter + Libraries + REPL)",
	Debug:          "Debug",
	Library:        "Library",
	MinimalLibrary: "Minimal library (no datastructures or IO functions)",
}

// Kinds returns every Kind in menu order.
func Kinds() []Kind {
	return []Kind{Release, Debug, Library, MinimalLibrary}
}

func (k Kind) valid() bool {
	return k >= Release && k <= MinimalLibrary
}

func (k Kind) String() string {
	if !k.valid() {
		return "unknown"
	}
	return kindNames[k]
}

// Description is the text shown for k in the interactive menu.
func (k Kind) Description() string {
	if !k.valid() {
		return ""
	}
	return kindDescriptions[k]
}

// IsLibrary reports whether k produces a static library.
func (k Kind) IsLibrary() bool {
	return k == Library || k == MinimalLibrary
}

// ParseKind accepts a menu number or a variant name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "release", "standalone":
		return Release, nil
	case "2", "debug", "d":
		return Debug, nil
	case "3", "library", "lib":
		return Library, nil
	case "4", "minimal", "minimal-lib", "minimal-library":
		return MinimalLibrary, nil
	}
	return 0, eris.Wrapf(config.ErrConfiguration, "unknown variant %q", s)
}

// recipe returns the configuration block for k.
func recipe(cfg *config.Config, k Kind) *config.Variant {
	switch k {
	case Release:
		return &cfg.Release
	case Debug:
		return &cfg.Debug
	case Library:
		return &cfg.Library
	case MinimalLibrary:
		return &cfg.Minimal
	}
	return nil
}
