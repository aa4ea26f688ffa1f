package internal

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/beryl-lang/berylbuild/internal/command"
	"github.com/beryl-lang/berylbuild/internal/config"
	"github.com/beryl-lang/berylbuild/internal/env"
	"github.com/beryl-lang/berylbuild/internal/fileset"
	"github.com/beryl-lang/berylbuild/internal/logging"
	"github.com/beryl-lang/berylbuild/internal/toolchain"
	"github.com/beryl-lang/berylbuild/internal/variant"
)

var (
	configFiles  []string
	dryRun       bool
	logLevel     string
	compiler     string
	variantName  string
	printConfig  bool
	configFormat string
)

var rootCmd = &cobra.Command{
	Use:   "berylbuild [d]",
	Short: "berylbuild builds the Beryl interpreter",
	Long: `berylbuild compiles the C sources under src/ into the standalone interpreter,
a debug build or a static library. It asks which one to build unless it is
called as "berylbuild d", which starts the debug build directly, or with
--variant. Any other argument shows the menu as well.`,
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{
		UnknownFlags: true,
	},
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Version: config.Version,
	RunE:    runRoot,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringSliceVar(&configFiles, "config", nil, "Configuration file to use before "+env.ProjectConfig)
	flags.BoolVarP(&dryRun, "dry-run", "n", false, "Only print the commands, don't execute anything")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&compiler, "cc", "", "C compiler to use instead of the configured one")

	flags = rootCmd.Flags()
	flags.StringVar(&variantName, "variant", "", "Build this variant without asking (release, debug, library or minimal)")
	flags.BoolVar(&printConfig, "print-config", false, "Print the effective configuration and exit")
	flags.StringVarP(&configFormat, "format", "f", "toml", "Format for --print-config (toml or yaml)")
}

func runRoot(cmd *cobra.Command, args []string) error {
	switch {
	case printConfig:
		return runPrintConfig(cmd)
	case variantName != "":
		kind, err := variant.ParseKind(variantName)
		if err != nil {
			return err
		}
		return runVariant(cmd, kind)
	case len(args) == 1 && args[0] == "d":
		return runVariant(cmd, variant.Debug)
	}
	return runMenu(cmd)
}

func runPrintConfig(cmd *cobra.Command) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	return s.cfg.Encode(cmd.OutOrStdout(), configFormat)
}

// session bundles what every command needs once the configuration is known.
type session struct {
	cfg    *config.Config
	logger *zerolog.Logger
	ctx    context.Context
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(env.ConfigFiles(configFiles...)...)
	if err != nil {
		return nil, err
	}
	if compiler != "" {
		cfg.Compiler = compiler
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel(), cfg.Log.JSON)
	return &session{
		cfg:    cfg,
		logger: &logger,
		ctx:    logging.WithLogger(cmd.Context(), &logger),
	}, nil
}

// reportedError is an error that has already been logged.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func runVariant(cmd *cobra.Command, kind variant.Kind) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	runner := &toolchain.Exec{
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Env:    s.cfg.Env,
		DryRun: dryRun,
	}
	builder := variant.New(s.cfg, runner)
	builder.DryRun = dryRun

	if _, err := builder.Build(s.ctx, kind); err != nil {
		s.logger.Error().Str("variant", kind.String()).Err(err).Msg("build failed")
		return &reportedError{err: err}
	}
	return nil
}

// exitCode maps err to the process exit status. Toolchain failures pass
// the child's status through.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var te *toolchain.ToolchainError
	if errors.As(err, &te) && te.ExitCode > 0 {
		return te.ExitCode
	}
	var dup *fileset.DuplicatePathError
	if errors.As(err, &dup) ||
		eris.Is(err, config.ErrConfiguration) ||
		eris.Is(err, command.ErrInvalidSpec) ||
		eris.Is(err, command.ErrInvalidOutputSpec) {
		return 2
	}
	return 1
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	var reported *reportedError
	if err != nil && !errors.As(err, &reported) {
		colorstring.Fprint(os.Stderr, fmt.Sprintf("[red]Error:[reset] %s\n", eris.ToString(err, logging.Trace())))
	}
	os.Exit(exitCode(err))
}
