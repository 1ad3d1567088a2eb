package main

import (
	"flag"
	"fmt"

	"github.com/ancientlore/inkwell/failure"
	"github.com/ancientlore/inkwell/site"
	"github.com/facebookgo/flagenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// envPrefix prefixes the environment variables that set flag defaults.
const envPrefix = "INKWELL_"

// globals are the flags shared by all commands.
type globals struct {
	verbose bool
	config  string

	logger *zap.Logger
	envErr error
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	g := &globals{logger: logger}

	cmd := &cobra.Command{
		Use:   "inkwell",
		Short: "Build and preview a site of Markdown essays",
		Long: `inkwell turns a directory of Markdown files with front matter into a
static HTML site using a theme of Go templates.

  inkwell build    write the site to the output directory
  inkwell serve    serve the site and rebuild it when sources change
  inkwell new      start a new draft

Flags can also be set with INKWELL_<FLAG> environment variables, for
example INKWELL_PORT=8080. A .env file in the working directory is read
first.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.envErr != nil {
				return &failure.UsageError{Err: g.envErr}
			}
			if g.logger != nil {
				return nil
			}
			l, err := newLogger(g.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			g.logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.logger != nil {
				_ = g.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &failure.UsageError{Err: fmt.Errorf("unknown command %q", args[0])}
			}
			return cmd.Help()
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &failure.UsageError{Err: err}
	})

	fs := flag.NewFlagSet("inkwell", flag.ContinueOnError)
	fs.BoolVar(&g.verbose, "verbose", false, "Log debug messages.")
	fs.StringVar(&g.config, "config", site.ConfigFile, "Site configuration file.")
	g.addFlags(cmd, fs, true)

	cmd.AddCommand(newBuildCmd(g), newServeCmd(g), newNewCmd(g))
	return cmd
}

// addFlags applies environment overrides to the defaults in fs and adds
// its flags to cmd. Values given on the command line win, since they are
// parsed afterwards.
func (g *globals) addFlags(cmd *cobra.Command, fs *flag.FlagSet, persistent bool) {
	if err := flagenv.ParseSet(envPrefix, fs); err != nil && g.envErr == nil {
		g.envErr = err
	}
	if persistent {
		cmd.PersistentFlags().AddGoFlagSet(fs)
	} else {
		cmd.Flags().AddGoFlagSet(fs)
	}
}

// newLogger builds the console logger, at debug level when verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.DisableStacktrace = true
	config.Sampling = nil
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// loadConfig reads the site configuration named by --config.
func (g *globals) loadConfig() (*site.Config, error) {
	return site.LoadConfig(g.config)
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &failure.UsageError{Err: err}
		}
		return nil
	}
}

// noArgs is cobra.NoArgs reporting a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return &failure.UsageError{Err: err}
	}
	return nil
}
