// Package cli implements the macrorec command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ItvordRE/MacroRecorder/internal/config"
	"github.com/ItvordRE/MacroRecorder/internal/logging"
)

// ErrInvalidOutput is returned for an unknown --output value.
var ErrInvalidOutput = errors.New("invalid output format")

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// CLI holds the state shared by every command.
type CLI struct {
	version string
	commit  string
	date    string

	out     io.Writer
	errOut  io.Writer
	environ []string
	backend BackendFactory

	flags struct {
		config    string
		logLevel  string
		logFormat string
		output    string
	}

	cfg       config.Config
	logger    zerolog.Logger
	logCloser io.Closer
}

// Option configures a CLI.
type Option func(*CLI)

// WithVersion sets the build information reported by the version command.
func WithVersion(version, commit, date string) Option {
	return func(c *CLI) {
		c.version = version
		c.commit = commit
		c.date = date
	}
}

// WithOutput sets the standard and error output writers.
func WithOutput(out, errOut io.Writer) Option {
	return func(c *CLI) {
		c.out = out
		c.errOut = errOut
	}
}

// WithEnviron replaces the process environment used for configuration.
func WithEnviron(environ []string) Option {
	return func(c *CLI) {
		c.environ = environ
	}
}

// WithBackend sets how input backends are created.
func WithBackend(f BackendFactory) Option {
	return func(c *CLI) {
		c.backend = f
	}
}

// New creates a CLI.
func New(opts ...Option) *CLI {
	c := &CLI{
		version: "dev",
		commit:  "unknown",
		date:    "unknown",
		out:     os.Stdout,
		errOut:  os.Stderr,
		backend: DefaultBackend,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs the command named by args.
func (c *CLI) Execute(ctx context.Context, args []string) error {
	root := c.newRootCommand()
	root.SetArgs(args)
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	err := root.ExecuteContext(ctx)
	if c.logCloser != nil {
		_ = c.logCloser.Close()
		c.logCloser = nil
	}
	return err
}

func (c *CLI) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "macrorec",
		Short: "Record and replay mouse and keyboard macros",
		Long: `macrorec records clicks and key presses into replayable macros.

Recording stops when q or Esc is pressed. Recordings are saved to the
auto-save file and can be replayed, exported or kept in the macro library.
Game profiles add key maps and ready-made preset macros.`,
		Version:           c.version,
		PersistentPreRunE: c.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.AddGroup(
		&cobra.Group{ID: "session", Title: "Session Commands:"},
		&cobra.Group{ID: "manage", Title: "Management Commands:"},
	)

	flags := root.PersistentFlags()
	flags.StringVarP(&c.flags.config, "config", "c", "", "config file (default $XDG_CONFIG_HOME/macrorec/config.toml)")
	flags.StringVar(&c.flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&c.flags.logFormat, "log-format", "", "log format: auto, console, json")
	flags.StringVarP(&c.flags.output, "output", "o", OutputTable, "output format: table, json")

	root.SetVersionTemplate("macrorec {{.Version}}\n")

	root.AddCommand(
		c.newRecordCommand(),
		c.newPlayCommand(),
		c.newProfilesCommand(),
		c.newPresetsCommand(),
		c.newLibraryCommand(),
		c.newVersionCommand(),
	)
	return root
}

// setup loads the configuration, applies the global flags and builds
// the logger.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	switch strings.ToLower(c.flags.output) {
	case OutputTable, OutputJSON:
		c.flags.output = strings.ToLower(c.flags.output)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOutput, c.flags.output)
	}

	cfg, err := config.Load(config.Options{
		Path:    c.flags.config,
		Environ: c.environ,
	})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = c.flags.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = c.flags.logFormat
	}

	logger, closer, err := logging.New(cfg.Logging())
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = logger
	c.logCloser = closer
	c.logger.Debug().Str("command", cmd.CommandPath()).Msg("configuration loaded")
	return nil
}

func (c *CLI) component(name string) zerolog.Logger {
	return logging.Component(c.logger, name)
}

func (c *CLI) jsonOutput() bool {
	return c.flags.output == OutputJSON
}

func (c *CLI) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		GroupID: "manage",
		Short:   "Show version information",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"version": c.version,
					"commit":  c.commit,
					"date":    c.date,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "macrorec %s\n", c.version)
			fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", c.commit)
			fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", c.date)
			return nil
		},
	}
}
