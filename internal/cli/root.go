// Package cli implements the meetmesh command line.
package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/meetmesh/logging"
)

// Dependencies are shared by all commands.
type Dependencies struct {
	Out io.Writer
	Err io.Writer

	logLevel  string
	logFormat string
}

// Logger builds the logger selected by the persistent flags.
func (d *Dependencies) Logger() (logging.Logger, error) {
	level, err := logging.ParseLevel(d.logLevel)
	if err != nil {
		return nil, err
	}

	cfg := logging.DefaultLoggerConfig()
	cfg.Level = level
	cfg.Format = d.logFormat
	cfg.Output = d.Err
	cfg.Component = "cli"

	return logging.NewLogger(cfg), nil
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.Err == nil {
		deps.Err = os.Stderr
	}

	rootCmd := &cobra.Command{
		Use:           "meetmesh",
		Short:         "Negotiate meeting times with a priority-ordered group",
		Long:          "meetmesh runs meeting time negotiations: the main coordinator proposes a time, every other participant certifies it in priority order.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetOut(deps.Out)
	rootCmd.SetErr(deps.Err)

	rootCmd.PersistentFlags().StringVar(&deps.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&deps.logFormat, "log-format", "text", "log format (text, json)")

	rootCmd.AddCommand(NewScheduleCmd(deps))
	rootCmd.AddCommand(NewRulesCmd(deps))

	return rootCmd
}
