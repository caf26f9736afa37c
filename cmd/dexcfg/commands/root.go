// Package commands provides the dexcfg CLI's subcommands.
package commands

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Log is the process-wide logger, configured by RootCmd's persistent flags.
// The core package (internal/dex) never logs; only this CLI boundary does,
// matching the ambient-stack split described for this module.
var Log zerolog.Logger

var verbose bool

// RootCmd is the base command when dexcfg is invoked with no subcommand.
var RootCmd = &cobra.Command{
	Use:   "dexcfg",
	Short: "dexcfg builds, mutates, and linearizes Dex-style control-flow graphs",
	Long: `dexcfg is a small command-line front end over the dex control-flow-graph
core: build a CFG from a linear instruction-list fixture, linearize an edited
CFG back into one, render a CFG as Graphviz DOT, or run structural
health checks against a fixture.

Commands:
  build      Build a CFG from a fixture and report its shape
  linearize  Build, simplify, and linearize a fixture back into one
  dot        Render a CFG as Graphviz DOT
  doctor     Run structural sanity checks, capturing a crash repro on failure

Use "dexcfg [command] --help" for more information about a command.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	},
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	RootCmd.AddCommand(buildCmd)
	RootCmd.AddCommand(linearizeCmd)
	RootCmd.AddCommand(dotCmd)
	RootCmd.AddCommand(doctorCmd)
}
