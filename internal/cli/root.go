// Package cli wires the cmdvet commands: hook for editor integration,
// check for terminal use.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	auditPath string
	verbose   bool

	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cmdvet",
	Short: "cmdvet - command safety gate for coding agents",
	Long: `cmdvet decides whether a shell command proposed by a coding agent is
safe to run without a human in the loop. Read-only commands are approved,
anything that writes, executes unknown code, or hides behind substitutions
is held for confirmation, and operator-configured rules can hard-block.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).With().Timestamp().Logger()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&auditPath, "audit-log", "", "path to the JSONL audit log (default: ~/.local/state/cmdvet/audit.jsonl)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging on stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
