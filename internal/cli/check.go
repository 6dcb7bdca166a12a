package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cmdvet/cmdvet/internal/engine"
)

var checkCwd string

var checkCmd = &cobra.Command{
	Use:   "check [command...]",
	Short: "evaluate a shell command from the terminal",
	Long: `Evaluates a shell command and prints the decision with its reason.
Exit status maps to the decision: 0 allow, 1 ask, 2 deny.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkCwd, "cwd", "", "working directory for relative paths and project policy lookup")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	command := strings.Join(args, " ")

	decision, err := evaluate(command, checkCwd, "check")
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", renderAction(decision.Action), decision.Reason)

	switch decision.Action {
	case engine.ActionAllow:
		return nil
	case engine.ActionDeny:
		os.Exit(2)
	default:
		os.Exit(1)
	}
	return nil
}

// renderAction colors the decision on a tty and leaves it plain when
// output is piped.
func renderAction(action engine.Action) string {
	name := strings.ToUpper(action.String())
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return name
	}
	switch action {
	case engine.ActionAllow:
		return "\033[32m" + name + "\033[0m"
	case engine.ActionDeny:
		return "\033[31m" + name + "\033[0m"
	default:
		return "\033[33m" + name + "\033[0m"
	}
}
