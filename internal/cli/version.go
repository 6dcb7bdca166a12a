package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped by the release build via -ldflags.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the cmdvet version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("cmdvet", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
