package main

import (
	"os"

	"github.com/cmdvet/cmdvet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
