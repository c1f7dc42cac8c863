package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/voxtask/voxtask/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "voxtask-configure",
		Short: "Operational tool for the voxtask API",
		Long:  "CLI tool for running extractions, minting session join tokens, and inspecting the tag vocabulary",
	}

	rootCmd.AddCommand(commands.NewExtractCmd())
	rootCmd.AddCommand(commands.NewTokenCmd())
	rootCmd.AddCommand(commands.NewListCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
