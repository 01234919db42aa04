// Package commands implements pinctl's cobra command tree: a thin
// HTTP client for the running pin agent's command mirror.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var httpAddr string

var rootCmd = &cobra.Command{
	Use:   "pinctl",
	Short: "pinctl drives a running pin agent from the command line",
	Long: `pinctl talks to a running pin agent over its loopback HTTP
command mirror. Start the agent first with "pin serve".`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpAddr, "addr", "127.0.0.1:47710", "pin agent's HTTP command mirror address")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pinctl: %v\n", err)
		os.Exit(1)
	}
}
