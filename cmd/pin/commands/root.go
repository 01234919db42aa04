// Package commands implements the pin agent's cobra command tree, in
// the same commands-package layout as FocusStreamer's
// cmd/focusstreamer/commands.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pin",
	Short: "Pin keeps a chosen window always on top via a mirrored overlay",
	Long: `Pin captures a window's live pixels and mirrors them into a
borderless overlay window pinned above every other window and space,
so you can watch a reference window while another application has
focus.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/pin/pin.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "colorized console log output instead of JSON lines")
	rootCmd.PersistentFlags().String("response-file", "", "path the dispatcher writes command responses to")
	rootCmd.PersistentFlags().String("http-addr", "", "loopback address for the HTTP command mirror, empty disables it")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))
	viper.BindPFlag("response_file", rootCmd.PersistentFlags().Lookup("response-file"))
	viper.BindPFlag("http_addr", rootCmd.PersistentFlags().Lookup("http-addr"))
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pin: %v\n", err)
		os.Exit(1)
	}
}

// ConfigFile returns the --config flag value, empty when unset.
func ConfigFile() string {
	return cfgFile
}
