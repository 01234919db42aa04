package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(unpinCmd)
	rootCmd.AddCommand(panicCmd)
}

var unpinCmd = &cobra.Command{
	Use:   "unpin",
	Short: "Stop mirroring the currently pinned window",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := doPost("/unpin", nil)
		if err != nil {
			return err
		}
		if err := reportFailure(resp); err != nil {
			return err
		}
		fmt.Println("unpinned")
		return nil
	},
}

var panicCmd = &cobra.Command{
	Use:   "panic",
	Short: "Force-restore to idle from any state",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := doPost("/panic", nil)
		if err != nil {
			return err
		}
		if err := reportFailure(resp); err != nil {
			return err
		}
		fmt.Println("panic_complete")
		return nil
	},
}
