package commands

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pinWindowCmd)
}

var pinWindowCmd = &cobra.Command{
	Use:   "pin-window <window-id>",
	Short: "Pin a specific window by its OS window identifier",
	Args:  cobra.ExactArgs(1),
	RunE:  runPinWindow,
}

func runPinWindow(cmd *cobra.Command, args []string) error {
	resp, err := doPost("/pin-window", url.Values{"id": {args[0]}})
	if err != nil {
		return err
	}
	if err := reportFailure(resp); err != nil {
		return err
	}
	fmt.Println("pinned")
	return nil
}
