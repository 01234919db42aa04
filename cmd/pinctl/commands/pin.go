package commands

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/southflowpeak/pin/internal/pickertui"
)

var interactive bool

func init() {
	pinCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick the window to pin from a list")
	rootCmd.AddCommand(pinCmd)
}

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Pin the frontmost eligible window",
	RunE:  runPin,
}

func runPin(cmd *cobra.Command, args []string) error {
	if !interactive {
		resp, err := doPost("/pin", nil)
		if err != nil {
			return err
		}
		if err := reportFailure(resp); err != nil {
			return err
		}
		fmt.Println("pinned")
		return nil
	}

	listResp, err := doGet("/list-windows")
	if err != nil {
		return err
	}
	if err := reportFailure(listResp); err != nil {
		return err
	}

	descriptors := toTargetDescriptors(listResp)
	result, err := pickertui.Run(descriptors)
	if err != nil {
		return err
	}
	if result.Cancelled || result.Chosen == nil {
		fmt.Println("cancelled")
		return nil
	}

	resp, err := doPost("/pin-window", url.Values{"id": {fmt.Sprintf("%d", result.Chosen.WindowID)}})
	if err != nil {
		return err
	}
	if err := reportFailure(resp); err != nil {
		return err
	}
	fmt.Printf("pinned %s\n", result.Chosen.AppName)
	return nil
}
