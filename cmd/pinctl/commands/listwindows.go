package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listWindowsCmd)
}

var listWindowsCmd = &cobra.Command{
	Use:   "list-windows",
	Short: "List windows eligible to be pinned",
	RunE:  runListWindows,
}

func runListWindows(cmd *cobra.Command, args []string) error {
	resp, err := doGet("/list-windows")
	if err != nil {
		return err
	}
	if err := reportFailure(resp); err != nil {
		return err
	}
	if len(resp.Windows) == 0 {
		fmt.Println("no eligible windows")
		return nil
	}
	for _, w := range resp.Windows {
		fmt.Printf("%d\t%s\t%s\n", w.WindowID, w.AppName, w.WindowTitle)
	}
	return nil
}
