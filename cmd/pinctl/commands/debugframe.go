package commands

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(debugFrameCmd)
}

var debugFrameCmd = &cobra.Command{
	Use:   "debug-frame <output.bmp>",
	Short: "Fetch the currently pinned window's last frame and write it to disk",
	Long: `debug-frame asks the running pin agent for the most recent
frame delivered by its capture session and saves it as a BMP file, to
check whether a window that mirrors blank is actually producing
shareable content.`,
	Args: cobra.ExactArgs(1),
	RunE: runDebugFrame,
}

func runDebugFrame(cmd *cobra.Command, args []string) error {
	resp, err := http.Get(baseURL("/debug-frame"))
	if err != nil {
		return fmt.Errorf("pin agent unreachable at %s: %w", httpAddr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pin agent returned %s: %s", resp.Status, string(body))
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}
