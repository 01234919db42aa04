package commands

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/southflowpeak/pin/internal/mcpserver"
)

func init() {
	rootCmd.AddCommand(mcpServeCmd)
}

var mcpServeCmd = &cobra.Command{
	Use:   "mcp-serve",
	Short: "Expose pin/unpin/status as MCP tools over stdio",
	Long: `mcp-serve runs the same state machine as serve, but exposes it
to an MCP client over stdio instead of the menu bar, for driving Pin
from an agent rather than a human.`,
	RunE: runMCPServe,
}

func runMCPServe(cmd *cobra.Command, args []string) error {
	b, err := wire()
	if err != nil {
		return fmt.Errorf("failed to initialize pin agent: %w", err)
	}

	s := mcpserver.New(b.dispatcher, func(v float64) error {
		_, err := b.agent.SetOpacity(v)
		return err
	})

	log.Info().Msg("pin mcp server starting on stdio")
	return server.ServeStdio(s)
}
