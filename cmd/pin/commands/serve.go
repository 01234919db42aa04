package commands

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/southflowpeak/pin/internal/httpapi"
	"github.com/southflowpeak/pin/internal/menubar"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Pin agent: menu bar presenter, command dispatcher, and HTTP mirror",
	Long: `serve starts the Pin agent process: the state machine, the
command dispatcher (which writes each response to the response file),
an optional loopback HTTP mirror of the six commands, and the menu
bar icon. It does not receive pin:// URL activations from the OS;
commands arrive through the HTTP mirror and the menu bar. It runs
until Quit is chosen from the menu bar.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// systray.Run (invoked by Presenter.Run below) must be called from
	// the process's main OS thread on macOS; pin the goroutine cobra
	// dispatched us on before anything else touches Cocoa.
	runtime.LockOSThread()

	b, err := wire()
	if err != nil {
		return fmt.Errorf("failed to initialize pin agent: %w", err)
	}

	var httpServer *httpapi.Server
	if b.cfg.HTTPAddr != "" {
		httpServer = httpapi.New(b.cfg.HTTPAddr, b.dispatcher, b.agent, b.agent)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil {
				log.Error().Err(err).Msg("http command mirror stopped")
			}
		}()
	}

	log.Info().Str("response_file", b.cfg.ResponseFilePath).Msg("pin agent starting")

	presenter := menubar.New(b.dispatcher)
	presenter.Run()

	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctx)
	}
	return nil
}
