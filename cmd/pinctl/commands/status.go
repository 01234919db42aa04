package commands

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/southflowpeak/pin/internal/model"
)

var watch bool

func init() {
	statusCmd.Flags().BoolVarP(&watch, "watch", "w", false, "stream status updates as they change")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the current pin state",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	if watch {
		return watchStatus()
	}
	resp, err := doGet("/status")
	if err != nil {
		return err
	}
	if resp.Status == nil {
		return fmt.Errorf("no status in response")
	}
	printStatus(*resp.Status)
	return nil
}

func watchStatus() error {
	u := url.URL{Scheme: "ws", Host: httpAddr, Path: "/status/stream"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("pin agent unreachable at %s: %w", httpAddr, err)
	}
	defer conn.Close()

	for {
		var status model.AgentStatus
		if err := conn.ReadJSON(&status); err != nil {
			return nil
		}
		printStatus(status)
	}
}

func printStatus(s model.AgentStatus) {
	data, err := json.Marshal(s)
	if err != nil {
		fmt.Printf("state=%s pinned=%v\n", s.State, s.Pinned)
		return
	}
	fmt.Println(string(data))
}
