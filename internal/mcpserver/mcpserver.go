// Package mcpserver exposes the dispatcher's six operations as MCP
// tools (SPEC_FULL.md §12.3), so an MCP-capable agent can pin, unpin,
// list windows, and read status the same way the menu bar or the URL
// command surface does — every tool call is just a dispatch.Command.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/southflowpeak/pin/internal/dispatch"
)

// New builds an MCP server wrapping dispatcher, one tool per §4.6
// command plus set_opacity (SPEC_FULL.md §12.3 supplements the
// dispatcher's six with direct opacity control since an MCP client
// has no menu to drag a slider in).
func New(d *dispatch.Dispatcher, setOpacity func(float64) error) *server.MCPServer {
	s := server.NewMCPServer("pin", "1.0.0")

	s.AddTool(mcp.NewTool("pin",
		mcp.WithDescription("Pin the frontmost eligible window so it stays always on top")),
		toolHandler(d, "pin", nil))

	s.AddTool(mcp.NewTool("pin_window",
		mcp.WithDescription("Pin a specific window by its OS window identifier"),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("OS window identifier"))),
		toolHandler(d, "pin-window", []string{"id"}))

	s.AddTool(mcp.NewTool("list_windows",
		mcp.WithDescription("List windows eligible to be pinned")),
		toolHandler(d, "list-windows", nil))

	s.AddTool(mcp.NewTool("unpin",
		mcp.WithDescription("Stop mirroring the currently pinned window")),
		toolHandler(d, "unpin", nil))

	s.AddTool(mcp.NewTool("panic",
		mcp.WithDescription("Force-restore to idle from any state")),
		toolHandler(d, "panic", nil))

	s.AddTool(mcp.NewTool("status",
		mcp.WithDescription("Report the current pin state")),
		toolHandler(d, "status", nil))

	s.AddTool(mcp.NewTool("set_opacity",
		mcp.WithDescription("Set the mirror overlay's opacity, clamped to [0.1, 1.0]"),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("Opacity from 0.1 to 1.0"))),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			v, ok := floatParam(req.GetArguments(), "value")
			if !ok {
				return mcp.NewToolResultError("value is required"), nil
			}
			if err := setOpacity(v); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText("opacity set"), nil
		})

	return s
}

// floatParam extracts a numeric argument out of the untyped params map
// mcp-go hands handlers, the same shape
// mj1618-desktop-cli/internal/server/handlers.go's StringParam helper
// pulls string arguments out of.
func floatParam(params map[string]interface{}, name string) (float64, bool) {
	v, ok := params[name]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func toolHandler(d *dispatch.Dispatcher, command string, numericArgs []string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := req.GetArguments()
		args := make(map[string]string, len(numericArgs))
		for _, name := range numericArgs {
			v, ok := floatParam(params, name)
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("%s is required", name)), nil
			}
			args[name] = fmt.Sprintf("%.0f", v)
		}

		resp := d.Handle(dispatch.Command{Name: command, Args: args})
		if !resp.Success && resp.Error != "" {
			return mcp.NewToolResultError(resp.Error), nil
		}
		return mcp.NewToolResultText(formatResult(resp)), nil
	}
}

func formatResult(resp dispatch.Response) string {
	switch {
	case resp.Status != nil:
		return fmt.Sprintf("state=%s pinned=%v target=%q", resp.Status.State, resp.Status.Pinned, resp.Status.TargetAppName)
	case resp.Windows != nil:
		out := ""
		for _, w := range resp.Windows {
			out += fmt.Sprintf("%d: %s %q\n", w.WindowID, w.AppName, w.WindowTitle)
		}
		if out == "" {
			out = "no eligible windows"
		}
		return out
	case resp.Message != "":
		return resp.Message
	default:
		return "ok"
	}
}
