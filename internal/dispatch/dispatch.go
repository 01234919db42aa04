// Package dispatch implements the Command Dispatcher (spec.md §4.6,
// component C6): translating externally arriving command strings into
// state-machine operations and serializing results as JSON to a
// well-known response file, atomically and in arrival order.
package dispatch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/southflowpeak/pin/internal/agent"
	"github.com/southflowpeak/pin/internal/model"
	"github.com/southflowpeak/pin/internal/pinlog"
)

var log = pinlog.Component("dispatch")

// Command is one parsed external invocation, e.g. `pin://pin-window?id=42`
// decoded to Name="pin-window", Args={"id":"42"}.
type Command struct {
	ID   string
	Name string
	Args map[string]string
}

// Response is the JSON shape written to the response file (spec.md
// §4.6's table) and returned to synchronous callers (the HTTP mirror,
// the MCP tool surface).
type Response struct {
	Success bool        `json:"success,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
	Windows []windowJSON `json:"windows,omitempty"`
	Status  *model.AgentStatus `json:"status,omitempty"`
}

type windowJSON struct {
	WindowID    uint32          `json:"windowId"`
	PID         int32           `json:"pid"`
	AppName     string          `json:"appName"`
	WindowTitle string          `json:"windowTitle,omitempty"`
	Bounds      model.Rectangle `json:"bounds"`
}

// Enumerator is the read-only listing surface the `list-windows`
// command needs, kept separate from agent.Enumerator so the
// dispatcher does not depend on the state machine's private
// FindFrontmost/FindByID/Exists methods.
type Enumerator interface {
	ListCandidates() ([]model.TargetDescriptor, error)
}

// Dispatcher serializes command processing behind a single mutex, per
// spec.md §5's ordering guarantee ("a command does not begin until
// the previous one's await chain completes"), and writes every
// response atomically to responsePath.
type Dispatcher struct {
	agent        *agent.Agent
	enumerator   Enumerator
	responsePath string

	mu sync.Mutex
}

// New builds a Dispatcher over a running agent, writing responses to
// responsePath (spec.md §6: `/tmp/pin-response.json` by default).
func New(a *agent.Agent, enumerator Enumerator, responsePath string) *Dispatcher {
	return &Dispatcher{agent: a, enumerator: enumerator, responsePath: responsePath}
}

// Handle processes cmd to completion, writes the response file, and
// returns the same Response for synchronous callers (HTTP, MCP).
func (d *Dispatcher) Handle(cmd Command) Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	resp := d.dispatch(cmd)
	if err := d.writeResponse(resp); err != nil {
		log.Error().Err(err).Str("command_id", cmd.ID).Msg("failed to write response file")
	}
	return resp
}

func (d *Dispatcher) dispatch(cmd Command) Response {
	log.Info().Str("command", cmd.Name).Str("command_id", cmd.ID).Msg("dispatching command")

	switch cmd.Name {
	case "pin":
		if err := d.agent.PinActive(); err != nil {
			return errorResponse(err)
		}
		return Response{Success: true, Message: "pinned"}

	case "pin-window":
		id, err := parseWindowID(cmd.Args["id"])
		if err != nil {
			return Response{Success: false, Error: err.Error()}
		}
		if err := d.agent.PinByID(id); err != nil {
			return errorResponse(err)
		}
		return Response{Success: true, Message: "pinned"}

	case "list-windows":
		candidates, err := d.enumerator.ListCandidates()
		if err != nil {
			return Response{Success: false, Error: err.Error()}
		}
		return Response{Success: true, Windows: toWindowJSON(candidates)}

	case "unpin":
		d.agent.Unpin()
		return Response{Success: true, Message: "unpinned"}

	case "panic":
		d.agent.Panic()
		return Response{Success: true, Message: "panic_complete"}

	case "status":
		status := d.agent.Status()
		return Response{Success: true, Status: &status}

	default:
		return Response{Error: fmt.Sprintf("unknown_command: %s", cmd.Name)}
	}
}

func parseWindowID(raw string) (uint32, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing required argument: id")
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid window id %q: %w", raw, err)
	}
	return uint32(v), nil
}

func errorResponse(err error) Response {
	if agentErr, ok := err.(*agent.Error); ok && agentErr.Kind == agent.NoTargetWindow {
		return Response{Success: false, Error: "No target window found"}
	}
	return Response{Success: false, Error: err.Error()}
}

func toWindowJSON(candidates []model.TargetDescriptor) []windowJSON {
	out := make([]windowJSON, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, windowJSON{
			WindowID:    c.WindowID,
			PID:         c.PID,
			AppName:     c.AppName,
			WindowTitle: c.WindowTitle,
			Bounds:      c.Bounds,
		})
	}
	return out
}

// writeResponse writes resp to responsePath atomically: a temp file in
// the same directory, then rename, so a concurrent reader never
// observes a half-written response (spec.md §4.6's "atomically").
func (d *Dispatcher) writeResponse(resp Response) error {
	// `status` is the one command whose response file body is the
	// AgentStatus itself rather than the generic {success,...} envelope
	// (spec.md §4.6's table).
	var payload interface{} = resp
	if resp.Status != nil {
		payload = resp.Status
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(d.responsePath)
	tmp, err := os.CreateTemp(dir, ".pin-response-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, d.responsePath)
}
