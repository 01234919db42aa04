package dispatch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/southflowpeak/pin/internal/agent"
	"github.com/southflowpeak/pin/internal/capture"
	"github.com/southflowpeak/pin/internal/model"
	"github.com/southflowpeak/pin/internal/overlay"
	"github.com/southflowpeak/pin/internal/permission"
	"github.com/southflowpeak/pin/internal/settings"
)

type fakeEnumerator struct {
	frontmost  *model.TargetDescriptor
	candidates []model.TargetDescriptor
}

func (f *fakeEnumerator) FindFrontmost() (*model.TargetDescriptor, error) { return f.frontmost, nil }
func (f *fakeEnumerator) FindByID(uint32) (*model.TargetDescriptor, error) { return nil, nil }
func (f *fakeEnumerator) Exists(uint32) (bool, error)                      { return true, nil }
func (f *fakeEnumerator) Bounds(uint32) (*model.Rectangle, error)          { return nil, nil }
func (f *fakeEnumerator) ListCandidates() ([]model.TargetDescriptor, error) {
	return f.candidates, nil
}

type fakeGate struct{}

func (fakeGate) Probe() permission.Status         { return permission.Status{CaptureGranted: true} }
func (fakeGate) PromptAccessibility()             {}
func (fakeGate) GuideToCaptureSettings() error     { return nil }

type nullOverlayPlatform struct{}

func (nullOverlayPlatform) CreateWindows() error                    { return nil }
func (nullOverlayPlatform) SetMirrorFrame(model.Rectangle)          {}
func (nullOverlayPlatform) SetUnpinButtonFrame(model.Rectangle)     {}
func (nullOverlayPlatform) SetMirrorIgnoresMouseEvents(bool)        {}
func (nullOverlayPlatform) SetMirrorLayerOpacity(float64)           {}
func (nullOverlayPlatform) SetShadow(bool)                          {}
func (nullOverlayPlatform) ShowOverlay()                            {}
func (nullOverlayPlatform) NewDisplaySink() capture.Sink            { return nullSink{} }
func (nullOverlayPlatform) ScreenInfo() overlay.ScreenInfo {
	return overlay.ScreenInfo{HeightPoints: 1000, BackingScale: 1, MaxFrameRate: 60}
}
func (nullOverlayPlatform) ActivateTargetApp(int32)            {}
func (nullOverlayPlatform) SetHoverRawHandlers(func(), func()) {}
func (nullOverlayPlatform) SetUnpinClickHandler(func())        {}
func (nullOverlayPlatform) Teardown()                          {}

type nullSink struct{}

func (nullSink) Enqueue(capture.RawFrame) {}
func (nullSink) Detach()                  {}

type nullStream struct{}

func (nullStream) Start(uint32, model.CaptureConfiguration, func(capture.RawFrame)) error { return nil }
func (nullStream) Reconfigure(model.CaptureConfiguration) error                           { return nil }
func (nullStream) Stop(onDone func())                                                     { onDone() }

func newTestDispatcher(t *testing.T, enum *fakeEnumerator) (*Dispatcher, string) {
	t.Helper()
	opacity := settings.NewOpacityStore(settings.NewMemoryStore())
	a := agent.New(agent.Config{
		Enumerator: enum,
		Permission: fakeGate{},
		Opacity:    opacity,
		NewOverlay: func(target model.TargetDescriptor, probe overlay.BoundsProbe) *overlay.Overlay {
			return overlay.New(nullOverlayPlatform{}, target, probe)
		},
		NewStream: func() capture.StreamHandle { return nullStream{} },
	})
	respPath := filepath.Join(t.TempDir(), "pin-response.json")
	return New(a, enum, respPath), respPath
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	enum := &fakeEnumerator{}
	d, _ := newTestDispatcher(t, enum)

	resp := d.Handle(Command{Name: "brew-coffee"})
	if resp.Error != "unknown_command: brew-coffee" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestDispatcher_PinActive_NoTargetWindow(t *testing.T) {
	enum := &fakeEnumerator{}
	d, respPath := newTestDispatcher(t, enum)

	resp := d.Handle(Command{Name: "pin"})
	if resp.Success {
		t.Fatalf("expected failure, got %+v", resp)
	}

	data, err := os.ReadFile(respPath)
	if err != nil {
		t.Fatalf("expected response file to be written: %v", err)
	}
	var onDisk Response
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("invalid JSON in response file: %v", err)
	}
	if onDisk.Success {
		t.Fatalf("expected on-disk response to also report failure")
	}
}

func TestDispatcher_PinWindow_MissingID(t *testing.T) {
	enum := &fakeEnumerator{}
	d, _ := newTestDispatcher(t, enum)

	resp := d.Handle(Command{Name: "pin-window", Args: map[string]string{}})
	if resp.Success || resp.Error == "" {
		t.Fatalf("expected a missing-id error, got %+v", resp)
	}
}

func TestDispatcher_ListWindows(t *testing.T) {
	enum := &fakeEnumerator{candidates: []model.TargetDescriptor{
		{WindowID: 1, AppName: "Editor", Bounds: model.Rectangle{Width: 400, Height: 300}},
	}}
	d, _ := newTestDispatcher(t, enum)

	resp := d.Handle(Command{Name: "list-windows"})
	if !resp.Success || len(resp.Windows) != 1 || resp.Windows[0].AppName != "Editor" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestDispatcher_Status(t *testing.T) {
	enum := &fakeEnumerator{}
	d, _ := newTestDispatcher(t, enum)

	resp := d.Handle(Command{Name: "status"})
	if !resp.Success || resp.Status == nil || resp.Status.State != "idle" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestParseCommandURL(t *testing.T) {
	cmd, err := ParseCommandURL("pin://pin-window?id=42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Name != "pin-window" || cmd.Args["id"] != "42" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}
