package agent

import (
	"sync"
	"testing"
	"time"

	"github.com/southflowpeak/pin/internal/capture"
	"github.com/southflowpeak/pin/internal/model"
	"github.com/southflowpeak/pin/internal/overlay"
	"github.com/southflowpeak/pin/internal/permission"
	"github.com/southflowpeak/pin/internal/settings"
)

type fakeEnumerator struct {
	mu        sync.Mutex
	frontmost *model.TargetDescriptor
	byID      map[uint32]*model.TargetDescriptor
	exists    map[uint32]bool
	bounds    map[uint32]model.Rectangle
}

func newFakeEnumerator() *fakeEnumerator {
	return &fakeEnumerator{
		byID:   make(map[uint32]*model.TargetDescriptor),
		exists: make(map[uint32]bool),
		bounds: make(map[uint32]model.Rectangle),
	}
}

func (f *fakeEnumerator) FindFrontmost() (*model.TargetDescriptor, error) { return f.frontmost, nil }
func (f *fakeEnumerator) FindByID(id uint32) (*model.TargetDescriptor, error) {
	return f.byID[id], nil
}
func (f *fakeEnumerator) Exists(id uint32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exists[id], nil
}
func (f *fakeEnumerator) Bounds(id uint32) (*model.Rectangle, error) {
	b, ok := f.bounds[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

type fakePermission struct{ granted bool }

func (p fakePermission) Probe() permission.Status {
	return permission.Status{CaptureGranted: p.granted, AccessibilityGranted: true}
}
func (fakePermission) PromptAccessibility()        {}
func (fakePermission) GuideToCaptureSettings() error { return nil }

type fakeOverlayPlatform struct {
	mu       sync.Mutex
	torndown bool
}

func (p *fakeOverlayPlatform) CreateWindows() error { return nil }
func (p *fakeOverlayPlatform) SetMirrorFrame(model.Rectangle) {}
func (p *fakeOverlayPlatform) SetUnpinButtonFrame(model.Rectangle) {}
func (p *fakeOverlayPlatform) SetMirrorIgnoresMouseEvents(bool) {}
func (p *fakeOverlayPlatform) SetMirrorLayerOpacity(float64) {}
func (p *fakeOverlayPlatform) SetShadow(bool) {}
func (p *fakeOverlayPlatform) ShowOverlay() {}
func (p *fakeOverlayPlatform) NewDisplaySink() capture.Sink { return fakeAgentSink{} }
func (p *fakeOverlayPlatform) ScreenInfo() overlay.ScreenInfo {
	return overlay.ScreenInfo{HeightPoints: 1000, BackingScale: 2, MaxFrameRate: 60}
}
func (p *fakeOverlayPlatform) ActivateTargetApp(int32) {}
func (p *fakeOverlayPlatform) SetHoverRawHandlers(func(), func()) {}
func (p *fakeOverlayPlatform) SetUnpinClickHandler(func())        {}
func (p *fakeOverlayPlatform) Teardown() {
	p.mu.Lock()
	p.torndown = true
	p.mu.Unlock()
}

type fakeAgentSink struct{}

func (fakeAgentSink) Enqueue(capture.RawFrame) {}
func (fakeAgentSink) Detach()                  {}

type fakeAgentStream struct {
	startErr error
	deliver  func(capture.RawFrame)
}

func (s *fakeAgentStream) Start(id uint32, cfg model.CaptureConfiguration, deliver func(capture.RawFrame)) error {
	s.deliver = deliver
	return s.startErr
}
func (s *fakeAgentStream) Reconfigure(model.CaptureConfiguration) error { return nil }
func (s *fakeAgentStream) Stop(onDone func())                          { onDone() }

func newTestAgent(t *testing.T, enum *fakeEnumerator, startErr error) *Agent {
	t.Helper()
	opacity := settings.NewOpacityStore(settings.NewMemoryStore())
	return New(Config{
		Enumerator: enum,
		Permission: fakePermission{granted: true},
		Opacity:    opacity,
		NewOverlay: func(target model.TargetDescriptor, probe overlay.BoundsProbe) *overlay.Overlay {
			return overlay.New(&fakeOverlayPlatform{}, target, probe)
		},
		NewStream: func() capture.StreamHandle { return &fakeAgentStream{startErr: startErr} },
	})
}

func testDescriptor(id uint32) model.TargetDescriptor {
	return model.TargetDescriptor{
		WindowID: id,
		PID:      100 + int32(id),
		AppName:  "Editor",
		Bounds:   model.Rectangle{X: 0, Y: 0, Width: 400, Height: 300},
	}
}

func TestAgent_PinActive_NoTargetWindow(t *testing.T) {
	enum := newFakeEnumerator()
	a := newTestAgent(t, enum, nil)

	err := a.PinActive()
	if err == nil {
		t.Fatalf("expected NoTargetWindow error")
	}
	agentErr, ok := err.(*Error)
	if !ok || agentErr.Kind != NoTargetWindow {
		t.Fatalf("expected NoTargetWindow, got %v", err)
	}
	if a.Status().Pinned {
		t.Fatalf("expected Idle after failed pinActive")
	}
}

func TestAgent_Pin_Success(t *testing.T) {
	enum := newFakeEnumerator()
	target := testDescriptor(1)
	enum.frontmost = &target
	a := newTestAgent(t, enum, nil)

	if err := a.PinActive(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status := a.Status()
	if status.State != "mirroring" || !status.Pinned || status.TargetAppName != "Editor" {
		t.Fatalf("unexpected status after pin: %+v", status)
	}
	a.Unpin()
}

func TestAgent_LastFrame_TracksActiveSession(t *testing.T) {
	enum := newFakeEnumerator()
	target := testDescriptor(1)
	enum.frontmost = &target

	stream := &fakeAgentStream{}
	a := New(Config{
		Enumerator: enum,
		Permission: fakePermission{granted: true},
		Opacity:    settings.NewOpacityStore(settings.NewMemoryStore()),
		NewOverlay: func(target model.TargetDescriptor, probe overlay.BoundsProbe) *overlay.Overlay {
			return overlay.New(&fakeOverlayPlatform{}, target, probe)
		},
		NewStream: func() capture.StreamHandle { return stream },
	})

	if _, ok := a.LastFrame(); ok {
		t.Fatalf("expected no frame before pinning")
	}

	if err := a.PinActive(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frame := capture.RawFrame{Data: make([]byte, 100), Width: 5, Height: 5, Stride: 20}
	stream.deliver(frame)

	got, ok := a.LastFrame()
	if !ok || got.Width != 5 {
		t.Fatalf("expected LastFrame to report the delivered frame, got %+v ok=%v", got, ok)
	}

	a.Unpin()
	if _, ok := a.LastFrame(); ok {
		t.Fatalf("expected no frame after unpin")
	}
}

func TestAgent_Pin_CaptureFailureEntersError(t *testing.T) {
	enum := newFakeEnumerator()
	target := testDescriptor(1)
	enum.frontmost = &target
	a := newTestAgent(t, enum, errStartRefused)

	err := a.PinActive()
	if err == nil {
		t.Fatalf("expected error")
	}
	agentErr, ok := err.(*Error)
	if !ok || agentErr.Kind != CaptureFailure {
		t.Fatalf("expected CaptureFailure, got %v", err)
	}
	if a.Status().State != "error" {
		t.Fatalf("expected state=error, got %+v", a.Status())
	}
}

func TestAgent_Unpin_RecoversFromError(t *testing.T) {
	enum := newFakeEnumerator()
	target := testDescriptor(1)
	enum.frontmost = &target
	a := newTestAgent(t, enum, errStartRefused)

	_ = a.PinActive()
	a.Unpin()
	if a.Status().State != "idle" {
		t.Fatalf("expected idle after unpin from error, got %+v", a.Status())
	}
}

func TestAgent_Unpin_IsIdempotent(t *testing.T) {
	enum := newFakeEnumerator()
	a := newTestAgent(t, enum, nil)
	a.Unpin()
	a.Unpin()
	if a.Status().State != "idle" {
		t.Fatalf("expected idle")
	}
}

func TestAgent_HideAndShowMirror(t *testing.T) {
	enum := newFakeEnumerator()
	target := testDescriptor(1)
	enum.frontmost = &target
	a := newTestAgent(t, enum, nil)

	if err := a.PinActive(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Unpin()

	if err := a.HideMirror(); err != nil {
		t.Fatalf("unexpected error hiding: %v", err)
	}
	if a.Status().State != "mirror_hidden" {
		t.Fatalf("expected mirror_hidden, got %+v", a.Status())
	}
	if err := a.ShowMirror(); err != nil {
		t.Fatalf("unexpected error showing: %v", err)
	}
	if a.Status().State != "mirroring" {
		t.Fatalf("expected mirroring, got %+v", a.Status())
	}
}

func TestAgent_HideMirror_InvalidFromIdle(t *testing.T) {
	enum := newFakeEnumerator()
	a := newTestAgent(t, enum, nil)

	err := a.HideMirror()
	if err == nil {
		t.Fatalf("expected error")
	}
	agentErr, ok := err.(*Error)
	if !ok || agentErr.Kind != InvalidStateTransition {
		t.Fatalf("expected InvalidStateTransition, got %v", err)
	}
}

func TestAgent_Repin_TearsDownPreviousOverlay(t *testing.T) {
	enum := newFakeEnumerator()
	target1 := testDescriptor(1)
	target2 := testDescriptor(2)
	enum.byID[1] = &target1
	enum.byID[2] = &target2

	var platforms []*fakeOverlayPlatform
	var mu sync.Mutex
	opacity := settings.NewOpacityStore(settings.NewMemoryStore())
	a := New(Config{
		Enumerator: enum,
		Permission: fakePermission{granted: true},
		Opacity:    opacity,
		NewOverlay: func(target model.TargetDescriptor, probe overlay.BoundsProbe) *overlay.Overlay {
			p := &fakeOverlayPlatform{}
			mu.Lock()
			platforms = append(platforms, p)
			mu.Unlock()
			return overlay.New(p, target, probe)
		},
		NewStream: func() capture.StreamHandle { return &fakeAgentStream{} },
	})
	defer a.Unpin()

	if err := a.PinByID(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.PinByID(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status := a.Status()
	if status.TargetAppName != "Editor" || status.State != "mirroring" {
		t.Fatalf("unexpected status after repin: %+v", status)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(platforms) != 2 {
		t.Fatalf("expected two overlays created, got %d", len(platforms))
	}
	if !platforms[0].torndown {
		t.Fatalf("expected the first overlay to be torn down before the second pin completed")
	}
}

func TestAgent_LivenessMonitor_UnpinsOnDisappearance(t *testing.T) {
	enum := newFakeEnumerator()
	target := testDescriptor(1)
	enum.frontmost = &target
	enum.exists[1] = true
	a := newTestAgent(t, enum, nil)

	if err := a.PinActive(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	enum.mu.Lock()
	enum.exists[1] = false
	enum.mu.Unlock()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if a.Status().State == "idle" {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("expected liveness monitor to unpin within the deadline, got %+v", a.Status())
}

func TestAgent_PermissionDenied(t *testing.T) {
	enum := newFakeEnumerator()
	target := testDescriptor(1)
	enum.frontmost = &target
	opacity := settings.NewOpacityStore(settings.NewMemoryStore())
	a := New(Config{
		Enumerator: enum,
		Permission: fakePermission{granted: false},
		Opacity:    opacity,
		NewOverlay: func(target model.TargetDescriptor, probe overlay.BoundsProbe) *overlay.Overlay {
			return overlay.New(&fakeOverlayPlatform{}, target, probe)
		},
		NewStream: func() capture.StreamHandle { return &fakeAgentStream{} },
	})

	err := a.PinActive()
	if err == nil {
		t.Fatalf("expected error")
	}
	agentErr, ok := err.(*Error)
	if !ok || agentErr.Kind != PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
}

type boomErr struct{}

func (boomErr) Error() string { return "start refused" }

var errStartRefused = boomErr{}

type fakeWorkspace struct {
	mu      sync.Mutex
	running bool
	starts  int
	stops   int
}

func (w *fakeWorkspace) Start(func(pid int32)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = true
	w.starts++
}

func (w *fakeWorkspace) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = false
	w.stops++
}

func TestAgent_Unpin_StopsWorkspaceWatcher(t *testing.T) {
	enum := newFakeEnumerator()
	target := testDescriptor(1)
	enum.frontmost = &target

	ws := &fakeWorkspace{}
	a := New(Config{
		Enumerator: enum,
		Permission: fakePermission{granted: true},
		Opacity:    settings.NewOpacityStore(settings.NewMemoryStore()),
		NewOverlay: func(target model.TargetDescriptor, probe overlay.BoundsProbe) *overlay.Overlay {
			return overlay.New(&fakeOverlayPlatform{}, target, probe)
		},
		NewStream: func() capture.StreamHandle { return &fakeAgentStream{} },
		Workspace: ws,
	})

	if err := a.PinActive(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ws.mu.Lock()
	running := ws.running
	ws.mu.Unlock()
	if !running {
		t.Fatalf("expected the workspace watcher to be running while pinned")
	}

	a.Unpin()
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.running {
		t.Fatalf("expected the workspace watcher to be stopped after unpin")
	}
	if ws.starts != 1 || ws.stops != 1 {
		t.Fatalf("expected exactly one start/stop pair, got starts=%d stops=%d", ws.starts, ws.stops)
	}
}

func TestAgent_PinAfterUnpin_RestartsWorkspaceWatcher(t *testing.T) {
	enum := newFakeEnumerator()
	target := testDescriptor(1)
	enum.frontmost = &target

	ws := &fakeWorkspace{}
	a := New(Config{
		Enumerator: enum,
		Permission: fakePermission{granted: true},
		Opacity:    settings.NewOpacityStore(settings.NewMemoryStore()),
		NewOverlay: func(target model.TargetDescriptor, probe overlay.BoundsProbe) *overlay.Overlay {
			return overlay.New(&fakeOverlayPlatform{}, target, probe)
		},
		NewStream: func() capture.StreamHandle { return &fakeAgentStream{} },
		Workspace: ws,
	})

	if err := a.PinActive(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Unpin()
	if err := a.PinActive(); err != nil {
		t.Fatalf("unexpected error on re-pin: %v", err)
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.starts != 2 || ws.stops != 1 {
		t.Fatalf("expected a fresh start on re-pin, got starts=%d stops=%d", ws.starts, ws.stops)
	}
}
