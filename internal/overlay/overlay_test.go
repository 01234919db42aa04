package overlay

import (
	"sync"
	"testing"
	"time"

	"github.com/southflowpeak/pin/internal/capture"
	"github.com/southflowpeak/pin/internal/model"
)

type fakePlatform struct {
	mu sync.Mutex

	created         bool
	mirrorFrame     model.Rectangle
	buttonFrame     model.Rectangle
	ignoresMouse    bool
	layerOpacity    float64
	shadow          bool
	shown           bool
	tornDown        bool
	activatedPID    int32
	onHoverEnter    func()
	onHoverExit     func()
	onUnpinClicked  func()
	setFrameCount   int
}

func (p *fakePlatform) CreateWindows() error { p.created = true; return nil }
func (p *fakePlatform) SetMirrorFrame(r model.Rectangle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mirrorFrame = r
	p.setFrameCount++
}
func (p *fakePlatform) SetUnpinButtonFrame(r model.Rectangle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buttonFrame = r
}
func (p *fakePlatform) SetMirrorIgnoresMouseEvents(v bool) { p.ignoresMouse = v }
func (p *fakePlatform) SetMirrorLayerOpacity(v float64)    { p.layerOpacity = v }
func (p *fakePlatform) SetShadow(v bool)                   { p.shadow = v }
func (p *fakePlatform) ShowOverlay()                       { p.shown = true }
func (p *fakePlatform) NewDisplaySink() capture.Sink       { return &fakeDisplaySink{} }
func (p *fakePlatform) ScreenInfo() ScreenInfo {
	return ScreenInfo{HeightPoints: 1000, BackingScale: 2, MaxFrameRate: 60}
}
func (p *fakePlatform) ActivateTargetApp(pid int32) { p.activatedPID = pid }
func (p *fakePlatform) SetHoverRawHandlers(enter, exit func()) {
	p.onHoverEnter = enter
	p.onHoverExit = exit
}
func (p *fakePlatform) SetUnpinClickHandler(click func()) { p.onUnpinClicked = click }
func (p *fakePlatform) Teardown()                         { p.tornDown = true }

type fakeDisplaySink struct{}

func (*fakeDisplaySink) Enqueue(capture.RawFrame) {}
func (*fakeDisplaySink) Detach()                  {}

func testDescriptor() model.TargetDescriptor {
	return model.TargetDescriptor{
		WindowID: 7,
		PID:      1234,
		Bounds:   model.Rectangle{X: 10, Y: 20, Width: 300, Height: 200},
	}
}

func TestTopLeftToBottomLeft(t *testing.T) {
	got := topLeftToBottomLeft(model.Rectangle{X: 10, Y: 20, Width: 300, Height: 200}, 1000)
	want := model.Rectangle{X: 10, Y: 780, Width: 300, Height: 200}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestOverlay_ShowAppliesInitialBounds(t *testing.T) {
	platform := &fakePlatform{}
	probe := func(uint32) (model.Rectangle, bool) { return testDescriptor().Bounds, true }
	o := New(platform, testDescriptor(), probe)

	if err := o.Show(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer o.Teardown()

	if !platform.created || !platform.shown {
		t.Fatalf("expected windows created and shown")
	}
	want := topLeftToBottomLeft(testDescriptor().Bounds, 1000)
	if platform.mirrorFrame != want {
		t.Fatalf("mirror frame = %+v, want %+v", platform.mirrorFrame, want)
	}
}

func TestOverlay_HoverEnterActivatesAppAndSettlesAfterDelay(t *testing.T) {
	platform := &fakePlatform{}
	probe := func(uint32) (model.Rectangle, bool) { return testDescriptor().Bounds, true }
	o := New(platform, testDescriptor(), probe)

	settled := make(chan struct{}, 1)
	o.SetCallbacks(Callbacks{OnHoverEnterSettled: func() { settled <- struct{}{} }})

	if err := o.Show(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer o.Teardown()

	platform.onHoverEnter()

	if platform.activatedPID != 1234 {
		t.Fatalf("expected target app activated immediately, got pid=%d", platform.activatedPID)
	}

	select {
	case <-settled:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("expected hover-enter to settle within the delay window")
	}
}

func TestOverlay_HoverExitCancelsPendingSettle(t *testing.T) {
	platform := &fakePlatform{}
	probe := func(uint32) (model.Rectangle, bool) { return testDescriptor().Bounds, true }
	o := New(platform, testDescriptor(), probe)

	var settledCount int
	var mu sync.Mutex
	exited := make(chan struct{}, 1)
	o.SetCallbacks(Callbacks{
		OnHoverEnterSettled: func() {
			mu.Lock()
			settledCount++
			mu.Unlock()
		},
		OnHoverExit: func() { exited <- struct{}{} },
	})

	if err := o.Show(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer o.Teardown()

	platform.onHoverEnter()
	platform.onHoverExit()

	select {
	case <-exited:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("expected hover-exit callback")
	}

	time.Sleep(400 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if settledCount != 0 {
		t.Fatalf("expected the pending hover-enter to be cancelled by exit, got %d settle callbacks", settledCount)
	}
}

func TestOverlay_UnpinClickInvokesCallback(t *testing.T) {
	platform := &fakePlatform{}
	probe := func(uint32) (model.Rectangle, bool) { return testDescriptor().Bounds, true }
	o := New(platform, testDescriptor(), probe)

	clicked := make(chan struct{}, 1)
	o.SetCallbacks(Callbacks{OnUnpinClicked: func() { clicked <- struct{}{} }})

	if err := o.Show(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer o.Teardown()

	platform.onUnpinClicked()

	select {
	case <-clicked:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("expected unpin click callback")
	}
}

func TestOverlay_HideSetsClickThroughAndTransparent(t *testing.T) {
	platform := &fakePlatform{}
	probe := func(uint32) (model.Rectangle, bool) { return testDescriptor().Bounds, true }
	o := New(platform, testDescriptor(), probe)

	if err := o.Show(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer o.Teardown()

	o.Hide()
	if !platform.ignoresMouse {
		t.Fatalf("expected mirror to ignore mouse events while hidden")
	}
	if platform.layerOpacity != 0 {
		t.Fatalf("expected layer opacity 0 while hidden, got %v", platform.layerOpacity)
	}
	if platform.shadow {
		t.Fatalf("expected shadow removed while hidden")
	}

	o.Unhide(model.DefaultOverlayOpacity)
	if platform.ignoresMouse {
		t.Fatalf("expected mirror to accept mouse events after unhide")
	}
	if platform.layerOpacity != float64(model.DefaultOverlayOpacity) {
		t.Fatalf("expected persisted opacity restored, got %v", platform.layerOpacity)
	}
	if !platform.shadow {
		t.Fatalf("expected shadow restored after unhide")
	}
}

func TestOverlay_TeardownStopsGeometryPolling(t *testing.T) {
	platform := &fakePlatform{}
	callCount := 0
	var mu sync.Mutex
	probe := func(uint32) (model.Rectangle, bool) {
		mu.Lock()
		callCount++
		mu.Unlock()
		return testDescriptor().Bounds, true
	}
	o := New(platform, testDescriptor(), probe)

	if err := o.Show(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o.Teardown()

	mu.Lock()
	afterTeardown := callCount
	mu.Unlock()

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if callCount != afterTeardown {
		t.Fatalf("expected no further probe calls after teardown")
	}
	if !platform.tornDown {
		t.Fatalf("expected platform.Teardown to be called")
	}
}
