// Package overlay implements the Overlay Window (spec.md §4.4,
// component C4): the mirror window and unpin button window pair,
// geometry synchronization, and the hover "see-through" policy.
//
// The portable logic here — hover debouncing, the 100ms geometry poll,
// and top-left/bottom-left coordinate conversion — is deliberately
// kept free of cgo so it is unit-testable on any GOOS; only raw window
// creation and native event delivery live in the platform-specific
// files, following the split gopeep uses between pkg/overlay/overlay.go
// (portable Controller/Event types) and overlay_darwin.go (Cocoa).
package overlay

import (
	"sync"
	"time"

	"github.com/southflowpeak/pin/internal/capture"
	"github.com/southflowpeak/pin/internal/model"
	"github.com/southflowpeak/pin/internal/pinlog"
)

var log = pinlog.Component("overlay")

const (
	// geometryPollInterval is spec.md §4.4's fixed 100ms bounds poll.
	geometryPollInterval = 100 * time.Millisecond
	// activateBeforeHideDelay is spec.md §4.4's 250ms "let focus
	// change complete" delay between hover-enter and reporting it.
	activateBeforeHideDelay = 250 * time.Millisecond
)

// ScreenInfo carries what the overlay needs to know about the screen
// the platform reports for the mirror window: its point-space height (for
// top-left → bottom-left coordinate conversion), backing scale, and
// maximum frame rate (for CaptureConfiguration via capture.Display).
type ScreenInfo struct {
	HeightPoints  float64
	BackingScale  float64
	MaxFrameRate  int
}

// Platform is the thin native surface Overlay drives: window creation,
// raw geometry, and raw event delivery. Portable policy (hover
// debounce, geometry polling cadence, coordinate conversion) lives in
// Overlay itself so it stays testable without cgo.
type Platform interface {
	// CreateWindows creates the mirror window and the unpin button
	// window together, per spec.md §4.4's "created together" rule.
	CreateWindows() error
	// SetMirrorFrame positions the mirror window in bottom-left-origin
	// coordinates, no animation.
	SetMirrorFrame(bottomLeftFrame model.Rectangle)
	// SetUnpinButtonFrame positions the always-clickable unpin
	// button window, anchored relative to the mirror.
	SetUnpinButtonFrame(bottomLeftFrame model.Rectangle)
	// SetMirrorIgnoresMouseEvents toggles click-through for the hover
	// see-through model.
	SetMirrorIgnoresMouseEvents(ignore bool)
	// SetMirrorLayerOpacity sets the display sink's layer opacity
	// (0 while hidden, 1 while mirroring).
	SetMirrorLayerOpacity(opacity float64)
	// SetShadow toggles the mirror window's shadow (removed while
	// hidden per spec.md §4.4).
	SetShadow(enabled bool)
	// ShowOverlay orders both windows front, above all other windows.
	ShowOverlay()
	// NewDisplaySink creates a fresh sink hosted as the mirror
	// window's background layer, satisfying capture.SinkFactory.
	NewDisplaySink() capture.Sink
	// ScreenInfo reports the screen used for the mirror window. The
	// darwin implementation reports NSScreen mainScreen's height and
	// backing scale with a fixed 60 fps maximum frame rate; it does not
	// resolve which screen actually contains the mirror.
	ScreenInfo() ScreenInfo
	// ActivateTargetApp brings pid's application forward, the first
	// step of the hover see-through model.
	ActivateTargetApp(pid int32)
	// SetHoverRawHandlers wires native hover-enter and hover-exit to
	// the given callbacks. On darwin both come from one global event
	// tap comparing the pointer with the mirror's frame, since a
	// click-through mirror cannot receive its own mouse-exited callback.
	SetHoverRawHandlers(onEnter, onExit func())
	// SetUnpinClickHandler wires the unpin button window's click.
	SetUnpinClickHandler(onClick func())
	// Teardown executes spec.md §4.4's seven-step teardown ordering
	// and releases all native resources.
	Teardown()
}

// Callbacks are the outward notifications Overlay raises to its
// owner (the state machine). All are cleared in step 2 of teardown so
// no late callback reaches a torn-down state machine.
type Callbacks struct {
	OnHoverEnterSettled func()
	OnHoverExit         func()
	OnUnpinClicked      func()
	// OnGeometryChanged reports the target's new point-space size so
	// the owner can resize the capture session (spec.md §4.4).
	OnGeometryChanged func(width, height float64)
}

// BoundsProbe returns the current bounds of windowID, or ok=false if
// the window no longer exists — the same contract as
// window.Enumerator.Bounds, injected so Overlay does not import the
// window package directly.
type BoundsProbe func(windowID uint32) (bounds model.Rectangle, ok bool)

// Overlay is the C4 component. One Overlay exists per pin (created and
// destroyed together with its capture session, per spec.md §3's
// invariant).
type Overlay struct {
	platform Platform
	target   model.TargetDescriptor
	probe    BoundsProbe

	mu        sync.Mutex
	callbacks Callbacks
	lastBounds model.Rectangle

	pollStop chan struct{}
	pollDone chan struct{}

	hoverMu       sync.Mutex
	hoverGen      uint64
	hoverPending  bool
	hidden        bool
}

// New builds an Overlay for target, using probe to poll its bounds.
// It does not create native windows yet; call Show for that.
func New(platform Platform, target model.TargetDescriptor, probe BoundsProbe) *Overlay {
	return &Overlay{
		platform:   platform,
		target:     target,
		probe:      probe,
		lastBounds: target.Bounds,
	}
}

// SetCallbacks wires the outward notifications. Must be called before
// Show.
func (o *Overlay) SetCallbacks(cb Callbacks) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.callbacks = cb
}

// NewDisplaySink satisfies capture.SinkFactory, delegating to the
// platform surface.
func (o *Overlay) NewDisplaySink() capture.Sink {
	return o.platform.NewDisplaySink()
}

// ScreenInfo exposes the platform's current screen info, so the state
// machine can build a capture.Display for Session.Start/Resize.
func (o *Overlay) ScreenInfo() ScreenInfo {
	return o.platform.ScreenInfo()
}

// Show creates the native windows, wires raw hover/click handlers,
// starts the 100ms geometry poll, and orders the overlay to the front.
func (o *Overlay) Show() error {
	if err := o.platform.CreateWindows(); err != nil {
		return err
	}
	o.platform.SetHoverRawHandlers(o.onRawHoverEnter, o.onRawHoverExit)
	o.platform.SetUnpinClickHandler(o.onUnpinClicked)

	o.applyBounds(o.target.Bounds, false)
	o.platform.ShowOverlay()

	o.pollStop = make(chan struct{})
	o.pollDone = make(chan struct{})
	go o.geometryLoop()

	return nil
}

// SetOpacity applies a persisted OverlayOpacity to the mirror's
// display layer (spec.md §3, §4.5).
func (o *Overlay) SetOpacity(v model.OverlayOpacity) {
	if !o.isHidden() {
		o.platform.SetMirrorLayerOpacity(float64(v))
	}
}

// Hide transitions the mirror into the see-through state: pointer
// events pass through, the layer goes transparent, and the shadow is
// removed — the window and unpin button remain (spec.md §4.4, §3).
func (o *Overlay) Hide() {
	o.setHidden(true)
	o.platform.SetMirrorIgnoresMouseEvents(true)
	o.platform.SetMirrorLayerOpacity(0)
	o.platform.SetShadow(false)
}

// Unhide restores normal mirroring.
func (o *Overlay) Unhide(opacity model.OverlayOpacity) {
	o.setHidden(false)
	o.platform.SetMirrorIgnoresMouseEvents(false)
	o.platform.SetMirrorLayerOpacity(float64(opacity))
	o.platform.SetShadow(true)
}

func (o *Overlay) isHidden() bool {
	o.hoverMu.Lock()
	defer o.hoverMu.Unlock()
	return o.hidden
}

func (o *Overlay) setHidden(v bool) {
	o.hoverMu.Lock()
	o.hidden = v
	o.hoverMu.Unlock()
}

// ClearCallbacks drops all outward notifications immediately, so no
// late hover/click event reaches the owner once it has decided to
// unpin — independent of when native teardown (Teardown) actually
// runs (spec.md §4.4's ordering separates the two).
func (o *Overlay) ClearCallbacks() {
	o.mu.Lock()
	o.callbacks = Callbacks{}
	o.mu.Unlock()
}

// Teardown executes spec.md §4.4's mandatory ordering:
//  1. stop geometry polling and the global pointer monitor
//  2. clear all outward callbacks
//  3-6. native detach/removal/order-out, delegated to the platform
//  7. drop owning references
func (o *Overlay) Teardown() {
	if o.pollStop != nil {
		close(o.pollStop)
		<-o.pollDone
	}

	o.mu.Lock()
	o.callbacks = Callbacks{}
	o.mu.Unlock()

	o.platform.Teardown()
}

func (o *Overlay) geometryLoop() {
	defer close(o.pollDone)
	ticker := time.NewTicker(geometryPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.pollStop:
			return
		case <-ticker.C:
			bounds, ok := o.probe(o.target.WindowID)
			if !ok {
				continue
			}
			if bounds != o.lastBounds {
				o.applyBounds(bounds, true)
			}
		}
	}
}

const unpinButtonOffset = 16.0

func (o *Overlay) applyBounds(bounds model.Rectangle, notifyResize bool) {
	o.lastBounds = bounds

	screen := o.platform.ScreenInfo()
	mirrorFrame := topLeftToBottomLeft(bounds, screen.HeightPoints)
	o.platform.SetMirrorFrame(mirrorFrame)

	buttonFrame := model.Rectangle{
		X:      mirrorFrame.X + unpinButtonOffset,
		Y:      mirrorFrame.Y + mirrorFrame.Height - unpinButtonOffset,
		Width:  110,
		Height: 32,
	}
	o.platform.SetUnpinButtonFrame(buttonFrame)

	if notifyResize {
		o.mu.Lock()
		cb := o.callbacks.OnGeometryChanged
		o.mu.Unlock()
		if cb != nil {
			cb(bounds.Width, bounds.Height)
		}
	}
}

// topLeftToBottomLeft converts a top-left-origin rectangle (as
// reported by the window enumerator) into the bottom-left-origin
// coordinate space the overlay's windows are positioned in, using the
// screen height that Platform.ScreenInfo reports.
func topLeftToBottomLeft(rect model.Rectangle, screenHeightPoints float64) model.Rectangle {
	return model.Rectangle{
		X:      rect.X,
		Y:      screenHeightPoints - rect.Y - rect.Height,
		Width:  rect.Width,
		Height: rect.Height,
	}
}

// onRawHoverEnter is called from native code when the pointer enters
// the mirror's tracking view. It activates the target app, then after
// 250ms reports hover-enter-settled — unless a later hover-exit or a
// fresh generation supersedes it first. Re-entering within the delay
// cancels the pending hide (spec.md §9's Open Question, resolved
// conservatively) via the generation counter.
func (o *Overlay) onRawHoverEnter() {
	o.hoverMu.Lock()
	o.hoverGen++
	gen := o.hoverGen
	o.hoverPending = true
	o.hoverMu.Unlock()

	pid := o.target.PID
	o.platform.ActivateTargetApp(pid)

	time.AfterFunc(activateBeforeHideDelay, func() {
		o.hoverMu.Lock()
		stillCurrent := o.hoverGen == gen && o.hoverPending
		if stillCurrent {
			o.hoverPending = false
		}
		o.hoverMu.Unlock()

		if !stillCurrent {
			return
		}
		o.mu.Lock()
		cb := o.callbacks.OnHoverEnterSettled
		o.mu.Unlock()
		if cb != nil {
			cb()
		}
	})
}

// onRawHoverExit is called from native code (the global pointer
// monitor) when the pointer leaves the mirror's rectangle. It cancels
// any pending hover-enter and reports hover-exit.
func (o *Overlay) onRawHoverExit() {
	o.hoverMu.Lock()
	o.hoverGen++
	o.hoverPending = false
	o.hoverMu.Unlock()

	o.mu.Lock()
	cb := o.callbacks.OnHoverExit
	o.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (o *Overlay) onUnpinClicked() {
	o.mu.Lock()
	cb := o.callbacks.OnUnpinClicked
	o.mu.Unlock()
	if cb != nil {
		cb()
	}
}
