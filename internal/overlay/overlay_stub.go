//go:build !darwin

package overlay

import (
	"fmt"

	"github.com/southflowpeak/pin/internal/capture"
	"github.com/southflowpeak/pin/internal/model"
)

// stubPlatform backs non-macOS builds. Overlay windows are intrinsically
// Cocoa; off darwin CreateWindows fails so the rest of Overlay's
// portable logic (geometry math, hover debounce) stays testable.
type stubPlatform struct{}

// NewPlatform returns the Platform implementation for the current GOOS.
func NewPlatform() Platform { return stubPlatform{} }

func (stubPlatform) CreateWindows() error {
	return fmt.Errorf("overlay: native windows are only available on macOS")
}
func (stubPlatform) SetMirrorFrame(model.Rectangle)          {}
func (stubPlatform) SetUnpinButtonFrame(model.Rectangle)     {}
func (stubPlatform) SetMirrorIgnoresMouseEvents(bool)        {}
func (stubPlatform) SetMirrorLayerOpacity(float64)           {}
func (stubPlatform) SetShadow(bool)                          {}
func (stubPlatform) ShowOverlay()                            {}
func (stubPlatform) NewDisplaySink() capture.Sink             { return stubSink{} }
func (stubPlatform) ScreenInfo() ScreenInfo                   { return ScreenInfo{HeightPoints: 1080, BackingScale: 1, MaxFrameRate: 60} }
func (stubPlatform) ActivateTargetApp(int32)                  {}
func (stubPlatform) SetHoverRawHandlers(func(), func())       {}
func (stubPlatform) SetUnpinClickHandler(func())              {}
func (stubPlatform) Teardown()                                {}

type stubSink struct{}

func (stubSink) Enqueue(capture.RawFrame) {}
func (stubSink) Detach()                  {}
