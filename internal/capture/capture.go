// Package capture implements the Capture Session (spec.md §4.3,
// component C3): opening, reconfiguring, and closing a live
// per-window pixel stream, and delivering decoded frames to a display
// sink. All exported Session methods are meant to be called from a
// single goroutine (the "UI thread" of spec.md §5); frame delivery
// itself may originate on a platform background queue, but it is
// marshalled through the deliver callback before reaching the sink.
package capture

import (
	"fmt"
	"sync"

	"github.com/southflowpeak/pin/internal/model"
	"github.com/southflowpeak/pin/internal/pinlog"
)

var log = pinlog.Component("capture_session")

// RawFrame is one validated, decoded sample buffer: 32-bit BGRA pixels
// as spec.md §3's CaptureConfiguration mandates.
type RawFrame struct {
	Data   []byte
	Width  int
	Height int
	Stride int
}

// Sink is the layer-like object a Session owns and delivers validated
// frames into. On Stop, the sink is detached; the next Start gets a
// fresh instance (spec.md §4.3's "Display sink contract").
type Sink interface {
	Enqueue(frame RawFrame)
	Detach()
}

// Display describes the screen containing the target window: its
// backing scale (points-to-pixels) and maximum frame rate, both
// needed to compute CaptureConfiguration (spec.md §3, §4.4).
type Display struct {
	Bounds             model.Rectangle
	BackingScaleFactor float64
	MaxFPS             int
}

// StreamHandle is the platform capability behind a single content
// filter: a capture stream over one window, deliverable frames, and
// asynchronous reconfiguration/stop (spec.md §6).
type StreamHandle interface {
	// Start opens the stream for windowID with cfg, invoking deliver
	// for each sample buffer received on the platform's background
	// queue. Returns an error if the window is not in shareable
	// content or the stream could not be started.
	Start(windowID uint32, cfg model.CaptureConfiguration, deliver func(RawFrame)) error
	// Reconfigure requests the running stream update its
	// width/height/frame-rate.
	Reconfigure(cfg model.CaptureConfiguration) error
	// Stop requests asynchronous termination. onDone is invoked once
	// no further frames will be delivered and cleanup may proceed —
	// never synchronously from within Stop itself.
	Stop(onDone func())
}

// StreamFactory constructs a fresh StreamHandle for each Start, so a
// Session never reuses platform state across pins.
type StreamFactory func() StreamHandle

// SinkFactory constructs a fresh Sink for each Start.
type SinkFactory func() Sink

// Session is the C3 component. It is safe to call from one goroutine
// at a time; concurrent calls are not supported (mirroring spec.md §5:
// "all methods single-threaded on the UI thread").
type Session struct {
	newStream StreamFactory
	newSink   SinkFactory

	mu           sync.Mutex
	stream       StreamHandle
	sink         Sink
	target       model.TargetDescriptor
	capturing    bool
	captureError bool
	pendingStop  bool

	frameMu   sync.Mutex
	lastFrame RawFrame
	haveFrame bool
}

// NewSession builds a Session over the given platform factories.
func NewSession(newStream StreamFactory, newSink SinkFactory) *Session {
	return &Session{newStream: newStream, newSink: newSink}
}

// Error wraps the CaptureFailure error kind of spec.md §7.
type Error struct {
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("capture failure (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("capture failure (%s)", e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// Start opens a capture stream for target on the given display. It is
// idempotent if already started on the same window id. It fails with
// a *Error("pending-stop") if a previous Stop's completion has not yet
// run — callers must not issue a new Start until that callback fires
// (spec.md §5).
func (s *Session) Start(target model.TargetDescriptor, display Display) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingStop {
		return &Error{Reason: "pending-stop"}
	}
	if s.capturing && s.target.WindowID == target.WindowID {
		return nil
	}

	scale := display.BackingScaleFactor
	if scale <= 0 {
		scale = 1
	}
	widthPx := int(target.Bounds.Width * scale)
	heightPx := int(target.Bounds.Height * scale)
	cfg := model.NewCaptureConfiguration(widthPx, heightPx, display.MaxFPS)

	stream := s.newStream()
	sink := s.newSink()

	err := stream.Start(target.WindowID, cfg, func(frame RawFrame) {
		if !validFrame(frame) {
			return
		}
		s.frameMu.Lock()
		s.lastFrame = frame
		s.haveFrame = true
		s.frameMu.Unlock()
		sink.Enqueue(frame)
	})
	if err != nil {
		s.captureError = true
		s.capturing = false
		log.Error().Err(err).Uint32("window_id", target.WindowID).Msg("capture start failed")
		return &Error{Reason: "start-refused", Cause: err}
	}

	s.stream = stream
	s.sink = sink
	s.target = target
	s.capturing = true
	s.captureError = false
	log.Info().Uint32("window_id", target.WindowID).Int("width", widthPx).Int("height", heightPx).Msg("capture started")
	return nil
}

// Resize recomputes target pixel dimensions for a new containing
// screen and asks the running stream to reconfigure. Errors are
// logged but never tear the session down (spec.md §4.3).
func (s *Session) Resize(pointWidth, pointHeight float64, display Display) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return
	}
	scale := display.BackingScaleFactor
	if scale <= 0 {
		scale = 1
	}
	cfg := model.NewCaptureConfiguration(int(pointWidth*scale), int(pointHeight*scale), display.MaxFPS)
	if err := s.stream.Reconfigure(cfg); err != nil {
		log.Warn().Err(err).Msg("capture resize failed, session left running")
	}
}

// Stop requests asynchronous termination. It returns immediately;
// final cleanup (nil out the stream handle, reset flags, detach and
// replace the sink) happens once the platform's stop-completion
// callback runs, guaranteeing any frames already in flight drain
// first (spec.md §4.3's rationale). onStopped, if non-nil, runs after
// that cleanup completes — the owner's cue that it is finally safe to
// tear down anything the drained frames were still being delivered
// into (spec.md §4.4's mandated stop-before-overlay-teardown order).
func (s *Session) Stop(onStopped func()) {
	s.mu.Lock()
	if !s.capturing && !s.pendingStop {
		s.mu.Unlock()
		if onStopped != nil {
			onStopped()
		}
		return
	}
	stream := s.stream
	s.pendingStop = true
	s.mu.Unlock()

	done := func() {
		s.finishStop()
		if onStopped != nil {
			onStopped()
		}
	}

	if stream == nil {
		done()
		return
	}
	stream.Stop(done)
}

func (s *Session) finishStop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sink != nil {
		s.sink.Detach()
	}
	s.stream = nil
	s.sink = nil
	s.capturing = false
	s.captureError = false
	s.pendingStop = false
	log.Info().Msg("capture stopped")

	s.frameMu.Lock()
	s.haveFrame = false
	s.lastFrame = RawFrame{}
	s.frameMu.Unlock()
}

// LastFrame returns the most recently delivered valid frame, for the
// debug-frame dump surface (SPEC_FULL.md §12.5). It reports false if
// no frame has arrived since the last Start.
func (s *Session) LastFrame() (RawFrame, bool) {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return s.lastFrame, s.haveFrame
}

// IsCapturing reports the capturing flag of spec.md §3.
func (s *Session) IsCapturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capturing
}

// HasError reports the captureError flag of spec.md §3.
func (s *Session) HasError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captureError
}

func validFrame(f RawFrame) bool {
	if f.Width <= 0 || f.Height <= 0 || f.Stride <= 0 {
		return false
	}
	return len(f.Data) >= f.Stride*f.Height
}
