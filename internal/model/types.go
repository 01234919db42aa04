// Package model holds the value types shared across the Pin Agent:
// window targets, the tagged-variant agent state, its readonly status
// projection, and the capture stream configuration derived from them.
package model

import "time"

// Rectangle is a window bounds rectangle in top-left-origin screen
// coordinates, matching the coordinate space the OS window enumerator
// reports (see Enumerator in package window).
type Rectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TargetDescriptor identifies a single window eligible to be pinned.
// It is immutable after creation: a new descriptor is produced by the
// window enumerator whenever a new target is chosen, never mutated in
// place.
type TargetDescriptor struct {
	PID         int32     `json:"pid"`
	WindowID    uint32    `json:"windowId"`
	AppName     string    `json:"appName"`
	WindowTitle string    `json:"windowTitle,omitempty"`
	Bounds      Rectangle `json:"bounds"`
}

// AgentState is the tagged-variant state of the pin lifecycle. It has
// exactly four values; there is no fifth. Implementations must make an
// unmatched AgentState value in a switch a startup-time failure (see
// MustValid), not silently ignored behavior.
type AgentState int

const (
	// Idle is the initial state: nothing pinned, no capture session,
	// no overlay.
	Idle AgentState = iota
	// Mirroring is the normal pinned state: the overlay is visible and
	// ordered above all windows, mirroring the live capture stream.
	Mirroring
	// MirrorHidden is entered on hover see-through: the capture
	// session stays active but the mirror is transparent and ignores
	// pointer events so clicks reach the real window.
	MirrorHidden
	// Error is reached when a pin attempt fails; recoverable only by
	// unpin (back to Idle).
	Error
)

// String renders the state the way status responses spell it: a
// lowercase tag, matching spec.md's S1 scenario ("state:\"mirroring\"").
func (s AgentState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Mirroring:
		return "mirroring"
	case MirrorHidden:
		return "mirror_hidden"
	case Error:
		return "error"
	default:
		return "invalid"
	}
}

// MustValid panics if s is not one of the four defined AgentState
// values. It exists so an unmatched tagged-variant value is caught at
// the moment it is produced rather than silently misrendered later.
func MustValid(s AgentState) AgentState {
	switch s {
	case Idle, Mirroring, MirrorHidden, Error:
		return s
	default:
		panic("model: invalid AgentState value")
	}
}

// Pinned reports whether s is one of the two states in which a target
// is held (Mirroring or MirrorHidden).
func (s AgentState) Pinned() bool {
	return s == Mirroring || s == MirrorHidden
}

// AgentStatus is the readonly projection of agent state exposed by
// the `status` operation and pushed to live status subscribers.
type AgentStatus struct {
	State         string     `json:"state"`
	Pinned        bool       `json:"pinned"`
	TargetAppName string     `json:"targetAppName,omitempty"`
	WindowTitle   string     `json:"windowTitle,omitempty"`
	MirrorVisible bool       `json:"mirrorVisible"`
	PinnedSince   *time.Time `json:"pinnedSince,omitempty"`
}

// CaptureConfiguration is the fixed shape passed to the OS capture
// facility when opening or reconfiguring a stream. Cursor capture and
// audio are always disabled: Pin mirrors pixels only (spec.md
// Non-goals exclude audio capture).
type CaptureConfiguration struct {
	Width              int
	Height             int
	MinFrameInterval   time.Duration
	PixelFormatBGRA32  bool
	ColorSpaceSRGB     bool
	CursorCaptureOff   bool
	AudioCaptureOff    bool
}

// DefaultFrameRateFallback is used when the display containing the
// target cannot report a maximum frame rate.
const DefaultFrameRateFallback = 60

// NewCaptureConfiguration derives a CaptureConfiguration for a target
// window given its pixel dimensions and the containing display's max
// frame rate (0 meaning "unknown", in which case the fallback applies).
func NewCaptureConfiguration(widthPx, heightPx int, displayMaxFPS int) CaptureConfiguration {
	fps := displayMaxFPS
	if fps <= 0 {
		fps = DefaultFrameRateFallback
	}
	return CaptureConfiguration{
		Width:             widthPx,
		Height:            heightPx,
		MinFrameInterval:  time.Second / time.Duration(fps),
		PixelFormatBGRA32: true,
		ColorSpaceSRGB:    true,
		CursorCaptureOff:  true,
		AudioCaptureOff:   true,
	}
}

// OverlayOpacity is a clamped [0.1, 1.0] value persisted as the single
// process-wide preference `mirrorOpacity`.
type OverlayOpacity float64

const (
	// MinOverlayOpacity is the lower clamp bound.
	MinOverlayOpacity OverlayOpacity = 0.1
	// MaxOverlayOpacity is the upper clamp bound.
	MaxOverlayOpacity OverlayOpacity = 1.0
	// DefaultOverlayOpacity is used when unset or zero.
	DefaultOverlayOpacity OverlayOpacity = 1.0
)

// ClampOpacity constrains v into [MinOverlayOpacity, MaxOverlayOpacity].
func ClampOpacity(v float64) OverlayOpacity {
	if v < float64(MinOverlayOpacity) {
		return MinOverlayOpacity
	}
	if v > float64(MaxOverlayOpacity) {
		return MaxOverlayOpacity
	}
	return OverlayOpacity(v)
}
