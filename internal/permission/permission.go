// Package permission implements the Permission Gate (spec.md §4.1,
// component C1): querying and requesting screen-capture and
// accessibility permission, without which pin operations cannot
// proceed.
package permission

// Status reports the two permissions Pin distinguishes.
type Status struct {
	CaptureGranted      bool
	AccessibilityGranted bool
}

// Which identifies a permission kind for PermissionDenied errors.
type Which string

const (
	Capture       Which = "capture"
	Accessibility Which = "accessibility"
)

// Gate is the platform-independent surface the state machine and
// dispatcher consume. probe/promptAccessibility/guideToCaptureSettings
// map 1:1 onto spec.md §4.1's three operations.
type Gate interface {
	// Probe performs a minimal, side-effect-free query of the
	// platform capture facility and a non-prompting accessibility
	// check. Any failure to query capture is treated as not-granted.
	Probe() Status
	// PromptAccessibility triggers the platform's user-facing
	// accessibility prompt. Non-blocking.
	PromptAccessibility()
	// GuideToCaptureSettings opens the platform privacy pane for
	// screen capture.
	GuideToCaptureSettings() error
}

// New returns the platform Gate: darwin builds use ScreenCaptureKit
// and the Accessibility API; other platforms get a Gate that always
// reports not-granted (there is no macOS privacy database to query).
func New() Gate {
	return newPlatformGate()
}
