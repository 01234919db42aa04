//go:build !darwin

package capture

import (
	"fmt"

	"github.com/southflowpeak/pin/internal/model"
)

// stubStream backs non-macOS builds. Pin's core is intrinsically tied
// to ScreenCaptureKit (spec.md §9); off darwin every start fails with
// CaptureFailure so the state machine's Idle/Error handling is still
// exercisable in tests.
type stubStream struct{}

// NewPlatformStreamFactory returns a StreamFactory that always fails
// to start, used when GOOS != darwin.
func NewPlatformStreamFactory() StreamFactory {
	return func() StreamHandle { return stubStream{} }
}

func (stubStream) Start(uint32, model.CaptureConfiguration, func(RawFrame)) error {
	return fmt.Errorf("capture: ScreenCaptureKit is only available on macOS")
}

func (stubStream) Reconfigure(model.CaptureConfiguration) error {
	return fmt.Errorf("capture: not running")
}

func (stubStream) Stop(onDone func()) {
	if onDone != nil {
		onDone()
	}
}
