//go:build !darwin

package window

import "github.com/southflowpeak/pin/internal/model"

// stubLister backs non-macOS builds. Pin's core is intrinsically tied
// to macOS (spec.md §9); it always reports no windows.
type stubLister struct{}

func newPlatformLister() Lister {
	return stubLister{}
}

func (stubLister) List() ([]RawWindow, error) {
	return nil, nil
}

func (stubLister) Exists(uint32) (bool, error) {
	return false, nil
}

func (stubLister) Bounds(uint32) (*model.Rectangle, error) {
	return nil, nil
}
