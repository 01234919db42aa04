// Package window implements the Window Enumerator (spec.md §4.2,
// component C2): listing on-screen normal-layer windows, filtering
// excluded bundle identifiers, and probing a single window's
// existence and bounds.
package window

import (
	"strings"

	"github.com/southflowpeak/pin/internal/model"
)

// RawWindow is the OS-reported shape before filtering: everything the
// platform-capability contract of spec.md §6 promises ("owner pid,
// window identifier, owner-name, optional title, bounds, layer, and a
// flag ... for on-screen").
type RawWindow struct {
	PID       int32
	WindowID  uint32
	BundleID  string
	OwnerName string
	Title     string
	Layer     int
	Bounds    model.Rectangle
	OnScreen  bool
}

// Lister is the platform capability this package wraps: an on-screen
// window enumerator returning raw windows front-to-back in z-order,
// plus point probes for a single window by id.
type Lister interface {
	List() ([]RawWindow, error)
	Exists(windowID uint32) (bool, error)
	Bounds(windowID uint32) (*model.Rectangle, error)
}

// selfAndLauncherBundleIDs are always excluded, independent of any
// user-configured list: Pin itself, and the OS launcher/Spotlight
// identifiers spec.md §4.2 names explicitly.
var selfAndLauncherBundleIDs = []string{
	"com.southflowpeak.pin",
	"com.southflowpeak.pin.launcher",
	"com.apple.Spotlight",
	"com.apple.launchpad.launcher",
}

const (
	minCandidateWidth  = 50
	minCandidateHeight = 50
	normalLayer        = 0

	minAppPickerWidth  = 100
	minAppPickerHeight = 100
)

// Enumerator implements the four spec.md §4.2 operations plus the
// menu-bar `listByApp` variant, layered over a platform Lister so the
// filtering rules below are unit-testable without cgo.
type Enumerator struct {
	lister      Lister
	excludedIDs map[string]bool
}

// New builds an Enumerator over lister, excluding the built-in
// self/launcher/Spotlight identifiers plus any caller-supplied
// additions (from internal/config's excluded_bundle_ids_file).
func New(lister Lister, extraExcluded []string) *Enumerator {
	excluded := make(map[string]bool, len(selfAndLauncherBundleIDs)+len(extraExcluded))
	for _, id := range selfAndLauncherBundleIDs {
		excluded[id] = true
	}
	for _, id := range extraExcluded {
		excluded[id] = true
	}
	return &Enumerator{lister: lister, excludedIDs: excluded}
}

// ListCandidates returns pinnable windows front-to-back, filtered per
// spec.md §4.2: normal layer, bounds bigger than 50x50, bundle
// identifier not excluded.
func (e *Enumerator) ListCandidates() ([]model.TargetDescriptor, error) {
	raws, err := e.lister.List()
	if err != nil {
		return nil, err
	}
	return filterCandidates(raws, e.excludedIDs), nil
}

// FindFrontmost returns the first candidate per ListCandidates
// ordering, or nil if none. Because listCandidates already excludes
// the launcher, invoking "pin" while the launcher is frontmost pins
// what is underneath it, not the launcher itself (spec.md §4.2).
func (e *Enumerator) FindFrontmost() (*model.TargetDescriptor, error) {
	candidates, err := e.ListCandidates()
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return &candidates[0], nil
}

// Exists reports whether the OS still has a window with this
// identifier on-screen.
func (e *Enumerator) Exists(windowID uint32) (bool, error) {
	return e.lister.Exists(windowID)
}

// Bounds returns the current bounds of windowID, or nil if it does
// not exist.
func (e *Enumerator) Bounds(windowID uint32) (*model.Rectangle, error) {
	return e.lister.Bounds(windowID)
}

// FindByID looks up a single window by its OS-assigned identifier,
// for the `pin-window` command (spec.md §4.6). Unlike ListCandidates
// it does not apply the minimum-size filter — an explicit identifier
// is trusted — but still refuses an excluded bundle identifier.
func (e *Enumerator) FindByID(windowID uint32) (*model.TargetDescriptor, error) {
	raws, err := e.lister.List()
	if err != nil {
		return nil, err
	}
	for _, w := range raws {
		if w.WindowID != windowID {
			continue
		}
		if e.excludedIDs[w.BundleID] {
			return nil, nil
		}
		d := toDescriptor(w)
		return &d, nil
	}
	return nil, nil
}

// ListByApp returns at most one window per owning process (the first
// encountered in z-order), with a stricter 100x100 minimum size
// (spec.md §4.2's menu-bar variant; the menu bar in this module does
// not call it).
func (e *Enumerator) ListByApp() ([]model.TargetDescriptor, error) {
	raws, err := e.lister.List()
	if err != nil {
		return nil, err
	}
	return filterByApp(raws, e.excludedIDs), nil
}

func filterCandidates(raws []RawWindow, excluded map[string]bool) []model.TargetDescriptor {
	var out []model.TargetDescriptor
	for _, w := range raws {
		if w.Layer != normalLayer {
			continue
		}
		if w.Bounds.Width <= minCandidateWidth || w.Bounds.Height <= minCandidateHeight {
			continue
		}
		if excluded[w.BundleID] {
			continue
		}
		out = append(out, toDescriptor(w))
	}
	return out
}

func filterByApp(raws []RawWindow, excluded map[string]bool) []model.TargetDescriptor {
	seenPID := make(map[int32]bool)
	var out []model.TargetDescriptor
	for _, w := range raws {
		if w.Layer != normalLayer {
			continue
		}
		if w.Bounds.Width < minAppPickerWidth || w.Bounds.Height < minAppPickerHeight {
			continue
		}
		if excluded[w.BundleID] {
			continue
		}
		if seenPID[w.PID] {
			continue
		}
		seenPID[w.PID] = true
		out = append(out, toDescriptor(w))
	}
	return out
}

func toDescriptor(w RawWindow) model.TargetDescriptor {
	return model.TargetDescriptor{
		PID:         w.PID,
		WindowID:    w.WindowID,
		AppName:     friendlyOwnerName(w.OwnerName),
		WindowTitle: w.Title,
		Bounds:      w.Bounds,
	}
}

// friendlyOwnerName trims whitespace the platform layer sometimes
// leaves around helper-process owner names (e.g. "Google Chrome
// Helper (Renderer)" for background XPC windows already filtered out
// upstream, but defensive trimming costs nothing here).
func friendlyOwnerName(name string) string {
	return strings.TrimSpace(name)
}

// NewPlatform returns the platform Enumerator, wired to the darwin Lister
// (cached per spec.md §12.6) or, off darwin, an empty stub Lister.
func NewPlatform(extraExcluded []string) *Enumerator {
	return New(newCachedLister(newPlatformLister()), extraExcluded)
}
