// Package agent implements the State Machine (spec.md §4.5, component
// C5): the single owner of AgentState, the pinned TargetDescriptor,
// the capture session, and the overlay, coordinating C2 through C4
// and enforcing the legal transition table of spec.md §3.
package agent

import (
	"sync"
	"time"

	"github.com/southflowpeak/pin/internal/capture"
	"github.com/southflowpeak/pin/internal/model"
	"github.com/southflowpeak/pin/internal/overlay"
	"github.com/southflowpeak/pin/internal/permission"
	"github.com/southflowpeak/pin/internal/pinlog"
	"github.com/southflowpeak/pin/internal/settings"
	"github.com/southflowpeak/pin/internal/workspace"
)

var log = pinlog.Component("agent")

const (
	livenessInterval        = time.Second
	hoverReshowDebounce     = 500 * time.Millisecond
)

// Enumerator is the slice of window.Enumerator's surface the agent
// depends on, narrowed so tests can supply a fake without a real
// Lister behind it.
type Enumerator interface {
	FindFrontmost() (*model.TargetDescriptor, error)
	FindByID(windowID uint32) (*model.TargetDescriptor, error)
	Exists(windowID uint32) (bool, error)
	Bounds(windowID uint32) (*model.Rectangle, error)
}

// OverlayFactory builds a fresh Overlay for one pin. probe is bound to
// the agent's Enumerator.Bounds so the overlay never imports window
// directly.
type OverlayFactory func(target model.TargetDescriptor, probe overlay.BoundsProbe) *overlay.Overlay

// Config wires the agent to its platform collaborators. Every field is
// required except Workspace, which may be nil to disable the hover
// re-show policy's foreground-change trigger (hover-exit alone still
// works).
type Config struct {
	Enumerator    Enumerator
	Permission    permission.Gate
	Opacity       *settings.OpacityStore
	NewOverlay    OverlayFactory
	NewStream     capture.StreamFactory
	Workspace     workspace.Watcher
}

// Agent is the C5 state machine. All exported methods lock an internal
// mutex, standing in for spec.md §5's single UI thread.
type Agent struct {
	enumerator Enumerator
	permission permission.Gate
	opacity    *settings.OpacityStore
	newOverlay OverlayFactory
	newStream  capture.StreamFactory
	workspace  workspace.Watcher

	mu             sync.Mutex
	state          model.AgentState
	target         *model.TargetDescriptor
	pinnedSince    *time.Time
	mirrorHiddenAt *time.Time
	session        *capture.Session
	overlay        *overlay.Overlay
	foregroundPID  int32

	livenessStop chan struct{}
	workspaceOn  bool
}

// New builds an Idle Agent from cfg.
func New(cfg Config) *Agent {
	a := &Agent{
		enumerator: cfg.Enumerator,
		permission: cfg.Permission,
		opacity:    cfg.Opacity,
		newOverlay: cfg.NewOverlay,
		newStream:  cfg.NewStream,
		workspace:  cfg.Workspace,
		state:      model.Idle,
	}
	return a
}

// PinActive implements spec.md §4.5's pinActive: unpin first if
// already pinned, then pin the frontmost eligible window.
func (a *Agent) PinActive() error {
	a.mu.Lock()
	if a.state.Pinned() {
		a.unpinLocked()
	}
	a.mu.Unlock()

	target, err := a.enumerator.FindFrontmost()
	if err != nil {
		return newError(CaptureFailure, "enumerate-frontmost", err)
	}
	if target == nil {
		return newError(NoTargetWindow, "no eligible frontmost window", nil)
	}
	return a.Pin(*target)
}

// PinByID looks up windowID via the enumerator and pins it, for the
// `pin-window` command.
func (a *Agent) PinByID(windowID uint32) error {
	target, err := a.enumerator.FindByID(windowID)
	if err != nil {
		return newError(CaptureFailure, "enumerate-by-id", err)
	}
	if target == nil {
		return newError(NoTargetWindow, "no target window found", nil)
	}
	return a.Pin(*target)
}

// Pin transitions Idle → Mirroring (or → Error on failure), following
// spec.md §4.5's ordering: build the overlay and capture session,
// wire callbacks, apply persisted opacity, show the overlay, start
// capture, start liveness monitoring. A pin issued while already
// pinned implicitly unpins first (spec.md §3's re-pin rule).
func (a *Agent) Pin(target model.TargetDescriptor) error {
	a.mu.Lock()
	if a.state.Pinned() {
		a.unpinLocked()
	}
	if a.permission != nil {
		status := a.permission.Probe()
		if !status.CaptureGranted {
			a.state = model.Error
			a.mu.Unlock()
			return newError(PermissionDenied, "capture", nil)
		}
	}

	probe := func(windowID uint32) (model.Rectangle, bool) {
		b, err := a.enumerator.Bounds(windowID)
		if err != nil || b == nil {
			return model.Rectangle{}, false
		}
		return *b, true
	}
	ov := a.newOverlay(target, probe)
	session := capture.NewSession(a.newStream, ov.NewDisplaySink)

	ov.SetCallbacks(overlay.Callbacks{
		OnHoverEnterSettled: a.onHoverEnterSettled,
		OnHoverExit:         a.onHoverExit,
		OnUnpinClicked:      func() { a.Unpin() },
		OnGeometryChanged: func(w, h float64) {
			session.Resize(w, h, a.captureDisplay(ov, target))
		},
	})

	persisted := a.opacity.Load()

	if err := ov.Show(); err != nil {
		a.state = model.Error
		a.mu.Unlock()
		return newError(CaptureFailure, "overlay-show", err)
	}
	ov.SetOpacity(persisted)

	display := a.captureDisplay(ov, target)
	if err := session.Start(target, display); err != nil {
		ov.Teardown()
		a.state = model.Error
		a.mu.Unlock()
		log.Error().Err(err).Uint32("window_id", target.WindowID).Msg("pin failed to start capture")
		return newError(CaptureFailure, "start-refused", err)
	}

	now := time.Now()
	a.session = session
	a.overlay = ov
	a.target = &target
	a.pinnedSince = &now
	a.mirrorHiddenAt = nil
	a.state = model.Mirroring
	a.startLivenessLocked()
	a.startWorkspaceLocked()
	a.mu.Unlock()

	log.Info().Str("app", target.AppName).Uint32("window_id", target.WindowID).Msg("pinned")
	return nil
}

func (a *Agent) captureDisplay(ov *overlay.Overlay, target model.TargetDescriptor) capture.Display {
	info := ov.ScreenInfo()
	return capture.Display{
		Bounds:             target.Bounds,
		BackingScaleFactor: info.BackingScale,
		MaxFPS:             info.MaxFrameRate,
	}
}

// Unpin unconditionally tears down any active pin and returns to
// Idle. Idempotent: unpinning while already Idle is a no-op.
func (a *Agent) Unpin() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unpinLocked()
}

// Panic is semantically identical to Unpin, provided as a distinct
// operation so an external caller can force-restore the system even
// from Error (spec.md §4.5).
func (a *Agent) Panic() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unpinLocked()
}

// unpinLocked follows spec.md §4.4's mandated ordering: clear overlay
// callbacks, stop capture (deferred completion), only then close the
// overlay. Closing the overlay before the stream's stop completion
// fires would let an already-scheduled frame delivery land on a
// torn-down mirror (spec.md §4.3's "risks racing with enqueue
// operations already scheduled" rationale), so the overlay teardown
// itself is the session's stop-completion callback.
func (a *Agent) unpinLocked() {
	a.stopLivenessLocked()
	a.stopWorkspaceLocked()

	ov := a.overlay
	session := a.session
	a.overlay = nil
	a.session = nil
	a.target = nil
	a.pinnedSince = nil
	a.mirrorHiddenAt = nil
	a.state = model.Idle

	if ov != nil {
		ov.ClearCallbacks()
	}

	teardownOverlay := func() {
		if ov != nil {
			ov.Teardown()
		}
	}
	if session != nil {
		session.Stop(teardownOverlay)
		return
	}
	teardownOverlay()
}

// HideMirror transitions Mirroring → MirrorHidden. Invalid from any
// other state.
func (a *Agent) HideMirror() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != model.Mirroring {
		return newError(InvalidStateTransition, "hide-mirror requires Mirroring", nil)
	}
	a.hideMirrorLocked()
	return nil
}

func (a *Agent) hideMirrorLocked() {
	now := time.Now()
	a.mirrorHiddenAt = &now
	if a.overlay != nil {
		a.overlay.Hide()
	}
	a.state = model.MirrorHidden
}

// ShowMirror transitions MirrorHidden → Mirroring. Invalid from any
// other state.
func (a *Agent) ShowMirror() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != model.MirrorHidden {
		return newError(InvalidStateTransition, "show-mirror requires MirrorHidden", nil)
	}
	a.showMirrorLocked()
	return nil
}

func (a *Agent) showMirrorLocked() {
	if a.overlay != nil {
		a.overlay.Unhide(a.opacity.Load())
	}
	a.mirrorHiddenAt = nil
	a.state = model.Mirroring
}

// onHoverEnterSettled is the overlay's OnHoverEnterSettled callback:
// Mirroring → MirrorHidden. Ignored outside Mirroring (e.g. a settle
// arriving after an unrelated unpin raced it).
func (a *Agent) onHoverEnterSettled() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != model.Mirroring {
		return
	}
	a.hideMirrorLocked()
}

// onHoverExit is the overlay's global-pointer-monitor exit callback:
// restores Mirroring directly, independent of the foreground-app
// re-show debounce (spec.md §4.4's exit path is unconditional).
func (a *Agent) onHoverExit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != model.MirrorHidden {
		return
	}
	a.showMirrorLocked()
}

// onForegroundChanged implements spec.md §4.5's hover re-show policy.
func (a *Agent) onForegroundChanged(pid int32) {
	a.mu.Lock()
	a.foregroundPID = pid
	if a.state != model.MirrorHidden || a.target == nil {
		a.mu.Unlock()
		return
	}
	if pid == a.target.PID {
		a.mu.Unlock()
		return
	}

	var elapsed time.Duration
	if a.mirrorHiddenAt != nil {
		elapsed = time.Since(*a.mirrorHiddenAt)
	}
	if elapsed >= hoverReshowDebounce {
		a.showMirrorLocked()
		a.mu.Unlock()
		return
	}
	remaining := hoverReshowDebounce - elapsed
	a.mu.Unlock()

	time.AfterFunc(remaining, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.state != model.MirrorHidden || a.target == nil {
			return
		}
		if a.foregroundPID != a.target.PID {
			a.showMirrorLocked()
		}
	})
}

// SetOpacity clamps v, persists it, and forwards it to the overlay if
// currently mirroring.
func (a *Agent) SetOpacity(v float64) (model.OverlayOpacity, error) {
	clamped, err := a.opacity.Save(v)
	if err != nil {
		return clamped, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.overlay != nil {
		a.overlay.SetOpacity(clamped)
	}
	return clamped, nil
}

// LastFrame returns the most recent frame delivered by the active
// capture session, for the debug-frame dump surface (SPEC_FULL.md
// §12.5). It reports false if nothing is pinned or no frame has
// arrived yet.
func (a *Agent) LastFrame() (capture.RawFrame, bool) {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()
	if session == nil {
		return capture.RawFrame{}, false
	}
	return session.LastFrame()
}

// Status projects the readonly AgentStatus of spec.md §3.
func (a *Agent) Status() model.AgentStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	status := model.AgentStatus{
		State:         a.state.String(),
		Pinned:        a.state.Pinned(),
		MirrorVisible: a.state == model.Mirroring,
		PinnedSince:   a.pinnedSince,
	}
	if a.target != nil {
		status.TargetAppName = a.target.AppName
		status.WindowTitle = a.target.WindowTitle
	}
	return status
}

func (a *Agent) startLivenessLocked() {
	a.livenessStop = make(chan struct{})
	windowID := a.target.WindowID
	stop := a.livenessStop
	go func() {
		ticker := time.NewTicker(livenessInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				exists, err := a.enumerator.Exists(windowID)
				if err != nil {
					log.Warn().Err(err).Uint32("window_id", windowID).Msg("liveness probe failed")
					continue
				}
				if !exists {
					log.Info().Uint32("window_id", windowID).Msg("target disappeared, unpinning")
					a.Unpin()
					return
				}
			}
		}
	}()
}

func (a *Agent) stopLivenessLocked() {
	if a.livenessStop != nil {
		close(a.livenessStop)
		a.livenessStop = nil
	}
}

func (a *Agent) startWorkspaceLocked() {
	if a.workspace == nil || a.workspaceOn {
		return
	}
	a.workspace.Start(a.onForegroundChanged)
	a.workspaceOn = true
}

func (a *Agent) stopWorkspaceLocked() {
	if a.workspace == nil || !a.workspaceOn {
		return
	}
	a.workspace.Stop()
	a.workspaceOn = false
}
