// Package menubar implements the Menu Bar Presenter (spec.md §2,
// component C7): a thin systray client of the dispatcher, presenting current
// status, pin/unpin actions, and a "Pin Window" item that has no
// submenu and lists no windows. It owns no state of its own beyond
// the menu items currently rendered; every action funnels through
// Dispatcher.Handle, per spec.md's "thin; out-of-scope except as a
// dispatcher client" framing.
package menubar

import (
	"fmt"

	"github.com/getlantern/systray"

	"github.com/southflowpeak/pin/internal/dispatch"
	"github.com/southflowpeak/pin/internal/pinlog"
)

var log = pinlog.Component("menubar")

// Presenter drives systray's menu, translating clicks into dispatcher
// commands and refreshing its status line from Status after each pin
// or unpin click.
type Presenter struct {
	dispatcher *dispatch.Dispatcher

	statusItem  *systray.MenuItem
	pinItem     *systray.MenuItem
	unpinItem   *systray.MenuItem
	windowsMenu *systray.MenuItem
	quitItem    *systray.MenuItem

	quit chan struct{}
}

// New builds a Presenter over an already-running dispatcher.
func New(d *dispatch.Dispatcher) *Presenter {
	return &Presenter{dispatcher: d, quit: make(chan struct{})}
}

// Run blocks in systray's event loop until Quit is invoked from the
// menu or onExit fires. It must be called from the process's main
// goroutine (systray's requirement on macOS).
func (p *Presenter) Run() {
	systray.Run(p.onReady, p.onExit)
}

func (p *Presenter) onReady() {
	systray.SetTitle("Pin")
	systray.SetTooltip("Pin — keep a window always on top")

	p.statusItem = systray.AddMenuItem("Status: idle", "")
	p.statusItem.Disable()
	systray.AddSeparator()

	p.pinItem = systray.AddMenuItem("Pin Frontmost Window", "Pin the current frontmost window")
	p.windowsMenu = systray.AddMenuItem("Pin Window", "Choose a window to pin")
	p.unpinItem = systray.AddMenuItem("Unpin", "Stop mirroring")
	systray.AddSeparator()
	p.quitItem = systray.AddMenuItem("Quit", "Quit Pin")

	go p.eventLoop()
}

func (p *Presenter) onExit() {
	close(p.quit)
}

func (p *Presenter) eventLoop() {
	for {
		select {
		case <-p.quit:
			return
		case <-p.pinItem.ClickedCh:
			resp := p.dispatcher.Handle(dispatch.Command{Name: "pin"})
			if !resp.Success {
				log.Warn().Str("error", resp.Error).Msg("menubar: pin failed")
			}
			p.refreshStatus()
		case <-p.unpinItem.ClickedCh:
			p.dispatcher.Handle(dispatch.Command{Name: "unpin"})
			p.refreshStatus()
		case <-p.quitItem.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (p *Presenter) refreshStatus() {
	resp := p.dispatcher.Handle(dispatch.Command{Name: "status"})
	if resp.Status == nil {
		return
	}
	if resp.Status.Pinned {
		p.statusItem.SetTitle(fmt.Sprintf("Status: %s (%s)", resp.Status.State, resp.Status.TargetAppName))
	} else {
		p.statusItem.SetTitle("Status: idle")
	}
}
