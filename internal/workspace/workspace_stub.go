//go:build !darwin

package workspace

type stubWatcher struct{}

// New returns the Watcher for the current GOOS. Off darwin no
// notification ever fires; the hover re-show policy simply never
// triggers, matching stubs elsewhere in this module.
func New() Watcher { return stubWatcher{} }

func (stubWatcher) Start(func(int32)) {}
func (stubWatcher) Stop()             {}
