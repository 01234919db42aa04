// Package workspace wraps the platform's foreground-application
// notification (spec.md §6): a callback that fires whenever the
// frontmost application changes, carrying the new foreground's pid.
// The state machine's hover re-show policy (spec.md §4.5) is the only
// consumer.
package workspace

// Watcher is the platform capability. Start must be idempotent — a
// second Start before Stop replaces the previous callback rather than
// registering twice.
type Watcher interface {
	Start(onForegroundChanged func(pid int32))
	Stop()
}
