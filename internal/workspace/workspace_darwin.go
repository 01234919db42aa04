//go:build darwin

package workspace

/*
#cgo CFLAGS: -x objective-c -fmodules -fobjc-arc
#cgo LDFLAGS: -framework Cocoa

#import <Cocoa/Cocoa.h>

extern void goForegroundChanged(pid_t pid);

@interface PinWorkspaceObserver : NSObject
- (void)appActivated:(NSNotification *)note;
@end

@implementation PinWorkspaceObserver
- (void)appActivated:(NSNotification *)note {
    NSRunningApplication *app = note.userInfo[NSWorkspaceApplicationKey];
    if (app) {
        goForegroundChanged(app.processIdentifier);
    }
}
@end

static PinWorkspaceObserver *g_observer = nil;

static void pin_workspace_start(void) {
    if (g_observer != nil) return;
    g_observer = [[PinWorkspaceObserver alloc] init];
    [[[NSWorkspace sharedWorkspace] notificationCenter] addObserver:g_observer
                                                            selector:@selector(appActivated:)
                                                                name:NSWorkspaceDidActivateApplicationNotification
                                                              object:nil];
}

static void pin_workspace_stop(void) {
    if (g_observer == nil) return;
    [[[NSWorkspace sharedWorkspace] notificationCenter] removeObserver:g_observer];
    g_observer = nil;
}
*/
import "C"

import "sync"

var (
	mu       sync.Mutex
	callback func(pid int32)
)

type darwinWatcher struct{}

// New returns the Watcher for the current GOOS.
func New() Watcher { return darwinWatcher{} }

func (darwinWatcher) Start(onForegroundChanged func(pid int32)) {
	mu.Lock()
	callback = onForegroundChanged
	mu.Unlock()
	C.pin_workspace_start()
}

func (darwinWatcher) Stop() {
	C.pin_workspace_stop()
	mu.Lock()
	callback = nil
	mu.Unlock()
}

//export goForegroundChanged
func goForegroundChanged(pid C.pid_t) {
	mu.Lock()
	cb := callback
	mu.Unlock()
	if cb != nil {
		cb(int32(pid))
	}
}
