//go:build darwin

package permission

/*
#cgo CFLAGS: -x objective-c -fmodules -fobjc-arc
#cgo LDFLAGS: -framework ApplicationServices -framework CoreGraphics -framework ScreenCaptureKit -framework AppKit

#import <ApplicationServices/ApplicationServices.h>
#import <ScreenCaptureKit/ScreenCaptureKit.h>
#import <AppKit/AppKit.h>
#include <dispatch/dispatch.h>

// is_accessibility_trusted performs a non-prompting accessibility
// check, matching mj1618-desktop-cli's AXIsProcessTrusted() usage.
static int is_accessibility_trusted(void) {
    return AXIsProcessTrusted() ? 1 : 0;
}

// prompt_accessibility triggers the platform's user-facing prompt via
// the AXIsProcessTrustedWithOptions "prompt" option, matching the
// System Events accessibility flow used across the retrieval pack's
// darwin backends.
static void prompt_accessibility(void) {
    NSDictionary *opts = @{(__bridge NSString *)kAXTrustedCheckOptionPrompt: @YES};
    AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)opts);
}

// probe_capture_granted performs the minimal, side-effect-free
// shareable-content query spec.md §4.1 calls for: any failure (denied
// permission, timeout) is treated as not-granted.
static int probe_capture_granted(void) {
    __block int granted = 0;
    dispatch_semaphore_t sem = dispatch_semaphore_create(0);

    [SCShareableContent getShareableContentWithCompletionHandler:^(SCShareableContent *content, NSError *error) {
        granted = (error == nil && content != nil) ? 1 : 0;
        dispatch_semaphore_signal(sem);
    }];

    dispatch_semaphore_wait(sem, dispatch_time(DISPATCH_TIME_NOW, 5 * NSEC_PER_SEC));
    return granted;
}

// open_screen_recording_settings opens the Screen Recording privacy
// pane, the macOS equivalent of gopeep's manual "open System
// Preferences" instructions but automated via the settings URL scheme.
static int open_screen_recording_settings(void) {
    NSString *urlString = @"x-apple.systempreferences:com.apple.preference.security?Privacy_ScreenCapture";
    NSURL *url = [NSURL URLWithString:urlString];
    if (url == nil) {
        return 0;
    }
    return [[NSWorkspace sharedWorkspace] openURL:url] ? 1 : 0;
}
*/
import "C"

import "fmt"

type darwinGate struct{}

func newPlatformGate() Gate {
	return darwinGate{}
}

func (darwinGate) Probe() Status {
	return Status{
		CaptureGranted:       C.probe_capture_granted() != 0,
		AccessibilityGranted: C.is_accessibility_trusted() != 0,
	}
}

func (darwinGate) PromptAccessibility() {
	go C.prompt_accessibility()
}

func (darwinGate) GuideToCaptureSettings() error {
	if C.open_screen_recording_settings() == 0 {
		return fmt.Errorf("permission: failed to open Screen Recording settings pane")
	}
	return nil
}
