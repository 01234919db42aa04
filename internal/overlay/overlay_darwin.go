//go:build darwin

package overlay

/*
#cgo CFLAGS: -x objective-c -fmodules -fobjc-arc
#cgo LDFLAGS: -framework Cocoa -framework CoreGraphics -framework ApplicationServices -framework QuartzCore

#import <Cocoa/Cocoa.h>
#import <CoreGraphics/CoreGraphics.h>
#import <ApplicationServices/ApplicationServices.h>
#include <dispatch/dispatch.h>
#include <pthread.h>

extern void goHoverEnter(void);
extern void goHoverExit(void);
extern void goUnpinClicked(void);
extern void goRunOnMain(long token);

// pin_run_on_main hops onto the main queue before goRunOnMain invokes
// the Go-side closure registered under token, so every Cocoa/CoreAnimation
// call a capture frame triggers (spec.md §4.3/§5's "UI thread only" rule)
// lands on the same thread that owns g_mirrorView, never the capture
// session's background delivery queue.
static void pin_run_on_main(long token) {
    dispatch_async(dispatch_get_main_queue(), ^{
        goRunOnMain(token);
    });
}

static NSWindow *g_mirrorWindow = nil;
static NSView *g_mirrorView = nil;
static NSWindow *g_buttonWindow = nil;
static NSView *g_buttonView = nil;
static BOOL g_created = NO;
static BOOL g_hoveredNow = NO;

static CFMachPortRef g_eventTap = NULL;
static CFRunLoopSourceRef g_eventTapSource = NULL;
static CFRunLoopRef g_tapRunLoop = NULL;
static volatile BOOL g_tapShouldStop = NO;

static CGEventRef pin_event_tap_callback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon) {
    if (type == kCGEventTapDisabledByTimeout || type == kCGEventTapDisabledByUserInput) {
        if (g_eventTap) CGEventTapEnable(g_eventTap, true);
        return event;
    }
    if (g_mirrorWindow == nil) return event;

    CGPoint p = CGEventGetLocation(event);
    NSScreen *screen = [NSScreen mainScreen];
    CGFloat screenHeight = screen.frame.size.height;
    NSPoint cocoaPoint = NSMakePoint(p.x, screenHeight - p.y);

    if (type == kCGEventLeftMouseDown) {
        if (g_buttonWindow != nil && g_buttonWindow.isVisible && NSPointInRect(cocoaPoint, g_buttonWindow.frame)) {
            goUnpinClicked();
        }
        return event;
    }

    if (type == kCGEventMouseMoved) {
        BOOL over = g_mirrorWindow.isVisible && NSPointInRect(cocoaPoint, g_mirrorWindow.frame);
        if (over && !g_hoveredNow) {
            g_hoveredNow = YES;
            goHoverEnter();
        } else if (!over && g_hoveredNow) {
            g_hoveredNow = NO;
            goHoverExit();
        }
    }
    return event;
}

static void* pin_event_tap_thread(void *arg) {
    @autoreleasepool {
        g_tapRunLoop = CFRunLoopGetCurrent();
        if (g_eventTapSource) {
            CFRunLoopAddSource(g_tapRunLoop, g_eventTapSource, kCFRunLoopCommonModes);
        }
        while (!g_tapShouldStop) {
            @autoreleasepool {
                CFRunLoopRunInMode(kCFRunLoopDefaultMode, 0.1, false);
            }
        }
        if (g_eventTapSource) {
            CFRunLoopRemoveSource(g_tapRunLoop, g_eventTapSource, kCFRunLoopCommonModes);
        }
        g_tapRunLoop = NULL;
    }
    return NULL;
}

static void pin_create_windows(void) {
    if (g_created) return;
    @autoreleasepool {
        [NSApplication sharedApplication];

        NSRect mirrorFrame = NSMakeRect(0, 0, 320, 240);
        g_mirrorWindow = [[NSWindow alloc] initWithContentRect:mirrorFrame
                                                      styleMask:NSWindowStyleMaskBorderless
                                                        backing:NSBackingStoreBuffered
                                                          defer:NO];
        g_mirrorWindow.level = NSFloatingWindowLevel;
        g_mirrorWindow.backgroundColor = [NSColor clearColor];
        g_mirrorWindow.opaque = NO;
        g_mirrorWindow.hasShadow = YES;
        g_mirrorWindow.ignoresMouseEvents = NO;
        g_mirrorWindow.collectionBehavior = NSWindowCollectionBehaviorCanJoinAllSpaces |
                                             NSWindowCollectionBehaviorStationary |
                                             NSWindowCollectionBehaviorFullScreenAuxiliary |
                                             NSWindowCollectionBehaviorIgnoresCycle;

        g_mirrorView = [[NSView alloc] initWithFrame:NSMakeRect(0, 0, 320, 240)];
        g_mirrorView.wantsLayer = YES;
        g_mirrorView.layer.backgroundColor = [NSColor blackColor].CGColor;
        g_mirrorWindow.contentView = g_mirrorView;

        NSRect buttonFrame = NSMakeRect(0, 0, 110, 32);
        g_buttonWindow = [[NSWindow alloc] initWithContentRect:buttonFrame
                                                      styleMask:NSWindowStyleMaskBorderless
                                                        backing:NSBackingStoreBuffered
                                                          defer:NO];
        g_buttonWindow.level = NSFloatingWindowLevel + 1;
        g_buttonWindow.backgroundColor = [NSColor clearColor];
        g_buttonWindow.opaque = NO;
        g_buttonWindow.hasShadow = NO;
        g_buttonWindow.ignoresMouseEvents = NO;
        g_buttonWindow.collectionBehavior = g_mirrorWindow.collectionBehavior;

        g_buttonView = [[NSView alloc] initWithFrame:buttonFrame];
        g_buttonView.wantsLayer = YES;
        g_buttonView.layer.cornerRadius = 8.0;
        g_buttonView.layer.backgroundColor = [NSColor colorWithRed:0.16 green:0.16 blue:0.16 alpha:0.9].CGColor;
        g_buttonWindow.contentView = g_buttonView;

        NSTextField *label = [[NSTextField alloc] initWithFrame:NSMakeRect(10, 6, 90, 20)];
        label.stringValue = @"Unpin";
        label.font = [NSFont systemFontOfSize:13 weight:NSFontWeightMedium];
        label.textColor = [NSColor whiteColor];
        label.backgroundColor = [NSColor clearColor];
        label.bordered = NO;
        label.editable = NO;
        label.selectable = NO;
        [g_buttonView addSubview:label];

        CGEventMask mask = CGEventMaskBit(kCGEventLeftMouseDown) | CGEventMaskBit(kCGEventMouseMoved);
        g_eventTap = CGEventTapCreate(kCGSessionEventTap, kCGHeadInsertEventTap, kCGEventTapOptionListenOnly, mask, pin_event_tap_callback, NULL);
        if (g_eventTap) {
            g_eventTapSource = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, g_eventTap, 0);
            CGEventTapEnable(g_eventTap, true);
            g_tapShouldStop = NO;
            pthread_t thread;
            pthread_create(&thread, NULL, pin_event_tap_thread, NULL);
            pthread_detach(thread);
        }

        g_created = YES;
    }
}

static void pin_set_mirror_frame(double x, double y, double w, double h) {
    if (!g_mirrorWindow) return;
    [g_mirrorWindow setFrame:NSMakeRect(x, y, w, h) display:YES];
}

static void pin_set_button_frame(double x, double y, double w, double h) {
    if (!g_buttonWindow) return;
    [g_buttonWindow setFrame:NSMakeRect(x, y, w, h) display:YES];
}

static void pin_set_ignores_mouse_events(int ignore) {
    if (!g_mirrorWindow) return;
    g_mirrorWindow.ignoresMouseEvents = ignore ? YES : NO;
}

static void pin_set_layer_opacity(double v) {
    if (!g_mirrorView) return;
    g_mirrorView.layer.opacity = (float)v;
}

static void pin_set_shadow(int enabled) {
    if (!g_mirrorWindow) return;
    g_mirrorWindow.hasShadow = enabled ? YES : NO;
}

static void pin_show_overlay(void) {
    if (g_mirrorWindow) [g_mirrorWindow orderFrontRegardless];
    if (g_buttonWindow) [g_buttonWindow orderFrontRegardless];
}

static void pin_activate_app(pid_t pid) {
    NSRunningApplication *app = [NSRunningApplication runningApplicationWithProcessIdentifier:pid];
    if (app) {
        [app activateWithOptions:NSApplicationActivateIgnoringOtherApps];
    }
}

static double pin_screen_height(void) {
    NSScreen *screen = [NSScreen mainScreen];
    if (!screen) return 1080.0;
    return screen.frame.size.height;
}

static double pin_screen_backing_scale(void) {
    NSScreen *screen = [NSScreen mainScreen];
    if (!screen) return 1.0;
    return screen.backingScaleFactor;
}

// pin_set_layer_contents pushes one decoded BGRA frame into the mirror
// view's layer as its contents image, the same "draw straight into a
// CALayer" approach gopeep's overlay indicator/button layers use for
// solid colors, extended here to a full pixel buffer.
static void pin_set_layer_contents(void *data, int length, int width, int height, int strideBytes) {
    if (!g_mirrorView) return;
    if (data == NULL) {
        g_mirrorView.layer.contents = nil;
        return;
    }

    CFDataRef cfData = CFDataCreate(kCFAllocatorDefault, (const UInt8 *)data, length);
    CGDataProviderRef provider = CGDataProviderCreateWithCFData(cfData);
    CFRelease(cfData);

    CGColorSpaceRef colorSpace = CGColorSpaceCreateDeviceRGB();
    CGImageRef image = CGImageCreate(width, height, 8, 32, strideBytes, colorSpace,
        kCGBitmapByteOrder32Little | kCGImageAlphaNoneSkipFirst,
        provider, NULL, false, kCGRenderingIntentDefault);

    CGColorSpaceRelease(colorSpace);
    CGDataProviderRelease(provider);

    if (image) {
        [CATransaction begin];
        [CATransaction setDisableActions:YES];
        g_mirrorView.layer.contents = (__bridge id)image;
        [CATransaction commit];
        CGImageRelease(image);
    }
}

static void pin_teardown(void) {
    g_tapShouldStop = YES;

    if (g_tapRunLoop) {
        CFRunLoopStop(g_tapRunLoop);
    }
    if (g_eventTapSource) {
        CFRelease(g_eventTapSource);
        g_eventTapSource = NULL;
    }
    if (g_eventTap) {
        CFRelease(g_eventTap);
        g_eventTap = NULL;
    }

    if (g_mirrorWindow) {
        [g_mirrorWindow orderOut:nil];
        g_mirrorWindow = nil;
    }
    if (g_buttonWindow) {
        [g_buttonWindow orderOut:nil];
        g_buttonWindow = nil;
    }
    g_mirrorView = nil;
    g_buttonView = nil;
    g_created = NO;
    g_hoveredNow = NO;
}
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/southflowpeak/pin/internal/capture"
	"github.com/southflowpeak/pin/internal/model"
)

var (
	rawMu      sync.Mutex
	onHoverIn  func()
	onHoverOut func()
	onClick    func()
)

var (
	mainQueueMu      sync.Mutex
	mainQueueCounter int64
	mainQueueWork    = make(map[int64]func())
)

// runOnMain schedules fn to run on the Cocoa main queue and returns
// immediately; fn itself must not block. Used to marshal every
// capture-frame delivery onto the UI thread before it touches
// g_mirrorView, per spec.md §5.
func runOnMain(fn func()) {
	mainQueueMu.Lock()
	mainQueueCounter++
	token := mainQueueCounter
	mainQueueWork[token] = fn
	mainQueueMu.Unlock()

	C.pin_run_on_main(C.long(token))
}

//export goRunOnMain
func goRunOnMain(token C.long) {
	mainQueueMu.Lock()
	fn := mainQueueWork[int64(token)]
	delete(mainQueueWork, int64(token))
	mainQueueMu.Unlock()
	if fn != nil {
		fn()
	}
}

// darwinPlatform implements overlay.Platform over Cocoa windows and a
// CoreGraphics event tap, following the same one-tap-for-hover-and-click
// design gopeep's overlay_darwin.go uses for its single share button.
type darwinPlatform struct{}

// NewPlatform returns the Platform implementation for the current GOOS.
func NewPlatform() Platform { return darwinPlatform{} }

func (darwinPlatform) CreateWindows() error {
	C.pin_create_windows()
	return nil
}

func (darwinPlatform) SetMirrorFrame(r model.Rectangle) {
	C.pin_set_mirror_frame(C.double(r.X), C.double(r.Y), C.double(r.Width), C.double(r.Height))
}

func (darwinPlatform) SetUnpinButtonFrame(r model.Rectangle) {
	C.pin_set_button_frame(C.double(r.X), C.double(r.Y), C.double(r.Width), C.double(r.Height))
}

func (darwinPlatform) SetMirrorIgnoresMouseEvents(ignore bool) {
	v := 0
	if ignore {
		v = 1
	}
	C.pin_set_ignores_mouse_events(C.int(v))
}

func (darwinPlatform) SetMirrorLayerOpacity(v float64) {
	C.pin_set_layer_opacity(C.double(v))
}

func (darwinPlatform) SetShadow(enabled bool) {
	v := 0
	if enabled {
		v = 1
	}
	C.pin_set_shadow(C.int(v))
}

func (darwinPlatform) ShowOverlay() {
	C.pin_show_overlay()
}

func (darwinPlatform) NewDisplaySink() capture.Sink {
	return newLayerSink()
}

func (darwinPlatform) ScreenInfo() ScreenInfo {
	return ScreenInfo{
		HeightPoints: float64(C.pin_screen_height()),
		BackingScale: float64(C.pin_screen_backing_scale()),
		MaxFrameRate: 60,
	}
}

func (darwinPlatform) ActivateTargetApp(pid int32) {
	C.pin_activate_app(C.pid_t(pid))
}

func (darwinPlatform) SetHoverRawHandlers(enter, exit func()) {
	rawMu.Lock()
	onHoverIn = enter
	onHoverOut = exit
	rawMu.Unlock()
}

func (darwinPlatform) SetUnpinClickHandler(click func()) {
	rawMu.Lock()
	onClick = click
	rawMu.Unlock()
}

// Teardown may now run from the capture session's stop-completion
// callback (agent.unpinLocked defers it there) rather than the
// caller's own goroutine, so it hops onto the main queue the same way
// frame delivery does rather than assuming it is already there.
func (darwinPlatform) Teardown() {
	runOnMain(func() {
		C.pin_teardown()
	})
}

//export goHoverEnter
func goHoverEnter() {
	rawMu.Lock()
	f := onHoverIn
	rawMu.Unlock()
	if f != nil {
		f()
	}
}

//export goHoverExit
func goHoverExit() {
	rawMu.Lock()
	f := onHoverOut
	rawMu.Unlock()
	if f != nil {
		f()
	}
}

//export goUnpinClicked
func goUnpinClicked() {
	rawMu.Lock()
	f := onClick
	rawMu.Unlock()
	if f != nil {
		f()
	}
}

// layerSink implements capture.Sink by pushing each frame into the
// mirror view's CALayer as a fresh CGImage. Detach clears the layer's
// contents so a torn-down mirror never shows a stale frame.
type layerSink struct {
	mu       sync.Mutex
	detached bool
}

func newLayerSink() *layerSink { return &layerSink{} }

// Enqueue is called from the capture session's delivery path, which
// on darwin originates on ScreenCaptureKit's background sample-handler
// queue (capture_darwin.go). It only ever hands the frame to
// runOnMain — the actual CGImage/CALayer work happens once that
// closure runs on the main queue, never on the calling goroutine.
func (s *layerSink) Enqueue(f capture.RawFrame) {
	s.mu.Lock()
	detached := s.detached
	s.mu.Unlock()
	if detached || len(f.Data) == 0 {
		return
	}
	data := f.Data
	width, height, stride := f.Width, f.Height, f.Stride
	runOnMain(func() {
		s.mu.Lock()
		detached := s.detached
		s.mu.Unlock()
		if detached {
			return
		}
		C.pin_set_layer_contents(unsafe.Pointer(&data[0]), C.int(len(data)), C.int(width), C.int(height), C.int(stride))
	})
}

func (s *layerSink) Detach() {
	s.mu.Lock()
	s.detached = true
	s.mu.Unlock()
	runOnMain(func() {
		C.pin_set_layer_contents(nil, 0, 0, 0, 0)
	})
}
