//go:build darwin

package window

/*
#cgo CFLAGS: -x objective-c -fmodules -fobjc-arc
#cgo LDFLAGS: -framework CoreGraphics -framework AppKit -framework Foundation

#import <CoreGraphics/CoreGraphics.h>
#import <AppKit/AppKit.h>

typedef struct {
    int32_t pid;
    uint32_t window_id;
    char *bundle_id;
    char *owner_name;
    char *title;
    int32_t layer;
    double x, y, width, height;
    int on_screen;
} rawWindowC;

typedef struct {
    rawWindowC *windows;
    int count;
} rawWindowListC;

// list_raw_windows enumerates on-screen windows front-to-back via
// CGWindowListCopyWindowInfo, resolving each owner's bundle identifier
// through NSRunningApplication, matching the enumeration approach of
// gopeep's list_windows() in capture_darwin.go but keeping every
// window (filtering happens in Go per spec.md §4.2) and adding the
// bundle identifier gopeep's variant did not need.
static rawWindowListC list_raw_windows(void) {
    rawWindowListC result = {NULL, 0};

    CFArrayRef windowList = CGWindowListCopyWindowInfo(
        kCGWindowListOptionOnScreenOnly | kCGWindowListExcludeDesktopElements,
        kCGNullWindowID);
    if (!windowList) {
        return result;
    }

    CFIndex count = CFArrayGetCount(windowList);
    result.windows = (rawWindowC *)calloc((size_t)count, sizeof(rawWindowC));
    if (!result.windows) {
        CFRelease(windowList);
        return result;
    }

    int n = 0;
    for (CFIndex i = 0; i < count; i++) {
        NSDictionary *info = (__bridge NSDictionary *)CFArrayGetValueAtIndex(windowList, i);

        NSNumber *pidNum = info[(NSString *)kCGWindowOwnerPID];
        NSNumber *windowIDNum = info[(NSString *)kCGWindowNumber];
        NSNumber *layerNum = info[(NSString *)kCGWindowLayer];
        NSDictionary *boundsDict = info[(NSString *)kCGWindowBounds];
        if (!pidNum || !windowIDNum || !boundsDict) {
            continue;
        }

        CGRect bounds;
        if (!CGRectMakeWithDictionaryRepresentation((__bridge CFDictionaryRef)boundsDict, &bounds)) {
            continue;
        }

        pid_t pid = pidNum.intValue;
        NSRunningApplication *app = [NSRunningApplication runningApplicationWithProcessIdentifier:pid];
        NSString *bundleID = app.bundleIdentifier ?: @"";
        NSString *ownerName = info[(NSString *)kCGWindowOwnerName] ?: (app.localizedName ?: @"");
        NSString *title = info[(NSString *)kCGWindowName] ?: @"";
        NSNumber *onScreenNum = info[(NSString *)kCGWindowIsOnscreen];

        rawWindowC *dst = &result.windows[n];
        dst->pid = (int32_t)pid;
        dst->window_id = (uint32_t)windowIDNum.unsignedIntValue;
        dst->bundle_id = strdup([bundleID UTF8String]);
        dst->owner_name = strdup([ownerName UTF8String]);
        dst->title = strdup([title UTF8String]);
        dst->layer = (int32_t)layerNum.intValue;
        dst->x = bounds.origin.x;
        dst->y = bounds.origin.y;
        dst->width = bounds.size.width;
        dst->height = bounds.size.height;
        dst->on_screen = onScreenNum ? (onScreenNum.boolValue ? 1 : 0) : 1;
        n++;
    }

    result.count = n;
    CFRelease(windowList);
    return result;
}

static void free_raw_window_list(rawWindowListC list) {
    for (int i = 0; i < list.count; i++) {
        free(list.windows[i].bundle_id);
        free(list.windows[i].owner_name);
        free(list.windows[i].title);
    }
    if (list.windows) {
        free(list.windows);
    }
}
*/
import "C"

import (
	"unsafe"

	"github.com/southflowpeak/pin/internal/model"
)

type darwinLister struct{}

func newPlatformLister() Lister {
	return darwinLister{}
}

func (darwinLister) List() ([]RawWindow, error) {
	cList := C.list_raw_windows()
	defer C.free_raw_window_list(cList)

	if cList.count == 0 {
		return nil, nil
	}

	cWindows := unsafe.Slice(cList.windows, cList.count)
	out := make([]RawWindow, 0, cList.count)
	for _, cw := range cWindows {
		out = append(out, RawWindow{
			PID:       int32(cw.pid),
			WindowID:  uint32(cw.window_id),
			BundleID:  C.GoString(cw.bundle_id),
			OwnerName: C.GoString(cw.owner_name),
			Title:     C.GoString(cw.title),
			Layer:     int(cw.layer),
			Bounds: model.Rectangle{
				X:      float64(cw.x),
				Y:      float64(cw.y),
				Width:  float64(cw.width),
				Height: float64(cw.height),
			},
			OnScreen: cw.on_screen != 0,
		})
	}
	return out, nil
}

func (d darwinLister) Exists(windowID uint32) (bool, error) {
	raws, err := d.List()
	if err != nil {
		return false, err
	}
	for _, w := range raws {
		if w.WindowID == windowID && w.OnScreen {
			return true, nil
		}
	}
	return false, nil
}

func (d darwinLister) Bounds(windowID uint32) (*model.Rectangle, error) {
	raws, err := d.List()
	if err != nil {
		return nil, err
	}
	for _, w := range raws {
		if w.WindowID == windowID {
			b := w.Bounds
			return &b, nil
		}
	}
	return nil, nil
}
