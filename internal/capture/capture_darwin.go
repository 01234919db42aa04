//go:build darwin

package capture

/*
#cgo CFLAGS: -x objective-c -fmodules -fobjc-arc
#cgo LDFLAGS: -framework ScreenCaptureKit -framework CoreMedia -framework CoreVideo -framework CoreGraphics -framework Foundation

#import <ScreenCaptureKit/ScreenCaptureKit.h>
#import <CoreMedia/CoreMedia.h>
#import <CoreVideo/CoreVideo.h>
#include <dispatch/dispatch.h>
#include <stdlib.h>
#include <string.h>

// Forward declarations of the Go callbacks each stream instance calls
// back into, keyed by the opaque handle id assigned in Go.
extern void goDeliverFrame(long handle, void *data, int length, int width, int height, int strideBytes);
extern void goStopComplete(long handle);

@interface PinStreamOutput : NSObject <SCStreamOutput>
@property (nonatomic, assign) long goHandle;
@end

@implementation PinStreamOutput
- (void)stream:(SCStream *)stream didOutputSampleBuffer:(CMSampleBufferRef)sampleBuffer ofType:(SCStreamOutputType)type {
    if (type != SCStreamOutputTypeScreen) return;

    CVImageBufferRef imageBuffer = CMSampleBufferGetImageBuffer(sampleBuffer);
    if (imageBuffer == NULL) return;

    CVPixelBufferLockBaseAddress(imageBuffer, kCVPixelBufferLock_ReadOnly);
    size_t width = CVPixelBufferGetWidth(imageBuffer);
    size_t height = CVPixelBufferGetHeight(imageBuffer);
    size_t bytesPerRow = CVPixelBufferGetBytesPerRow(imageBuffer);
    void *base = CVPixelBufferGetBaseAddress(imageBuffer);

    if (base != NULL) {
        goDeliverFrame(self.goHandle, base, (int)(height * bytesPerRow), (int)width, (int)height, (int)bytesPerRow);
    }
    CVPixelBufferUnlockBaseAddress(imageBuffer, kCVPixelBufferLock_ReadOnly);
}
@end

typedef struct {
    void *stream;      // SCStream*, retained via CFBridgingRetain
    void *config;      // SCStreamConfiguration*
    void *output;      // PinStreamOutput*
    void *queue;       // dispatch_queue_t
} pinStreamState;

// pin_start_stream locates windowID in shareable content and starts a
// stream over it, mirroring gopeep's start_window_capture: both the
// shareable-content lookup and the stream start block the caller on a
// dispatch semaphore, each with a 5 second timeout.
static int pin_start_stream(long goHandle, uint32_t windowID, int width, int height, int fps, pinStreamState *outState, char **errMsg) {
    __block SCContentFilter *filter = nil;
    __block int cfgWidth = width;
    __block int cfgHeight = height;
    dispatch_semaphore_t findSem = dispatch_semaphore_create(0);

    [SCShareableContent getShareableContentWithCompletionHandler:^(SCShareableContent *content, NSError *error) {
        if (error == nil && content != nil) {
            for (SCWindow *w in content.windows) {
                if (w.windowID == windowID) {
                    filter = [[SCContentFilter alloc] initWithDesktopIndependentWindow:w];
                    if (cfgWidth <= 0) cfgWidth = (int)w.frame.size.width;
                    if (cfgHeight <= 0) cfgHeight = (int)w.frame.size.height;
                    break;
                }
            }
        }
        dispatch_semaphore_signal(findSem);
    }];
    dispatch_semaphore_wait(findSem, dispatch_time(DISPATCH_TIME_NOW, 5 * NSEC_PER_SEC));

    if (filter == nil) {
        *errMsg = strdup("window not found in shareable content");
        return -1;
    }

    SCStreamConfiguration *config = [[SCStreamConfiguration alloc] init];
    config.width = cfgWidth;
    config.height = cfgHeight;
    config.minimumFrameInterval = CMTimeMake(1, fps > 0 ? fps : 60);
    config.pixelFormat = kCVPixelFormatType_32BGRA;
    config.showsCursor = NO;
    config.capturesAudio = NO;

    SCStream *stream = [[SCStream alloc] initWithFilter:filter configuration:config delegate:nil];
    dispatch_queue_t queue = dispatch_queue_create("com.southflowpeak.pin.capture", DISPATCH_QUEUE_SERIAL);

    PinStreamOutput *output = [[PinStreamOutput alloc] init];
    output.goHandle = goHandle;

    NSError *addErr = nil;
    [stream addStreamOutput:output type:SCStreamOutputTypeScreen sampleHandlerQueue:queue error:&addErr];
    if (addErr != nil) {
        *errMsg = strdup([[addErr localizedDescription] UTF8String]);
        return -2;
    }

    __block int startResult = 0;
    __block char *startErr = NULL;
    dispatch_semaphore_t startSem = dispatch_semaphore_create(0);
    [stream startCaptureWithCompletionHandler:^(NSError *error) {
        if (error != nil) {
            startResult = -3;
            startErr = strdup([[error localizedDescription] UTF8String]);
        }
        dispatch_semaphore_signal(startSem);
    }];
    dispatch_semaphore_wait(startSem, dispatch_time(DISPATCH_TIME_NOW, 5 * NSEC_PER_SEC));

    if (startResult != 0) {
        *errMsg = startErr;
        return startResult;
    }

    outState->stream = (void *)CFBridgingRetain(stream);
    outState->config = (void *)CFBridgingRetain(config);
    outState->output = (void *)CFBridgingRetain(output);
    outState->queue = (void *)CFBridgingRetain(queue);
    return 0;
}

static int pin_reconfigure_stream(pinStreamState *state, int width, int height, int fps) {
    if (state->stream == NULL || state->config == NULL) return -1;
    SCStreamConfiguration *config = (__bridge SCStreamConfiguration *)state->config;
    config.width = width;
    config.height = height;
    config.minimumFrameInterval = CMTimeMake(1, fps > 0 ? fps : 60);

    SCStream *stream = (__bridge SCStream *)state->stream;
    NSError *err = nil;
    [stream updateConfiguration:config completionHandler:^(NSError *error) {}];
    (void)err;
    return 0;
}

// pin_stop_stream requests asynchronous termination and calls
// goStopComplete(goHandle) from the stream's completion handler,
// draining any in-flight sample buffers first — spec.md §4.3's
// deferred-cleanup rationale, unlike gopeep's stop_capture which
// blocks the caller on dispatch_semaphore_wait.
static void pin_stop_stream(long goHandle, pinStreamState *state) {
    if (state->stream == NULL) {
        goStopComplete(goHandle);
        return;
    }
    SCStream *stream = (SCStream *)CFBridgingRelease(state->stream);
    state->stream = NULL;

    [stream stopCaptureWithCompletionHandler:^(NSError *error) {
        goStopComplete(goHandle);
    }];

    if (state->config != NULL) { CFBridgingRelease(state->config); state->config = NULL; }
    if (state->output != NULL) { CFBridgingRelease(state->output); state->output = NULL; }
    if (state->queue != NULL) { CFBridgingRelease(state->queue); state->queue = NULL; }
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/southflowpeak/pin/internal/model"
)

var (
	handleMu      sync.Mutex
	handleCounter int64
	handles       = make(map[int64]*darwinStream)
)

// darwinStream implements capture.StreamHandle over ScreenCaptureKit.
type darwinStream struct {
	handle  int64
	deliver func(RawFrame)
	onStop  func()
	state   C.pinStreamState
}

// NewPlatformStreamFactory returns the StreamFactory wired to
// ScreenCaptureKit for use by capture.NewSession on darwin.
func NewPlatformStreamFactory() StreamFactory {
	return func() StreamHandle {
		handleMu.Lock()
		handleCounter++
		h := handleCounter
		handleMu.Unlock()

		ds := &darwinStream{handle: h}
		handleMu.Lock()
		handles[h] = ds
		handleMu.Unlock()
		return ds
	}
}

func (d *darwinStream) Start(windowID uint32, cfg model.CaptureConfiguration, deliver func(RawFrame)) error {
	d.deliver = deliver

	fps := 60
	if cfg.MinFrameInterval > 0 {
		fps = int(1_000_000_000 / cfg.MinFrameInterval.Nanoseconds())
		if fps <= 0 {
			fps = 60
		}
	}

	var errMsg *C.char
	rc := C.pin_start_stream(
		C.long(d.handle),
		C.uint32_t(windowID),
		C.int(cfg.Width),
		C.int(cfg.Height),
		C.int(fps),
		&d.state,
		&errMsg,
	)
	if rc != 0 {
		reason := "unknown"
		if errMsg != nil {
			reason = C.GoString(errMsg)
			C.free(unsafe.Pointer(errMsg))
		}
		switch rc {
		case -1:
			return fmt.Errorf("not-in-shareable-content: %s", reason)
		case -2:
			return fmt.Errorf("failed to add stream output: %s", reason)
		default:
			return fmt.Errorf("failed to start capture: %s", reason)
		}
	}
	return nil
}

func (d *darwinStream) Reconfigure(cfg model.CaptureConfiguration) error {
	fps := 60
	if cfg.MinFrameInterval > 0 {
		fps = int(1_000_000_000 / cfg.MinFrameInterval.Nanoseconds())
		if fps <= 0 {
			fps = 60
		}
	}
	if C.pin_reconfigure_stream(&d.state, C.int(cfg.Width), C.int(cfg.Height), C.int(fps)) != 0 {
		return fmt.Errorf("capture: stream not running")
	}
	return nil
}

func (d *darwinStream) Stop(onDone func()) {
	d.onStop = onDone
	C.pin_stop_stream(C.long(d.handle), &d.state)
}

//export goDeliverFrame
func goDeliverFrame(handle C.long, data unsafe.Pointer, length, width, height, strideBytes C.int) {
	handleMu.Lock()
	ds := handles[int64(handle)]
	handleMu.Unlock()
	if ds == nil || ds.deliver == nil {
		return
	}
	buf := C.GoBytes(data, length)
	ds.deliver(RawFrame{Data: buf, Width: int(width), Height: int(height), Stride: int(strideBytes)})
}

//export goStopComplete
func goStopComplete(handle C.long) {
	handleMu.Lock()
	ds := handles[int64(handle)]
	delete(handles, int64(handle))
	handleMu.Unlock()
	if ds != nil && ds.onStop != nil {
		ds.onStop()
	}
}
