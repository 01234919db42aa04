// Package debugframe implements the `debug-frame` surface
// (SPEC_FULL.md §12.5): encoding the capture session's most recently
// delivered BGRA sample buffer as an image file, so a stuck or blank
// mirror can be diagnosed without attaching a debugger. Grounded in
// gopeep's own BGRA-to-RGBA conversion in capture_multi_darwin.go.
package debugframe

import (
	"fmt"
	"image"
	"io"

	"golang.org/x/image/bmp"

	"github.com/southflowpeak/pin/internal/capture"
)

// ToRGBA converts a BGRA sample buffer into a standard library image,
// swapping the byte order gopeep's frameDataToImage also has to
// account for.
func ToRGBA(frame capture.RawFrame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		srcRow := frame.Data[y*frame.Stride : y*frame.Stride+frame.Width*4]
		dstRow := img.Pix[y*img.Stride : y*img.Stride+frame.Width*4]
		for x := 0; x < frame.Width; x++ {
			b, g, r, a := srcRow[x*4], srcRow[x*4+1], srcRow[x*4+2], srcRow[x*4+3]
			dstRow[x*4], dstRow[x*4+1], dstRow[x*4+2], dstRow[x*4+3] = r, g, b, a
		}
	}
	return img
}

// EncodeBMP writes frame to w as a BMP, the simplest format that
// round-trips a raw framebuffer without color-space surprises.
func EncodeBMP(w io.Writer, frame capture.RawFrame) error {
	if frame.Width == 0 || frame.Height == 0 {
		return fmt.Errorf("debugframe: empty frame")
	}
	return bmp.Encode(w, ToRGBA(frame))
}
