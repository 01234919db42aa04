package debugframe

import (
	"bytes"
	"testing"

	"github.com/southflowpeak/pin/internal/capture"
)

func solidFrame(w, h int, r, g, b, a byte) capture.RawFrame {
	stride := w * 4
	data := make([]byte, stride*h)
	for i := 0; i < w*h; i++ {
		data[i*4] = b
		data[i*4+1] = g
		data[i*4+2] = r
		data[i*4+3] = a
	}
	return capture.RawFrame{Data: data, Width: w, Height: h, Stride: stride}
}

func TestToRGBA_SwapsByteOrder(t *testing.T) {
	frame := solidFrame(2, 2, 10, 20, 30, 255)
	img := ToRGBA(frame)

	got := img.RGBAAt(0, 0)
	if got.R != 10 || got.G != 20 || got.B != 30 || got.A != 255 {
		t.Fatalf("unexpected pixel: %+v", got)
	}
}

func TestEncodeBMP_RejectsEmptyFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeBMP(&buf, capture.RawFrame{}); err == nil {
		t.Fatal("expected an error for an empty frame")
	}
}

func TestEncodeBMP_WritesNonEmptyOutput(t *testing.T) {
	frame := solidFrame(4, 4, 1, 2, 3, 255)
	var buf bytes.Buffer
	if err := EncodeBMP(&buf, frame); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected non-empty BMP output")
	}
}
