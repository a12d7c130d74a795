package estimator

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := imaging.New(width, height, color.NRGBA{R: 120, G: 80, B: 40, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		t.Fatalf("Failed to encode test JPEG: %v", err)
	}
	return buf.Bytes()
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := imaging.New(width, height, color.NRGBA{R: 40, G: 120, B: 80, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("Failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func TestPrepareImage_DownscalesLargeImages(t *testing.T) {
	t.Parallel()

	src := testJPEG(t, 1200, 900)

	out, err := PrepareImage(src, 800, 75)
	if err != nil {
		t.Fatalf("PrepareImage returned error: %v", err)
	}

	decoded, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Failed to decode prepared image: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != 800 || bounds.Dy() != 600 {
		t.Errorf("Expected 800x600 after fit, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestPrepareImage_NeverUpscales(t *testing.T) {
	t.Parallel()

	src := testJPEG(t, 320, 240)

	out, err := PrepareImage(src, 800, 75)
	if err != nil {
		t.Fatalf("PrepareImage returned error: %v", err)
	}

	decoded, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Failed to decode prepared image: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != 320 || bounds.Dy() != 240 {
		t.Errorf("Expected dimensions preserved at 320x240, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestPrepareImage_ReencodesPNGAsJPEG(t *testing.T) {
	t.Parallel()

	src := testPNG(t, 100, 100)

	out, err := PrepareImage(src, 800, 75)
	if err != nil {
		t.Fatalf("PrepareImage returned error: %v", err)
	}

	// JPEG streams open with the SOI marker.
	if len(out) < 2 || out[0] != 0xFF || out[1] != 0xD8 {
		t.Error("Expected JPEG output for PNG input")
	}
}

func TestPrepareImage_RejectsUndecodableInput(t *testing.T) {
	t.Parallel()

	if _, err := PrepareImage([]byte("definitely not an image"), 800, 75); err == nil {
		t.Error("Expected error for undecodable input, got nil")
	}
}
