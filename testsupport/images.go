// Package testsupport holds fixtures shared by package tests: generated images in
// every supported encoding and a hasher whose fingerprints are chosen by the test.
package testsupport

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"golang.org/x/image/bmp"

	"snappurge/types"
)

// Gradient returns a diagonal grayscale gradient
func Gradient(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) * 255 / (width + height))})
		}
	}
	return img
}

// Checkerboard returns a grayscale checkerboard with square cells of the given size
func Checkerboard(width, height, cell int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// Inverted returns the photographic negative of img
func Inverted(img *image.Gray) *image.Gray {
	out := image.NewGray(img.Bounds())
	for i, v := range img.Pix {
		out.Pix[i] = 255 - v
	}
	return out
}

// Solid returns a uniformly filled grayscale image
func Solid(width, height int, level uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = level
	}
	return img
}

// EncodePNG encodes img as PNG
func EncodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// EncodeJPEG encodes img as JPEG at maximum quality
func EncodeJPEG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// EncodeGIF encodes img as GIF
func EncodeGIF(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}

// EncodeBMP encodes img as BMP
func EncodeBMP(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		t.Fatalf("encode bmp: %v", err)
	}
	return buf.Bytes()
}

// WriteFile stores data at path inside fsys, creating parent directories
func WriteFile(t testing.TB, fsys afero.Fs, path string, data []byte) {
	t.Helper()
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteOSFile stores data at path on the real filesystem
func WriteOSFile(t testing.TB, path string, data []byte) {
	t.Helper()
	WriteFile(t, afero.NewOsFs(), path, data)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
}

// MarkerImage returns a small PNG whose pixels all carry the marker level.
// MarkerHasher maps that level to a fingerprint.
func MarkerImage(t testing.TB, marker uint8) []byte {
	t.Helper()
	return EncodePNG(t, Solid(4, 4, marker))
}

// MarkerHasher fingerprints marker images through a lookup table, so tests can
// choose exact Hamming distances. Markers missing from the table fail to hash.
type MarkerHasher struct {
	Table map[uint8]types.Fingerprint
}

// Name returns the hasher name
func (h MarkerHasher) Name() string {
	return "marker"
}

// Hash returns the fingerprint registered for the image's top-left gray level
func (h MarkerHasher) Hash(img image.Image) (types.Fingerprint, error) {
	b := img.Bounds()
	level := color.GrayModel.Convert(img.At(b.Min.X, b.Min.Y)).(color.Gray).Y
	fp, ok := h.Table[level]
	if !ok {
		return 0, fmt.Errorf("no fingerprint registered for marker %d", level)
	}
	return fp, nil
}
