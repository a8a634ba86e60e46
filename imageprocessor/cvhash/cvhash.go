//go:build gocv

package cvhash

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"

	"snappurge/types"
)

// Available reports whether this binary was built with OpenCV support
const Available = true

// Hasher computes a DCT perceptual hash with OpenCV
type Hasher struct{}

// New returns the OpenCV hasher
func New() (*Hasher, error) {
	return &Hasher{}, nil
}

// Name returns the algorithm name
func (h *Hasher) Name() string {
	return Algorithm
}

// Hash converts img to a grayscale Mat, resizes it to 32x32, applies a DCT and
// sets one bit per low-frequency coefficient that is at or above the median
func (h *Hasher) Hash(img image.Image) (types.Fingerprint, error) {
	if img == nil {
		return 0, fmt.Errorf("cannot compute hash for nil image")
	}

	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return 0, fmt.Errorf("cannot convert image to mat: %w", err)
	}
	defer src.Close()
	if src.Empty() {
		return 0, fmt.Errorf("cannot compute hash for empty image")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorRGBToGray)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(gray, &resized, image.Point{X: 32, Y: 32}, 0, 0, gocv.InterpolationArea)

	floatImg := gocv.NewMat()
	defer floatImg.Close()
	resized.ConvertTo(&floatImg, gocv.MatTypeCV32F)

	dct := gocv.NewMat()
	defer dct.Close()
	gocv.DCT(floatImg, &dct, 0)
	if dct.Empty() {
		return 0, fmt.Errorf("dct produced an empty matrix")
	}

	// 8x8 low frequency block
	lowFreq := dct.Region(image.Rect(0, 0, 8, 8))
	defer lowFreq.Close()

	values := make([]float32, 0, 64)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			values = append(values, lowFreq.GetFloatAt(y, x))
		}
	}
	median := calculateMedian(values)

	var hash uint64
	for _, v := range values {
		hash <<= 1
		if v >= median {
			hash |= 1
		}
	}
	return types.Fingerprint(hash), nil
}

// calculateMedian calculates the median value of a float32 slice
func calculateMedian(values []float32) float32 {
	sorted := make([]float32, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case n%2 == 0:
		return (sorted[n/2-1] + sorted[n/2]) / 2
	default:
		return sorted[n/2]
	}
}
