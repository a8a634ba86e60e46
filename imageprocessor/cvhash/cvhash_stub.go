//go:build !gocv

package cvhash

import (
	"image"

	"snappurge/types"
)

// Available reports whether this binary was built with OpenCV support
const Available = false

// Hasher is unusable without the gocv build tag
type Hasher struct{}

// New reports ErrUnavailable; rebuild with -tags gocv to enable the OpenCV backend
func New() (*Hasher, error) {
	return nil, ErrUnavailable
}

// Name returns the algorithm name
func (h *Hasher) Name() string {
	return Algorithm
}

// Hash always fails with ErrUnavailable
func (h *Hasher) Hash(image.Image) (types.Fingerprint, error) {
	return 0, ErrUnavailable
}
