package imageprocessor

import (
	"fmt"
	"image"
	"strings"

	"github.com/corona10/goimagehash"

	"snappurge/types"
)

// Hash algorithm names accepted by NewHasher
const (
	AlgorithmPerceptual = "phash"
	AlgorithmAverage    = "ahash"
	AlgorithmDifference = "dhash"
)

// Hasher computes a fingerprint for a decoded image
type Hasher interface {
	Name() string
	Hash(img image.Image) (types.Fingerprint, error)
}

type hashFunc func(image.Image) (*goimagehash.ImageHash, error)

// goImageHasher wraps one of the goimagehash 64-bit hash functions
type goImageHasher struct {
	name string
	fn   hashFunc
}

// NewHasher returns the pure-Go hasher for the named algorithm.
// An empty name selects the DCT perceptual hash.
func NewHasher(algorithm string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", AlgorithmPerceptual:
		return &goImageHasher{name: AlgorithmPerceptual, fn: goimagehash.PerceptionHash}, nil
	case AlgorithmAverage:
		return &goImageHasher{name: AlgorithmAverage, fn: goimagehash.AverageHash}, nil
	case AlgorithmDifference:
		return &goImageHasher{name: AlgorithmDifference, fn: goimagehash.DifferenceHash}, nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q", algorithm)
	}
}

// Name returns the algorithm name
func (h *goImageHasher) Name() string {
	return h.name
}

// Hash computes the 64-bit hash of img
func (h *goImageHasher) Hash(img image.Image) (types.Fingerprint, error) {
	if img == nil {
		return 0, fmt.Errorf("cannot compute %s for nil image", h.name)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return 0, fmt.Errorf("cannot compute %s for empty image", h.name)
	}

	hash, err := h.fn(img)
	if err != nil {
		return 0, fmt.Errorf("failed to compute %s: %w", h.name, err)
	}
	return types.Fingerprint(hash.GetHash()), nil
}
