package types

import (
	"fmt"
	"math/bits"
	"strconv"
)

// Fingerprint is a 64-bit perceptual hash of one image's visual content
type Fingerprint uint64

// Distance returns the Hamming distance between two fingerprints
func (f Fingerprint) Distance(other Fingerprint) int {
	return bits.OnesCount64(uint64(f ^ other))
}

// String returns the fingerprint as 16 lowercase hex digits
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// ParseFingerprint parses the hex form produced by String
func ParseFingerprint(s string) (Fingerprint, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid fingerprint %q: %w", s, err)
	}
	return Fingerprint(v), nil
}

// ImageRecord holds one hashed image
type ImageRecord struct {
	Path        string      `json:"path"`
	Format      string      `json:"format"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Size        int64       `json:"size"`
	Fingerprint Fingerprint `json:"fingerprint"`
}

// Index maps each distinct fingerprint to the paths that produced it, in discovery order
type Index map[Fingerprint][]string

// Add appends path to the list kept for fp
func (idx Index) Add(fp Fingerprint, path string) {
	idx[fp] = append(idx[fp], path)
}

// Files returns the number of paths stored across all fingerprints
func (idx Index) Files() int {
	n := 0
	for _, paths := range idx {
		n += len(paths)
	}
	return n
}

// SimilarityGroup is a set of two or more paths judged similar under one threshold.
// Representative is the smallest fingerprint in the cluster and only serves as a key.
type SimilarityGroup struct {
	Representative Fingerprint `json:"representative"`
	Paths          []string    `json:"paths"`
}
