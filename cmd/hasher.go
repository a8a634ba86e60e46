package cmd

import (
	"snappurge/imageprocessor"
	"snappurge/imageprocessor/cvhash"
)

// newHasher resolves a configured algorithm name to a hasher. The OpenCV
// backend only exists in binaries built with the gocv tag.
func newHasher(algorithm string) (imageprocessor.Hasher, error) {
	if algorithm == cvhash.Algorithm {
		h, err := cvhash.New()
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	return imageprocessor.NewHasher(algorithm)
}
