package scanner

import (
	"errors"

	"snappurge/types"
)

// ErrNotDirectory is returned when the scan root exists but is not a directory
var ErrNotDirectory = errors.New("scan root is not a directory")

// Options defines the options for scanning
type Options struct {
	Root      string
	Recursive bool
	// Workers bounds concurrent decode+hash tasks; <= 0 means GOMAXPROCS
	Workers int
}

// Stats summarises one scan
type Stats struct {
	Total     int `json:"total"`     // files found by the count pass
	Processed int `json:"processed"` // files attempted
	Hashed    int `json:"hashed"`
	Failed    int `json:"failed"`
}

// Result holds the fingerprint index produced by a completed scan
type Result struct {
	Index types.Index
	// Records lists every hashed image in discovery order
	Records []types.ImageRecord
	Stats   Stats
}

// ProgressFunc receives whole percentages in [0,100], never decreasing
type ProgressFunc func(percent int)

// processImageResult holds the result of processing an image
type processImageResult struct {
	Record types.ImageRecord
	Error  error
}
