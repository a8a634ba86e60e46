// Package cvhash provides an OpenCV-backed perceptual hash. The real implementation
// is compiled only with the gocv build tag because it needs the OpenCV C++ libraries.
package cvhash

import "errors"

// Algorithm is the configuration name of this backend
const Algorithm = "opencv"

// ErrUnavailable is returned when the binary was built without the gocv tag
var ErrUnavailable = errors.New("opencv hash backend not compiled in (build with -tags gocv)")
