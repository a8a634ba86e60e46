package imageprocessor

import (
	"errors"
	"fmt"
	"image"

	"github.com/spf13/afero"
)

// ErrUnsupportedFormat is returned when no loader is registered for a file extension
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ImageLoader interface defines methods for image loading
type ImageLoader interface {
	// CanLoad determines if this loader can handle the given file
	CanLoad(path string) bool

	// LoadImage decodes the file at path from fsys
	LoadImage(fsys afero.Fs, path string) (image.Image, error)
}

// BaseImageLoader provides common functionality for all image loaders
type BaseImageLoader struct {
	// Formats this loader can handle
	SupportedFormats []FormatType
}

// CanLoad checks if this loader supports the file's format
func (l *BaseImageLoader) CanLoad(path string) bool {
	format := GetFileFormat(path)
	for _, supported := range l.SupportedFormats {
		if format == supported {
			return true
		}
	}
	return false
}

// DefaultLoadImage decodes by content sniffing, so a mislabelled extension still loads
// as long as its real format is one of the registered decoders
func (l *BaseImageLoader) DefaultLoadImage(fsys afero.Fs, path string) (image.Image, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, newImageLoadError("failed to decode image", path, err)
	}
	return img, nil
}

// newImageLoadError creates a standardized error for image loading failures
func newImageLoadError(message, path string, err error) error {
	return fmt.Errorf("%s: %s: %w", message, path, err)
}
