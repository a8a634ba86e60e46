package imageprocessor

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
)

// StandardImageLoader handles every supported format through the registered Go decoders
type StandardImageLoader struct {
	BaseImageLoader
}

// NewStandardImageLoader creates a new loader for standard image formats
func NewStandardImageLoader() *StandardImageLoader {
	return &StandardImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatJPEG,
				FormatPNG,
				FormatGIF,
				FormatBMP,
			},
		},
	}
}

// LoadImage loads a standard image format
func (l *StandardImageLoader) LoadImage(fsys afero.Fs, path string) (image.Image, error) {
	return l.DefaultLoadImage(fsys, path)
}

// LoadImageConfig reads only the header of an image, returning its dimensions and format name
func LoadImageConfig(fsys afero.Fs, path string) (image.Config, string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return image.Config{}, "", fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, "", newImageLoadError("failed to read image header", path, err)
	}
	return cfg, format, nil
}
