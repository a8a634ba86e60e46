package imageprocessor

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// ImageLoaderRegistry maintains a registry of image loaders keyed by extension
type ImageLoaderRegistry struct {
	loaders map[string]ImageLoader
	mutex   sync.RWMutex
}

// NewImageLoaderRegistry creates a registry with the standard loader registered for
// every supported extension
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		loaders: make(map[string]ImageLoader),
	}

	standardLoader := NewStandardImageLoader()
	for _, ext := range GetSupportedExtensions() {
		registry.RegisterLoader(ext, standardLoader)
	}

	return registry
}

// RegisterLoader registers a new loader for a specific file extension
func (r *ImageLoaderRegistry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.loaders[strings.ToLower(ext)] = loader
}

// GetLoader returns the loader registered for the path's extension, or nil
func (r *ImageLoaderRegistry) GetLoader(path string) ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.loaders[strings.ToLower(filepath.Ext(path))]
}

// CanLoadFile checks if any registered loader can handle the given file
func (r *ImageLoaderRegistry) CanLoadFile(path string) bool {
	loader := r.GetLoader(path)
	return loader != nil && loader.CanLoad(path)
}

// LoadImage loads an image using the appropriate registered loader
func (r *ImageLoaderRegistry) LoadImage(fsys afero.Fs, path string) (image.Image, error) {
	loader := r.GetLoader(path)
	if loader == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return loader.LoadImage(fsys, path)
}
