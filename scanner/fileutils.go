package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"snappurge/imageprocessor"
)

// walkImages calls visit for every loadable file under root in lexical order.
// Any error while enumerating is returned; visit errors stop the walk.
func (s *Scanner) walkImages(ctx context.Context, root string, recursive bool, visit func(path string) error) error {
	if !recursive {
		return s.listImages(ctx, root, visit)
	}

	return afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		if info.IsDir() {
			return ctx.Err()
		}
		if !s.wantFile(path, info) {
			return nil
		}
		return visit(path)
	})
}

// listImages visits the regular files directly inside root
func (s *Scanner) listImages(ctx context.Context, root string, visit func(path string) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := afero.ReadDir(s.fs, root)
	if err != nil {
		return fmt.Errorf("read directory %s: %w", root, err)
	}
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		if !s.wantFile(path, entry) {
			continue
		}
		if err := visit(path); err != nil {
			return err
		}
	}
	return nil
}

// wantFile keeps files with a supported image extension that the registry can
// decode. Extra loaders registered for other extensions do not widen the scan.
func (s *Scanner) wantFile(path string, info os.FileInfo) bool {
	if !imageprocessor.IsImageFile(path) || !s.registry.CanLoadFile(path) {
		return false
	}
	return s.isRegularFile(path, info)
}

// isRegularFile follows symlinks, so a link to an image counts in both modes.
// Dangling links and links to directories are skipped.
func (s *Scanner) isRegularFile(path string, info os.FileInfo) bool {
	if info.Mode()&os.ModeSymlink == 0 {
		return info.Mode().IsRegular()
	}
	target, err := s.fs.Stat(path)
	if err != nil {
		return false
	}
	return target.Mode().IsRegular()
}

// countImages is the first enumeration pass
func (s *Scanner) countImages(ctx context.Context, root string, recursive bool) (int, error) {
	total := 0
	err := s.walkImages(ctx, root, recursive, func(string) error {
		total++
		return nil
	})
	return total, err
}
