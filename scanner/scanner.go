package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sourcegraph/conc/stream"
	"github.com/spf13/afero"

	"snappurge/imageprocessor"
	"snappurge/logging"
	"snappurge/types"
)

// Scanner enumerates a directory and fingerprints every supported image in it
type Scanner struct {
	fs       afero.Fs
	registry *imageprocessor.ImageLoaderRegistry
	hasher   imageprocessor.Hasher
	logger   *slog.Logger
}

// New creates a scanner. A nil registry or logger gets a default.
func New(fs afero.Fs, registry *imageprocessor.ImageLoaderRegistry, hasher imageprocessor.Hasher, logger *slog.Logger) *Scanner {
	if registry == nil {
		registry = imageprocessor.NewImageLoaderRegistry()
	}
	return &Scanner{
		fs:       fs,
		registry: registry,
		hasher:   hasher,
		logger:   logging.OrDiscard(logger),
	}
}

// Scan counts the images under opts.Root, then decodes and hashes each one.
// Per-file failures are logged and counted; enumeration failures and
// cancellation abort the scan without a partial result.
func (s *Scanner) Scan(ctx context.Context, opts Options, progress ProgressFunc) (*Result, error) {
	root := opts.Root
	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: %w", root, ErrNotDirectory)
	}

	total, err := s.countImages(ctx, root, opts.Recursive)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	s.logger.Info("image scan started", "root", root, "recursive", opts.Recursive, "files", total)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	result := &Result{Index: types.Index{}}
	tracker := newProgressTracker(total, progress)

	// Tasks hash in parallel; callbacks run one at a time in submission order,
	// so the index keeps discovery order and progress never goes backwards.
	workStream := stream.New().WithMaxGoroutines(workers)
	walkErr := s.walkImages(ctx, root, opts.Recursive, func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		workStream.Go(func() stream.Callback {
			res := s.processImage(ctx, path)
			return func() {
				logging.LogImageProcessed(s.logger, path, res.Error)
				if res.Error == nil {
					result.Index.Add(res.Record.Fingerprint, path)
					result.Records = append(result.Records, res.Record)
				}
				tracker.record(res.Error == nil)
			}
		})
		return nil
	})
	workStream.Wait()

	if err := ctx.Err(); err != nil {
		s.logger.Info("image scan cancelled", "root", root, "processed", tracker.processed, "files", total)
		return nil, err
	}
	if walkErr != nil {
		return nil, fmt.Errorf("scan %s: %w", root, walkErr)
	}

	result.Stats = tracker.stats()
	s.logger.Info("image scan finished",
		"root", root,
		"hashed", result.Stats.Hashed,
		"failed", result.Stats.Failed,
		"fingerprints", len(result.Index),
	)
	return result, nil
}

// processImage decodes and hashes one file. Decoder panics are turned into errors.
func (s *Scanner) processImage(ctx context.Context, path string) (result processImageResult) {
	defer func() {
		if r := recover(); r != nil {
			result = processImageResult{Error: fmt.Errorf("panic while processing %s: %v", path, r)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return processImageResult{Error: err}
	}

	fileInfo, err := s.fs.Stat(path)
	if err != nil {
		return processImageResult{Error: fmt.Errorf("cannot stat file %s: %w", path, err)}
	}

	img, err := s.registry.LoadImage(s.fs, path)
	if err != nil {
		return processImageResult{Error: err}
	}

	fp, err := s.hasher.Hash(img)
	if err != nil {
		return processImageResult{Error: fmt.Errorf("cannot compute hash for %s: %w", path, err)}
	}

	bounds := img.Bounds()
	return processImageResult{Record: types.ImageRecord{
		Path:        path,
		Format:      strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Size:        fileInfo.Size(),
		Fingerprint: fp,
	}}
}
