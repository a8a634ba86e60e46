// Package engine runs one duplicate search at a time: scan a directory into a
// fingerprint index, then cluster it, on a background goroutine that can be
// cancelled and reports progress.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"snappurge/cluster"
	"snappurge/imageprocessor"
	"snappurge/logging"
	"snappurge/scanner"
	"snappurge/types"
)

var (
	// ErrRunActive is returned by Start while another run is in flight
	ErrRunActive = errors.New("a duplicate search is already running")
	// ErrInvalidStrictness is returned for strictness outside [0,20]
	ErrInvalidStrictness = errors.New("strictness out of range")
)

// Options configures an Engine. Zero values pick defaults: the OS filesystem,
// the standard loader registry, the perceptual hash and GOMAXPROCS workers.
type Options struct {
	Fs             afero.Fs
	Registry       *imageprocessor.ImageLoaderRegistry
	Hasher         imageprocessor.Hasher
	Logger         *slog.Logger
	ScanWorkers    int
	CompareWorkers int
}

// Config describes one duplicate search
type Config struct {
	Root       string
	Recursive  bool
	Strictness int
}

// Engine owns at most one active run
type Engine struct {
	scanner        *scanner.Scanner
	logger         *slog.Logger
	scanWorkers    int
	compareWorkers int
	group          func(context.Context, types.Index, int, ...cluster.Option) ([]types.SimilarityGroup, error)

	mu     sync.Mutex
	active *Run
}

// New creates an engine
func New(opts Options) *Engine {
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	hasher := opts.Hasher
	if hasher == nil {
		// the default algorithm name never fails
		hasher, _ = imageprocessor.NewHasher(imageprocessor.AlgorithmPerceptual)
	}
	logger := logging.OrDiscard(opts.Logger)

	return &Engine{
		scanner:        scanner.New(fsys, opts.Registry, hasher, logger),
		logger:         logger,
		scanWorkers:    opts.ScanWorkers,
		compareWorkers: opts.CompareWorkers,
		group:          cluster.Cluster,
	}
}

// Start validates cfg and launches a run in the background. Cancelling ctx
// cancels the run.
func (e *Engine) Start(ctx context.Context, cfg Config) (*Run, error) {
	if cfg.Strictness < MinStrictness || cfg.Strictness > MaxStrictness {
		return nil, fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidStrictness, cfg.Strictness, MinStrictness, MaxStrictness)
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", cfg.Root, err)
	}
	cfg.Root = root

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != nil {
		return nil, ErrRunActive
	}

	run := newRun(ctx, cfg)
	e.active = run
	go e.execute(run)
	return run, nil
}

// FindDuplicates runs a search synchronously
func (e *Engine) FindDuplicates(ctx context.Context, cfg Config) Outcome {
	run, err := e.Start(ctx, cfg)
	if err != nil {
		now := time.Now()
		return Outcome{Status: StatusFailed, Err: err, StartedAt: now, FinishedAt: now}
	}
	return run.Wait()
}

// execute is the body of the run goroutine. It publishes exactly one outcome.
func (e *Engine) execute(run *Run) {
	cfg := run.cfg
	threshold := ThresholdFor(cfg.Strictness)
	logger := e.logger.With("run_id", run.id.String())
	outcome := Outcome{StartedAt: time.Now()}

	logger.Info("duplicate search started",
		"root", cfg.Root,
		"recursive", cfg.Recursive,
		"strictness", cfg.Strictness,
		"max_distance", cluster.Limit(threshold),
	)

	groups, records, stats, err := e.search(run, threshold)
	outcome.Stats = stats
	switch {
	case err == nil:
		outcome.Status = StatusSuccess
		outcome.Groups = groups
		outcome.Records = records
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome.Status = StatusCancelled
	default:
		outcome.Status = StatusFailed
		outcome.Err = err
	}
	outcome.FinishedAt = time.Now()

	switch outcome.Status {
	case StatusSuccess:
		logger.Info("duplicate search finished", "groups", len(groups), "hashed", stats.Hashed, "failed", stats.Failed,
			"duration", outcome.FinishedAt.Sub(outcome.StartedAt).Round(time.Millisecond))
	case StatusCancelled:
		logger.Info("duplicate search cancelled")
	default:
		logger.Error("duplicate search failed", "error", err)
	}

	close(run.progress)
	run.outcome = outcome

	e.mu.Lock()
	e.active = nil
	e.mu.Unlock()

	run.cancel()
	close(run.done)
}

func (e *Engine) search(run *Run, threshold int) (groups []types.SimilarityGroup, records []types.ImageRecord, stats scanner.Stats, err error) {
	defer func() {
		if r := recover(); r != nil {
			groups, records = nil, nil
			err = fmt.Errorf("duplicate search panicked: %v", r)
		}
	}()

	result, err := e.scanner.Scan(run.ctx, scanner.Options{
		Root:      run.cfg.Root,
		Recursive: run.cfg.Recursive,
		Workers:   e.scanWorkers,
	}, func(percent int) {
		run.progress <- percent
	})
	if err != nil {
		return nil, nil, stats, err
	}
	stats = result.Stats

	groups, err = e.group(run.ctx, result.Index, threshold, cluster.WithWorkers(e.compareWorkers))
	if err != nil {
		return nil, nil, stats, err
	}
	return groups, result.Records, stats, nil
}
