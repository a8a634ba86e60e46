package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"snappurge/scanner"
	"snappurge/types"
)

// Status tags how a run ended
type Status int

const (
	StatusSuccess Status = iota
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the single terminal result of a run. Only a successful outcome
// carries groups; Err is set only when the run failed.
type Outcome struct {
	Status     Status
	Groups     []types.SimilarityGroup
	Records    []types.ImageRecord
	Err        error
	Stats      scanner.Stats
	StartedAt  time.Time
	FinishedAt time.Time
}

// Run is the handle of one in-flight or finished duplicate search
type Run struct {
	id       uuid.UUID
	cfg      Config
	ctx      context.Context
	cancel   context.CancelFunc
	progress chan int
	done     chan struct{}
	outcome  Outcome
}

func newRun(parent context.Context, cfg Config) *Run {
	ctx, cancel := context.WithCancel(parent)
	return &Run{
		id:     uuid.New(),
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		// percentages strictly increase within [0,100], so sends never block
		progress: make(chan int, 101),
		done:     make(chan struct{}),
	}
}

// ID returns the run identifier
func (r *Run) ID() uuid.UUID {
	return r.id
}

// Config returns the normalised configuration the run was started with
func (r *Run) Config() Config {
	return r.cfg
}

// Cancel requests cooperative cancellation. It is safe to call repeatedly and
// has no effect once the run has finished.
func (r *Run) Cancel() {
	r.cancel()
}

// Progress delivers strictly increasing percentages. The channel is closed
// before the outcome becomes available.
func (r *Run) Progress() <-chan int {
	return r.progress
}

// Done is closed once the outcome is available
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finishes and returns its outcome
func (r *Run) Wait() Outcome {
	<-r.done
	return r.outcome
}
