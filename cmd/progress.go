package cmd

import (
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"snappurge/logging"
)

// progressReporter shows hashing progress as a bar on terminals and as
// sampled log records otherwise
type progressReporter struct {
	bar     *progressbar.ProgressBar
	sampler *logging.ProgressSampler
	logger  *slog.Logger
}

func newProgressReporter(w io.Writer, logger *slog.Logger) *progressReporter {
	if isTerminal(w) {
		bar := progressbar.NewOptions(100,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("Hashing images"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		return &progressReporter{bar: bar}
	}
	return &progressReporter{sampler: logging.NewProgressSampler(10), logger: logger}
}

func (p *progressReporter) update(percent int) {
	if p.bar != nil {
		_ = p.bar.Set(percent)
		return
	}
	if p.sampler.ShouldLog(percent) {
		p.logger.Info("hashing progress", "percent", percent)
	}
}

func (p *progressReporter) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
