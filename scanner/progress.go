package scanner

import "math"

// progressTracker converts attempted-file counts into percentages. It is only
// touched from stream callbacks, which never run concurrently.
type progressTracker struct {
	total     int
	processed int
	hashed    int
	failed    int
	last      int
	report    ProgressFunc
}

func newProgressTracker(total int, report ProgressFunc) *progressTracker {
	return &progressTracker{total: total, last: -1, report: report}
}

// record counts one attempted file and reports the new percentage if it grew
func (p *progressTracker) record(ok bool) {
	p.processed++
	if ok {
		p.hashed++
	} else {
		p.failed++
	}

	if p.total == 0 || p.report == nil {
		return
	}
	percent := percentOf(p.processed, p.total)
	if percent <= p.last {
		return
	}
	p.last = percent
	p.report(percent)
}

func (p *progressTracker) stats() Stats {
	return Stats{Total: p.total, Processed: p.processed, Hashed: p.hashed, Failed: p.failed}
}

// percentOf returns round(done/total*100) clamped to [0,100]. Files created
// between the count and process passes can push done past total.
func percentOf(done, total int) int {
	if total <= 0 {
		return 0
	}
	percent := int(math.Round(float64(done) / float64(total) * 100))
	if percent > 100 {
		return 100
	}
	return percent
}
