// Package progress implements the lightweight progress reporter of
// SPEC_FULL.md's ambient component A5: logs throughput for each named
// pipeline stage. Grounded on the pack's
// wegman-software-osm2pgsql-go/internal/pipeline/progress.go
// (ProgressTracker/Progress, FormatThroughput), adapted from its
// one-shot bytes-processed tracker and fmt.Printf reporting into a
// named-stage start/done reporter that logs through this module's own
// zap logger instead.
package progress

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reporter tracks the wall-clock duration of named pipeline stages and
// logs a throughput summary when each one finishes.
type Reporter struct {
	log *zap.Logger

	mu     sync.Mutex
	starts map[string]time.Time
}

// New returns a Reporter that logs through log.
func New(log *zap.Logger) *Reporter {
	return &Reporter{log: log, starts: make(map[string]time.Time)}
}

// Start marks the beginning of a named stage.
func (r *Reporter) Start(stage string) {
	r.mu.Lock()
	r.starts[stage] = time.Now()
	r.mu.Unlock()
	r.log.Info("stage started", zap.String("stage", stage))
}

// Done marks a named stage finished, having processed count items; logs
// elapsed time and throughput. Safe to call without a matching Start
// (elapsed is reported as zero).
func (r *Reporter) Done(stage string, count int) {
	r.mu.Lock()
	start, ok := r.starts[stage]
	delete(r.starts, stage)
	r.mu.Unlock()

	var elapsed time.Duration
	if ok {
		elapsed = time.Since(start).Round(time.Millisecond)
	}
	throughput := 0.0
	if elapsed > 0 {
		throughput = float64(count) / elapsed.Seconds()
	}
	r.log.Info("stage finished",
		zap.String("stage", stage),
		zap.Int("count", count),
		zap.Duration("elapsed", elapsed),
		zap.String("throughput", FormatThroughput(throughput)),
	)
}

// FormatThroughput formats items/sec the same way the pack's progress
// reporter does, for human-readable log lines.
func FormatThroughput(itemsPerSec float64) string {
	switch {
	case itemsPerSec >= 1_000_000:
		return fmt.Sprintf("%.1fM/s", itemsPerSec/1_000_000)
	case itemsPerSec >= 1_000:
		return fmt.Sprintf("%.1fK/s", itemsPerSec/1_000)
	default:
		return fmt.Sprintf("%.0f/s", itemsPerSec)
	}
}
