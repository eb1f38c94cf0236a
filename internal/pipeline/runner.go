package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/backmassage/dicomharvest/internal/config"
	"github.com/backmassage/dicomharvest/internal/metrics"
	"github.com/backmassage/dicomharvest/internal/probe"
)

// ErrTimeout is the cause reported when a run exceeds cfg.Timeout.
var ErrTimeout = errors.New("harvest timed out")

// Logger is the minimal logging interface the pipeline needs. Defined here
// so tests can capture diagnostics without a real logger.
type Logger interface {
	Debug(format string, args ...interface{})
}

// Run is the top-level harvest entry point. It walks cfg.InputDir, decodes
// every regular file on a pool of at most cfg.Concurrency goroutines (0 means
// one per file), and returns the records sorted by path once every dispatched
// decode has finished.
//
// Per-file failures never fail the run. Run returns an error only when the
// root cannot be read, the timeout expires or ctx is cancelled; records are
// nil in that case.
func Run(ctx context.Context, cfg *config.Config, log Logger, rec *metrics.Recorder) ([]probe.Record, RunStats, error) {
	start := time.Now()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, cfg.Timeout, ErrTimeout)
		defer cancel()
	}

	col := newCollection()
	candidates, err := Discover(cfg.InputDir, func(err error) {
		log.Debug("failed to enumerate entry: %v", err)
		col.skipped()
		rec.EntrySkipped()
	})
	if err != nil {
		return nil, RunStats{}, err
	}

	decode := decodeFunc(probe.Probe)
	if cfg.FullDecode {
		decode = probe.ProbeFull
	}

	var g errgroup.Group
	g.SetLimit(workerLimit(cfg.Concurrency))
	for fc := range candidates {
		if ctx.Err() != nil {
			break
		}
		col.candidate(fc.Size)
		rec.FileDiscovered(fc.Size)
		// Go blocks while the pool is full, so enumeration never runs far
		// ahead of decoding.
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			extract(fc, decode, col, log, rec)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil, RunStats{}, fmt.Errorf("harvest %s: %w", cfg.InputDir, context.Cause(ctx))
	}
	records, stats := col.snapshot()
	stats.Elapsed = time.Since(start)
	return records, stats, nil
}

// workerLimit maps the configured concurrency to an errgroup limit; a
// negative limit means unbounded.
func workerLimit(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}
