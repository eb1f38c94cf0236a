package pipeline

import (
	"time"

	"github.com/backmassage/dicomharvest/internal/probe"
)

// RunStats tracks aggregate counters and byte totals across a harvest run.
type RunStats struct {
	Candidates     int                // Regular files discovered.
	Decoded        int                // Files that produced a record.
	Failed         int                // Files rejected by the decoder.
	SkippedEntries int                // Traversal entries dropped before decode.
	BytesScanned   int64              // Total size of all candidates.
	FailuresByKind map[probe.Kind]int // Failed, split by decode failure kind.
	Elapsed        time.Duration
}

// SuccessRate returns Decoded/Candidates in [0,1], or 0 for an empty run.
func (s *RunStats) SuccessRate() float64 {
	if s.Candidates == 0 {
		return 0
	}
	return float64(s.Decoded) / float64(s.Candidates)
}
