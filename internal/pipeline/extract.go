package pipeline

import (
	"sort"
	"sync"
	"time"

	"github.com/backmassage/dicomharvest/internal/metrics"
	"github.com/backmassage/dicomharvest/internal/probe"
)

// decodeFunc is the header decoder a worker calls: probe.Probe or probe.ProbeFull.
type decodeFunc func(path string) (probe.Record, error)

// collection is the result set shared by every worker of one run. Records
// are only ever appended.
type collection struct {
	mu      sync.Mutex
	records []probe.Record
	stats   RunStats
}

func newCollection() *collection {
	return &collection{
		records: make([]probe.Record, 0),
		stats:   RunStats{FailuresByKind: make(map[probe.Kind]int)},
	}
}

func (c *collection) candidate(size int64) {
	c.mu.Lock()
	c.stats.Candidates++
	c.stats.BytesScanned += size
	c.mu.Unlock()
}

func (c *collection) skipped() {
	c.mu.Lock()
	c.stats.SkippedEntries++
	c.mu.Unlock()
}

func (c *collection) add(rec probe.Record) {
	c.mu.Lock()
	c.records = append(c.records, rec)
	c.stats.Decoded++
	c.mu.Unlock()
}

func (c *collection) fail(kind probe.Kind) {
	c.mu.Lock()
	c.stats.Failed++
	c.stats.FailuresByKind[kind]++
	c.mu.Unlock()
}

// snapshot returns the records sorted by path, and the counters. Call only
// after every worker has finished.
func (c *collection) snapshot() ([]probe.Record, RunStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]probe.Record, len(c.records))
	copy(out, c.records)
	sort.Slice(out, func(i, j int) bool { return out[i].FilePath < out[j].FilePath })
	return out, c.stats
}

// extract decodes one candidate. A failure is logged and counted, never
// returned: one bad file must not affect any other.
func extract(fc FileCandidate, decode decodeFunc, col *collection, log Logger, rec *metrics.Recorder) {
	start := time.Now()
	r, err := decode(fc.Path)
	if err != nil {
		kind := probe.KindOf(err)
		log.Debug("failed to parse file: %s: %v", fc.Path, err)
		col.fail(kind)
		rec.DecodeFailed(kind, time.Since(start))
		return
	}
	col.add(r)
	rec.FileDecoded(time.Since(start))
}
