// Package pipeline runs a harvest: it discovers candidate files under a root,
// decodes each one concurrently and collects the records that decode
// cleanly.
//
// Failures are split by severity. Traversal-entry errors ([EntryError]) and
// per-file decode errors (probe.Error) are logged at debug level and never
// leave the worker; only an unreadable root, a timeout or cancellation fail
// the run.
//
// Files: discover.go (walker), extract.go (worker and collection),
// runner.go (orchestrator), stats.go (counters).
package pipeline
