// Package output writes harvested records as a JSON document, either to a
// stream or atomically to a file.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/backmassage/dicomharvest/internal/probe"
)

// WriteJSON encodes records to w as a two-space indented JSON array. A nil or
// empty slice is written as []. Output is flushed before WriteJSON returns.
func WriteJSON(w io.Writer, records []probe.Record) error {
	if records == nil {
		records = []probe.Record{}
	}
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// newFileMode is the mode of a newly created document, before the umask.
const newFileMode os.FileMode = 0o644

// WriteFile replaces the document at path with records. It holds an exclusive
// lock on path+".lock" for the duration, writes to a temp file in the same
// directory and renames it over path, so readers see either the old document
// or the new one. The target directory must already exist.
//
// A replaced document keeps its permissions; a new one gets 0644 minus the
// umask. The lock file is removed before the lock is released. A writer that
// was already waiting on it still renames a complete document of its own.
func WriteFile(path string, records []probe.Record) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer func() {
		_ = os.Remove(lock.Path())
		_ = lock.Unlock()
	}()

	existing, statErr := os.Stat(path)

	dir := filepath.Dir(path)
	tmpPath := filepath.Join(dir, "."+filepath.Base(path)+".tmp-"+uuid.NewString())
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, newFileMode)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := WriteJSON(tmp, records); err != nil {
		return err
	}
	if statErr == nil && existing.Mode().IsRegular() {
		if err := tmp.Chmod(existing.Mode().Perm()); err != nil {
			return fmt.Errorf("set permissions: %w", err)
		}
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}
	tmp = nil

	syncDir(dir)
	return nil
}

// syncDir makes the rename durable. Errors are ignored: some filesystems do
// not support fsync on directories.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
