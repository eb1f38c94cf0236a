package pipeline

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
)

// ErrRootUnreadable is wrapped by [Discover] when the root cannot be stat'd
// or listed. It is the only traversal error that fails a run.
var ErrRootUnreadable = errors.New("input root is not readable")

// FileCandidate is a path that lstat'd as a regular file during traversal.
type FileCandidate struct {
	Path string
	Size int64
}

// EntryError reports an entry dropped during traversal (permission denied,
// vanished between listing and stat, unreadable directory).
type EntryError struct {
	Path string
	Err  error
}

func (e *EntryError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }
func (e *EntryError) Unwrap() error { return e.Err }

// Discover checks that root is readable and returns a lazy sequence of the
// regular files beneath it. Each range over the sequence walks the tree
// afresh, in lexical order. Entries that cannot be stat'd or listed are
// dropped and passed to onSkip (which may be nil). Directories, symlinks and
// other non-regular entries are never yielded; a symlinked root directory is
// followed.
func Discover(root string, onSkip func(error)) (iter.Seq[FileCandidate], error) {
	walkRoot, err := checkRoot(root)
	if err != nil {
		return nil, err
	}
	skip := func(path string, err error) {
		if onSkip != nil {
			onSkip(&EntryError{Path: path, Err: err})
		}
	}

	return func(yield func(FileCandidate) bool) {
		_ = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unlistable directories are reported here a second time
				// with d set; returning nil skips their contents.
				skip(path, err)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				skip(path, err)
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			if !yield(FileCandidate{Path: path, Size: info.Size()}) {
				return filepath.SkipAll
			}
			return nil
		})
	}, nil
}

// checkRoot returns the path to hand to WalkDir. A symlink to a directory
// gets a trailing separator so WalkDir's initial Lstat follows it.
func checkRoot(root string) (string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRootUnreadable, err)
	}
	if !info.IsDir() {
		return root, nil
	}
	f, err := os.Open(root)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRootUnreadable, err)
	}
	defer f.Close()
	if _, err := f.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: %w", ErrRootUnreadable, err)
	}

	if li, err := os.Lstat(root); err == nil && li.Mode()&fs.ModeSymlink != 0 {
		return root + string(filepath.Separator), nil
	}
	return root, nil
}
