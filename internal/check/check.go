// Package check provides system diagnostics (--check mode) and the
// pre-harvest path validation (CheckPaths) for the input root, the output
// destination and the optional catalog.
package check

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"

	"github.com/backmassage/dicomharvest/internal/catalog"
	"github.com/backmassage/dicomharvest/internal/config"
)

// Sentinel errors returned by CheckPaths.
var (
	ErrInputNotFound     = errors.New("input path does not exist")
	ErrOutputDirMissing  = errors.New("output directory does not exist")
	ErrOutputNotWritable = errors.New("output directory is not writable")
	ErrCatalogUnusable   = errors.New("catalog cannot be opened")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
}

// RunCheck runs the --check flow: reports the runtime, the decoder, and the
// state of every configured path. It reports ok=false if any check failed but
// never stops early.
func RunCheck(cfg *config.Config, log Logger) bool {
	log.Info("=== System Check ===")
	log.Info("Go runtime: %s %s/%s, GOMAXPROCS=%d", runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.GOMAXPROCS(0))
	log.Info("Decoder: github.com/suyashkumar/dicom (%s)", dicomVersion())
	log.Info("Concurrency: %d, timeout: %s", cfg.Concurrency, timeoutLabel(cfg))

	ok := true
	ok = checkInput(cfg, log) && ok
	ok = checkOutput(cfg, log) && ok
	ok = checkCatalog(cfg, log) && ok
	return ok
}

func checkInput(cfg *config.Config, log Logger) bool {
	if cfg.InputDir == "" {
		log.Warn("No input directory configured")
		return true
	}
	if err := checkInputPath(cfg.InputDir); err != nil {
		log.Error("Input: %v", err)
		return false
	}
	log.Success("Input: %s", cfg.InputDir)
	return true
}

func checkOutput(cfg *config.Config, log Logger) bool {
	if cfg.UsesStdout() {
		log.Info("Output: stdout")
		return true
	}
	if err := checkOutputPath(cfg.OutputPath); err != nil {
		log.Error("Output: %v", err)
		return false
	}
	log.Success("Output: %s", cfg.OutputPath)
	return true
}

// checkCatalog opens (creating if needed) the catalog database and reads its
// run count.
func checkCatalog(cfg *config.Config, log Logger) bool {
	if cfg.CatalogPath == "" {
		return true
	}
	c, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		log.Error("Catalog: %v: %v", ErrCatalogUnusable, err)
		return false
	}
	defer c.Close()
	n, err := c.RunCount(context.Background())
	if err != nil {
		log.Error("Catalog: %v", err)
		return false
	}
	log.Success("Catalog: %s (%d runs recorded)", cfg.CatalogPath, n)
	return true
}

// CheckPaths is the pre-harvest validation: the input root must exist,
// unless output goes to stdout the output's directory must exist and accept
// new files, and a configured catalog must open. Returns a wrapped sentinel
// error on failure.
func CheckPaths(cfg *config.Config) error {
	if err := checkInputPath(cfg.InputDir); err != nil {
		return err
	}
	if !cfg.UsesStdout() {
		if err := checkOutputPath(cfg.OutputPath); err != nil {
			return err
		}
	}
	if cfg.CatalogPath != "" {
		return checkCatalogPath(cfg.CatalogPath)
	}
	return nil
}

// --- internal helpers ---

func checkInputPath(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return fmt.Errorf("stat input %s: %w", path, err)
	}
	return nil
}

// checkCatalogPath opens the catalog, creating it and its schema if needed,
// so an unusable path fails before any output is written.
func checkCatalogPath(path string) error {
	c, err := catalog.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCatalogUnusable, path, err)
	}
	return c.Close()
}

// checkOutputPath verifies the target directory by creating and removing a
// scratch file in it, the same way the real write creates its temp file.
func checkOutputPath(path string) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrOutputDirMissing, dir)
	}
	f, err := os.CreateTemp(dir, ".dicomharvest-check-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOutputNotWritable, dir, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return nil
}

func timeoutLabel(cfg *config.Config) string {
	if cfg.Timeout <= 0 {
		return "none"
	}
	return cfg.Timeout.String()
}

// dicomVersion reports the decoder's module version from the binary's build
// info, or "unknown" when it is unavailable (as under go test).
func dicomVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range bi.Deps {
		if dep.Path == "github.com/suyashkumar/dicom" {
			return dep.Version
		}
	}
	return "unknown"
}
