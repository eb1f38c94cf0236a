// Package config holds runtime configuration: defaults, an optional YAML
// file overlay, CLI flag overlay, and validation.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// --- Enum types for validated string fields ---

// LogLevel is the diagnostic verbosity threshold.
type LogLevel string

const (
	LevelOff   LogLevel = "off"   // No diagnostics at all.
	LevelError LogLevel = "error" // Fatal errors only.
	LevelWarn  LogLevel = "warn"
	LevelInfo  LogLevel = "info"  // Run header and summary (default).
	LevelDebug LogLevel = "debug" // Adds one line per skipped file or entry.
	LevelTrace LogLevel = "trace"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stderr is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then overlaid by [LoadFile] and [ApplyFlags], and passed by pointer to
// packages that need it.
type Config struct {
	// Paths.
	InputDir    string `yaml:"input"`        // Root to scan. Required unless CheckOnly.
	OutputPath  string `yaml:"output"`       // JSON destination; "" or "-" means stdout.
	CatalogPath string `yaml:"catalog"`      // Optional SQLite catalog.
	MetricsFile string `yaml:"metrics_file"` // Optional Prometheus textfile.

	// Harvest behavior.
	Concurrency int           `yaml:"concurrency"` // Max in-flight decodes; 0 = one per file.
	Timeout     time.Duration `yaml:"timeout"`     // Whole-run limit; 0 = none.
	FullDecode  bool          `yaml:"full_decode"` // Decode whole files instead of stopping after PatientID.

	// Display and logging.
	Verbosity LogLevel  `yaml:"verbosity"` // Default: "info".
	ColorMode ColorMode `yaml:"color"`     // Default: "auto".
	LogFile   string    `yaml:"log_file"`  // Optional JSON log file.
	CheckOnly bool      `yaml:"-"`         // Run --check diagnostics and exit.
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	return Config{
		Concurrency: DefaultConcurrency(),
		Verbosity:   LevelInfo,
		ColorMode:   ColorAuto,
	}
}

// DefaultConcurrency is four decodes per usable CPU: decoding is dominated by
// small reads, so a few goroutines per core keep the disk queue busy.
func DefaultConcurrency() int {
	return 4 * runtime.GOMAXPROCS(0)
}

// UsesStdout reports whether the JSON document goes to standard output.
func (c *Config) UsesStdout() bool {
	return c.OutputPath == "" || c.OutputPath == "-"
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields and numeric ranges. When not in CheckOnly mode
// it also requires an input directory.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(string(c.Verbosity)); err != nil {
		return err
	}
	c.Verbosity = LogLevel(strings.ToLower(string(c.Verbosity)))

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative (got %d)", c.Concurrency)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative (got %s)", c.Timeout)
	}

	if c.CheckOnly {
		return nil
	}
	if c.InputDir == "" {
		return errors.New("need an input directory (-i/--input)")
	}
	return nil
}

// ParseLogLevel parses a case-insensitive level name.
func ParseLogLevel(s string) (LogLevel, error) {
	switch l := LogLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelOff, LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace:
		return l, nil
	}
	return "", fmt.Errorf("invalid verbosity %q (use off, error, warn, info, debug or trace)", s)
}

// ParseColorMode parses a case-insensitive color mode.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	}
	return "", fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", s)
}
