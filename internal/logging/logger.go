// Package logging provides the leveled diagnostic logger.
//
// Console lines go to a single writer (stderr in production) as
// "2006-01-02 15:04:05 [LEVEL] message", with the level tag colored when
// enabled. When a log file is configured every line is also written there as
// JSON through zap, tagged with a per-run id.
package logging

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/backmassage/dicomharvest/internal/config"
	"github.com/backmassage/dicomharvest/internal/term"
)

type severity int8

const (
	sevOff severity = iota
	sevError
	sevWarn
	sevInfo
	sevDebug
	sevTrace
)

var severities = map[config.LogLevel]severity{
	config.LevelOff:   sevOff,
	config.LevelError: sevError,
	config.LevelWarn:  sevWarn,
	config.LevelInfo:  sevInfo,
	config.LevelDebug: sevDebug,
	config.LevelTrace: sevTrace,
}

// Level tags and their colors.
var tagColors = map[string][]color.Attribute{
	"ERROR":   {color.FgHiRed, color.Bold},
	"WARN":    {color.FgHiYellow, color.Bold},
	"INFO":    {color.FgHiBlue, color.Bold},
	"SUCCESS": {color.FgHiGreen, color.Bold},
	"DEBUG":   {color.FgHiCyan, color.Bold},
	"TRACE":   {color.FgHiMagenta, color.Bold},
}

// Logger provides leveled, optionally colored logging with an optional JSON
// file sink. It is safe for concurrent use.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level severity
	tags  map[string]string

	file      *zap.Logger
	closeFile func()
	runID     string
}

// NewLogger builds the logger for a run: console output to out, colored per
// cfg.ColorMode, plus cfg.LogFile if set. Call Close when done.
func NewLogger(cfg *config.Config, out io.Writer) (*Logger, error) {
	l := New(out, cfg.Verbosity, term.Enabled(cfg.ColorMode, out))
	if cfg.LogFile == "" || l.level == sevOff {
		return l, nil
	}
	if err := l.openFile(cfg.LogFile); err != nil {
		return nil, err
	}
	return l, nil
}

// New returns a console-only logger. Unknown levels fall back to info.
func New(out io.Writer, level config.LogLevel, colored bool) *Logger {
	sev, ok := severities[level]
	if !ok {
		sev = sevInfo
	}
	if out == nil {
		out = io.Discard
	}
	l := &Logger{
		out:   out,
		level: sev,
		tags:  make(map[string]string, len(tagColors)),
		runID: uuid.NewString(),
	}
	for tag, attrs := range tagColors {
		c := color.New(attrs...)
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		l.tags[tag] = c.Sprint("[" + tag + "]")
	}
	return l
}

func (l *Logger) openFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	ws, closeFn, err := zap.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	lvl := zapcore.InfoLevel
	switch l.level {
	case sevError:
		lvl = zapcore.ErrorLevel
	case sevWarn:
		lvl = zapcore.WarnLevel
	case sevDebug, sevTrace:
		lvl = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), ws, lvl)
	l.file = zap.New(core).With(zap.String("run_id", l.runID))
	l.closeFile = closeFn
	return nil
}

// RunID identifies this run in the JSON log file.
func (l *Logger) RunID() string { return l.runID }

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level config.LogLevel) bool {
	sev, ok := severities[level]
	return ok && sev != sevOff && sev <= l.level
}

// Close flushes and closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Sync()
	l.closeFile()
	l.file = nil
	return err
}

// RedirectStdLog routes the standard library's global logger into l at TRACE
// level until the returned function restores the previous destination.
// Third-party packages that print through it (the DICOM decoder does, for
// every malformed element) then honor the configured verbosity.
func (l *Logger) RedirectStdLog() func() {
	prevOut, prevFlags, prevPrefix := stdlog.Writer(), stdlog.Flags(), stdlog.Prefix()
	stdlog.SetOutput(stdLogWriter{l})
	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
	return func() {
		stdlog.SetOutput(prevOut)
		stdlog.SetFlags(prevFlags)
		stdlog.SetPrefix(prevPrefix)
	}
}

type stdLogWriter struct{ l *Logger }

func (w stdLogWriter) Write(p []byte) (int, error) {
	w.l.Trace("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func (l *Logger) line(sev severity, tag, text string) {
	if sev > l.level {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05")
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, ts+" "+l.tags[tag]+" "+text+"\n")
	if l.file == nil {
		return
	}
	switch sev {
	case sevError:
		l.file.Error(text)
	case sevWarn:
		l.file.Warn(text)
	case sevInfo:
		if tag == "SUCCESS" {
			l.file.Info(text, zap.Bool("success", true))
		} else {
			l.file.Info(text)
		}
	default:
		l.file.Debug(text, zap.String("tag", tag))
	}
}

// Error logs at ERROR level (red).
func (l *Logger) Error(format string, args ...interface{}) {
	l.line(sevError, "ERROR", fmt.Sprintf(format, args...))
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.line(sevWarn, "WARN", fmt.Sprintf(format, args...))
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...interface{}) {
	l.line(sevInfo, "INFO", fmt.Sprintf(format, args...))
}

// Success logs at INFO severity with a green SUCCESS tag.
func (l *Logger) Success(format string, args ...interface{}) {
	l.line(sevInfo, "SUCCESS", fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level (cyan). Per-file decode failures land here.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level < sevDebug {
		return
	}
	l.line(sevDebug, "DEBUG", fmt.Sprintf(format, args...))
}

// Trace logs at TRACE level (magenta).
func (l *Logger) Trace(format string, args ...interface{}) {
	if l.level < sevTrace {
		return
	}
	l.line(sevTrace, "TRACE", fmt.Sprintf(format, args...))
}
