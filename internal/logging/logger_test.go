package logging

import (
	"bytes"
	"encoding/json"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/dicomharvest/internal/config"
)

func TestNewLogger_NoFile(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	l, err := NewLogger(&cfg, &buf)
	require.NoError(t, err)
	defer l.Close()

	l.Info("test message")
	assert.Contains(t, buf.String(), "[INFO] test message\n")
}

func TestNewLogger_WithFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	cfg.Verbosity = config.LevelDebug
	cfg.LogFile = filepath.Join(dir, "logs", "dicomharvest.log")

	var buf bytes.Buffer
	l, err := NewLogger(&cfg, &buf)
	require.NoError(t, err)
	l.Info("to file")
	l.Debug("failed to parse file: %s: %s", "/x.dcm", "boom")
	require.NoError(t, l.Close())

	b, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "to file", entry["msg"])
	assert.Equal(t, l.RunID(), entry["run_id"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "failed to parse file: /x.dcm: boom", entry["msg"])
}

func TestLogger_LevelThreshold(t *testing.T) {
	tests := []struct {
		level config.LogLevel
		want  []string
		skip  []string
	}{
		{config.LevelOff, nil, []string{"[ERROR]", "[INFO]", "[DEBUG]"}},
		{config.LevelError, []string{"[ERROR]"}, []string{"[WARN]", "[INFO]"}},
		{config.LevelInfo, []string{"[ERROR]", "[WARN]", "[INFO]", "[SUCCESS]"}, []string{"[DEBUG]", "[TRACE]"}},
		{config.LevelDebug, []string{"[INFO]", "[DEBUG]"}, []string{"[TRACE]"}},
		{config.LevelTrace, []string{"[DEBUG]", "[TRACE]"}, nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&buf, tt.level, false)
			l.Error("e")
			l.Warn("w")
			l.Info("i")
			l.Success("s")
			l.Debug("d")
			l.Trace("t")

			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.skip {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestLogger_Enabled(t *testing.T) {
	l := New(nil, config.LevelInfo, false)
	assert.True(t, l.Enabled(config.LevelError))
	assert.True(t, l.Enabled(config.LevelInfo))
	assert.False(t, l.Enabled(config.LevelDebug))
	assert.False(t, l.Enabled(config.LevelOff))
	assert.False(t, l.Enabled("bogus"))
}

func TestLogger_Color(t *testing.T) {
	var plain, colored bytes.Buffer
	New(&plain, config.LevelInfo, false).Warn("careful")
	New(&colored, config.LevelInfo, true).Warn("careful")

	assert.NotContains(t, plain.String(), "\x1b[")
	assert.Contains(t, colored.String(), "\x1b[")
	assert.Contains(t, colored.String(), "careful")
}

func TestLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "loud", false)
	l.Info("kept")
	l.Debug("dropped")
	assert.Contains(t, buf.String(), "kept")
	assert.NotContains(t, buf.String(), "dropped")
}

func TestLogger_CloseWithoutFile(t *testing.T) {
	l := New(nil, config.LevelInfo, false)
	assert.NoError(t, l.Close())
	assert.NoError(t, l.Close())
}

func TestLogger_RedirectStdLog(t *testing.T) {
	var prev bytes.Buffer
	stdlog.SetOutput(&prev)
	t.Cleanup(func() { stdlog.SetOutput(os.Stderr) })

	tests := []struct {
		level config.LogLevel
		want  bool
	}{
		{config.LevelOff, false},
		{config.LevelDebug, false},
		{config.LevelTrace, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&buf, tt.level, false)
			restore := l.RedirectStdLog()
			stdlog.Println("error reading value ", "unexpected EOF")
			restore()

			if tt.want {
				assert.Contains(t, buf.String(), "[TRACE] error reading value  unexpected EOF\n")
			} else {
				assert.Empty(t, buf.String())
			}
			assert.Empty(t, prev.String())
		})
	}

	stdlog.Print("after restore")
	assert.Contains(t, prev.String(), "after restore")
}
