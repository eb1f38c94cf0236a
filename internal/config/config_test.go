package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDirArg(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no trailing slash", "/srv/pacs", "/srv/pacs"},
		{"single trailing slash", "/srv/pacs/", "/srv/pacs"},
		{"multiple trailing slashes", "/srv/pacs///", "/srv/pacs"},
		{"root path", "/", "/"},
		{"relative path", "scans", "scans"},
		{"relative with slash", "scans/", "scans"},
		{"empty string", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDirArg(tt.in))
		})
	}
}

func TestValidate_Verbosity(t *testing.T) {
	tests := []struct {
		name    string
		level   LogLevel
		want    LogLevel
		wantErr bool
	}{
		{"info is valid", LevelInfo, LevelInfo, false},
		{"off is valid", LevelOff, LevelOff, false},
		{"upper case is normalized", "DEBUG", LevelDebug, false},
		{"empty is invalid", "", "", true},
		{"unknown is invalid", "verbose", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.CheckOnly = true // skip path requirement
			cfg.Verbosity = tt.level
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Verbosity)
		})
	}
}

func TestValidate_ColorMode(t *testing.T) {
	tests := []struct {
		name    string
		mode    ColorMode
		wantErr bool
	}{
		{"auto is valid", ColorAuto, false},
		{"always is valid", ColorAlways, false},
		{"never is valid", ColorNever, false},
		{"empty is invalid", "", true},
		{"unknown is invalid", "rainbow", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.CheckOnly = true
			cfg.ColorMode = tt.mode
			err := cfg.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate() error = %v", err)
		})
	}
}

func TestValidate_Ranges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputDir = "/in"
	cfg.Concurrency = -1
	assert.Error(t, cfg.Validate())

	cfg.Concurrency = 0
	cfg.Timeout = -time.Second
	assert.Error(t, cfg.Validate())

	cfg.Timeout = time.Minute
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RequiresInput(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "Validate() should fail without an input directory")

	cfg.InputDir = "/in"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_CheckOnlySkipsInput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CheckOnly = true
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfig_SaneDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, LevelInfo, cfg.Verbosity)
	assert.Equal(t, ColorAuto, cfg.ColorMode)
	assert.Greater(t, cfg.Concurrency, 0)
	assert.Zero(t, cfg.Timeout)
	assert.False(t, cfg.FullDecode)
	assert.True(t, cfg.UsesStdout())
}

func TestUsesStdout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputPath = "-"
	assert.True(t, cfg.UsesStdout())
	cfg.OutputPath = "out.json"
	assert.False(t, cfg.UsesStdout())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dicomharvest.yaml")
	writeFile(t, path, `
input: /srv/pacs/
output: patients.json
concurrency: 8
timeout: 90s
full_decode: true
verbosity: debug
color: never
`)

	cfg := DefaultConfig()
	require.NoError(t, LoadFile(path, &cfg))

	assert.Equal(t, "/srv/pacs", cfg.InputDir)
	assert.Equal(t, "patients.json", cfg.OutputPath)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.True(t, cfg.FullDecode)
	assert.Equal(t, LevelDebug, cfg.Verbosity)
	assert.Equal(t, ColorNever, cfg.ColorMode)
	assert.Empty(t, cfg.CatalogPath, "absent keys keep their defaults")
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	assert.Error(t, LoadFile(filepath.Join(dir, "missing.yaml"), &cfg))

	unknown := filepath.Join(dir, "unknown.yaml")
	writeFile(t, unknown, "inputs: /typo\n")
	assert.Error(t, LoadFile(unknown, &cfg))

	empty := filepath.Join(dir, "empty.yaml")
	writeFile(t, empty, "")
	assert.NoError(t, LoadFile(empty, &cfg))
}

func TestApplyFlags_OnlyChangedFlagsOverride(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	DefineFlags(fs)
	require.NoError(t, fs.Parse([]string{"-i", "/scans/", "-v", "DEBUG", "--timeout", "2m"}))

	cfg := DefaultConfig()
	cfg.OutputPath = "from-file.json"
	cfg.Concurrency = 3
	require.NoError(t, ApplyFlags(fs, &cfg))

	assert.Equal(t, "/scans", cfg.InputDir)
	assert.Equal(t, LevelDebug, cfg.Verbosity)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, "from-file.json", cfg.OutputPath)
	assert.Equal(t, 3, cfg.Concurrency)
}

func TestApplyFlags_InvalidEnum(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	DefineFlags(fs)
	require.NoError(t, fs.Parse([]string{"--color", "sometimes"}))

	cfg := DefaultConfig()
	err := ApplyFlags(fs, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--color")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
