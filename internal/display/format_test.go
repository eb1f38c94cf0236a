package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"small bytes", 512, "512 B"},
		{"exactly 1 KiB", 1024, "1.0 KiB"},
		{"1.5 KiB", 1536, "1.5 KiB"},
		{"1 MiB", 1024 * 1024, "1.0 MiB"},
		{"1 GiB", 1024 * 1024 * 1024, "1.0 GiB"},
		{"typical CT series 700 MiB", 734003200, "700.0 MiB"},
		{"4.7 GiB", 5046586572, "4.7 GiB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.bytes))
		})
	}
}

func TestFormatRate(t *testing.T) {
	tests := []struct {
		name  string
		files int
		d     time.Duration
		want  string
	}{
		{"zero duration", 10, 0, "n/a"},
		{"one per second", 5, 5 * time.Second, "1.0 files/s"},
		{"fast", 1000, 250 * time.Millisecond, "4000.0 files/s"},
		{"none", 0, time.Second, "0.0 files/s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRate(tt.files, tt.d))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "0.0%", FormatPercent(0))
	assert.Equal(t, "60.0%", FormatPercent(0.6))
	assert.Equal(t, "100.0%", FormatPercent(1))
}

func TestPrintBanner(t *testing.T) {
	var plain, colored bytes.Buffer
	PrintBanner(&plain, false)
	PrintBanner(&colored, true)

	assert.NotContains(t, plain.String(), "\x1b[")
	assert.True(t, strings.HasPrefix(colored.String(), "\x1b["))
	assert.Contains(t, colored.String(), strings.TrimSpace(strings.Split(banner, "\n")[1]))
}
