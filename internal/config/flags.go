package config

// This file registers the CLI flags and overlays explicitly set flags onto a
// Config. Flags are grouped into paths, harvest behavior and display.
// Only flags the user actually passed override the config file, so a file
// value survives unless the matching flag is given.

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Flag names shared by DefineFlags, ApplyFlags and the command layer.
const (
	FlagConfig      = "config"
	FlagInput       = "input"
	FlagOutput      = "output"
	FlagCatalog     = "catalog"
	FlagMetricsFile = "metrics-file"
	FlagConcurrency = "concurrency"
	FlagTimeout     = "timeout"
	FlagFullDecode  = "full-decode"
	FlagVerbosity   = "verbosity"
	FlagColor       = "color"
	FlagLogFile     = "log-file"
	FlagCheck       = "check"
)

// DefineFlags registers every flag on fs. Defaults shown in help come from
// [DefaultConfig].
func DefineFlags(fs *pflag.FlagSet) {
	def := DefaultConfig()
	definePathFlags(fs)
	defineHarvestFlags(fs, &def)
	defineDisplayFlags(fs, &def)
}

// definePathFlags registers -i/--input, -o/--output, --catalog, --metrics-file, --config.
func definePathFlags(fs *pflag.FlagSet) {
	fs.StringP(FlagInput, "i", "", "Directory to scan for DICOM files")
	fs.StringP(FlagOutput, "o", "", "Write JSON to this file instead of stdout")
	fs.String(FlagCatalog, "", "Also upsert records into this SQLite database")
	fs.String(FlagMetricsFile, "", "Write Prometheus metrics to this textfile after the run")
	fs.String(FlagConfig, "", "YAML config file (flags override its values)")
}

// defineHarvestFlags registers -j/--concurrency, --timeout, --full-decode.
func defineHarvestFlags(fs *pflag.FlagSet, def *Config) {
	fs.IntP(FlagConcurrency, "j", def.Concurrency, "Maximum files decoded at once (0 = one goroutine per file)")
	fs.Duration(FlagTimeout, def.Timeout, "Abort the run after this long (e.g. 10m; 0 = no limit)")
	fs.Bool(FlagFullDecode, def.FullDecode, "Decode whole files instead of stopping after the patient module")
}

// defineDisplayFlags registers -v/--verbosity, --color, -l/--log-file, -c/--check.
func defineDisplayFlags(fs *pflag.FlagSet, def *Config) {
	fs.StringP(FlagVerbosity, "v", string(def.Verbosity), "Log level: off | error | warn | info | debug | trace")
	fs.String(FlagColor, string(def.ColorMode), "Colored logs: auto | always | never")
	fs.StringP(FlagLogFile, "l", "", "Append JSON logs to this file")
	fs.BoolP(FlagCheck, "c", false, "Check input, output and catalog paths, then exit")
}

// ApplyFlags copies every flag the user set on fs into cfg.
func ApplyFlags(fs *pflag.FlagSet, cfg *Config) error {
	var err error
	set := func(name string, apply func() error) {
		if err != nil || !fs.Changed(name) {
			return
		}
		if e := apply(); e != nil {
			err = fmt.Errorf("--%s: %w", name, e)
		}
	}

	set(FlagInput, func() error {
		v, e := fs.GetString(FlagInput)
		cfg.InputDir = NormalizeDirArg(v)
		return e
	})
	set(FlagOutput, func() (e error) { cfg.OutputPath, e = fs.GetString(FlagOutput); return })
	set(FlagCatalog, func() (e error) { cfg.CatalogPath, e = fs.GetString(FlagCatalog); return })
	set(FlagMetricsFile, func() (e error) { cfg.MetricsFile, e = fs.GetString(FlagMetricsFile); return })
	set(FlagConcurrency, func() (e error) { cfg.Concurrency, e = fs.GetInt(FlagConcurrency); return })
	set(FlagTimeout, func() (e error) { cfg.Timeout, e = fs.GetDuration(FlagTimeout); return })
	set(FlagFullDecode, func() (e error) { cfg.FullDecode, e = fs.GetBool(FlagFullDecode); return })
	set(FlagVerbosity, func() error {
		v, e := fs.GetString(FlagVerbosity)
		if e != nil {
			return e
		}
		cfg.Verbosity, e = ParseLogLevel(v)
		return e
	})
	set(FlagColor, func() error {
		v, e := fs.GetString(FlagColor)
		if e != nil {
			return e
		}
		cfg.ColorMode, e = ParseColorMode(v)
		return e
	})
	set(FlagLogFile, func() (e error) { cfg.LogFile, e = fs.GetString(FlagLogFile); return })
	set(FlagCheck, func() (e error) { cfg.CheckOnly, e = fs.GetBool(FlagCheck); return })
	return err
}
