// Package cmd wires configuration, logging and the harvest pipeline into the
// dicomharvest cobra command.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/backmassage/dicomharvest/internal/catalog"
	"github.com/backmassage/dicomharvest/internal/check"
	"github.com/backmassage/dicomharvest/internal/config"
	"github.com/backmassage/dicomharvest/internal/display"
	"github.com/backmassage/dicomharvest/internal/logging"
	"github.com/backmassage/dicomharvest/internal/metrics"
	"github.com/backmassage/dicomharvest/internal/output"
	"github.com/backmassage/dicomharvest/internal/pipeline"
	"github.com/backmassage/dicomharvest/internal/probe"
	"github.com/backmassage/dicomharvest/internal/term"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

var errCheckFailed = errors.New("system check failed")

// NewRootCommand creates the dicomharvest command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dicomharvest -i <dir> [-o out.json]",
		Short: "Extract patient names and IDs from a tree of DICOM files",
		Long: `dicomharvest walks a directory tree, reads the patient header of every
DICOM Part-10 file it finds and writes one JSON record per readable file:

  [{"filepath": "...", "patient_name": "...", "patient_id": "..."}]

Files that are not DICOM, or that lack PatientName or PatientID, are skipped
and reported at debug verbosity. The document goes to stdout unless -o is
given.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runHarvest(cmd.Context(), &cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	config.DefineFlags(cmd.Flags())
	return cmd
}

// loadConfig layers defaults, the optional YAML file and explicitly set
// flags, then validates the result.
func loadConfig(fs *pflag.FlagSet) (config.Config, error) {
	cfg := config.DefaultConfig()
	path, err := fs.GetString(config.FlagConfig)
	if err != nil {
		return cfg, err
	}
	if path != "" {
		if err := config.LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := config.ApplyFlags(fs, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runHarvest(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	log, err := logging.NewLogger(cfg, stderr)
	if err != nil {
		return err
	}
	defer log.Close()
	defer log.RedirectStdLog()()

	if term.IsTerminal(stderr) && log.Enabled(config.LevelInfo) {
		display.PrintBanner(stderr, term.Enabled(cfg.ColorMode, stderr))
	}

	if cfg.CheckOnly {
		if !check.RunCheck(cfg, log) {
			return errCheckFailed
		}
		return nil
	}

	if err := check.CheckPaths(cfg); err != nil {
		return err
	}

	log.Info("=== dicomharvest %s ===", Version)
	log.Info("In:  %s", cfg.InputDir)
	log.Info("Out: %s", outputLabel(cfg))
	log.Debug("Run %s, concurrency %d, full decode %t", log.RunID(), cfg.Concurrency, cfg.FullDecode)

	// Cancel on SIGINT/SIGTERM. In-flight decodes finish; nothing is written.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Received interrupt, abandoning run")
			cancel()
		case <-ctx.Done():
		}
	}()

	rec := metrics.NewRecorder()
	records, stats, err := pipeline.Run(ctx, cfg, log, rec)
	if err != nil {
		return err
	}

	if cfg.UsesStdout() {
		err = output.WriteJSON(stdout, records)
	} else {
		err = output.WriteFile(cfg.OutputPath, records)
	}
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	// The document is already written; later sinks only warn. CheckPaths
	// has opened the catalog once, so failures here are rare.
	if cfg.CatalogPath != "" {
		if err := saveCatalog(ctx, cfg, log.RunID(), records, &stats); err != nil {
			log.Warn("Could not update catalog: %v", err)
		} else {
			log.Debug("Catalog updated: %s", cfg.CatalogPath)
		}
	}

	rec.RunCompleted(len(records), stats.Elapsed)
	if cfg.MetricsFile != "" {
		if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn("Could not write metrics: %v", err)
		}
	}

	logSummary(log, len(records), &stats)
	return nil
}

func saveCatalog(ctx context.Context, cfg *config.Config, runID string, records []probe.Record, stats *pipeline.RunStats) error {
	c, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return err
	}
	defer c.Close()
	run := catalog.Run{
		ID:         runID,
		Root:       cfg.InputDir,
		Candidates: stats.Candidates,
		Decoded:    stats.Decoded,
		Failed:     stats.Failed,
	}
	if err := c.Save(ctx, run, records); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}

func logSummary(log *logging.Logger, n int, stats *pipeline.RunStats) {
	log.Success("Harvested %d records from %d files (%d failed, %d entries skipped)",
		n, stats.Candidates, stats.Failed, stats.SkippedEntries)
	log.Info("Scanned %s in %s (%s, %s decoded)",
		display.FormatBytes(stats.BytesScanned),
		stats.Elapsed.Round(time.Millisecond),
		display.FormatRate(stats.Candidates, stats.Elapsed),
		display.FormatPercent(stats.SuccessRate()))
	if !log.Enabled(config.LevelDebug) {
		return
	}
	for _, k := range probe.Kinds() {
		if c := stats.FailuresByKind[k]; c > 0 {
			log.Debug("  %-18s %d", k, c)
		}
	}
}

func outputLabel(cfg *config.Config) string {
	if cfg.UsesStdout() {
		return "stdout"
	}
	return cfg.OutputPath
}
