package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values; unknown keys are rejected so typos do not
// pass silently. Durations use Go syntax ("90s", "1h30m").
//
// Example:
//
//	input: /srv/pacs/export
//	output: patients.json
//	concurrency: 32
//	timeout: 30m
//	verbosity: debug
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.InputDir = NormalizeDirArg(cfg.InputDir)
	return nil
}
