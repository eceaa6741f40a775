package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSettings overlays the YAML settings file at path onto cfg. Keys
// missing from the file keep their current values; unknown keys are an
// error.
func LoadSettings(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse settings %s: %w", path, err)
	}

	cfg.SettingsFile = path
	return nil
}
