package classify

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML configuration file on top of DefaultConfig using
// strict parsing, then validates it. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	// 1. Read File
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open classifier config: %w", err)
	}

	cfg, err = ParseConfig(data)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML bytes on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	return DefaultConfig().Overlay(data)
}

// Overlay decodes YAML bytes on top of c and validates the result. Naming
// only one of connectivity_threshold and pv_cutoff switches the other off.
func (c Config) Overlay(data []byte) (Config, error) {
	// The decoder writes through non-nil pointers, so detach them from c.
	cfg := c
	cfg.ConnectivityThreshold = clonePtr(c.ConnectivityThreshold)
	cfg.PValueCutoff = clonePtr(c.PValueCutoff)
	cfg.ThMax = clonePtr(c.ThMax)

	// 1. Setup Strict Decoder
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	// 2. Decode
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("YAML syntax error in classifier config: %w", err)
	}

	// 3. Expansion threshold switch
	var present struct {
		Alpha *float64 `yaml:"connectivity_threshold"`
		PV    *float64 `yaml:"pv_cutoff"`
	}
	if err := yaml.Unmarshal(data, &present); err == nil {
		switch {
		case present.PV != nil && present.Alpha == nil:
			cfg.ConnectivityThreshold = nil
		case present.Alpha != nil && present.PV == nil:
			cfg.PValueCutoff = nil
		}
	}

	// 4. Validate
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
