// Package nodeconfig reads and writes the node toggles file shared with
// the storage node plugin (~/.murmuration/config).
package nodeconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of the file on disk.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// Config holds the toggles read by the storage node.
type Config struct {
	BitScreen bool     `json:"bitscreen" yaml:"bitscreen"`
	Share     bool     `json:"share" yaml:"share"`
	Advanced  Advanced `json:"advanced" yaml:"advanced"`
	Filters   Filters  `json:"filters" yaml:"filters"`

	// format remembers how the file was written so Save keeps it.
	format Format
}

type Advanced struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	List    []string `json:"list" yaml:"list"`
}

type Filters struct {
	Internal bool `json:"internal" yaml:"internal"`
	External bool `json:"external" yaml:"external"`
}

// Default is the configuration of a node that never saved one.
func Default() *Config {
	return &Config{
		Advanced: Advanced{List: []string{}},
	}
}

// Format returns the encoding Save will use.
func (c *Config) Format() Format { return c.format }

// Load reads the file at path. A missing file yields Default. JSON files
// stay JSON; anything else is parsed as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read node config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a node config document.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return cfg, nil
	}

	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, cfg); err != nil {
			return nil, fmt.Errorf("decode node config: %w", err)
		}
		cfg.format = FormatJSON
	} else {
		if err := yaml.Unmarshal(trimmed, cfg); err != nil {
			return nil, fmt.Errorf("decode node config: %w", err)
		}
		cfg.format = FormatYAML
	}

	if cfg.Advanced.List == nil {
		cfg.Advanced.List = []string{}
	}
	return cfg, nil
}

// Save writes cfg to path in the format it was loaded with.
func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	switch cfg.format {
	case FormatYAML:
		data, err = yaml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode node config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create node config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write node config: %w", err)
	}
	return nil
}

// Apply overwrites the toggles present in a config record. Keys absent
// from the record keep their current value.
func (c *Config) Apply(record map[string]json.RawMessage) error {
	targets := map[string]any{
		"bitscreen": &c.BitScreen,
		"share":     &c.Share,
		"advanced":  &c.Advanced,
		"filters":   &c.Filters,
	}
	for key, dst := range targets {
		raw, ok := record[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
	}
	if c.Advanced.List == nil {
		c.Advanced.List = []string{}
	}
	return nil
}
