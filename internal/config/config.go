// Package config loads census run configuration from YAML.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/freeeve/blockcensus/internal/world"
)

//go:embed census.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("census.schema.json", schemaJSON)

// Config is a census run configuration.
type Config struct {
	Threads   int      `yaml:"threads"`
	World     string   `yaml:"world"`
	YRange    *YRange  `yaml:"y_range"`
	AllChunks bool     `yaml:"all_chunks"`
	Ignore    []string `yaml:"ignore"`
	Output    string   `yaml:"output"`
	SQLite    string   `yaml:"sqlite"`
	Metrics   string   `yaml:"metrics"`
	Files     []string `yaml:"files"`
}

// YRange is a custom world height; Max is exclusive.
type YRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		World:  "classic",
		Output: "-",
	}
}

// Load reads and validates a YAML config file. Keys absent from the file
// keep their Default values.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates raw YAML against the config schema and decodes it over
// the defaults.
func Parse(raw []byte) (Config, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Config{}, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	// Round-trip through JSON so the validator sees JSON types.
	js, err := json.Marshal(doc)
	if err != nil {
		return Config{}, fmt.Errorf("config is not a plain mapping: %w", err)
	}
	var inst any
	if err := json.Unmarshal(js, &inst); err != nil {
		return Config{}, err
	}
	if err := schema.Validate(inst); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Range resolves the world height: a custom y_range wins over the preset.
func (c Config) Range() (world.YRange, error) {
	if c.YRange != nil {
		r := world.YRange{Start: c.YRange.Min, End: c.YRange.Max}
		if r.Empty() {
			return r, fmt.Errorf("y_range %v is empty", r)
		}
		return r, nil
	}
	return world.Preset(c.World)
}

// Validate checks constraints the schema cannot express.
func (c Config) Validate() error {
	if c.Threads < 0 {
		return fmt.Errorf("threads must be >= 0, got %d", c.Threads)
	}
	_, err := c.Range()
	return err
}
