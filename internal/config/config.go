// Package config loads toolkit settings from YAML or CUE files.
//
// Files only need the fields they change; everything else keeps the value
// from Default. CUE files are unified with an embedded #Config schema, so
// typos and out-of-range values are reported with CUE positions. YAML files
// are decoded strictly and rejected on unknown fields.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/doox-on/CS4220-NORP/internal/batch"
	"github.com/doox-on/CS4220-NORP/internal/planir"
	"github.com/doox-on/CS4220-NORP/internal/repair"
)

//go:embed schema.cue
var schemaCUE string

// Config holds every tunable setting.
type Config struct {
	DefaultTable      string              `yaml:"default_table" json:"default_table"`
	Database          string              `yaml:"database" json:"database"`
	Store             string              `yaml:"store" json:"store"`
	CSV               string              `yaml:"csv" json:"csv"`
	Workers           int                 `yaml:"workers" json:"workers"`
	MaxRetries        int                 `yaml:"max_retries" json:"max_retries"`
	RequestsPerSecond float64             `yaml:"requests_per_second" json:"requests_per_second"`
	Lenient           bool                `yaml:"lenient" json:"lenient"`
	Registry          map[string][]string `yaml:"registry" json:"registry"`
	Generator         *Generator          `yaml:"generator" json:"generator"`
}

// Generator names the external program the repair loop runs per prompt.
type Generator struct {
	Command string   `yaml:"command" json:"command"`
	Args    []string `yaml:"args" json:"args"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DefaultTable: "demographics",
		Database:     ":memory:",
		Store:        "norp.db",
		Workers:      batch.DefaultWorkers(),
		MaxRetries:   repair.DefaultMaxAttempts,
	}
}

// Load reads path over Default. The format follows the extension:
// .yaml/.yml or .cue.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = decodeYAML(data, &cfg)
	case ".cue":
		err = decodeCUE(path, data, &cfg)
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(cfg); err != nil {
		// An empty document decodes nothing.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func decodeCUE(path string, data []byte, cfg *Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return fmt.Errorf("failed to parse CUE: %w", err)
	}

	v = schema.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config does not match schema: %w", err)
	}
	if err := v.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode CUE: %w", err)
	}
	return nil
}

// Validate rejects settings no command can run with.
func (c Config) Validate() error {
	if c.DefaultTable == "" {
		return fmt.Errorf("default_table must be non-empty")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive, got %d", c.MaxRetries)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative, got %g", c.RequestsPerSecond)
	}
	for op, keys := range c.Registry {
		if len(keys) == 0 {
			return fmt.Errorf("registry: operation %q lists no detail keys", op)
		}
	}
	if c.Generator != nil && c.Generator.Command == "" {
		return fmt.Errorf("generator.command must be non-empty")
	}
	return nil
}

// ValidatorOptions returns the plan validator options the config selects.
func (c Config) ValidatorOptions() []planir.Option {
	var opts []planir.Option
	if len(c.Registry) > 0 {
		opts = append(opts, planir.WithRegistry(planir.Registry(c.Registry)))
	}
	if c.Lenient {
		opts = append(opts, planir.WithSynonyms())
	}
	return opts
}

// Limiter returns a limiter pacing generator calls, or nil when
// requests_per_second is 0.
func (c Config) Limiter() *rate.Limiter {
	if c.RequestsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.RequestsPerSecond), 1)
}
