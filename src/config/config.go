// Package config loads generator settings from defaults, an optional YAML
// file and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"mmdp_instances/src/mmdp"
)

type Config struct {
	Generation GenerationConfig `yaml:"generation"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
	Catalog    CatalogConfig    `yaml:"catalog"`
}

type GenerationConfig struct {
	// Variant is one of II, IV, MMDPI (or weighted, fixed, unweighted).
	Variant string `yaml:"variant"`

	// Seed overrides the variant's historical seed when set.
	Seed *uint64 `yaml:"seed,omitempty"`

	// Stream is "glibc" (reproduces the published benchmark files) or "pcg".
	Stream string `yaml:"stream"`

	Trials int `yaml:"trials"`

	// LegacyFixedN makes IV always generate n=5000.
	LegacyFixedN bool `yaml:"legacy_fixed_n"`

	// MemoryLimit is a human readable size such as "2GiB"; "0" disables it.
	MemoryLimit string `yaml:"memory_limit"`

	Workers           int  `yaml:"workers"`
	IndependentTrials bool `yaml:"independent_trials"`
}

type OutputConfig struct {
	Dir          string `yaml:"dir"`
	Append       bool   `yaml:"append"`
	Format       string `yaml:"format"`
	PrintN       bool   `yaml:"print_n"`
	PrintWeights bool   `yaml:"print_weights"`
}

type LoggingConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `yaml:"level"`
}

type CatalogConfig struct {
	// Path of the SQLite catalog; empty disables cataloguing.
	Path string `yaml:"path"`
}

func Default() *Config {
	return &Config{
		Generation: GenerationConfig{
			Variant:     "II",
			Stream:      string(mmdp.StreamGlibc),
			Trials:      mmdp.DefaultTrials,
			MemoryLimit: "2GiB",
			Workers:     1,
		},
		Output: OutputConfig{
			Dir:    ".",
			Format: string(mmdp.FormatText),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load returns the defaults overlaid with the file at path (when path is not
// empty) and then with environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = fileCfg
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MMDPGEN_OUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("MMDPGEN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MMDPGEN_MEMORY_LIMIT"); v != "" {
		cfg.Generation.MemoryLimit = v
	}
	if v := os.Getenv("MMDPGEN_CATALOG"); v != "" {
		cfg.Catalog.Path = v
	}
	if v := os.Getenv("MMDPGEN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Generation.Workers = n
		}
	}
}

func (c *Config) Validate() error {
	if _, err := mmdp.ParseVariant(c.Generation.Variant); err != nil {
		return err
	}
	if _, err := mmdp.ParseStreamKind(c.Generation.Stream); err != nil {
		return err
	}
	if _, err := mmdp.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	if _, err := c.MemoryLimitBytes(); err != nil {
		return err
	}
	if c.Generation.Trials <= 0 {
		return fmt.Errorf("trials must be positive, got %d", c.Generation.Trials)
	}
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: trace, debug, info, warn, error, disabled)", c.Logging.Level)
	}
	return nil
}

func (c *Config) MemoryLimitBytes() (uint64, error) {
	if c.Generation.MemoryLimit == "" || c.Generation.MemoryLimit == "0" {
		return 0, nil
	}
	b, err := humanize.ParseBytes(c.Generation.MemoryLimit)
	if err != nil {
		return 0, fmt.Errorf("invalid memory_limit %q: %w", c.Generation.MemoryLimit, err)
	}
	return b, nil
}

// GenerationFor builds the run configuration for size n. When no seed is
// configured the variant's historical seed for n is used.
func (c *Config) GenerationFor(n int) (mmdp.GenerationConfig, error) {
	if err := c.Validate(); err != nil {
		return mmdp.GenerationConfig{}, err
	}
	variant, _ := mmdp.ParseVariant(c.Generation.Variant)
	stream, _ := mmdp.ParseStreamKind(c.Generation.Stream)
	format, _ := mmdp.ParseFormat(c.Output.Format)
	limit, _ := c.MemoryLimitBytes()

	gen := mmdp.GenerationConfig{
		Variant:           variant,
		N:                 n,
		Seed:              c.Generation.Seed,
		Stream:            stream,
		Trials:            c.Generation.Trials,
		OutDir:            c.Output.Dir,
		Format:            format,
		PrintN:            c.Output.PrintN,
		PrintWeights:      c.Output.PrintWeights,
		LegacyFixedN:      c.Generation.LegacyFixedN,
		MemoryLimit:       limit,
		Workers:           c.Generation.Workers,
		IndependentTrials: c.Generation.IndependentTrials,
	}
	if c.Output.Append {
		gen.Mode = mmdp.Append
	}
	if gen.Seed == nil {
		seed := variant.LegacySeed(n)
		gen.Seed = &seed
	}
	return gen, nil
}
