// Package config loads xaibench settings from defaults, xaibench.yaml,
// XAIBENCH_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/YuminosukeSato/xaibench/explain"
	"github.com/YuminosukeSato/xaibench/pipeline"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/preprocessing"
	"github.com/YuminosukeSato/xaibench/split"
	"github.com/YuminosukeSato/xaibench/train"
)

// FileName is the config file looked up in the working directory.
const FileName = "xaibench.yaml"

// EnvPrefix prefixes environment overrides, e.g. XAIBENCH_LOG_LEVEL.
const EnvPrefix = "XAIBENCH_"

// Config holds the resolved settings.
type Config struct {
	LogLevel     string  `koanf:"log_level"`
	LogFormat    string  `koanf:"log_format"`
	CacheDir     string  `koanf:"cache_dir"`
	RegistryPath string  `koanf:"registry_path"`
	ResultsDir   string  `koanf:"results_dir"`
	RandomState  int64   `koanf:"random_state"`
	TestSize     float64 `koanf:"test_size"`
	LimeSamples  int     `koanf:"lime_samples"`
	MinPerGroup  int     `koanf:"min_per_group"`
	MaxPerGroup  int     `koanf:"max_per_group"`
	Scaling      string  `koanf:"scaling"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]interface{} {
	home, err := os.UserCacheDir()
	if err != nil {
		home = os.TempDir()
	}
	return map[string]interface{}{
		"log_level":     "info",
		"log_format":    "json",
		"cache_dir":     filepath.Join(home, "xaibench"),
		"registry_path": filepath.Join(home, "xaibench", "runs.db"),
		"results_dir":   explain.ResultsDir,
		"random_state":  split.DefaultRandomState,
		"test_size":     split.DefaultTestSize,
		"lime_samples":  explain.DefaultNumSamples,
		"min_per_group": split.DefaultMinPerGroup,
		"max_per_group": split.DefaultMaxPerGroup,
		"scaling":       string(preprocessing.ScalingStandard),
	}
}

// Load resolves the configuration. path names an explicit config file;
// when empty, FileName is used if it exists. Only flags that were set on
// the command line override other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "load defaults")
	}

	if path == "" {
		if _, err := os.Stat(FileName); err == nil {
			path = FileName
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load environment")
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, errors.Wrap(err, "load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.File = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return errors.NewValidationError("test_size", "must be in (0, 1)", c.TestSize)
	}
	if c.LimeSamples < 2 {
		return errors.NewValidationError("lime_samples", "must be >= 2", c.LimeSamples)
	}
	if c.MinPerGroup < 1 {
		return errors.NewValidationError("min_per_group", "must be >= 1", c.MinPerGroup)
	}
	if c.MaxPerGroup < 0 {
		return errors.NewValidationError("max_per_group", "must be >= 0", c.MaxPerGroup)
	}
	switch preprocessing.Scaling(c.Scaling) {
	case preprocessing.ScalingStandard, preprocessing.ScalingMinMax:
	default:
		return errors.NewValidationError("scaling", "must be standard or minmax", c.Scaling)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return errors.NewValidationError("log_format", "must be json or console", c.LogFormat)
	}
	return nil
}

// SplitOptions returns the split settings as options.
func (c *Config) SplitOptions() []split.Option {
	return []split.Option{
		split.WithTestSize(c.TestSize),
		split.WithRandomState(c.RandomState),
		split.WithMinPerGroup(c.MinPerGroup),
		split.WithMaxPerGroup(c.MaxPerGroup),
	}
}

// TrainOptions returns the split, seed and scaling settings for train.TrainModel.
func (c *Config) TrainOptions() []train.Option {
	return []train.Option{
		train.WithSplitOptions(c.SplitOptions()...),
		train.WithPipelineOptions(pipeline.WithRandomState(c.RandomState)),
		train.WithScaling(preprocessing.Scaling(c.Scaling)),
	}
}
