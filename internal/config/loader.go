package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix prefixes environment variable overrides, e.g.
// DYNCOMPLETE_DISPATCH_WORKERS.
const EnvPrefix = "DYNCOMPLETE"

// Loader reads configuration from a YAML file, environment variables and
// built-in defaults, in decreasing order of precedence.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// LoadResult contains the result of loading a configuration file.
type LoadResult struct {
	Config *Config
	// Path is the file that was read, or empty when none was found.
	Path string
}

// LoadFromFile loads configuration from path. A missing file is not an
// error: defaults and environment overrides still apply.
func (l *Loader) LoadFromFile(path string) (*LoadResult, error) {
	v := newViper()
	result := &LoadResult{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "failed to read config file %s", path)
			}
			result.Path = path
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to stat config file %s", path)
		} else {
			l.logger.Debug("config file not found, using defaults", zap.String("path", path))
		}
	}

	return l.finish(v, result)
}

// LoadFromString loads configuration from YAML source.
func (l *Loader) LoadFromString(source string) (*LoadResult, error) {
	v := newViper()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(source)); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	return l.finish(v, &LoadResult{})
}

func (l *Loader) finish(v *viper.Viper, result *LoadResult) (*LoadResult, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	result.Config = &cfg
	l.logger.Debug("loaded config",
		zap.String("path", result.Path),
		zap.Int("triggers", len(cfg.Triggers)),
		zap.Int("word_lists", len(cfg.WordLists)),
	)
	return result, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("log_level", d.LogLevel)

	v.SetDefault("dispatch.workers", d.Dispatch.Workers)
	v.SetDefault("dispatch.fan_out_threshold", d.Dispatch.FanOutThreshold)

	v.SetDefault("documents.idle_ttl", d.Documents.IdleTTL)

	triggers := make([]map[string]any, 0, len(d.Triggers))
	for _, r := range d.Triggers {
		triggers = append(triggers, map[string]any{
			"name":            r.Name,
			"document_scope":  r.DocumentScope,
			"selection_scope": r.SelectionScope,
			"categories":      r.Categories,
		})
	}
	v.SetDefault("triggers", triggers)

	v.SetDefault("word_files.paths", []string{})
	v.SetDefault("word_files.categories", []string{})

	v.SetDefault("buffer_words.enabled", d.BufferWords.Enabled)
	v.SetDefault("buffer_words.min_length", d.BufferWords.MinLength)
	v.SetDefault("commands.enabled", d.Commands.Enabled)
	v.SetDefault("directory.enabled", d.Directory.Enabled)
	v.SetDefault("directory.show_hidden", d.Directory.ShowHidden)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.limit", d.History.Limit)
	v.SetDefault("history.path", d.History.Path)
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Dispatch.Workers < 1 {
		return errors.Newf("dispatch.workers must be at least 1, got %d", c.Dispatch.Workers)
	}
	if c.Dispatch.FanOutThreshold < 1 {
		return errors.Newf("dispatch.fan_out_threshold must be at least 1, got %d", c.Dispatch.FanOutThreshold)
	}
	for i, r := range c.Triggers {
		if r.Name == "" {
			return errors.Newf("triggers[%d] has no name", i)
		}
		if len(r.Categories) == 0 {
			return errors.Newf("trigger %q has no categories", r.Name)
		}
	}
	return nil
}
