// Package config provides configuration management for dyncomplete.
package config

import (
	"strings"
	"time"

	"github.com/atinylittleshell/dyncomplete/internal/trigger"
)

type Config struct {
	LogLevel    string              `mapstructure:"log_level"`
	Dispatch    DispatchConfig      `mapstructure:"dispatch"`
	Documents   DocumentsConfig     `mapstructure:"documents"`
	Languages   map[string]string   `mapstructure:"languages"`
	Triggers    []trigger.Rule      `mapstructure:"triggers"`
	WordLists   map[string][]string `mapstructure:"word_lists"`
	WordFiles   WordFilesConfig     `mapstructure:"word_files"`
	BufferWords BufferWordsConfig   `mapstructure:"buffer_words"`
	Commands    ToggleConfig        `mapstructure:"commands"`
	Directory   DirectoryConfig     `mapstructure:"directory"`
	History     HistoryConfig       `mapstructure:"history"`
}

type DispatchConfig struct {
	Workers         int `mapstructure:"workers"`
	FanOutThreshold int `mapstructure:"fan_out_threshold"`
}

type DocumentsConfig struct {
	// IdleTTL evicts per-document state after this much inactivity. Zero
	// disables eviction.
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
}

type WordFilesConfig struct {
	Paths      []string `mapstructure:"paths"`
	Categories []string `mapstructure:"categories"`
}

type BufferWordsConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	MinLength int  `mapstructure:"min_length"`
}

type ToggleConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type DirectoryConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	ShowHidden bool `mapstructure:"show_hidden"`
}

type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Limit   int  `mapstructure:"limit"`
	// Path of the sqlite database. Empty means the default data directory.
	Path string `mapstructure:"path"`
}

// DefaultTriggers complete shell commands, shell arguments and words in
// plain text and source files.
func DefaultTriggers() []trigger.Rule {
	return []trigger.Rule{
		{
			Name:           "shell-command",
			DocumentScope:  "source.shell",
			SelectionScope: "variable.function.shell",
			Categories:     []string{"command-name", "history"},
		},
		{
			Name:           "shell-argument",
			DocumentScope:  "source.shell",
			SelectionScope: "meta.function-call.arguments.shell - comment",
			Categories:     []string{"file-path", "word", "history"},
		},
		{
			Name:           "words",
			DocumentScope:  "text, source - source.shell",
			SelectionScope: "",
			Categories:     []string{"word"},
		},
	}
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Dispatch: DispatchConfig{
			Workers:         2,
			FanOutThreshold: 3,
		},
		Languages:   map[string]string{},
		Triggers:    DefaultTriggers(),
		WordLists:   map[string][]string{},
		BufferWords: BufferWordsConfig{Enabled: true, MinLength: 3},
		Commands:    ToggleConfig{Enabled: true},
		Directory:   DirectoryConfig{Enabled: true},
		History:     HistoryConfig{Enabled: true, Limit: 200},
	}
}

// LanguageMap returns the configured languages keyed by file extension with
// a leading dot.
func (c *Config) LanguageMap() map[string]string {
	out := make(map[string]string, len(c.Languages))
	for ext, scope := range c.Languages {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = scope
	}
	return out
}
