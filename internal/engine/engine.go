// Package engine assembles a dispatcher from configuration: it registers the
// configured trigger rules and the enabled built-in providers.
package engine

import (
	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/atinylittleshell/dyncomplete/internal/config"
	"github.com/atinylittleshell/dyncomplete/internal/core"
	"github.com/atinylittleshell/dyncomplete/internal/dispatch"
	"github.com/atinylittleshell/dyncomplete/internal/document"
	"github.com/atinylittleshell/dyncomplete/internal/history"
	"github.com/atinylittleshell/dyncomplete/internal/providers"
	"github.com/atinylittleshell/dyncomplete/internal/trigger"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

type Options struct {
	Config *config.Config
	Logger *zap.Logger
}

// Engine is a configured dispatcher plus the resources its providers hold.
type Engine struct {
	Dispatcher *dispatch.Dispatcher
	History    *history.Store

	languages map[string]string
	logger    *zap.Logger
}

// New builds an engine. The history store is opened only when the history
// provider is enabled.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	d := dispatch.New(dispatch.Options{
		Logger:          logger,
		Workers:         cfg.Dispatch.Workers,
		FanOutThreshold: cfg.Dispatch.FanOutThreshold,
		DocumentIdleTTL: cfg.Documents.IdleTTL,
	})
	e := &Engine{
		Dispatcher: d,
		languages:  cfg.LanguageMap(),
		logger:     logger,
	}

	for _, rule := range cfg.Triggers {
		d.RegisterTrigger(trigger.NewScoped(rule))
	}

	if len(cfg.WordLists) > 0 {
		d.RegisterProvider(providers.NewWordList(cfg.WordLists))
	}
	if cfg.BufferWords.Enabled {
		d.RegisterProvider(&providers.BufferWords{MinLength: cfg.BufferWords.MinLength})
	}
	if len(cfg.WordFiles.Paths) > 0 {
		d.RegisterProvider(providers.NewWordFile(cfg.WordFiles.Paths, cfg.WordFiles.Categories...))
	}
	if cfg.Commands.Enabled {
		d.RegisterProvider(&providers.Commands{})
	}
	if cfg.Directory.Enabled {
		d.RegisterProvider(&providers.Directory{ShowHidden: cfg.Directory.ShowHidden})
	}
	if cfg.History.Enabled {
		path := cfg.History.Path
		if path == "" {
			path = core.HistoryFile()
		}
		store, err := history.Open(path, logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open history")
		}
		e.History = store
		d.RegisterProvider(&providers.History{Store: store, Limit: cfg.History.Limit})
	}

	logger.Debug("engine ready",
		zap.Int("triggers", len(cfg.Triggers)),
		zap.Int("providers", len(d.Providers())),
	)
	return e, nil
}

// Document creates a buffer whose scope is detected with the configured
// languages.
func (e *Engine) Document(path, text string, selections ...int) *document.Buffer {
	return document.New(document.Options{
		ID:         completion.DocumentID(path),
		Path:       path,
		Text:       text,
		Selections: selections,
		Languages:  e.languages,
	})
}

// Languages returns the configured extension to scope mapping.
func (e *Engine) Languages() map[string]string {
	return e.languages
}

// Close releases the history store.
func (e *Engine) Close() error {
	if e.History == nil {
		return nil
	}
	return e.History.Close()
}
