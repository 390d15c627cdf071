// Package lspserver exposes the completion engine as a language server.
package lspserver

import (
	"context"
	"net/url"
	"sync"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/atinylittleshell/dyncomplete/internal/dispatch"
	"github.com/atinylittleshell/dyncomplete/internal/document"
	"github.com/cockroachdb/errors"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"
	"go.uber.org/zap"
)

const serverName = "dyncomplete"

type Options struct {
	Dispatcher *dispatch.Dispatcher
	Languages  map[string]string
	Logger     *zap.Logger
	Version    string
}

// Handler implements the LSP methods the engine serves: document sync and
// completion.
type Handler struct {
	dispatcher *dispatch.Dispatcher
	languages  map[string]string
	logger     *zap.Logger
	version    string

	mu        sync.RWMutex
	documents map[protocol.DocumentUri]*document.Buffer
}

// New creates a Handler.
func New(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Handler{
		dispatcher: opts.Dispatcher,
		languages:  opts.Languages,
		logger:     opts.Logger,
		version:    opts.Version,
		documents:  make(map[protocol.DocumentUri]*document.Buffer),
	}
}

// Protocol returns the glsp method table.
func (h *Handler) Protocol() *protocol.Handler {
	return &protocol.Handler{
		Initialize:             h.Initialize,
		Initialized:            h.Initialized,
		Shutdown:               h.Shutdown,
		TextDocumentDidOpen:    h.TextDocumentDidOpen,
		TextDocumentDidChange:  h.TextDocumentDidChange,
		TextDocumentDidClose:   h.TextDocumentDidClose,
		TextDocumentCompletion: h.TextDocumentCompletion,
	}
}

// RunStdio serves LSP over stdin and stdout until the client disconnects.
func (h *Handler) RunStdio() error {
	server := glspserver.NewServer(h.Protocol(), serverName, false)
	h.logger.Info("serving LSP over stdio")
	return server.RunStdio()
}

func (h *Handler) Initialize(_ *glsp.Context, params *protocol.InitializeParams) (any, error) {
	if params.ClientInfo != nil {
		h.logger.Info("LSP client initializing", zap.String("client", params.ClientInfo.Name))
	}

	syncKind := protocol.TextDocumentSyncKindIncremental
	openClose := true
	return protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			CompletionProvider: &protocol.CompletionOptions{},
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: &openClose,
				Change:    &syncKind,
			},
		},
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &h.version,
		},
	}, nil
}

func (h *Handler) Initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	h.logger.Info("LSP client initialized")
	return nil
}

func (h *Handler) Shutdown(_ *glsp.Context) error {
	h.logger.Info("LSP client shutting down")
	return nil
}

func (h *Handler) TextDocumentDidOpen(_ *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	buf := document.New(document.Options{
		ID:        completion.DocumentID(uri),
		Path:      uriPath(uri),
		Text:      params.TextDocument.Text,
		Languages: h.languages,
	})

	h.mu.Lock()
	h.documents[uri] = buf
	h.mu.Unlock()

	h.logger.Debug("document opened", zap.String("uri", string(uri)), zap.Int("length", len(params.TextDocument.Text)))
	return nil
}

func (h *Handler) TextDocumentDidChange(_ *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	buf, ok := h.document(uri)
	if !ok {
		return errors.Newf("document %s is not open", string(uri))
	}

	text := buf.Text()
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = c.Text
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				text = c.Text
				continue
			}
			start := offsetAt(text, c.Range.Start)
			end := offsetAt(text, c.Range.End)
			if end < start {
				start, end = end, start
			}
			text = text[:start] + c.Text + text[end:]
		}
	}
	buf.SetText(text)

	h.logger.Debug("document changed", zap.String("uri", string(uri)), zap.Int("changes", len(params.ContentChanges)))
	return nil
}

func (h *Handler) TextDocumentDidClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	h.mu.Lock()
	delete(h.documents, uri)
	h.mu.Unlock()

	h.dispatcher.Forget(completion.DocumentID(uri))
	h.logger.Debug("document closed", zap.String("uri", string(uri)))
	return nil
}

func (h *Handler) TextDocumentCompletion(_ *glsp.Context, params *protocol.CompletionParams) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic in completion handler", zap.Any("panic", r), zap.String("uri", string(params.TextDocument.URI)))
			result = protocol.CompletionList{Items: []protocol.CompletionItem{}}
			err = nil
		}
	}()

	buf, ok := h.document(params.TextDocument.URI)
	if !ok {
		return protocol.CompletionList{Items: []protocol.CompletionItem{}}, nil
	}

	text := buf.Text()
	offset := offsetAt(text, params.Position)
	buf.SetSelections(offset)
	prefix := document.WordBefore(text, offset)

	res := h.dispatcher.Aggregate(context.Background(), dispatch.Request{
		Doc:       buf,
		Prefix:    prefix,
		Positions: []int{offset},
	})

	items := make([]protocol.CompletionItem, 0, len(res.Items))
	for _, it := range res.Items {
		insert := it.Insert
		items = append(items, protocol.CompletionItem{
			Label:      it.Label,
			InsertText: &insert,
		})
	}

	h.logger.Debug("completion",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.String("prefix", prefix),
		zap.Int("items", len(items)),
		zap.Int("pending", res.Pending),
	)
	return protocol.CompletionList{
		IsIncomplete: res.Pending > 0,
		Items:        items,
	}, nil
}

func (h *Handler) document(uri protocol.DocumentUri) (*document.Buffer, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	buf, ok := h.documents[uri]
	return buf, ok
}

// uriPath returns the file path of a file:// URI, or "" for other schemes.
func uriPath(uri protocol.DocumentUri) string {
	u, err := url.Parse(string(uri))
	if err != nil || u.Scheme != "file" {
		return ""
	}
	return u.Path
}
