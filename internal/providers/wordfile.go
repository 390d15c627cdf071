package providers

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/atinylittleshell/dyncomplete/internal/loader"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// WordFile serves words read from files. A .yaml or .yml file maps category
// names to word lists; any other file holds one word per line, served for
// every category. Relative paths resolve against the document's directory.
// Files are reloaded when their modification time advances.
//
// The keys of absolute .yaml files are read once at construction and join the
// served categories. Keys of relative .yaml files cannot be known before a
// document is opened, so they must be passed as categories.
type WordFile struct {
	Paths []string

	categories completion.CategorySet
}

// NewWordFile creates a WordFile serving categories plus the keys of its
// absolute .yaml files. Without categories it serves WordCategory.
func NewWordFile(paths []string, categories ...string) *WordFile {
	cats := completion.ParseCategories(categories...)
	if cats.Empty() {
		cats.Add(WordCategory)
	}
	for _, p := range paths {
		if !filepath.IsAbs(p) || !isCategorizedFile(p) {
			continue
		}
		// An unreadable file fails again at load time, where it is logged.
		lists, err := readWordLists(p)
		if err != nil {
			continue
		}
		for name := range lists {
			cats.Add(completion.Category(name))
		}
	}
	return &WordFile{Paths: paths, categories: cats}
}

func (w *WordFile) Name() string                       { return "word-file" }
func (w *WordFile) Variant() loader.Variant            { return loader.File }
func (w *WordFile) Categories() completion.CategorySet { return w.categories }
func (w *WordFile) Async() bool                        { return false }

// Targets returns the configured files that exist for doc.
func (w *WordFile) Targets(doc completion.Document) ([]string, error) {
	dir := documentDir(doc)
	var out []string
	for _, p := range w.Paths {
		if !filepath.IsAbs(p) {
			if dir == "" {
				continue
			}
			p = filepath.Join(dir, p)
		}
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (w *WordFile) Load(_ context.Context, req loader.LoadRequest) (loader.Results, error) {
	if isCategorizedFile(req.Target) {
		return loadCategorizedWords(req.Target)
	}

	lines, err := loader.ReadLines(req.Target)
	if err != nil {
		return loader.Results{}, err
	}
	words := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return loader.Flat(completion.Items(words...)...), nil
}

func isCategorizedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func readWordLists(path string) (map[string][]string, error) {
	data, err := loader.ReadString(path)
	if err != nil {
		return nil, err
	}

	var lists map[string][]string
	if err := yaml.Unmarshal([]byte(data), &lists); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return lists, nil
}

func loadCategorizedWords(path string) (loader.Results, error) {
	lists, err := readWordLists(path)
	if err != nil {
		return loader.Results{}, err
	}

	items := make(map[completion.Category][]completion.Item, len(lists))
	for name, words := range lists {
		items[completion.Category(name)] = completion.Items(words...)
	}
	return loader.Categorized(items), nil
}
