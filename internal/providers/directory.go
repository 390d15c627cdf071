package providers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/atinylittleshell/dyncomplete/internal/loader"
	"github.com/cockroachdb/errors"
)

// Directory serves the entries of the document's directory. Directories are
// labelled with a trailing slash. The cache goes stale when the directory's
// modification time advances past the last load.
type Directory struct {
	// ShowHidden includes dot files.
	ShowHidden bool
}

func (d *Directory) Name() string                       { return "directory" }
func (d *Directory) Variant() loader.Variant            { return loader.Path }
func (d *Directory) Categories() completion.CategorySet { return completion.NewCategorySet(FilePathCategory) }
func (d *Directory) Async() bool                        { return true }

// Targets returns the directory of doc, or nothing for unsaved documents.
func (d *Directory) Targets(doc completion.Document) ([]string, error) {
	return documentDirTargets(doc), nil
}

func (d *Directory) Stale(_ context.Context, dir string, loadedAt time.Time) (bool, error) {
	mtime, err := dirModTime(dir)
	if err != nil {
		return false, err
	}
	return mtime.After(loadedAt), nil
}

func (d *Directory) Load(_ context.Context, req loader.LoadRequest) (loader.Results, error) {
	entries, err := osReadDir(req.Target)
	if err != nil {
		return loader.Results{}, errors.Wrapf(err, "failed to read directory %s", req.Target)
	}

	items := make([]completion.Item, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !d.ShowHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if entry.IsDir() {
			name += string(filepath.Separator)
		}
		items = append(items, completion.NewItem(name))
	}
	return loader.Flat(items...), nil
}

// dirDocument is implemented by documents that know their directory, such as
// document.Buffer.
type dirDocument interface {
	Dir() string
}

// documentDir returns the directory of doc, or "" for unsaved documents.
func documentDir(doc completion.Document) string {
	if d, ok := doc.(dirDocument); ok {
		return d.Dir()
	}
	if doc.Path() == "" {
		return ""
	}
	return filepath.Dir(doc.Path())
}

func documentDirTargets(doc completion.Document) []string {
	dir := documentDir(doc)
	if dir == "" {
		return nil
	}
	return []string{dir}
}

func dirModTime(dir string) (time.Time, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to stat %s", dir)
	}
	return info.ModTime(), nil
}
