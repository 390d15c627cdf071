package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinylittleshell/dyncomplete/internal/completion"
	"github.com/atinylittleshell/dyncomplete/internal/dispatch"
	"github.com/atinylittleshell/dyncomplete/internal/document"
	"github.com/atinylittleshell/dyncomplete/internal/styles"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func (a *app) newCompleteCmd() *cobra.Command {
	var (
		offset     int
		prefix     string
		wait       bool
		fuzzyMatch bool
		showStats  bool
	)

	cmd := &cobra.Command{
		Use:   "complete FILE",
		Short: "Print the completions available at an offset in FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, text, err := readDocument(args[0])
			if err != nil {
				return err
			}
			offset = clampOffset(offset, text)
			if !cmd.Flags().Changed("prefix") {
				prefix = document.WordBefore(text, offset)
			}

			e, err := a.engine()
			if err != nil {
				return err
			}
			defer e.Close()

			doc := e.Document(path, text, offset)
			start := time.Now()
			res := e.Dispatcher.Aggregate(cmd.Context(), dispatch.Request{
				Doc:       doc,
				Prefix:    prefix,
				Positions: []int{offset},
				Wait:      wait,
			})
			elapsed := time.Since(start)

			matches := filterItems(res.Items, prefix, fuzzyMatch)
			out := newPrinter(cmd.OutOrStdout())
			for _, m := range matches {
				out.item(m)
			}
			if res.Pending > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), styles.PENDING(
					fmt.Sprintf("%d loader(s) still loading, try again or pass --wait", res.Pending)))
			}

			a.logger.Debug("complete",
				zap.String("path", path),
				zap.Int("offset", offset),
				zap.String("prefix", prefix),
				zap.Int("candidates", len(res.Items)),
				zap.Int("matches", len(matches)),
			)

			if showStats {
				stats := e.Dispatcher.Stats()
				w := cmd.ErrOrStderr()
				fmt.Fprintln(w, styles.LOG(fmt.Sprintf("%s of %s candidates in %s, document %s",
					humanize.Comma(int64(len(matches))),
					humanize.Comma(int64(len(res.Items))),
					elapsed.Round(time.Microsecond),
					humanize.Bytes(uint64(len(text))),
				)))
				fmt.Fprintln(w, styles.LOG(fmt.Sprintf("loaders queried: %s, placeholders: %s, pooled rounds: %s, workers spawned: %s, flags: %d",
					humanize.Comma(stats.LoadersQueried),
					humanize.Comma(stats.Placeholders),
					humanize.Comma(stats.PooledRounds),
					humanize.Comma(stats.WorkersSpawned),
					res.Flags,
				)))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&offset, "offset", "o", -1, "byte offset of the cursor (default is the end of the file)")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "prefix to match (default is the word before the cursor)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait for asynchronous loaders instead of skipping them")
	cmd.Flags().BoolVarP(&fuzzyMatch, "fuzzy", "f", false, "match the prefix fuzzily instead of literally")
	cmd.Flags().BoolVar(&showStats, "stats", false, "print dispatcher statistics to stderr")
	return cmd
}

func (a *app) newCategoriesCmd() *cobra.Command {
	var offset int

	cmd := &cobra.Command{
		Use:   "categories FILE",
		Short: "Print the categories requested at an offset in FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, text, err := readDocument(args[0])
			if err != nil {
				return err
			}
			offset = clampOffset(offset, text)

			e, err := a.engine()
			if err != nil {
				return err
			}
			defer e.Close()

			doc := e.Document(path, text, offset)
			categories := e.Dispatcher.Categories(doc, document.WordBefore(text, offset), []int{offset})
			for _, c := range categories.Strings() {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&offset, "offset", "o", -1, "byte offset of the cursor (default is the end of the file)")
	return cmd
}

func readDocument(name string) (string, string, error) {
	path, err := filepath.Abs(name)
	if err != nil {
		return "", "", errors.Wrapf(err, "failed to resolve %s", name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", errors.Wrapf(err, "failed to read %s", name)
	}
	return path, string(data), nil
}

func clampOffset(offset int, text string) int {
	if offset < 0 || offset > len(text) {
		return len(text)
	}
	return offset
}

type match struct {
	item    completion.Item
	indexes []int
}

// filterItems keeps the items matching prefix. Literal matching keeps the
// merged order; fuzzy matching orders by match score.
func filterItems(items []completion.Item, prefix string, fuzzyMatch bool) []match {
	if prefix == "" {
		out := make([]match, 0, len(items))
		for _, it := range items {
			out = append(out, match{item: it})
		}
		return out
	}

	if fuzzyMatch {
		found := fuzzy.Find(prefix, completion.Labels(items))
		out := make([]match, 0, len(found))
		for _, f := range found {
			out = append(out, match{item: items[f.Index], indexes: f.MatchedIndexes})
		}
		return out
	}

	var indexes []int
	for i := range prefix {
		indexes = append(indexes, i)
	}
	var out []match
	for _, it := range items {
		if strings.HasPrefix(it.Label, prefix) {
			out = append(out, match{item: it, indexes: indexes})
		}
	}
	return out
}

type printer struct {
	w      io.Writer
	styled bool
}

func newPrinter(w io.Writer) *printer {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &printer{w: w, styled: styled}
}

func (p *printer) item(m match) {
	label := m.item.Label
	if p.styled {
		label = styles.Highlight(label, m.indexes)
	}
	if m.item.Insert != m.item.Label {
		fmt.Fprintf(p.w, "%s\t%s\n", label, m.item.Insert)
		return
	}
	fmt.Fprintln(p.w, label)
}
