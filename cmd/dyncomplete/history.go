package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/atinylittleshell/dyncomplete/internal/core"
	"github.com/atinylittleshell/dyncomplete/internal/history"
	"github.com/atinylittleshell/dyncomplete/internal/providers"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) openHistory() (*history.Store, error) {
	path := a.cfg.History.Path
	if path == "" {
		path = core.HistoryFile()
	}
	return history.Open(path, a.logger)
}

func (a *app) newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the words offered by the history provider",
	}
	cmd.AddCommand(
		a.newRecordCmd(),
		a.newHistoryListCmd(),
		a.newHistoryDeleteCmd(),
		a.newHistoryResetCmd(),
	)
	return cmd
}

func (a *app) newRecordCmd() *cobra.Command {
	var (
		dir      string
		category string
	)

	cmd := &cobra.Command{
		Use:   "record WORD...",
		Short: "Record accepted words so the history provider offers them again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return errors.Wrapf(err, "failed to resolve %s", dir)
			}

			store, err := a.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			return store.Record(cmd.Context(), abs, category, args...)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory the words belong to (default is the working directory)")
	cmd.Flags().StringVarP(&category, "category", "c", string(providers.HistoryCategory), "category to record the words under")

	return cmd
}

func (a *app) newHistoryListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recently recorded words",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\t%s\n",
					e.ID, humanize.Time(e.CreatedAt), e.Category, e.Directory, e.Word)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func (a *app) newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one recorded entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid entry id %q", args[0])
			}

			store, err := a.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			return store.DeleteEntry(cmd.Context(), uint(id))
		},
	}
}

func (a *app) newHistoryResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every recorded entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			return store.Reset(cmd.Context())
		},
	}
}
