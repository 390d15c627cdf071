package main

import (
	"github.com/atinylittleshell/dyncomplete/internal/lspserver"
	"github.com/spf13/cobra"
)

func (a *app) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve completions to an editor over LSP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine()
			if err != nil {
				return err
			}
			defer e.Close()

			h := lspserver.New(lspserver.Options{
				Dispatcher: e.Dispatcher,
				Languages:  e.Languages(),
				Logger:     a.logger,
				Version:    BUILD_VERSION,
			})
			return h.RunStdio()
		},
	}
}
