package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simon020286/go-stageflow/history"
	"github.com/simon020286/go-stageflow/internal/ui"
)

func historyCmd(a *app) *cobra.Command {
	var (
		limit int
		purge bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := history.Open(a.settings.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if purge {
				n, err := store.Purge(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, ui.SuccessMsg("Removed %d runs", n))
				return nil
			}

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, ui.InfoMsg("No runs recorded in %s", a.settings.History.Path))
				return nil
			}
			fmt.Fprintln(out, ui.HistoryTable(runs))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", history.DefaultLimit, "Number of runs to show")
	cmd.Flags().BoolVar(&purge, "purge", false, "Delete every recorded run")

	return cmd
}
