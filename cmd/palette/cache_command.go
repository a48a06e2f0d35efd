package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"palette/internal/batch"
	"palette/internal/classify"
	"palette/internal/config"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the classification cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCacheExportCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cached result counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache: %s\n", store.Path())
			rows := [][]string{
				{"Records", strconv.FormatInt(stats.Total, 10)},
				{"Positive", strconv.FormatInt(stats.Positive, 10)},
				{"Images", strconv.FormatInt(stats.Images, 10)},
				{"Videos", strconv.FormatInt(stats.Videos, 10)},
				{"Errors", strconv.FormatInt(stats.Errors, 10)},
				{"Tagged", strconv.FormatInt(stats.Tagged, 10)},
				{"Moved", strconv.FormatInt(stats.Moved, 10)},
			}
			fmt.Fprintln(out, renderTable([]string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var assumeYes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached result",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !assumeYes && !confirm(cmd.InOrStdin(), out, "Delete every cached classification?") {
				fmt.Fprintln(out, "Aborted")
				return nil
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d cached results\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newCacheExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <csv-path>",
		Short: "Write every cached result to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve csv path: %w", err)
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.All(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([]classify.Row, 0, len(records))
			for _, rec := range records {
				rows = append(rows, rec.Result().Flat(rec.Path))
			}
			if err := batch.WriteResultsCSV(target, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d results to %s\n", len(rows), target)
			return nil
		},
	}
}
