package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"palette/internal/batch"
	"palette/internal/preflight"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Re-apply tags on the server from cached results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			client, err := ctx.remoteClient()
			if err != nil {
				return err
			}
			translator, err := ctx.translator()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := printPreflight(out, preflight.RunAll(cmd.Context(), cfg, preflight.Targets{Remote: client})); err != nil {
				return err
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx, stop := signalContext(cmd)
			defer stop()

			proc := batch.NewProcessor(store, nil, batch.WithRemote(client, translator), batch.WithLogger(logger))
			summary, err := proc.SyncFromStore(runCtx)
			fmt.Fprintln(out, renderMetrics([]metric{
				{"Records", summary.Records},
				{"No tags earned", summary.Skipped},
				{"Not on server", summary.NotOnServer},
				{"Errors", summary.Errors},
				{"Tagged assets", len(summary.TaggedAssets)},
			}))
			return err
		},
	}
}
