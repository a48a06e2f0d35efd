package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"palette/internal/classify"
	"palette/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories, mappings, and service connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			targets := preflight.Targets{
				Classifier: classify.NewHTTPClient(classify.ConfigFrom(cfg)),
				Move:       cfg.Move.DestinationRoot != "",
			}
			if err := cfg.ValidateRemote(); err != nil {
				fmt.Fprintln(out, renderStatusLine("Immich", statusWarn, "not configured", shouldColorize(out)))
			} else {
				client, err := ctx.remoteClient()
				if err != nil {
					return err
				}
				targets.Remote = client
			}
			if err := printPreflight(out, preflight.RunAll(cmd.Context(), cfg, targets)); err != nil {
				return err
			}
			fmt.Fprintln(out, "All required checks passed")
			return nil
		},
	}
}
