package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"palette/internal/dedup"
	"palette/internal/preflight"
)

func newDedupCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun    bool
		assumeYes bool
	)

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Keep one copy of each server duplicate group and delete the rest",
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
			out := cmd.OutOrStdout()
			if err := printPreflight(out, preflight.RunAll(cmd.Context(), cfg, preflight.Targets{Remote: client})); err != nil {
				return err
			}

			proc := dedup.NewProcessor(client, dedup.ResolverFrom(cfg), logger)
			runCtx, stop := signalContext(cmd)
			defer stop()

			if !dryRun && !assumeYes {
				preview, err := proc.Execute(runCtx, true)
				if err != nil {
					return err
				}
				printDedupReport(out, preview)
				if len(preview.DeleteIDs) == 0 {
					return nil
				}
				prompt := fmt.Sprintf("Delete %d duplicate assets and empty the trash?", len(preview.DeleteIDs))
				if !confirm(cmd.InOrStdin(), out, prompt) {
					fmt.Fprintln(out, "Aborted")
					return nil
				}
			}

			report, err := proc.Execute(runCtx, dryRun)
			if err != nil {
				return err
			}
			printDedupReport(out, report)
			return errors.Join(report.DeleteErr, report.TrashErr)
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would be deleted without deleting")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func printDedupReport(out io.Writer, report dedup.Report) {
	if len(report.Decisions) == 0 {
		fmt.Fprintf(out, "No duplicates to resolve (%d groups listed)\n", report.Groups)
		return
	}
	rows := make([][]string, 0, len(report.Decisions))
	for _, d := range report.Decisions {
		rows = append(rows, []string{
			d.GroupID,
			d.Tier.String(),
			d.Survivor.OriginalPath,
			strconv.FormatInt(d.Survivor.SizeBytes, 10),
			strconv.Itoa(len(d.Delete)),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Group", "Tier", "Keeping", "Size", "Deleting"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))

	switch {
	case report.DryRun:
		fmt.Fprintf(out, "Dry run: %d assets would be deleted\n", len(report.DeleteIDs))
	case report.Deleted:
		fmt.Fprintf(out, "Deleted %d assets\n", len(report.DeleteIDs))
		if report.TrashEmptied {
			fmt.Fprintln(out, "Trash emptied")
		}
	}
}
