package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"palette/internal/config"
	"palette/internal/logging"
	"palette/internal/mover"
	"palette/internal/preflight"
)

const reportStampLayout = "20060102-150405"

func newMoveCommand(ctx *commandContext) *cobra.Command {
	var (
		tag            string
		dryRun         bool
		assumeYes      bool
		csvReport      string
		transactionLog string
	)

	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move tagged assets to the archive root and delete them from the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateMove(); err != nil {
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
			if tag == "" {
				tag = cfg.Move.Tag
			}
			dryRun = dryRun || cfg.Move.DryRun
			out := cmd.OutOrStdout()

			if err := printPreflight(out, preflight.RunAll(cmd.Context(), cfg, preflight.Targets{Remote: client, Move: true})); err != nil {
				return err
			}

			if !dryRun && !assumeYes && !cfg.Move.SkipConfirmation {
				prompt := fmt.Sprintf("Move every asset tagged %q into %s and delete it from the server?", tag, cfg.Move.DestinationRoot)
				if !confirm(cmd.InOrStdin(), out, prompt) {
					fmt.Fprintln(out, "Aborted")
					return nil
				}
			}

			m := mover.New(client, translator, cfg.Move.DestinationRoot,
				mover.WithDryRun(dryRun),
				mover.WithLogger(logger),
			)

			runCtx, stop := signalContext(cmd)
			defer stop()

			summary, runErr := m.ProcessTaggedAssets(runCtx, tag)
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}

			jsonPath, csvPath, err := moveReportPaths(cfg, m, transactionLog, csvReport)
			if err != nil {
				return err
			}
			if err := m.WriteTransactionLog(jsonPath); err != nil {
				return err
			}
			if err := m.WriteCSVReport(csvPath); err != nil {
				return err
			}

			if !dryRun {
				ctx.recordMoves(cmd.Context(), m.Transactions(), logger)
			}

			printMoveSummary(out, summary, m)
			fmt.Fprintf(out, "Transaction log: %s\n", jsonPath)
			fmt.Fprintf(out, "CSV report: %s\n", csvPath)
			return runErr
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "Tag selecting the assets to move (defaults to move.tag)")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report what would move without touching files or the server")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().StringVar(&csvReport, "csv-report", "", "CSV report path (defaults to the report directory)")
	cmd.Flags().StringVar(&transactionLog, "transaction-log", "", "JSON transaction log path (defaults to the report directory)")
	return cmd
}

func moveReportPaths(cfg *config.Config, m *mover.Mover, jsonFlag, csvFlag string) (string, string, error) {
	id := m.RunID()
	if len(id) > 8 {
		id = id[:8]
	}
	base := filepath.Join(cfg.Paths.ReportDir, fmt.Sprintf("move-%s-%s", time.Now().Format(reportStampLayout), id))
	jsonPath, csvPath := base+".json", base+".csv"
	var err error
	if jsonFlag != "" {
		if jsonPath, err = config.ExpandPath(jsonFlag); err != nil {
			return "", "", fmt.Errorf("resolve transaction log path: %w", err)
		}
	}
	if csvFlag != "" {
		if csvPath, err = config.ExpandPath(csvFlag); err != nil {
			return "", "", fmt.Errorf("resolve csv report path: %w", err)
		}
	}
	return jsonPath, csvPath, nil
}

// recordMoves points cached classifications at the files' new locations.
// Failures only cost a cache miss later, so they are logged and skipped.
func (c *commandContext) recordMoves(ctx context.Context, txs []mover.Transaction, logger *slog.Logger) {
	store, err := c.openStore()
	if err != nil {
		logger.Warn("result cache unavailable; moved files will be rehashed on next scan", logging.Error(err))
		return
	}
	defer store.Close()
	for _, tx := range txs {
		if !tx.MoveSucceeded {
			continue
		}
		if _, err := store.MarkMoved(ctx, tx.SourcePath, tx.DestPath); err != nil {
			logger.Warn("update cached path failed",
				logging.String(logging.FieldPath, tx.SourcePath),
				logging.Error(err),
			)
		}
	}
}

func printMoveSummary(out io.Writer, summary mover.Summary, m *mover.Mover) {
	if m.DryRun() {
		fmt.Fprintln(out, "Dry run: no files were moved and nothing was deleted")
	}
	fmt.Fprintln(out, renderMetrics([]metric{
		{"Assets", summary.Total},
		{"Moved", summary.Moved},
		{"Deleted", summary.Deleted},
		{"Failed", summary.Failed},
	}))

	var failed [][]string
	for _, tx := range m.Transactions() {
		if tx.State == mover.StateFailed {
			failed = append(failed, []string{tx.AssetID, tx.RemotePath, tx.ErrorKind, tx.Error})
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Asset", "Remote path", "Kind", "Error"}, failed, nil))
	}
}
