package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"palette/internal/batch"
	"palette/internal/classify"
	"palette/internal/config"
	"palette/internal/preflight"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var (
		opts          batch.Options
		noTag         bool
		csvPath       string
		skipPreflight bool
	)

	cmd := &cobra.Command{
		Use:   "classify <path>",
		Short: "Classify media under a folder and tag matches on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			root, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			out := cmd.OutOrStdout()

			classifier := classify.NewHTTPClient(classify.ConfigFrom(cfg))
			targets := preflight.Targets{Classifier: classifier}
			procOpts := []batch.Option{batch.WithLogger(logger)}

			if !noTag {
				if cfg.ValidateRemote() != nil {
					fmt.Fprintln(out, "Immich is not configured; results will be cached but not tagged")
				} else {
					client, err := ctx.remoteClient()
					if err != nil {
						return err
					}
					translator, err := ctx.translator()
					if err != nil {
						return err
					}
					targets.Remote = client
					procOpts = append(procOpts, batch.WithRemote(client, translator))
				}
			}

			if !skipPreflight {
				if err := printPreflight(out, preflight.RunAll(cmd.Context(), cfg, targets)); err != nil {
					return err
				}
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx, stop := signalContext(cmd)
			defer stop()

			proc := batch.NewProcessor(store, classifier, procOpts...)
			summary, runErr := proc.ProcessFolder(runCtx, root, opts)
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}

			printClassifySummary(out, summary, targets.Remote != nil)
			if csvPath != "" {
				target, err := config.ExpandPath(csvPath)
				if err != nil {
					return fmt.Errorf("resolve csv path: %w", err)
				}
				if err := batch.WriteResultsCSV(target, summary.Rows()); err != nil {
					return err
				}
				fmt.Fprintf(out, "Results written to %s\n", target)
			}
			if summary.Interrupted {
				fmt.Fprintf(out, "Interrupted after %d of %d files; rerun to continue\n", summary.Classified+summary.Cached, summary.Files)
			}
			return runErr
		},
	}

	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Reclassify every file, ignoring cached results")
	cmd.Flags().BoolVar(&opts.Quick, "quick", false, "Trust cached results by path without rehashing")
	cmd.Flags().BoolVar(&opts.RetryErrors, "retry-errors", false, "Reclassify files whose cached result is an error")
	cmd.Flags().BoolVar(&noTag, "no-tag", false, "Skip tagging on the server")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write per-file results to this CSV file")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip connectivity checks before starting")
	return cmd
}

func printClassifySummary(out io.Writer, summary batch.Summary, tagging bool) {
	metrics := []metric{
		{"Files", summary.Files},
		{"Classified", summary.Classified},
		{"Cached", summary.Cached},
		{"Images", summary.Images},
		{"Videos", summary.Videos},
		{"Positive", summary.Positive},
		{"Errors", summary.Errors},
		{"Skipped", summary.Skipped},
	}
	if tagging {
		metrics = append(metrics,
			metric{"Tagged assets", len(summary.TaggedAssets)},
			metric{"Tag errors", summary.TagErrors},
		)
	}
	fmt.Fprintln(out, renderMetrics(metrics))

	var failed [][]string
	for _, item := range summary.Items {
		if item.Result.Kind == classify.KindError {
			failed = append(failed, []string{item.Path, item.Result.Error})
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(out, "Failed files:")
		fmt.Fprintln(out, renderTable([]string{"Path", "Error"}, failed, nil))
	}
}
