package dedup

import (
	"context"
	"fmt"
	"log/slog"

	"palette/internal/immich"
	"palette/internal/logging"
)

// Remote is the slice of the asset-server client the processor needs.
type Remote interface {
	ListDuplicateGroups(ctx context.Context) ([]immich.DuplicateGroup, error)
	DeleteAssets(ctx context.Context, ids []string) error
	EmptyTrash(ctx context.Context) error
}

// Processor fetches, resolves and deletes duplicates.
type Processor struct {
	remote   Remote
	resolver Resolver
	logger   *slog.Logger
}

// NewProcessor wires a processor. A nil logger discards output.
func NewProcessor(remote Remote, resolver Resolver, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Processor{
		remote:   remote,
		resolver: resolver,
		logger:   logging.NewComponentLogger(logger, "dedup"),
	}
}

// Report summarizes one run. DeleteErr and TrashErr carry remote failures;
// they are reported once and never retried.
type Report struct {
	DryRun       bool
	Groups       int
	Decisions    []Decision
	DeleteIDs    []string
	Deleted      bool
	TrashEmptied bool
	DeleteErr    error
	TrashErr     error
}

// Execute lists duplicate groups, resolves them and, unless dryRun, deletes
// the losers and then empties the trash. Only a failure to list groups is
// returned as an error.
func (p *Processor) Execute(ctx context.Context, dryRun bool) (Report, error) {
	report := Report{DryRun: dryRun}

	groups, err := p.remote.ListDuplicateGroups(ctx)
	if err != nil {
		return report, fmt.Errorf("list duplicate groups: %w", err)
	}
	report.Groups = len(groups)
	report.Decisions = p.resolver.Resolve(groups)
	report.DeleteIDs = DeleteIDs(report.Decisions)

	p.logger.Info("resolved duplicate groups",
		logging.Int("groups", report.Groups),
		logging.Int("decisions", len(report.Decisions)),
		logging.Int("to_delete", len(report.DeleteIDs)),
		logging.Bool("dry_run", dryRun),
	)
	for _, d := range report.Decisions {
		p.logger.Debug("duplicate survivor",
			logging.String("group_id", d.GroupID),
			logging.String("survivor", d.Survivor.ID),
			logging.String("tier", d.Tier.String()),
			logging.Int("deleting", len(d.Delete)),
		)
	}

	if dryRun || len(report.DeleteIDs) == 0 {
		return report, nil
	}

	if err := p.remote.DeleteAssets(ctx, report.DeleteIDs); err != nil {
		report.DeleteErr = err
		p.logger.Warn("duplicate delete failed", logging.Error(err))
		return report, nil
	}
	report.Deleted = true

	if err := p.remote.EmptyTrash(ctx); err != nil {
		report.TrashErr = err
		p.logger.Warn("empty trash failed", logging.Error(err))
		return report, nil
	}
	report.TrashEmptied = true
	return report, nil
}
