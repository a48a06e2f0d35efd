package batch

import (
	"context"
	"fmt"

	"palette/internal/classify"
	"palette/internal/logging"
	"palette/internal/services"
)

// SyncSummary reports a cache-to-server tag sync.
type SyncSummary struct {
	Records      int
	Skipped      int
	NotOnServer  int
	Errors       int
	TaggedAssets []string
}

// SyncFromStore reapplies tags from cached records without reclassifying.
// Only the newest record for each path is considered. Stored remote asset ids
// are reused; other records are looked up by path.
func (p *Processor) SyncFromStore(ctx context.Context) (SyncSummary, error) {
	var summary SyncSummary
	if p.remote == nil {
		return summary, services.Wrap(services.ErrConfiguration, "batch", "sync", "remote server is not configured", nil)
	}
	records, err := p.store.All(ctx)
	if err != nil {
		return summary, fmt.Errorf("load cached results: %w", err)
	}

	seen := make(map[string]struct{}, len(records))
	groups := make(map[string][]tagTarget)
	for _, rec := range records {
		if _, dup := seen[rec.Path]; dup {
			continue
		}
		seen[rec.Path] = struct{}{}
		summary.Records++

		if err := ctx.Err(); err != nil {
			return summary, err
		}

		tags := classify.Tags(rec.Result())
		if len(tags) == 0 {
			summary.Skipped++
			continue
		}
		assetID := rec.RemoteAssetID
		if assetID == "" {
			id, ok, err := p.resolveAsset(ctx, rec.Path)
			if err != nil {
				summary.Errors++
				p.logger.Warn("asset lookup failed", logging.String(logging.FieldPath, rec.Path), logging.Error(err))
				continue
			}
			if !ok {
				summary.NotOnServer++
				continue
			}
			assetID = id
		}
		for _, tag := range tags {
			groups[tag] = append(groups[tag], tagTarget{path: rec.Path, assetID: assetID})
		}
	}

	tagged, failures := p.applyTags(ctx, groups)
	summary.TaggedAssets = tagged
	summary.Errors += failures
	p.logger.Info("sync complete",
		logging.Int("records", summary.Records),
		logging.Int("tagged", len(tagged)),
		logging.Int("skipped", summary.Skipped),
		logging.Int("not_on_server", summary.NotOnServer),
		logging.Int("errors", summary.Errors),
	)
	return summary, nil
}
