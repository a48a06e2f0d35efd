package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"palette/internal/classify"
	"palette/internal/logging"
)

type tagTarget struct {
	path    string
	assetID string
}

// tagItems groups items by earned tag and applies each tag in one call. It
// returns "file -> tag" lines for reporting and the number of failed remote
// calls.
func (p *Processor) tagItems(ctx context.Context, items []Item) ([]string, int) {
	groups := make(map[string][]tagTarget)
	failures := 0
	for _, item := range items {
		tags := classify.Tags(item.Result)
		if len(tags) == 0 {
			continue
		}
		assetID, ok, err := p.resolveAsset(ctx, item.Path)
		if err != nil {
			failures++
			p.logger.Warn("asset lookup failed", logging.String(logging.FieldPath, item.Path), logging.Error(err))
			continue
		}
		if !ok {
			p.logger.Debug("asset not on server", logging.String(logging.FieldPath, item.Path))
			continue
		}
		for _, tag := range tags {
			groups[tag] = append(groups[tag], tagTarget{path: item.Path, assetID: assetID})
		}
	}
	tagged, applyFailures := p.applyTags(ctx, groups)
	return tagged, failures + applyFailures
}

func (p *Processor) resolveAsset(ctx context.Context, localPath string) (string, bool, error) {
	remotePath := localPath
	if p.translator != nil {
		remotePath = p.translator.ToRemote(localPath)
	}
	return p.remote.FindAssetByPath(ctx, remotePath)
}

// applyTags sends one tag call per tag name, in name order, and records the
// linkage in the store for every asset of a successful call.
func (p *Processor) applyTags(ctx context.Context, groups map[string][]tagTarget) ([]string, int) {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	slices.Sort(names)

	var tagged []string
	failures := 0
	for _, name := range names {
		targets := groups[name]
		tagID, err := p.remote.CreateOrGetTag(ctx, name)
		if err != nil {
			failures++
			p.logger.Warn("tag lookup failed", logging.String("tag", name), logging.Error(err))
			continue
		}
		ids := make([]string, 0, len(targets))
		seen := make(map[string]struct{}, len(targets))
		for _, t := range targets {
			if _, dup := seen[t.assetID]; dup {
				continue
			}
			seen[t.assetID] = struct{}{}
			ids = append(ids, t.assetID)
		}
		if err := p.remote.AddTagToAssets(ctx, ids, tagID); err != nil {
			failures++
			p.logger.Warn("tagging failed", logging.String("tag", name), logging.Int("assets", len(ids)), logging.Error(err))
			continue
		}
		for _, t := range targets {
			if err := p.store.UpdateRemote(ctx, t.path, tagID, t.assetID); err != nil {
				p.logger.Warn("record remote linkage failed", logging.String(logging.FieldPath, t.path), logging.Error(err))
			}
			tagged = append(tagged, fmt.Sprintf("%s -> %s", filepath.Base(t.path), name))
		}
		p.logger.Info("applied tag", logging.String("tag", name), logging.Int("assets", len(ids)))
	}
	return tagged, failures
}
