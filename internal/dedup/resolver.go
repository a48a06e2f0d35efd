package dedup

import (
	"strings"

	"palette/internal/config"
	"palette/internal/immich"
)

// Tier ranks where a duplicate lives. Lower values win.
type Tier int

const (
	TierPrimary Tier = iota
	TierInternal
	TierExternal
)

func (t Tier) String() string {
	switch t {
	case TierPrimary:
		return "library"
	case TierInternal:
		return "internal"
	default:
		return "external"
	}
}

// Resolver holds the prefixes that define the tiers. An empty prefix matches
// nothing.
type Resolver struct {
	LibraryPrefix  string
	InternalPrefix string
}

// ResolverFrom reads tier prefixes from the [dedup] config section.
func ResolverFrom(cfg *config.Config) Resolver {
	if cfg == nil {
		return Resolver{}
	}
	return Resolver{
		LibraryPrefix:  cfg.Dedup.LibraryPrefix,
		InternalPrefix: cfg.Dedup.InternalPrefix,
	}
}

// Classify places path in a tier by plain string prefix.
func (r Resolver) Classify(path string) Tier {
	switch {
	case r.LibraryPrefix != "" && strings.HasPrefix(path, r.LibraryPrefix):
		return TierPrimary
	case r.InternalPrefix != "" && strings.HasPrefix(path, r.InternalPrefix):
		return TierInternal
	default:
		return TierExternal
	}
}

// Decision is the outcome for one group.
type Decision struct {
	GroupID  string
	Tier     Tier
	Survivor immich.Asset
	Delete   []immich.Asset
}

// Resolve decides every group with at least two members. Within the winning
// tier the largest reported size survives; equal sizes go to the smallest
// asset id so the result does not depend on server ordering.
func (r Resolver) Resolve(groups []immich.DuplicateGroup) []Decision {
	decisions := make([]Decision, 0, len(groups))
	for _, group := range groups {
		if len(group.Assets) < 2 {
			continue
		}

		best := TierExternal
		for _, asset := range group.Assets {
			if tier := r.Classify(asset.OriginalPath); tier < best {
				best = tier
			}
		}

		survivor := -1
		for i, asset := range group.Assets {
			if r.Classify(asset.OriginalPath) != best {
				continue
			}
			if survivor < 0 || outranks(asset, group.Assets[survivor]) {
				survivor = i
			}
		}

		decision := Decision{GroupID: group.ID, Tier: best, Survivor: group.Assets[survivor]}
		for i, asset := range group.Assets {
			if i != survivor {
				decision.Delete = append(decision.Delete, asset)
			}
		}
		decisions = append(decisions, decision)
	}
	return decisions
}

func outranks(a, b immich.Asset) bool {
	if a.SizeBytes != b.SizeBytes {
		return a.SizeBytes > b.SizeBytes
	}
	return a.ID < b.ID
}

// DeleteIDs flattens the delete candidates of every decision.
func DeleteIDs(decisions []Decision) []string {
	var ids []string
	for _, d := range decisions {
		for _, asset := range d.Delete {
			ids = append(ids, asset.ID)
		}
	}
	return ids
}
