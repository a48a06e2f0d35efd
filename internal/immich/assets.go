package immich

import (
	"context"
	"fmt"
	"net/http"

	"palette/internal/logging"
)

type searchRequest struct {
	TagIDs       []string `json:"tagIds,omitempty"`
	OriginalPath string   `json:"originalPath,omitempty"`
	Page         int      `json:"page,omitempty"`
	Size         int      `json:"size,omitempty"`
	WithExif     bool     `json:"withExif,omitempty"`
}

// ListAssetsByTag returns every asset carrying tagID, following pagination
// until a short page.
func (c *Client) ListAssetsByTag(ctx context.Context, tagID string) ([]Asset, error) {
	var assets []Asset
	for page := 1; ; page++ {
		data, err := c.do(ctx, http.MethodPost, "/api/search/metadata", searchRequest{
			TagIDs:   []string{tagID},
			Page:     page,
			Size:     c.pageSize,
			WithExif: true,
		})
		if err != nil {
			return assets, err
		}
		items, err := decodeItems[assetJSON]("list assets by tag", data, searchShapes)
		if err != nil {
			return assets, err
		}
		for _, item := range items {
			assets = append(assets, item.asset())
		}
		if len(items) < c.pageSize {
			break
		}
	}
	c.logger.Debug("listed tagged assets",
		logging.String("tag_id", tagID),
		logging.Int("count", len(assets)),
	)
	return assets, nil
}

// FindAssetByPath looks up the asset whose originalPath equals remotePath
// exactly. The bool is false when the server has no such asset.
func (c *Client) FindAssetByPath(ctx context.Context, remotePath string) (string, bool, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/search/metadata", searchRequest{OriginalPath: remotePath})
	if err != nil {
		return "", false, err
	}
	items, err := decodeItems[assetJSON]("find asset by path", data, searchShapes)
	if err != nil {
		return "", false, err
	}
	for _, item := range items {
		if item.OriginalPath == remotePath {
			return item.ID, true, nil
		}
	}
	return "", false, nil
}

// DeleteAssets moves ids to the server trash.
func (c *Client) DeleteAssets(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.do(ctx, http.MethodDelete, "/api/assets", map[string]any{
		"ids":   ids,
		"force": false,
	})
	if err != nil {
		return err
	}
	c.logger.Info("deleted assets", logging.Int("count", len(ids)))
	return nil
}

// EmptyTrash permanently removes trashed assets.
func (c *Client) EmptyTrash(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodPost, "/api/trash/empty", nil); err != nil {
		return fmt.Errorf("empty trash: %w", err)
	}
	return nil
}

// ListDuplicateGroups returns the server's duplicate groups.
func (c *Client) ListDuplicateGroups(ctx context.Context) ([]DuplicateGroup, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/duplicates", nil)
	if err != nil {
		return nil, err
	}
	type groupJSON struct {
		DuplicateID string      `json:"duplicateId"`
		ID          string      `json:"id"`
		Assets      []assetJSON `json:"assets"`
	}
	raw, err := decodeItems[groupJSON]("list duplicates", data, duplicateShapes)
	if err != nil {
		return nil, err
	}
	groups := make([]DuplicateGroup, 0, len(raw))
	for _, g := range raw {
		group := DuplicateGroup{ID: g.DuplicateID}
		if group.ID == "" {
			group.ID = g.ID
		}
		for _, a := range g.Assets {
			group.Assets = append(group.Assets, a.asset())
		}
		groups = append(groups, group)
	}
	return groups, nil
}
