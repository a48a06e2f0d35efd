package immich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"palette/internal/logging"
	"palette/internal/services"
)

// CreateOrGetTag returns the id of the tag called name, creating it when the
// server has none. Ids are cached for the life of the client.
func (c *Client) CreateOrGetTag(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", services.Wrap(services.ErrConfiguration, "immich", "tag", "tag name is empty", nil)
	}

	c.mu.Lock()
	id, ok := c.tags[name]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	id, found, err := c.findTag(ctx, name)
	if err != nil {
		return "", err
	}
	if !found {
		id, err = c.createTag(ctx, name)
		if err != nil {
			return "", err
		}
		c.logger.Info("created tag", logging.String("tag", name), logging.String("tag_id", id))
	}

	c.mu.Lock()
	c.tags[name] = id
	c.mu.Unlock()
	return id, nil
}

func (c *Client) findTag(ctx context.Context, name string) (string, bool, error) {
	seen := make(map[string]struct{})
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page", fmt.Sprint(page))
		query.Set("size", fmt.Sprint(c.pageSize))
		data, err := c.do(ctx, http.MethodGet, "/api/tags?"+query.Encode(), nil)
		if err != nil {
			return "", false, err
		}
		tags, err := decodeItems[Tag]("list tags", data, listShapes)
		if err != nil {
			return "", false, err
		}
		fresh := 0
		for _, tag := range tags {
			if tag.Name == name {
				return tag.ID, true, nil
			}
			if _, dup := seen[tag.ID]; !dup {
				seen[tag.ID] = struct{}{}
				fresh++
			}
		}
		// Servers that ignore paging return the same list every time.
		if len(tags) < c.pageSize || fresh == 0 {
			return "", false, nil
		}
	}
}

func (c *Client) createTag(ctx context.Context, name string) (string, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/tags", map[string]string{"name": name})
	if err != nil {
		return "", err
	}
	var tag Tag
	if err := json.Unmarshal(data, &tag); err != nil || tag.ID == "" {
		return "", services.Wrap(services.ErrCorrupt, "immich", "create tag", name, err)
	}
	return tag.ID, nil
}

// AddTagToAssets attaches tagID to every asset in ids in one call.
func (c *Client) AddTagToAssets(ctx context.Context, ids []string, tagID string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.do(ctx, http.MethodPut, "/api/tags/"+url.PathEscape(tagID)+"/assets", map[string]any{"ids": ids})
	return err
}
