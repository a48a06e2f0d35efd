package results

import (
	"context"
	"fmt"
	"path/filepath"

	"palette/internal/services"
)

// Stats summarizes the cache contents.
type Stats struct {
	Total    int64
	Positive int64
	Images   int64
	Videos   int64
	Errors   int64
	Moved    int64
	Tagged   int64
}

// Stats returns record counts by category.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
        SELECT
            COUNT(*),
            COALESCE(SUM(CASE WHEN is_positive = 1 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN file_kind = 'image' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN file_kind = 'video' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN file_kind = 'error' OR error IS NOT NULL THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN moved_to IS NOT NULL THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN tagged = 1 THEN 1 ELSE 0 END), 0)
        FROM classification_results`,
	).Scan(&st.Total, &st.Positive, &st.Images, &st.Videos, &st.Errors, &st.Moved, &st.Tagged)
	if err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	return st, nil
}

// All returns every record, most recently classified first.
func (s *Store) All(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM classification_results ORDER BY classified_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear deletes every record and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM classification_results`)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return res.RowsAffected()
}

// UpdateRemote records that the asset at path was tagged on the remote server.
// Only the current record at path is stamped; older records for replaced
// content are left alone. An empty assetID keeps any previously stored asset
// identifier.
func (s *Store) UpdateRemote(ctx context.Context, path, tagID, assetID string) error {
	path = filepath.Clean(path)
	res, err := s.execWithRetry(ctx,
		`UPDATE classification_results
         SET tagged = 1, tag_id = ?, remote_asset_id = COALESCE(?, remote_asset_id)
         WHERE id = (
             SELECT id FROM classification_results
             WHERE path = ? ORDER BY classified_at DESC, id DESC LIMIT 1
         )`,
		nullableString(tagID), nullableString(assetID), path,
	)
	if err != nil {
		return fmt.Errorf("update remote linkage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update remote linkage: %w", err)
	}
	if n == 0 {
		return services.Wrap(services.ErrNotFound, "results", "update remote", path, nil)
	}
	return nil
}
