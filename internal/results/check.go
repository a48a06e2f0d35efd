package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"palette/internal/fileutil"
	"palette/internal/services"
)

// CheckIfProcessed reports whether path needs classifying. A cached record is
// returned only on a hit: either the file is unchanged at a known path, or its
// content is already known under another path. In the latter case the record
// is rewritten to the new path when the old file is gone, or copied to the new
// path when the old file still exists.
func (s *Store) CheckIfProcessed(ctx context.Context, path string) (bool, *Record, error) {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil, nil
		}
		return true, nil, services.Wrap(services.ErrCorrupt, "results", "check", path, err)
	}

	hash, err := fileutil.HashFile(path)
	if err != nil {
		return true, nil, services.Wrap(services.ErrCorrupt, "results", "hash", path, err)
	}

	current, err := s.Lookup(ctx, path)
	if err != nil {
		return true, nil, err
	}
	if current != nil {
		if current.ContentHash == hash {
			return false, current, nil
		}
		return true, nil, nil
	}

	previous, err := s.FindByHash(ctx, hash)
	if err != nil {
		return true, nil, err
	}
	if previous == nil {
		return true, nil, nil
	}

	if _, statErr := os.Stat(previous.Path); statErr == nil {
		rec, err := s.copyRecord(ctx, previous, path)
		if err != nil {
			return true, nil, err
		}
		return false, rec, nil
	}

	moved, err := s.moveRecord(ctx, previous, path)
	if err != nil {
		return true, nil, err
	}
	return false, moved, nil
}

// CheckQuick trusts the path alone: any record at path is a hit, even if the
// file changed since it was cached. Missing files still need processing.
func (s *Store) CheckQuick(ctx context.Context, path string) (bool, *Record, error) {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err != nil {
		return true, nil, nil
	}
	rec, err := s.Lookup(ctx, path)
	if err != nil {
		return true, nil, err
	}
	if rec == nil {
		return true, nil, nil
	}
	return false, rec, nil
}

// Lookup returns the current record at path, or nil.
func (s *Store) Lookup(ctx context.Context, path string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM classification_results
         WHERE path = ? ORDER BY classified_at DESC, id DESC LIMIT 1`,
		filepath.Clean(path),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup path: %w", err)
	}
	return rec, nil
}

// FindByHash returns the most recently classified record with hash, or nil.
func (s *Store) FindByHash(ctx context.Context, hash string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM classification_results
         WHERE content_hash = ? ORDER BY classified_at DESC, id DESC LIMIT 1`,
		hash,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by hash: %w", err)
	}
	return rec, nil
}

// MarkMoved rewrites every record at oldPath to newPath and stamps
// moved_to/moved_at. It returns the number of rewritten records.
func (s *Store) MarkMoved(ctx context.Context, oldPath, newPath string) (int64, error) {
	oldPath = filepath.Clean(oldPath)
	newPath = filepath.Clean(newPath)
	res, err := s.execWithRetry(ctx,
		`UPDATE classification_results
         SET path = ?, moved_to = ?, moved_at = ?
         WHERE path = ?`,
		newPath, newPath, formatTime(s.timestamp()), oldPath,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return 0, services.Wrap(services.ErrConflict, "results", "mark moved",
				fmt.Sprintf("%s already has a record for the same content", newPath), err)
		}
		return 0, fmt.Errorf("mark moved: %w", err)
	}
	return res.RowsAffected()
}

// moveRecord rewrites only rec to newPath. Records for other content that
// were cached at the old path stay there as history.
func (s *Store) moveRecord(ctx context.Context, rec *Record, newPath string) (*Record, error) {
	newPath = filepath.Clean(newPath)
	_, err := s.execWithRetry(ctx,
		`UPDATE classification_results
         SET path = ?, moved_to = ?, moved_at = ?
         WHERE id = ?`,
		newPath, newPath, formatTime(s.timestamp()), rec.ID,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, services.Wrap(services.ErrConflict, "results", "move record",
				fmt.Sprintf("%s already has a record for the same content", newPath), err)
		}
		return nil, fmt.Errorf("move record: %w", err)
	}
	return s.GetByID(ctx, rec.ID)
}

// copyRecord clones src's classification onto dst for a duplicate file whose
// original is still present.
func (s *Store) copyRecord(ctx context.Context, src *Record, dst string) (*Record, error) {
	info, err := os.Stat(dst)
	if err != nil {
		return nil, services.Wrap(services.ErrCorrupt, "results", "copy record", dst, err)
	}
	args := []any{
		dst,
		src.ContentHash,
		info.Size(),
		unixSeconds(info.ModTime()),
	}
	args = append(args, resultColumns(src.Result())...)
	args = append(args, formatTime(s.timestamp()), SchemaVersion)

	var id int64
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, insertRecordSQL, args...)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("copy record: %w", err)
	}
	return s.GetByID(ctx, id)
}
