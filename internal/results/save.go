package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"palette/internal/classify"
	"palette/internal/fileutil"
	"palette/internal/services"
)

const insertRecordSQL = `INSERT INTO classification_results (
    path, content_hash, size_bytes, mtime,
    file_kind, is_positive, confidence, top_label,
    duration_seconds, total_frames, planned_frames, processed_frames,
    positive_frames, positive_fraction, avg_positive_confidence,
    error, classified_at, schema_version
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updateRecordSQL = `UPDATE classification_results SET
    size_bytes = ?, mtime = ?,
    file_kind = ?, is_positive = ?, confidence = ?, top_label = ?,
    duration_seconds = ?, total_frames = ?, planned_frames = ?, processed_frames = ?,
    positive_frames = ?, positive_fraction = ?, avg_positive_confidence = ?,
    error = ?, classified_at = ?, schema_version = ?
WHERE id = ?`

// Save hashes and stats path, then upserts the result: the record for the same
// (path, hash) pair is updated in place, otherwise a new record is inserted.
func (s *Store) Save(ctx context.Context, path string, result classify.Result) (*Record, error) {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		marker := services.ErrCorrupt
		if errors.Is(err, os.ErrNotExist) {
			marker = services.ErrNotFound
		}
		return nil, services.Wrap(marker, "results", "save", path, err)
	}
	hash, err := fileutil.HashFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrCorrupt, "results", "hash", path, err)
	}

	columns := resultColumns(result)
	var id int64
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var (
			existingID int64
			prevRaw    string
		)
		scanErr := tx.QueryRowContext(ctx,
			`SELECT id, classified_at FROM classification_results WHERE path = ? AND content_hash = ?`,
			path, hash,
		).Scan(&existingID, &prevRaw)

		switch {
		case errors.Is(scanErr, sql.ErrNoRows):
			var latest sql.NullString
			if err := tx.QueryRowContext(ctx,
				`SELECT MAX(classified_at) FROM classification_results WHERE path = ?`, path,
			).Scan(&latest); err != nil {
				return err
			}
			args := append([]any{path, hash, info.Size(), unixSeconds(info.ModTime())}, columns...)
			args = append(args, formatTime(s.after(latest.String)), SchemaVersion)
			res, err := tx.ExecContext(ctx, insertRecordSQL, args...)
			if err != nil {
				return err
			}
			id, err = res.LastInsertId()
			return err
		case scanErr != nil:
			return scanErr
		}

		args := append([]any{info.Size(), unixSeconds(info.ModTime())}, columns...)
		args = append(args, formatTime(s.after(prevRaw)), SchemaVersion, existingID)
		if _, err := tx.ExecContext(ctx, updateRecordSQL, args...); err != nil {
			return err
		}
		id = existingID
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save result for %s: %w", path, err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a record by identifier, or nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM classification_results WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// after returns the current time, nudged past prevRaw when the clock has not
// advanced so the newest record at a path always sorts first.
func (s *Store) after(prevRaw string) time.Time {
	stamp := s.timestamp()
	if prev, err := parseTime(prevRaw); err == nil && !stamp.After(prev) {
		stamp = prev.Add(time.Microsecond)
	}
	return stamp
}

func isConstraintViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
