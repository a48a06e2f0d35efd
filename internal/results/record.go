package results

import (
	"database/sql"
	"errors"
	"time"

	"palette/internal/classify"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// VideoAggregates holds the video-only columns of a record.
type VideoAggregates struct {
	DurationSeconds       float64
	TotalFrames           int64
	PlannedFrames         int
	ProcessedFrames       int
	PositiveFrames        int
	PositiveFraction      float64
	AvgPositiveConfidence float64
}

// Record is one cached classification, tied to a content hash and the path it
// was last seen at.
type Record struct {
	ID            int64
	Path          string
	ContentHash   string
	SizeBytes     int64
	ModTime       time.Time
	Kind          classify.Kind
	IsPositive    bool
	Confidence    float64
	TopLabel      string
	Video         *VideoAggregates
	ClassifiedAt  time.Time
	SchemaVersion string
	Tagged        bool
	TagID         string
	RemoteAssetID string
	MovedTo       string
	MovedAt       *time.Time
	Error         string
}

// Result rebuilds the classifier outcome stored in the record.
func (r *Record) Result() classify.Result {
	switch r.Kind {
	case classify.KindImage:
		return classify.Image(classify.ImageResult{
			IsPositive: r.IsPositive,
			Confidence: r.Confidence,
			TopLabel:   r.TopLabel,
		})
	case classify.KindVideo:
		v := classify.VideoResult{
			IsPositive: r.IsPositive,
			Confidence: r.Confidence,
			TopLabel:   r.TopLabel,
		}
		if r.Video != nil {
			v.DurationSeconds = r.Video.DurationSeconds
			v.TotalFrames = r.Video.TotalFrames
			v.PlannedFrames = r.Video.PlannedFrames
			v.ProcessedFrames = r.Video.ProcessedFrames
			v.PositiveFrames = r.Video.PositiveFrames
			v.PositiveFraction = r.Video.PositiveFraction
			v.AvgPositiveConfidence = r.Video.AvgPositiveConfidence
		}
		return classify.Video(v)
	default:
		return classify.Failure(r.Error)
	}
}

const recordColumns = "id, path, content_hash, size_bytes, mtime, file_kind, is_positive, confidence, top_label, duration_seconds, total_frames, planned_frames, processed_frames, positive_frames, positive_fraction, avg_positive_confidence, classified_at, schema_version, tagged, tag_id, remote_asset_id, moved_to, moved_at, error"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		rec             Record
		mtime           float64
		kind            string
		isPositive      int64
		topLabel        sql.NullString
		duration        sql.NullFloat64
		totalFrames     sql.NullInt64
		plannedFrames   sql.NullInt64
		processedFrames sql.NullInt64
		positiveFrames  sql.NullInt64
		positiveFrac    sql.NullFloat64
		avgPositive     sql.NullFloat64
		classifiedRaw   string
		tagged          int64
		tagID           sql.NullString
		assetID         sql.NullString
		movedTo         sql.NullString
		movedAtRaw      sql.NullString
		errorMessage    sql.NullString
	)

	if err := scanner.Scan(
		&rec.ID,
		&rec.Path,
		&rec.ContentHash,
		&rec.SizeBytes,
		&mtime,
		&kind,
		&isPositive,
		&rec.Confidence,
		&topLabel,
		&duration,
		&totalFrames,
		&plannedFrames,
		&processedFrames,
		&positiveFrames,
		&positiveFrac,
		&avgPositive,
		&classifiedRaw,
		&rec.SchemaVersion,
		&tagged,
		&tagID,
		&assetID,
		&movedTo,
		&movedAtRaw,
		&errorMessage,
	); err != nil {
		return nil, err
	}

	rec.ModTime = fromUnixSeconds(mtime)
	rec.Kind = classify.Kind(kind)
	rec.IsPositive = isPositive != 0
	rec.TopLabel = topLabel.String
	rec.Tagged = tagged != 0
	rec.TagID = tagID.String
	rec.RemoteAssetID = assetID.String
	rec.MovedTo = movedTo.String
	rec.Error = errorMessage.String

	if duration.Valid || totalFrames.Valid || processedFrames.Valid {
		rec.Video = &VideoAggregates{
			DurationSeconds:       duration.Float64,
			TotalFrames:           totalFrames.Int64,
			PlannedFrames:         int(plannedFrames.Int64),
			ProcessedFrames:       int(processedFrames.Int64),
			PositiveFrames:        int(positiveFrames.Int64),
			PositiveFraction:      positiveFrac.Float64,
			AvgPositiveConfidence: avgPositive.Float64,
		}
	}
	if ts, err := parseTime(classifiedRaw); err == nil {
		rec.ClassifiedAt = ts
	}
	if movedAtRaw.Valid {
		if ts, err := parseTime(movedAtRaw.String); err == nil {
			rec.MovedAt = &ts
		}
	}
	return &rec, nil
}

// resultColumns returns the classification column values for r in the order
// file_kind, is_positive, confidence, top_label, then the seven video columns,
// then error.
func resultColumns(r classify.Result) []any {
	kind := r.Kind
	if kind == "" {
		kind = classify.KindError
	}
	values := []any{
		string(kind),
		boolToInt(r.IsPositive()),
		r.Confidence(),
		nullableString(r.TopLabel()),
	}
	if v := r.Video; v != nil {
		values = append(values,
			v.DurationSeconds,
			v.TotalFrames,
			v.PlannedFrames,
			v.ProcessedFrames,
			v.PositiveFrames,
			v.PositiveFraction,
			v.AvgPositiveConfidence,
		)
	} else {
		values = append(values, nil, nil, nil, nil, nil, nil, nil)
	}
	return append(values, nullableString(r.Error))
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromUnixSeconds(v float64) time.Time {
	return time.Unix(0, int64(v*float64(time.Second))).UTC()
}
