package batch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"palette/internal/classify"
)

var resultsHeader = []string{
	"file_path", "folder", "filename", "type", "is_positive", "confidence", "top_label",
	"duration_seconds", "processed_frames", "planned_frames", "total_frames",
	"positive_frames", "positive_fraction", "avg_positive_confidence", "error",
}

// WriteResultsCSV writes one row per file.
func WriteResultsCSV(path string, rows []classify.Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results csv: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(resultsHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Path,
			r.Folder,
			r.Filename,
			string(r.Type),
			strconv.FormatBool(r.IsPositive),
			formatFloat(r.Confidence),
			r.TopLabel,
			formatFloat(r.DurationSeconds),
			strconv.Itoa(r.ProcessedFrames),
			strconv.Itoa(r.PlannedFrames),
			strconv.FormatInt(r.TotalFrames, 10),
			strconv.Itoa(r.PositiveFrames),
			formatFloat(r.PositiveFraction),
			formatFloat(r.AvgPositiveConfidence),
			r.Error,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush results csv: %w", err)
	}
	return file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
