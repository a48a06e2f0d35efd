package classify

import (
	"path/filepath"
)

// Kind identifies which Result variant is populated.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindError Kind = "error"
)

// ImageResult holds the fields valid for a classified still image.
type ImageResult struct {
	IsPositive bool
	Confidence float64
	TopLabel   string
}

// VideoResult holds the aggregate over sampled frames of a video.
type VideoResult struct {
	IsPositive bool
	// Confidence is the mean positive-label probability over every processed frame.
	Confidence            float64
	TopLabel              string
	DurationSeconds       float64
	TotalFrames           int64
	PlannedFrames         int
	ProcessedFrames       int
	PositiveFrames        int
	PositiveFraction      float64
	AvgPositiveConfidence float64
}

// Result is the outcome of classifying one file.
type Result struct {
	Kind  Kind
	Image *ImageResult
	Video *VideoResult
	Error string
}

// Image wraps an image outcome.
func Image(r ImageResult) Result { return Result{Kind: KindImage, Image: &r} }

// Video wraps a video outcome.
func Video(r VideoResult) Result { return Result{Kind: KindVideo, Video: &r} }

// Failure records a file that could not be classified.
func Failure(message string) Result {
	if message == "" {
		message = "unknown error"
	}
	return Result{Kind: KindError, Error: message}
}

// IsPositive reports whether the file matched the target style.
func (r Result) IsPositive() bool {
	switch {
	case r.Image != nil:
		return r.Image.IsPositive
	case r.Video != nil:
		return r.Video.IsPositive
	}
	return false
}

// Confidence returns the positive-label confidence, 0 for failures.
func (r Result) Confidence() float64 {
	switch {
	case r.Image != nil:
		return r.Image.Confidence
	case r.Video != nil:
		return r.Video.Confidence
	}
	return 0
}

// TopLabel returns the most probable label, if any.
func (r Result) TopLabel() string {
	switch {
	case r.Image != nil:
		return r.Image.TopLabel
	case r.Video != nil:
		return r.Video.TopLabel
	}
	return ""
}

// Row is the flat per-file reporting schema.
type Row struct {
	Path                  string
	Folder                string
	Filename              string
	Type                  Kind
	IsPositive            bool
	Confidence            float64
	TopLabel              string
	DurationSeconds       float64
	ProcessedFrames       int
	PlannedFrames         int
	TotalFrames           int64
	PositiveFrames        int
	PositiveFraction      float64
	AvgPositiveConfidence float64
	Error                 string
}

// Flat converts the result into a reporting row for path. Images report as a
// single processed frame.
func (r Result) Flat(path string) Row {
	row := Row{
		Path:     path,
		Folder:   filepath.Dir(path),
		Filename: filepath.Base(path),
		Type:     r.Kind,
		Error:    r.Error,
	}
	switch {
	case r.Image != nil:
		row.IsPositive = r.Image.IsPositive
		row.Confidence = r.Image.Confidence
		row.TopLabel = r.Image.TopLabel
		row.ProcessedFrames = 1
		row.PlannedFrames = 1
		row.TotalFrames = 1
		if r.Image.IsPositive {
			row.PositiveFrames = 1
			row.PositiveFraction = 1
			row.AvgPositiveConfidence = r.Image.Confidence
		}
	case r.Video != nil:
		v := r.Video
		row.IsPositive = v.IsPositive
		row.Confidence = v.Confidence
		row.TopLabel = v.TopLabel
		row.DurationSeconds = v.DurationSeconds
		row.ProcessedFrames = v.ProcessedFrames
		row.PlannedFrames = v.PlannedFrames
		row.TotalFrames = v.TotalFrames
		row.PositiveFrames = v.PositiveFrames
		row.PositiveFraction = v.PositiveFraction
		row.AvgPositiveConfidence = v.AvgPositiveConfidence
	default:
		row.Type = KindError
	}
	return row
}
