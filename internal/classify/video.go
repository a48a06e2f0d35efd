package classify

import (
	"context"
	"fmt"

	"palette/internal/media/ffprobe"
)

// DefaultSampleInterval is the target spacing between sampled frames, in seconds.
const DefaultSampleInterval = 1.0

// VideoInfo is the container metadata needed to plan frame sampling.
type VideoInfo struct {
	DurationSeconds float64
	FrameRate       float64
	TotalFrames     int64
}

// ProbeVideo reads duration, frame rate, and frame count through ffprobe.
func ProbeVideo(ctx context.Context, binary, path string) (VideoInfo, error) {
	result, err := ffprobe.Inspect(ctx, binary, path)
	if err != nil {
		return VideoInfo{}, err
	}
	if _, ok := result.PrimaryVideo(); !ok {
		return VideoInfo{}, fmt.Errorf("probe %s: no video stream", path)
	}
	info := VideoInfo{
		DurationSeconds: result.DurationSeconds(),
		FrameRate:       result.FrameRate(),
		TotalFrames:     result.FrameCount(),
	}
	if info.DurationSeconds == 0 && info.FrameRate > 0 {
		info.DurationSeconds = float64(info.TotalFrames) / info.FrameRate
	}
	return info, nil
}

// FramePlan lists the frame indexes to sample and their timestamps.
type FramePlan struct {
	Interval   int64
	Indexes    []int64
	Timestamps []float64
}

// PlanFrames picks frames roughly every interval seconds while guaranteeing at
// least minFrames samples when the video has that many frames.
func PlanFrames(info VideoInfo, interval float64, minFrames int) FramePlan {
	if minFrames < 1 {
		minFrames = 1
	}
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	total := info.TotalFrames
	step := int64(info.FrameRate * interval)
	if total > 0 {
		maxStep := total / int64(minFrames)
		if maxStep == 0 {
			maxStep = 1
		}
		if step > maxStep || step == 0 {
			step = maxStep
		}
	}
	if step < 1 {
		step = 1
	}

	plan := FramePlan{Interval: step}
	for idx := int64(0); idx < total; idx += step {
		plan.Indexes = append(plan.Indexes, idx)
		ts := 0.0
		if info.FrameRate > 0 {
			ts = float64(idx) / info.FrameRate
		}
		plan.Timestamps = append(plan.Timestamps, ts)
	}
	return plan
}

// FrameScore is the service verdict for one sampled frame.
type FrameScore struct {
	Timestamp     float64
	Probabilities Probabilities
}

// VideoRules controls per-frame and whole-video decisions.
type VideoRules struct {
	ImageThreshold     float64
	DetectionThreshold float64
	StrictMode         bool
}

// AggregateFrames turns per-frame scores into a video result. A video is
// positive when the fraction of positive frames reaches the detection
// threshold.
func AggregateFrames(info VideoInfo, plan FramePlan, frames []FrameScore, rules VideoRules) VideoResult {
	out := VideoResult{
		DurationSeconds: info.DurationSeconds,
		TotalFrames:     info.TotalFrames,
		PlannedFrames:   len(plan.Indexes),
	}
	if len(frames) == 0 {
		return out
	}

	var (
		sumAll      float64
		sumPositive float64
		labelVotes  = map[string]int{}
	)
	for _, frame := range frames {
		prob := frame.Probabilities[LabelWatercolor]
		sumAll += prob
		if top, _ := frame.Probabilities.Top(); top != "" {
			labelVotes[top]++
		}

		var positive bool
		if rules.StrictMode {
			positive = frame.Probabilities.IsPositiveStrict(rules.ImageThreshold)
		} else {
			positive = frame.Probabilities.IsPositive(0.5)
		}
		if positive {
			out.PositiveFrames++
			sumPositive += prob
		}
	}

	out.ProcessedFrames = len(frames)
	out.Confidence = sumAll / float64(len(frames))
	out.PositiveFraction = float64(out.PositiveFrames) / float64(len(frames))
	if out.PositiveFrames > 0 {
		out.AvgPositiveConfidence = sumPositive / float64(out.PositiveFrames)
	}
	out.IsPositive = out.PositiveFraction >= rules.DetectionThreshold
	out.TopLabel = mostVoted(labelVotes)
	return out
}

func mostVoted(votes map[string]int) string {
	var (
		best  string
		count int
	)
	for label, n := range votes {
		if n > count || (n == count && label < best) {
			best, count = label, n
		}
	}
	return best
}
