package classify

import (
	"math"
	"testing"
)

func TestPlanFrames(t *testing.T) {
	tests := []struct {
		name      string
		info      VideoInfo
		minFrames int
		wantStep  int64
		wantCount int
	}{
		{"one per second", VideoInfo{FrameRate: 25, TotalFrames: 250}, 3, 25, 10},
		{"short video honours min frames", VideoInfo{FrameRate: 30, TotalFrames: 45}, 3, 15, 3},
		{"tiny video samples every frame", VideoInfo{FrameRate: 30, TotalFrames: 2}, 3, 1, 2},
		{"unknown rate", VideoInfo{TotalFrames: 9}, 3, 3, 3},
		{"no frames", VideoInfo{FrameRate: 30}, 3, 30, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := PlanFrames(tt.info, 1, tt.minFrames)
			if plan.Interval != tt.wantStep {
				t.Fatalf("interval = %d, want %d", plan.Interval, tt.wantStep)
			}
			if len(plan.Indexes) != tt.wantCount || len(plan.Timestamps) != tt.wantCount {
				t.Fatalf("planned %d frames, want %d", len(plan.Indexes), tt.wantCount)
			}
		})
	}
}

func TestPlanFramesTimestamps(t *testing.T) {
	plan := PlanFrames(VideoInfo{FrameRate: 10, TotalFrames: 30}, 1, 3)
	want := []float64{0, 1, 2}
	for i, ts := range plan.Timestamps {
		if math.Abs(ts-want[i]) > 1e-9 {
			t.Fatalf("timestamp %d = %v, want %v", i, ts, want[i])
		}
	}
}

func TestAggregateFrames(t *testing.T) {
	info := VideoInfo{DurationSeconds: 4, FrameRate: 1, TotalFrames: 4}
	plan := PlanFrames(info, 1, 3)
	frames := []FrameScore{
		{Probabilities: Probabilities{LabelWatercolor: 0.9, LabelPhotograph: 0.1}},
		{Probabilities: Probabilities{LabelWatercolor: 0.7, LabelPhotograph: 0.3}},
		{Probabilities: Probabilities{LabelWatercolor: 0.1, LabelPhotograph: 0.9}},
		{Probabilities: Probabilities{LabelWatercolor: 0.3, LabelPhotograph: 0.7}},
	}

	got := AggregateFrames(info, plan, frames, VideoRules{DetectionThreshold: 0.5})
	if got.ProcessedFrames != 4 || got.PlannedFrames != 4 {
		t.Fatalf("frames processed/planned = %d/%d", got.ProcessedFrames, got.PlannedFrames)
	}
	if got.PositiveFrames != 2 || got.PositiveFraction != 0.5 {
		t.Fatalf("positive frames = %d (%v)", got.PositiveFrames, got.PositiveFraction)
	}
	if !got.IsPositive {
		t.Fatal("expected fraction at threshold to be positive")
	}
	if math.Abs(got.Confidence-0.5) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.5", got.Confidence)
	}
	if math.Abs(got.AvgPositiveConfidence-0.8) > 1e-9 {
		t.Fatalf("avg positive confidence = %v, want 0.8", got.AvgPositiveConfidence)
	}
	if got.TopLabel != LabelPhotograph && got.TopLabel != LabelWatercolor {
		t.Fatalf("unexpected top label %q", got.TopLabel)
	}

	strict := AggregateFrames(info, plan, frames, VideoRules{DetectionThreshold: 0.5, StrictMode: true, ImageThreshold: 0.85})
	if strict.PositiveFrames != 1 || strict.IsPositive {
		t.Fatalf("strict aggregate = %+v", strict)
	}
}

func TestAggregateFramesEmpty(t *testing.T) {
	info := VideoInfo{DurationSeconds: 2, TotalFrames: 0}
	got := AggregateFrames(info, FramePlan{}, nil, VideoRules{DetectionThreshold: 0.3})
	if got.IsPositive || got.ProcessedFrames != 0 || got.DurationSeconds != 2 {
		t.Fatalf("unexpected empty aggregate %+v", got)
	}
}
