// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual stream properties, including frame rate and count
//   - Format: container-level metadata (duration, size)
//
// Inspect executes ffprobe and returns the parsed Result. Helper methods pick
// the primary video stream and derive the frame rate, frame count, and
// duration used to plan sampled classification frames.
package ffprobe
