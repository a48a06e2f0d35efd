package logging

import (
	"log/slog"
	"strings"
	"time"
)

// jsonKeys shortens the built-in keys to ts/level/msg and writes the time
// in UTC so lines from different hosts sort together.
func jsonKeys(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return attr
	}
	switch attr.Key {
	case slog.TimeKey:
		return slog.String("ts", attr.Value.Time().UTC().Format(time.RFC3339Nano))
	case slog.LevelKey:
		return slog.String("level", strings.ToLower(attr.Value.String()))
	}
	return attr
}
