package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"palette/internal/config"
	"palette/internal/logging"
	"palette/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (*slog.Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "out.log")
	logger, err := logging.New(logging.Options{Format: format, Level: level, Outputs: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return logger, path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return strings.Split(strings.TrimRight(string(content), "\n"), "\n")
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	lines := readLines(t, filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if len(lines) != 1 || !strings.Contains(lines[0], "hello from config") {
		t.Fatalf("expected message in log file, got %q", lines)
	}
}

func TestConsolePrefixCarriesRunStageComponentAndAsset(t *testing.T) {
	logger, path := newFileLogger(t, "console", "info")

	ctx := services.WithRunID(context.Background(), "3f2a9c1e-77aa-4bb0-9d1e-000000000000")
	ctx = services.WithStage(ctx, "move")
	ctx = services.WithAssetID(ctx, "asset-42")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "mover")).
		Info("moved file", logging.String("dest", "/archive/a b.jpg"))

	line := readLines(t, path)[0]
	if !strings.Contains(line, " INFO  [3f2a9c1e/move] mover [asset-42]: moved file ") {
		t.Fatalf("unexpected prefix in %q", line)
	}
	if !strings.HasSuffix(line, `dest="/archive/a b.jpg"`) {
		t.Fatalf("expected quoted trailing value, got %q", line)
	}
	for _, key := range []string{"run_id=", "stage=", "component=", "asset_id="} {
		if strings.Contains(line, key) {
			t.Fatalf("expected %s lifted into the prefix, got %q", key, line)
		}
	}
}

func TestConsolePrefixVariants(t *testing.T) {
	tests := []struct {
		name   string
		ctx    func() context.Context
		comp   string
		prefix string
	}{
		{"bare", context.Background, "", " WARN  hello"},
		{"component only", context.Background, "dedup", " WARN  dedup: hello"},
		{"stage only", func() context.Context {
			return services.WithStage(context.Background(), "sync")
		}, "", " WARN  [sync] hello"},
		{"short run", func() context.Context {
			return services.WithRunID(context.Background(), "run-7")
		}, "batch", " WARN  [run-7] batch: hello"},
		{"asset only", func() context.Context {
			return services.WithAssetID(context.Background(), "a1")
		}, "", " WARN  [a1]: hello"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger, path := newFileLogger(t, "console", "info")
			if tc.comp != "" {
				logger = logging.NewComponentLogger(logger, tc.comp)
			}
			logging.WithContext(tc.ctx(), logger).Warn("hello")
			if line := readLines(t, path)[0]; !strings.Contains(line, tc.prefix) {
				t.Fatalf("expected %q in %q", tc.prefix, line)
			}
		})
	}
}

func TestConsoleFlattensGroupsAndFormatsErrors(t *testing.T) {
	logger, path := newFileLogger(t, "console", "debug")
	logger.WithGroup("stats").Debug("done",
		logging.Int("moved", 3),
		logging.Error(errors.New("disk full")),
		slog.Group("remote", slog.String("component", "not-lifted")),
	)
	line := readLines(t, path)[0]
	for _, want := range []string{"stats.moved=3", `stats.error="disk full"`, "stats.remote.component=not-lifted"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %q", want, line)
		}
	}
}

func TestConsoleRespectsLevel(t *testing.T) {
	logger, path := newFileLogger(t, "console", "warn")
	logger.Info("dropped")
	logger.Error("kept")
	lines := readLines(t, path)
	if len(lines) != 1 || !strings.Contains(lines[0], "ERROR kept") {
		t.Fatalf("expected only the error line, got %q", lines)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logger, path := newFileLogger(t, "json", "info")

	ctx := services.WithRunID(services.WithStage(context.Background(), "dedup"), "run-7")
	logging.WithContext(ctx, logger).Warn("json message", logging.Int("groups", 3))

	var entry map[string]any
	if err := json.Unmarshal([]byte(readLines(t, path)[0]), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "json message" {
		t.Fatalf("unexpected entry %#v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %#v", entry)
	}
	if _, ok := entry["time"]; ok {
		t.Fatalf("expected time renamed, got %#v", entry)
	}
	if entry["run_id"] != "run-7" || entry["stage"] != "dedup" || entry["groups"] != float64(3) {
		t.Fatalf("expected context fields, got %#v", entry)
	}
}

func TestNewRejectsUnknownFormatAndLevel(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if _, err := logging.New(logging.Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unsupported level")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected nop logger to be disabled")
	}
	logging.WithContext(context.Background(), nil).Info("ignored")
}
