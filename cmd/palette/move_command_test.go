package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"palette/internal/testsupport"
)

func seedTaggedAsset(t *testing.T, env *cliTestEnv) (string, string) {
	t.Helper()
	source := filepath.Join(env.libraryDir, "sub", "water.jpg")
	testsupport.WriteContent(t, source, "watercolor bytes")
	env.immich.addAsset(fakeAsset{ID: "asset-water", Path: "/photos/sub/water.jpg", Size: 16, Tags: []string{"Watercolor"}})
	return source, filepath.Join(env.cfg.Move.DestinationRoot, "sub", "water.jpg")
}

func TestMoveDryRunLeavesEverythingInPlace(t *testing.T) {
	env := setupCLITestEnv(t)
	source, dest := seedTaggedAsset(t, env)

	out, _, err := runCLI(t, []string{"move", "--dry-run"}, env.configPath, "")
	if err != nil {
		t.Fatalf("move --dry-run: %v\n%s", err, out)
	}
	requireContains(t, out, "Dry run")
	requireContains(t, out, "Transaction log:")

	if got := testsupport.ReadContent(t, source); got != "watercolor bytes" {
		t.Fatalf("source changed: %q", got)
	}
	testsupport.AssertMissing(t, dest)
	if got := env.immich.deletedIDs(); len(got) != 0 {
		t.Fatalf("dry run deleted %v", got)
	}

	entries, err := os.ReadDir(env.cfg.Paths.ReportDir)
	if err != nil {
		t.Fatalf("read report dir: %v", err)
	}
	var sawJSON, sawCSV bool
	for _, e := range entries {
		sawJSON = sawJSON || strings.HasSuffix(e.Name(), ".json")
		sawCSV = sawCSV || strings.HasSuffix(e.Name(), ".csv")
	}
	if !sawJSON || !sawCSV {
		t.Fatalf("expected json and csv reports, got %v", entries)
	}
}

func TestMoveRelocatesDeletesAndUpdatesCache(t *testing.T) {
	env := setupCLITestEnv(t)
	source, dest := seedTaggedAsset(t, env)

	if _, _, err := runCLI(t, []string{"classify", env.libraryDir, "--no-tag"}, env.configPath, ""); err != nil {
		t.Fatalf("classify: %v", err)
	}

	logPath := filepath.Join(env.baseDir, "move.json")
	out, _, err := runCLI(t, []string{"move", "--yes", "--transaction-log", logPath}, env.configPath, "")
	if err != nil {
		t.Fatalf("move: %v\n%s", err, out)
	}

	testsupport.AssertMissing(t, source)
	if got := testsupport.ReadContent(t, dest); got != "watercolor bytes" {
		t.Fatalf("dest content = %q", got)
	}
	if got := env.immich.deletedIDs(); !reflect.DeepEqual(got, []string{"asset-water"}) {
		t.Fatalf("deleted = %v", got)
	}
	requireContains(t, testsupport.ReadContent(t, logPath), `"state": "deleted"`)

	exportPath := filepath.Join(env.baseDir, "cache.csv")
	if _, _, err := runCLI(t, []string{"cache", "export", exportPath}, env.configPath, ""); err != nil {
		t.Fatalf("cache export: %v", err)
	}
	requireContains(t, testsupport.ReadContent(t, exportPath), dest)

	calls := env.classifier.callCount()
	if _, _, err := runCLI(t, []string{"classify", env.cfg.Move.DestinationRoot, "--no-tag"}, env.configPath, ""); err != nil {
		t.Fatalf("classify archive: %v", err)
	}
	if got := env.classifier.callCount(); got != calls {
		t.Fatalf("moved file was reclassified (calls %d -> %d)", calls, got)
	}
}

func TestMoveAbortsWithoutConfirmation(t *testing.T) {
	env := setupCLITestEnv(t)
	source, dest := seedTaggedAsset(t, env)

	out, _, err := runCLI(t, []string{"move"}, env.configPath, "n\n")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	requireContains(t, out, "Aborted")
	testsupport.ReadContent(t, source)
	testsupport.AssertMissing(t, dest)
	if got := env.immich.deletedIDs(); len(got) != 0 {
		t.Fatalf("aborted move deleted %v", got)
	}
}

func TestMoveRequiresMappings(t *testing.T) {
	env := setupCLITestEnv(t)
	cfg := *env.cfg
	cfg.PathMappings = nil
	path := filepath.Join(env.baseDir, "nomap.toml")
	writeTestConfig(t, path, &cfg)

	_, _, err := runCLI(t, []string{"move", "--yes"}, path, "")
	if err == nil || !strings.Contains(err.Error(), "path_mappings") {
		t.Fatalf("expected mapping configuration error, got %v", err)
	}
}
