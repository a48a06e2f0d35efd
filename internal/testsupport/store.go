package testsupport

import (
	"context"
	"testing"

	"palette/internal/classify"
	"palette/internal/config"
	"palette/internal/results"
)

// MustOpenStore opens the result cache for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *results.Store {
	t.Helper()

	store, err := results.Open(cfg.CacheDBPath())
	if err != nil {
		t.Fatalf("results.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SaveImage records an image result for path in the store.
func SaveImage(t testing.TB, store *results.Store, path string, confidence float64, topLabel string) *results.Record {
	t.Helper()

	rec, err := store.Save(context.Background(), path, classify.Image(classify.ImageResult{
		IsPositive: confidence >= 0.85,
		Confidence: confidence,
		TopLabel:   topLabel,
	}))
	if err != nil {
		t.Fatalf("store.Save: %v", err)
	}
	return rec
}
