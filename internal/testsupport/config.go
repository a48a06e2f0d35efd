package testsupport

import (
	"path/filepath"
	"testing"

	"palette/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ReportDir = filepath.Join(base, "reports")
	cfgVal.Immich.URL = "http://127.0.0.1:0"
	cfgVal.Immich.APIKey = "test"
	cfgVal.Move.DestinationRoot = filepath.Join(base, "archive")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithImmich points the test config at a fake asset server.
func WithImmich(url, apiKey string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Immich.URL = url
		b.cfg.Immich.APIKey = apiKey
	}
}

// WithMapping appends a local/remote path mapping. A relative local path is
// resolved under the config's temp directory.
func WithMapping(local, remote string) ConfigOption {
	return func(b *configBuilder) {
		if !filepath.IsAbs(local) {
			local = filepath.Join(b.baseDir, local)
		}
		b.cfg.PathMappings = append(b.cfg.PathMappings, config.PathMapping{Local: local, Remote: remote})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
