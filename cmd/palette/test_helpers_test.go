package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"palette/internal/config"
	"palette/internal/testsupport"
)

const testAPIKey = "cli-test-key"

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	libraryDir string
	immich     *fakeImmich
	classifier *fakeClassifier
}

type envOptions struct {
	withoutImmich bool
}

type envOption func(*envOptions)

func withoutImmich() envOption {
	return func(o *envOptions) { o.withoutImmich = true }
}

func setupCLITestEnv(t *testing.T, opts ...envOption) *cliTestEnv {
	t.Helper()

	var options envOptions
	for _, opt := range opts {
		opt(&options)
	}

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{"IMMICH_URL", "IMMICH_API_KEY", "IMMICH_TAG", "IMMICH_PATH_MAPPING", "MOVE_DESTINATION_ROOT", "MOVE_DRY_RUN", "MOVE_SKIP_CONFIRMATION"} {
		t.Setenv(key, "")
	}

	immich := newFakeImmich(t)
	classifier := newFakeClassifier(t)

	cfg := testsupport.NewConfig(t,
		testsupport.WithImmich(immich.server.URL, testAPIKey),
		testsupport.WithMapping(filepath.Join(base, "library"), "/photos"),
	)
	if options.withoutImmich {
		cfg.Immich.URL = ""
		cfg.Immich.APIKey = ""
	}
	cfg.Classifier.URL = classifier.server.URL + "/classify"
	cfg.Dedup.LibraryPrefix = "/photos"
	cfg.Dedup.InternalPrefix = "/data/upload"
	cfg.Move.DestinationRoot = filepath.Join(base, "archive")

	libraryDir := cfg.PathMappings[0].Local
	if err := os.MkdirAll(libraryDir, 0o755); err != nil {
		t.Fatalf("mkdir library: %v", err)
	}

	configPath := filepath.Join(homeDir, ".config", "palette", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
		libraryDir: libraryDir,
		immich:     immich,
		classifier: classifier,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\nstate_dir = %q\nlog_dir = %q\nreport_dir = %q\n\n", cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.ReportDir)
	fmt.Fprintf(&b, "[immich]\nurl = %q\napi_key = %q\n\n", cfg.Immich.URL, cfg.Immich.APIKey)
	for _, m := range cfg.PathMappings {
		fmt.Fprintf(&b, "[[path_mappings]]\nlocal = %q\nremote = %q\n\n", m.Local, m.Remote)
	}
	fmt.Fprintf(&b, "[move]\ndestination_root = %q\n\n", cfg.Move.DestinationRoot)
	fmt.Fprintf(&b, "[dedup]\ninternal_prefix = %q\nlibrary_prefix = %q\n\n", cfg.Dedup.InternalPrefix, cfg.Dedup.LibraryPrefix)
	fmt.Fprintf(&b, "[classifier]\nurl = %q\nffprobe_binary = %q\n\n", cfg.Classifier.URL, "palette-test-missing-ffprobe")
	fmt.Fprintf(&b, "[logging]\nlevel = %q\n", "error")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, text, substr string) {
	t.Helper()
	if !strings.Contains(text, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, text)
	}
}

type fakeAsset struct {
	ID   string
	Path string
	Size int64
	Tags []string
}

// fakeImmich serves the subset of the asset-server API palette calls.
type fakeImmich struct {
	server *httptest.Server

	mu           sync.Mutex
	assets       []fakeAsset
	tags         map[string]string
	tagged       map[string][]string
	deleted      []string
	trashEmptied int
	duplicates   []map[string]any
}

func newFakeImmich(t *testing.T) *fakeImmich {
	t.Helper()
	f := &fakeImmich{
		tags:   map[string]string{},
		tagged: map[string][]string{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeImmich) addAsset(a fakeAsset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets = append(f.assets, a)
}

func (f *fakeImmich) tagAssets(name string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := append([]string(nil), f.tagged[f.tags[name]]...)
	sort.Strings(ids)
	return ids
}

func (f *fakeImmich) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := append([]string(nil), f.deleted...)
	sort.Strings(ids)
	return ids
}

func (f *fakeImmich) tagID(name string) string {
	if id, ok := f.tags[name]; ok {
		return id
	}
	id := fmt.Sprintf("tag-%d", len(f.tags)+1)
	f.tags[name] = id
	return id
}

func (f *fakeImmich) assetJSON(a fakeAsset) map[string]any {
	return map[string]any{
		"id":           a.ID,
		"originalPath": a.Path,
		"exifInfo":     map[string]any{"fileSizeInByte": a.Size},
	}
}

func (f *fakeImmich) handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("x-api-key") != testAPIKey {
		http.Error(w, "bad key", http.StatusUnauthorized)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/server/ping":
		writeJSON(w, map[string]string{"res": "pong"})
	case r.Method == http.MethodGet && r.URL.Path == "/api/tags":
		list := make([]map[string]string, 0, len(f.tags))
		for name, id := range f.tags {
			list = append(list, map[string]string{"id": id, "name": name})
		}
		writeJSON(w, list)
	case r.Method == http.MethodPost && r.URL.Path == "/api/tags":
		name, _ := body["name"].(string)
		writeJSON(w, map[string]string{"id": f.tagID(name), "name": name})
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/api/tags/"):
		tagID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/tags/"), "/assets")
		for _, id := range stringList(body["ids"]) {
			f.tagged[tagID] = append(f.tagged[tagID], id)
		}
		writeJSON(w, []any{})
	case r.Method == http.MethodPost && r.URL.Path == "/api/search/metadata":
		items := []map[string]any{}
		if path, ok := body["originalPath"].(string); ok {
			for _, a := range f.assets {
				if a.Path == path {
					items = append(items, f.assetJSON(a))
				}
			}
		} else {
			wanted := stringList(body["tagIds"])
			for _, a := range f.assets {
				for _, tag := range a.Tags {
					if len(wanted) > 0 && f.tags[tag] == wanted[0] {
						items = append(items, f.assetJSON(a))
					}
				}
			}
		}
		writeJSON(w, map[string]any{"assets": map[string]any{"items": items}})
	case r.Method == http.MethodDelete && r.URL.Path == "/api/assets":
		f.deleted = append(f.deleted, stringList(body["ids"])...)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPost && r.URL.Path == "/api/trash/empty":
		f.trashEmptied++
		writeJSON(w, map[string]int{"count": len(f.deleted)})
	case r.Method == http.MethodGet && r.URL.Path == "/api/duplicates":
		groups := f.duplicates
		if groups == nil {
			groups = []map[string]any{}
		}
		writeJSON(w, groups)
	default:
		http.NotFound(w, r)
	}
}

func stringList(v any) []string {
	raw, _ := v.([]any)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// fakeClassifier scores any path containing "water" as a watercolor and
// everything else as a photograph.
type fakeClassifier struct {
	server *httptest.Server

	mu    sync.Mutex
	calls []string
}

func newFakeClassifier(t *testing.T) *fakeClassifier {
	t.Helper()
	f := &fakeClassifier{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeJSON(w, map[string]string{"status": "ok"})
			return
		}
		var req struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.calls = append(f.calls, req.Path)
		f.mu.Unlock()

		probs := map[string]float64{"a photograph": 0.8, "a watercolor painting": 0.2}
		if strings.Contains(filepath.Base(req.Path), "water") {
			probs = map[string]float64{"a watercolor painting": 0.9, "a photograph": 0.1}
		}
		writeJSON(w, map[string]any{"probabilities": probs})
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
