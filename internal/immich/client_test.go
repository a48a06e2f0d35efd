package immich_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"palette/internal/immich"
	"palette/internal/services"
)

const testKey = "secret-key"

type fakeServer struct {
	mu         sync.Mutex
	tagged     map[string][]string
	deleted    [][]string
	trashCalls int
	searches   []map[string]any
}

func newFakeServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != testKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h, ok := handlers[r.Method+" "+r.URL.Path]
		if !ok {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func newClient(t *testing.T, url string, opts ...immich.Option) *immich.Client {
	t.Helper()
	client, err := immich.New(url, testKey, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	data, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode request body %q: %v", data, err)
	}
	return body
}

func TestNewRequiresURLAndKey(t *testing.T) {
	if _, err := immich.New("", testKey); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for empty url, got %v", err)
	}
	if _, err := immich.New("http://immich.local/", " "); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for empty key, got %v", err)
	}
	client := newClient(t, "http://immich.local/")
	if client.BaseURL() != "http://immich.local" {
		t.Fatalf("BaseURL = %q", client.BaseURL())
	}
}

func TestListAssetsByTagPaginatesAndReadsSizes(t *testing.T) {
	fake := &fakeServer{}
	server := newFakeServer(t, map[string]http.HandlerFunc{
		"POST /api/search/metadata": func(w http.ResponseWriter, r *http.Request) {
			body := decodeBody(t, r)
			fake.mu.Lock()
			fake.searches = append(fake.searches, body)
			fake.mu.Unlock()
			if tags, _ := body["tagIds"].([]any); len(tags) != 1 || tags[0] != "tag-1" {
				t.Errorf("unexpected tagIds %v", body["tagIds"])
			}
			switch body["page"] {
			case float64(1):
				_, _ = io.WriteString(w, `{"assets":{"items":[
                    {"id":"a1","originalPath":"/data/lib/a.jpg","exifInfo":{"fileSizeInByte":1200}},
                    {"id":"a2","originalPath":"/data/lib/b.jpg","exif":{"fileSizeInByte":"3400"}}
                ]}}`)
			default:
				_, _ = io.WriteString(w, `{"assets":{"items":[{"id":"a3","originalPath":"/data/lib/c.jpg"}]}}`)
			}
		},
	})

	client := newClient(t, server.URL, immich.WithPageSize(2))
	assets, err := client.ListAssetsByTag(context.Background(), "tag-1")
	if err != nil {
		t.Fatalf("ListAssetsByTag: %v", err)
	}
	want := []immich.Asset{
		{ID: "a1", OriginalPath: "/data/lib/a.jpg", SizeBytes: 1200},
		{ID: "a2", OriginalPath: "/data/lib/b.jpg", SizeBytes: 3400},
		{ID: "a3", OriginalPath: "/data/lib/c.jpg"},
	}
	if len(assets) != len(want) {
		t.Fatalf("got %d assets, want %d", len(assets), len(want))
	}
	for i := range want {
		if assets[i] != want[i] {
			t.Fatalf("asset %d = %+v, want %+v", i, assets[i], want[i])
		}
	}
	if len(fake.searches) != 2 {
		t.Fatalf("expected 2 page requests, got %d", len(fake.searches))
	}
}

func TestCreateOrGetTagFindsExistingAcrossShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "bare array", body: `[{"id":"t1","name":"Other"},{"id":"t2","name":"Watercolor85"}]`},
		{name: "items object", body: `{"items":[{"id":"t2","name":"Watercolor85"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			server := newFakeServer(t, map[string]http.HandlerFunc{
				"GET /api/tags": func(w http.ResponseWriter, r *http.Request) {
					calls++
					if r.URL.Query().Get("page") != "1" {
						t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
					}
					_, _ = io.WriteString(w, tc.body)
				},
			})
			client := newClient(t, server.URL)
			for range 2 {
				id, err := client.CreateOrGetTag(context.Background(), "Watercolor85")
				if err != nil {
					t.Fatalf("CreateOrGetTag: %v", err)
				}
				if id != "t2" {
					t.Fatalf("id = %q", id)
				}
			}
			if calls != 1 {
				t.Fatalf("expected cached lookup, got %d list calls", calls)
			}
		})
	}
}

func TestCreateOrGetTagCreatesMissing(t *testing.T) {
	var pages []string
	created := ""
	server := newFakeServer(t, map[string]http.HandlerFunc{
		"GET /api/tags": func(w http.ResponseWriter, r *http.Request) {
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			pages = append(pages, r.URL.Query().Get("page"))
			if page == 1 {
				_, _ = io.WriteString(w, `[{"id":"t1","name":"A"},{"id":"t2","name":"B"}]`)
				return
			}
			_, _ = io.WriteString(w, `[]`)
		},
		"POST /api/tags": func(w http.ResponseWriter, r *http.Request) {
			created, _ = decodeBody(t, r)["name"].(string)
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":"new-tag","name":"Painting"}`)
		},
	})

	client := newClient(t, server.URL, immich.WithPageSize(2))
	id, err := client.CreateOrGetTag(context.Background(), "Painting")
	if err != nil {
		t.Fatalf("CreateOrGetTag: %v", err)
	}
	if id != "new-tag" || created != "Painting" {
		t.Fatalf("id=%q created=%q", id, created)
	}
	if len(pages) != 2 {
		t.Fatalf("expected two list pages, got %v", pages)
	}
}

func TestCreateOrGetTagStopsWhenServerIgnoresPaging(t *testing.T) {
	calls := 0
	server := newFakeServer(t, map[string]http.HandlerFunc{
		"GET /api/tags": func(w http.ResponseWriter, r *http.Request) {
			calls++
			_, _ = io.WriteString(w, `[{"id":"t1","name":"A"},{"id":"t2","name":"B"}]`)
		},
		"POST /api/tags": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"id":"t3"}`)
		},
	})
	client := newClient(t, server.URL, immich.WithPageSize(2))
	if _, err := client.CreateOrGetTag(context.Background(), "C"); err != nil {
		t.Fatalf("CreateOrGetTag: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected listing to stop after a repeated page, got %d calls", calls)
	}
}

func TestAddTagDeleteAndTrash(t *testing.T) {
	fake := &fakeServer{tagged: map[string][]string{}}
	server := newFakeServer(t, map[string]http.HandlerFunc{
		"PUT /api/tags/tag-9/assets": func(w http.ResponseWriter, r *http.Request) {
			var body struct{ IDs []string }
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, &body)
			fake.tagged["tag-9"] = append(fake.tagged["tag-9"], body.IDs...)
			_, _ = io.WriteString(w, `[{"id":"a1","success":true}]`)
		},
		"DELETE /api/assets": func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				IDs   []string `json:"ids"`
				Force bool     `json:"force"`
			}
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, &body)
			if body.Force {
				t.Error("deletes must go through the trash")
			}
			fake.deleted = append(fake.deleted, body.IDs)
			w.WriteHeader(http.StatusNoContent)
		},
		"POST /api/trash/empty": func(w http.ResponseWriter, r *http.Request) {
			fake.trashCalls++
			_, _ = io.WriteString(w, `{"count":2}`)
		},
	})
	client := newClient(t, server.URL)
	ctx := context.Background()

	if err := client.AddTagToAssets(ctx, []string{"a1", "a2"}, "tag-9"); err != nil {
		t.Fatalf("AddTagToAssets: %v", err)
	}
	if err := client.AddTagToAssets(ctx, nil, "tag-9"); err != nil {
		t.Fatalf("AddTagToAssets empty: %v", err)
	}
	if err := client.DeleteAssets(ctx, []string{"a1", "a2"}); err != nil {
		t.Fatalf("DeleteAssets: %v", err)
	}
	if err := client.EmptyTrash(ctx); err != nil {
		t.Fatalf("EmptyTrash: %v", err)
	}

	if got := fake.tagged["tag-9"]; len(got) != 2 {
		t.Fatalf("tagged = %v", got)
	}
	if len(fake.deleted) != 1 || len(fake.deleted[0]) != 2 {
		t.Fatalf("deleted = %v", fake.deleted)
	}
	if fake.trashCalls != 1 {
		t.Fatalf("trash calls = %d", fake.trashCalls)
	}
}

func TestListDuplicateGroups(t *testing.T) {
	server := newFakeServer(t, map[string]http.HandlerFunc{
		"GET /api/duplicates": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[
                {"duplicateId":"g1","assets":[
                    {"id":"x","originalPath":"/lib/x.jpg","exifInfo":{"fileSizeInByte":500}},
                    {"id":"y","originalPath":"/ext/y.jpg","exifInfo":null,"exif":{"fileSizeInByte":900}}
                ]},
                {"duplicateId":"g2","assets":[{"id":"z","originalPath":"/ext/z.jpg","exifInfo":{"fileSizeInByte":"oops"}}]}
            ]`)
		},
	})
	groups, err := newClient(t, server.URL).ListDuplicateGroups(context.Background())
	if err != nil {
		t.Fatalf("ListDuplicateGroups: %v", err)
	}
	if len(groups) != 2 || groups[0].ID != "g1" || len(groups[0].Assets) != 2 {
		t.Fatalf("unexpected groups %+v", groups)
	}
	if groups[0].Assets[0].SizeBytes != 500 || groups[0].Assets[1].SizeBytes != 900 {
		t.Fatalf("unexpected sizes %+v", groups[0].Assets)
	}
	if groups[1].Assets[0].SizeBytes != 0 {
		t.Fatalf("expected unparseable size to read as zero, got %d", groups[1].Assets[0].SizeBytes)
	}
}

func TestFindAssetByPathRequiresExactMatch(t *testing.T) {
	server := newFakeServer(t, map[string]http.HandlerFunc{
		"POST /api/search/metadata": func(w http.ResponseWriter, r *http.Request) {
			path, _ := decodeBody(t, r)["originalPath"].(string)
			if path == "/lib/a.jpg" {
				_, _ = io.WriteString(w, `{"assets":{"items":[{"id":"a","originalPath":"/lib/a.jpg"}]}}`)
				return
			}
			_, _ = io.WriteString(w, `{"assets":{"items":[{"id":"b","originalPath":"/lib/other.jpg"}]}}`)
		},
	})
	client := newClient(t, server.URL)
	ctx := context.Background()

	id, ok, err := client.FindAssetByPath(ctx, "/lib/a.jpg")
	if err != nil || !ok || id != "a" {
		t.Fatalf("exact match: id=%q ok=%v err=%v", id, ok, err)
	}
	if _, ok, err := client.FindAssetByPath(ctx, "/lib/missing.jpg"); err != nil || ok {
		t.Fatalf("expected no match, ok=%v err=%v", ok, err)
	}
}

func TestErrorsMapToTaxonomy(t *testing.T) {
	server := newFakeServer(t, map[string]http.HandlerFunc{
		"GET /api/duplicates": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"GET /api/tags": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `"not a list"`)
		},
	})
	client := newClient(t, server.URL)
	ctx := context.Background()

	if _, err := client.ListDuplicateGroups(ctx); !errors.Is(err, services.ErrUnreachable) {
		t.Fatalf("expected unreachable for 500, got %v", err)
	}
	if _, err := client.CreateOrGetTag(ctx, "x"); !errors.Is(err, services.ErrCorrupt) {
		t.Fatalf("expected corrupt for unknown shape, got %v", err)
	}

	wrongKey, err := immich.New(server.URL, "nope")
	if err != nil {
		t.Fatal(err)
	}
	if err := wrongKey.EmptyTrash(ctx); !errors.Is(err, services.ErrUnreachable) {
		t.Fatalf("expected unreachable for rejected key, got %v", err)
	}

	server.Close()
	if err := client.DeleteAssets(ctx, []string{"a"}); !errors.Is(err, services.ErrUnreachable) {
		t.Fatalf("expected unreachable after shutdown, got %v", err)
	}
}

func TestPing(t *testing.T) {
	server := newFakeServer(t, map[string]http.HandlerFunc{
		"GET /api/server/ping": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"res":"pong"}`)
		},
	})
	if err := newClient(t, server.URL).Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
