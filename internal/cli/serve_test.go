package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/flowcanvas/pkg/cache"
	"github.com/matzehuels/flowcanvas/pkg/library"
	"github.com/matzehuels/flowcanvas/pkg/patch"
	"github.com/matzehuels/flowcanvas/pkg/pipeline"
)

func writeSamplePatch(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.json")
	p := &patch.Patch{
		Version: patch.Version,
		Nodes: []patch.Node{
			{ID: "a", X: 40, Y: 40, Text: "number"},
			{ID: "b", X: 40, Y: 120, Text: "add"},
		},
		Connections: []patch.Connection{{From: "a", Outlet: 0, To: "b", Inlet: 0}},
	}
	if err := patch.Export(p, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestServer(t *testing.T, path string) *httptest.Server {
	t.Helper()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(fc, nil, logger)
	t.Cleanup(func() { runner.Close() })

	srv := newPreviewServer(runner, pipeline.Options{
		PatchPath: path,
		Library:   library.Builtin(),
	}, logger)
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestServeArtifacts(t *testing.T) {
	ts := newTestServer(t, writeSamplePatch(t))

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/patch.svg", "image/svg+xml", `id="node-a"`},
		{"/patch.dot", "text/vnd.graphviz; charset=utf-8", "digraph"},
		{"/scene.json", "application/json", `"label": "add"`},
		{"/patch.json", "application/json", `"text":"number"`},
		{"/", "text/html; charset=utf-8", `<img src="/patch.svg"`},
		{"/healthz", "application/json", `"ok"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, ts.URL+tt.path)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
			}
			if got := resp.Header.Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
			}
			if !strings.Contains(strings.ReplaceAll(body, " ", ""), strings.ReplaceAll(tt.contains, " ", "")) {
				t.Errorf("body does not contain %q:\n%s", tt.contains, body)
			}
		})
	}
}

func TestServeCacheHeaders(t *testing.T) {
	ts := newTestServer(t, writeSamplePatch(t))

	first, _ := get(t, ts.URL+"/patch.svg")
	if got := first.Header.Get("X-Cache"); got != "miss" {
		t.Errorf("first X-Cache = %q, want miss", got)
	}
	second, _ := get(t, ts.URL+"/patch.svg")
	if got := second.Header.Get("X-Cache"); got != "hit" {
		t.Errorf("second X-Cache = %q, want hit", got)
	}
	if first.Header.Get("X-Patch-Hash") == "" || first.Header.Get("X-Patch-Hash") != second.Header.Get("X-Patch-Hash") {
		t.Errorf("X-Patch-Hash should be stable, got %q and %q",
			first.Header.Get("X-Patch-Hash"), second.Header.Get("X-Patch-Hash"))
	}

	_, plain := get(t, ts.URL+"/patch.svg")
	selected, body := get(t, ts.URL+"/patch.svg?select=a")
	if got := selected.Header.Get("X-Cache"); got != "miss" {
		t.Errorf("selection should change the cache key, X-Cache = %q", got)
	}
	if body == plain {
		t.Error("selected svg should differ from the unselected one")
	}
}

func TestServeLookupPatch(t *testing.T) {
	ts := newTestServer(t, writeSamplePatch(t))

	resp, _ := get(t, ts.URL+"/patch.svg")
	hash := resp.Header.Get("X-Patch-Hash")

	resp, body := get(t, ts.URL+"/patches/"+hash)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lookup status = %d, body = %s", resp.StatusCode, body)
	}
	var got patch.Patch
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("lookup body is not a patch: %v\n%s", err, body)
	}
	var ids []string
	for _, n := range got.Nodes {
		ids = append(ids, n.ID)
	}
	if diff := cmp.Diff([]string{"a", "b"}, ids); diff != "" {
		t.Errorf("looked up node ids mismatch (-want +got):\n%s", diff)
	}

	resp, body = get(t, ts.URL+"/patches/deadbeef")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown hash status = %d, want 404", resp.StatusCode)
	}
	var e errorResponse
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if e.Error != "NOT_FOUND" {
		t.Errorf("error code = %q, want NOT_FOUND", e.Error)
	}
}

func TestServeErrors(t *testing.T) {
	missing := newTestServer(t, filepath.Join(t.TempDir(), "missing.json"))
	resp, _ := get(t, missing.URL+"/patch.svg")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing file status = %d, want 404", resp.StatusCode)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	broken := newTestServer(t, bad)
	resp, _ = get(t, broken.URL+"/patch.svg")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("invalid patch status = %d, want 422", resp.StatusCode)
	}
}
