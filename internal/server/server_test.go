package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lexatlas/wordmap/pkg/cache"
	"github.com/lexatlas/wordmap/pkg/chart"
	"github.com/lexatlas/wordmap/pkg/chart/treemap"
	"github.com/lexatlas/wordmap/pkg/i18n"
	"github.com/lexatlas/wordmap/pkg/store"
	"github.com/lexatlas/wordmap/pkg/viz"
)

type fixture struct {
	srv   *Server
	store *store.MemStore
	frame *viz.ManualFrame
	ts    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := store.NewMemStore()
	st.SetItems([]store.Item{
		{Country: "FR", Collection: "Code civil", WordCount: 100},
		{Country: "FR", Collection: "Code pénal", WordCount: 50},
		{Country: "DE", Collection: "BGB", WordCount: 30},
	})

	lang := i18n.NewSetting(i18n.NewBundle(), "en")
	surface := NewSurface(800, 600)
	frame := &viz.ManualFrame{}
	opts := chart.Options{Zoom: true, Breadcrumbs: true, Palette: []string{"#112233", "#445566"}}

	svc := chart.NewService(&treemap.Engine{RootLabel: "All countries"}, nil)
	v := viz.New(svc, st, lang, surface, frame, opts, nil)

	srv := New(Options{
		Viz:       v,
		Lang:      lang,
		Surface:   surface,
		ChartOpts: opts,
	})

	if err := v.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	frame.Fire()

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		if err := v.Unmount(); err != nil {
			t.Errorf("Unmount: %v", err)
		}
	})

	return &fixture{srv: srv, store: st, frame: frame, ts: ts}
}

func (f *fixture) getBody(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(f.ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return resp, body
}

func (f *fixture) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(f.ts.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	resp.Body.Close()
	return resp
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.getBody(t, "/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestArtifactServesSVG(t *testing.T) {
	f := newFixture(t)

	resp, body := f.getBody(t, "/viz.svg")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("content type = %q", ct)
	}
	svg := string(body)
	if !strings.HasPrefix(svg, "<svg") {
		t.Fatalf("body is not SVG: %.40s", svg)
	}
	for _, want := range []string{">FR<", ">DE<"} {
		if !strings.Contains(svg, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
}

func TestArtifactUnavailableOnDataError(t *testing.T) {
	f := newFixture(t)
	f.getBody(t, "/viz.svg")

	f.store.SetError("upstream down")

	resp, body := f.getBody(t, "/viz.svg")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status during error = %d, want 503", resp.StatusCode)
	}
	var e map[string]string
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if e["code"] == "" {
		t.Error("error body missing code")
	}

	// Serving resumes once the error clears.
	f.store.SetError("")
	f.frame.Fire()
	if resp, _ := f.getBody(t, "/viz.svg"); resp.StatusCode != http.StatusOK {
		t.Errorf("status after recovery = %d, want 200", resp.StatusCode)
	}
}

func TestSummary(t *testing.T) {
	f := newFixture(t)

	resp, body := f.getBody(t, "/api/summary")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var p summaryPayload
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.State != viz.StateReady {
		t.Errorf("state = %q, want ready", p.State)
	}
	if p.ItemsText != "3" || p.WordsText != "180" {
		t.Errorf("counts = %q items / %q words, want 3/180", p.ItemsText, p.WordsText)
	}
	if p.AverageText != "60" {
		t.Errorf("average = %q, want 60", p.AverageText)
	}
	if p.ZoomedNode != nil {
		t.Errorf("zoomed_node = %v, want null", *p.ZoomedNode)
	}
	if p.Language != "en" {
		t.Errorf("language = %q", p.Language)
	}
}

func TestResizeUpdatesArtifact(t *testing.T) {
	f := newFixture(t)
	f.getBody(t, "/viz.svg")

	resp := f.post(t, "/api/resize", `{"width":400,"height":300}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	_, body := f.getBody(t, "/viz.svg")
	if !strings.Contains(string(body), `width="400"`) {
		t.Errorf("artifact not resized:\n%.120s", body)
	}
}

func TestResizeRejectsInvalidDimensions(t *testing.T) {
	f := newFixture(t)
	if resp := f.post(t, "/api/resize", `{"width":-1,"height":300}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if resp := f.post(t, "/api/resize", `{not json`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", resp.StatusCode)
	}
}

func TestLanguageSwitch(t *testing.T) {
	f := newFixture(t)

	if resp := f.post(t, "/api/language", `{"language":"de"}`); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	f.frame.Fire()

	_, body := f.getBody(t, "/api/summary")
	var p summaryPayload
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Language != "de" {
		t.Errorf("language = %q, want de", p.Language)
	}

	if resp := f.post(t, "/api/language", `{"language":"nope!"}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid language status = %d, want 400", resp.StatusCode)
	}
}

func TestZoomRoundTrip(t *testing.T) {
	f := newFixture(t)

	if resp := f.post(t, "/api/zoom", `{"node":"FR"}`); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	_, body := f.getBody(t, "/api/summary")
	var p summaryPayload
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ZoomedNode == nil || *p.ZoomedNode != "FR" {
		t.Errorf("zoomed_node = %v, want FR", p.ZoomedNode)
	}
}

func TestIndexPage(t *testing.T) {
	f := newFixture(t)

	resp, body := f.getBody(t, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	page := string(body)
	for _, want := range []string{"<title>", "/viz.svg", "/api/resize"} {
		if !strings.Contains(page, want) {
			t.Errorf("index missing %q", want)
		}
	}
}

func TestArtifactCacheHit(t *testing.T) {
	st := store.NewMemStore()
	st.SetItems([]store.Item{{Country: "FR", Collection: "A", WordCount: 10}})

	lang := i18n.NewSetting(i18n.NewBundle(), "en")
	surface := NewSurface(800, 600)
	frame := &viz.ManualFrame{}
	svc := chart.NewService(&treemap.Engine{}, nil)
	v := viz.New(svc, st, lang, surface, frame, chart.Options{}, nil)

	c := newCountingCache()
	srv := New(Options{Viz: v, Lang: lang, Surface: surface, Cache: c})

	if err := v.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer v.Unmount()
	frame.Fire()

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for i := 0; i < 2; i++ {
		resp, err := http.Get(ts.URL + "/viz.svg")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
	}
	if c.sets != 1 {
		t.Errorf("cache sets = %d, want 1 (second request should hit)", c.sets)
	}
}

// countingCache is an in-memory cache that counts writes.
type countingCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newCountingCache() *countingCache {
	return &countingCache{data: make(map[string][]byte)}
}

func (c *countingCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *countingCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	c.sets++
	return nil
}

func (c *countingCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *countingCache) Close() error { return nil }

var _ cache.Cache = (*countingCache)(nil)
