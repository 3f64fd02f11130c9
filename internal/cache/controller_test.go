package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bppowerplay/portal/internal/model"
)

// ==================== Fakes ====================

type memNotifier struct {
	mu     sync.Mutex
	events []*model.WSEvent
}

func (n *memNotifier) Broadcast(event *model.WSEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *memNotifier) byType(t string) []*model.WSEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*model.WSEvent
	for _, e := range n.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// failPutStore wraps a MemoryStore and fails the write of one url.
type failPutStore struct {
	*MemoryStore
	failURL string
}

func (s *failPutStore) Put(ctx context.Context, generation, url string, e *Entry) error {
	if url == s.failURL {
		return errors.New("write refused")
	}
	return s.MemoryStore.Put(ctx, generation, url, e)
}

// ==================== Helpers ====================

const testGeneration = "powerplay-cache-v1-3-0"

var testManifest = []string{"/", "/index.html", "/css/style.css", "/js/app.js"}

func newTestOrigin(t *testing.T) (*httptest.Server, *sync.Map) {
	t.Helper()
	var requests sync.Map
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Store(r.Method+" "+r.URL.RequestURI(), true)
		switch {
		case strings.HasSuffix(r.URL.Path, ".json"):
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"origin":"` + r.URL.Path + `"}`))
		case strings.HasSuffix(r.URL.Path, ".css"):
			w.Header().Set("Content-Type", "text/css")
			w.Write([]byte("body{}"))
		default:
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html>" + r.URL.Path + "</html>"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newTestController(t *testing.T, store Store, notifier Notifier, originURL string) *Controller {
	t.Helper()
	c, err := NewController(store, notifier, ControllerConfig{
		Generation: testGeneration,
		OriginURL:  originURL,
		Manifest:   testManifest,
		FreshPath:  "videos.json",
	})
	if err != nil {
		t.Fatalf("controller construction failed: %v", err)
	}
	return c
}

func decodeErrorBody(t *testing.T, body []byte) map[string]string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("error body is not JSON: %v (%s)", err, body)
	}
	return out
}

// ==================== Lifecycle ====================

func TestGenerationName(t *testing.T) {
	got := GenerationName("powerplay-cache", "v1.3.0")
	if got != "powerplay-cache-v1-3-0" {
		t.Errorf("GenerationName = %q, want powerplay-cache-v1-3-0", got)
	}
}

func TestInstallPopulatesManifestAsUnit(t *testing.T) {
	origin, _ := newTestOrigin(t)
	store := NewMemoryStore()
	c := newTestController(t, store, &memNotifier{}, origin.URL)

	if err := c.Install(context.Background()); err != nil {
		t.Fatalf("install failed: %v", err)
	}

	for _, p := range testManifest {
		entry, err := store.Get(context.Background(), testGeneration, p)
		if err != nil || entry == nil {
			t.Errorf("manifest entry %s missing after install", p)
		}
	}
}

func TestInstallFailureReclaimsPartialGeneration(t *testing.T) {
	origin, _ := newTestOrigin(t)
	store := &failPutStore{MemoryStore: NewMemoryStore(), failURL: "/css/style.css"}
	c := newTestController(t, store, &memNotifier{}, origin.URL)

	if err := c.Install(context.Background()); err == nil {
		t.Fatal("install must fail when any manifest entry cannot be stored")
	}

	gens, _ := store.Generations(context.Background())
	for _, g := range gens {
		if g == testGeneration {
			t.Error("partial generation survived a failed install")
		}
	}
}

func TestActivateDeletesOldGenerations(t *testing.T) {
	origin, _ := newTestOrigin(t)
	store := NewMemoryStore()
	c := newTestController(t, store, &memNotifier{}, origin.URL)

	ctx := context.Background()
	store.Open(ctx, "powerplay-cache-v1-2-0")
	store.Open(ctx, "powerplay-cache-v1-1-0")

	if err := c.Install(ctx); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if err := c.Activate(ctx); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	gens, _ := store.Generations(ctx)
	if len(gens) != 1 || gens[0] != testGeneration {
		t.Errorf("generations after activate = %v, want only %s", gens, testGeneration)
	}
}

func TestControllerChangeFiresOncePerGeneration(t *testing.T) {
	origin, _ := newTestOrigin(t)
	store := NewMemoryStore()
	notifier := &memNotifier{}
	c := newTestController(t, store, notifier, origin.URL)

	ctx := context.Background()
	if err := c.Install(ctx); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if err := c.Activate(ctx); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	// Repeat takeover requests must not retrigger the page reload.
	if err := c.Activate(ctx); err != nil {
		t.Fatalf("repeat activate failed: %v", err)
	}
	c.HandleMessage(ctx, model.WSEvent{Type: model.WSEventSkipWaiting})

	changes := notifier.byType(model.WSEventControllerChange)
	if len(changes) != 1 {
		t.Errorf("controller_change events = %d, want exactly 1", len(changes))
	}
}

func TestRunAnnouncesUpdateOnlyWhenUpgrading(t *testing.T) {
	origin, _ := newTestOrigin(t)

	// First boot: no prior generation, no update announcement.
	store := NewMemoryStore()
	notifier := &memNotifier{}
	c := newTestController(t, store, notifier, origin.URL)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if len(notifier.byType(model.WSEventUpdateAvailable)) != 0 {
		t.Error("first install must not announce an update")
	}

	// Upgrade: an older generation exists, so pages get the announcement.
	store2 := NewMemoryStore()
	store2.Open(context.Background(), "powerplay-cache-v1-2-0")
	notifier2 := &memNotifier{}
	c2 := newTestController(t, store2, notifier2, origin.URL)
	if err := c2.Run(context.Background()); err != nil {
		t.Fatalf("upgrade run failed: %v", err)
	}
	if len(notifier2.byType(model.WSEventUpdateAvailable)) != 1 {
		t.Error("upgrade must announce the new generation exactly once")
	}
	gens, _ := store2.Generations(context.Background())
	if len(gens) != 1 {
		t.Errorf("old generation survived the upgrade: %v", gens)
	}
}

// ==================== Fetch policies ====================

func TestNonGETBypassesCache(t *testing.T) {
	origin, requests := newTestOrigin(t)
	store := NewMemoryStore()
	c := newTestController(t, store, &memNotifier{}, origin.URL)
	store.Open(context.Background(), testGeneration)

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/track", strings.NewReader("event=play")))

	if rec.Code != http.StatusOK {
		t.Errorf("passthrough status = %d, want 200", rec.Code)
	}
	if _, ok := requests.Load("POST /api/track"); !ok {
		t.Error("POST never reached the origin")
	}
	if entry, _ := store.Get(context.Background(), testGeneration, "/api/track"); entry != nil {
		t.Error("non-GET responses must never be cached")
	}
}

func TestFreshPathIsNeverServedFromCache(t *testing.T) {
	origin, _ := newTestOrigin(t)
	store := NewMemoryStore()
	c := newTestController(t, store, &memNotifier{}, origin.URL)
	store.Open(context.Background(), testGeneration)

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data/videos.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("fresh fetch status = %d, want 200", rec.Code)
	}
	if entry, _ := store.Get(context.Background(), testGeneration, "/data/videos.json"); entry != nil {
		t.Error("the content manifest must never be cached")
	}
}

func TestFreshPathSynthesizesErrorWhenOriginDown(t *testing.T) {
	origin, _ := newTestOrigin(t)
	store := NewMemoryStore()
	c := newTestController(t, store, &memNotifier{}, origin.URL)
	origin.Close()

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data/videos.json", nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
	body := decodeErrorBody(t, rec.Body.Bytes())
	if body["error"] != "Failed to load data" || body["message"] != "Network request failed" {
		t.Errorf("unexpected error body: %v", body)
	}
}

func TestNetworkFirstCachesThenFallsBack(t *testing.T) {
	origin, _ := newTestOrigin(t)
	store := NewMemoryStore()
	c := newTestController(t, store, &memNotifier{}, origin.URL)
	store.Open(context.Background(), testGeneration)

	// Origin up: fresh response, cloned into the cache.
	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lectures/intro.html", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("fresh document status = %d, want 200", rec.Code)
	}
	fresh := rec.Body.String()
	if entry, _ := store.Get(context.Background(), testGeneration, "/lectures/intro.html"); entry == nil {
		t.Fatal("document was not cached on the way through")
	}

	// Origin down: the cached clone keeps the page working.
	origin.Close()
	rec = httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lectures/intro.html", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("offline document status = %d, want 200 from cache", rec.Code)
	}
	if rec.Body.String() != fresh {
		t.Error("offline response differs from the cached clone")
	}

	// Origin down and nothing cached: gateway timeout.
	rec = httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lectures/never-seen.html", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("uncached offline document status = %d, want 504", rec.Code)
	}
}

func TestCacheFirstServesCachedAndRevalidates(t *testing.T) {
	origin, _ := newTestOrigin(t)
	store := NewMemoryStore()
	c := newTestController(t, store, &memNotifier{}, origin.URL)

	ctx := context.Background()
	store.Open(ctx, testGeneration)
	store.Put(ctx, testGeneration, "/css/style.css", &Entry{
		StatusCode:  http.StatusOK,
		ContentType: "text/css",
		Body:        []byte("stale{}"),
	})

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/css/style.css", nil))
	if rec.Body.String() != "stale{}" {
		t.Errorf("cache-first served %q, want the cached body", rec.Body.String())
	}

	// The background refresh replaces the stale entry for next time.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entry, _ := store.Get(ctx, testGeneration, "/css/style.css")
		if entry != nil && string(entry.Body) == "body{}" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("revalidation never refreshed the cached asset")
}

func TestCacheFirstMissFetchesAndFills(t *testing.T) {
	origin, _ := newTestOrigin(t)
	store := NewMemoryStore()
	c := newTestController(t, store, &memNotifier{}, origin.URL)
	store.Open(context.Background(), testGeneration)

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/css/theme.css", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("miss fetch status = %d, want 200", rec.Code)
	}

	entry, _ := store.Get(context.Background(), testGeneration, "/css/theme.css")
	if entry == nil {
		t.Fatal("asset miss was not written back to the cache")
	}
	if string(entry.Body) != rec.Body.String() {
		t.Error("cached body differs from the served body")
	}
}

func TestAssetMissWithOriginDownFails(t *testing.T) {
	origin, _ := newTestOrigin(t)
	store := NewMemoryStore()
	c := newTestController(t, store, &memNotifier{}, origin.URL)
	store.Open(context.Background(), testGeneration)
	origin.Close()

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/img/logo.png", nil))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}
