package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/bppowerplay/portal/internal/model"
)

// Phase is the controller's position in the install → activate lifecycle.
type Phase int

const (
	PhaseNew Phase = iota
	PhaseInstalled
	PhaseActive
)

// Notifier delivers controller lifecycle events to open pages.
type Notifier interface {
	Broadcast(event *model.WSEvent)
}

// ControllerConfig holds the controller's wiring.
type ControllerConfig struct {
	Generation string   // name of the generation this controller serves
	OriginURL  string   // static content origin
	Manifest   []string // core asset paths installed as a unit
	FreshPath  string   // path fragment of the always-fresh content manifest
}

// Controller intercepts page-level requests and serves them with a
// per-request-class network/cache policy, keeping exactly one cache
// generation alive.
type Controller struct {
	store    Store
	notifier Notifier
	origin   *url.URL
	client   *http.Client

	generation string
	manifest   []string
	freshPath  string

	mu      sync.Mutex
	phase   Phase
	claimed map[string]bool // generations that already triggered a reload
}

// NewController creates a cache controller for one generation.
func NewController(store Store, notifier Notifier, cfg ControllerConfig) (*Controller, error) {
	origin, err := url.Parse(cfg.OriginURL)
	if err != nil {
		return nil, fmt.Errorf("invalid origin URL: %w", err)
	}

	return &Controller{
		store:      store,
		notifier:   notifier,
		origin:     origin,
		client:     &http.Client{Timeout: 30 * time.Second},
		generation: cfg.Generation,
		manifest:   cfg.Manifest,
		freshPath:  cfg.FreshPath,
		claimed:    make(map[string]bool),
	}, nil
}

// GenerationName stamps a version string into a store-safe generation name.
func GenerationName(prefix, version string) string {
	v := strings.ToLower(strings.ReplaceAll(version, ".", "-"))
	return prefix + "-" + v
}

// Generation returns the name of the generation this controller serves.
func (c *Controller) Generation() string {
	return c.generation
}

// Run performs the full lifecycle on startup: install the new generation,
// announce the update when an older generation was live, then take over
// eagerly. Content is public and idempotent, so the controller never waits
// for open pages to close.
func (c *Controller) Run(ctx context.Context) error {
	old, err := c.oldGenerations(ctx)
	if err != nil {
		return err
	}

	if err := c.Install(ctx); err != nil {
		return err
	}

	if len(old) > 0 && c.notifier != nil {
		c.notifier.Broadcast(&model.WSEvent{
			Type:    model.WSEventUpdateAvailable,
			Payload: model.UpdateAvailableEvent{Generation: c.generation},
		})
	}

	return c.Activate(ctx)
}

// Install opens the generation and populates it with the fixed manifest as a
// unit. Any fetch or store failure fails the whole install and reclaims the
// partial generation.
func (c *Controller) Install(ctx context.Context) error {
	if err := c.store.Open(ctx, c.generation); err != nil {
		return fmt.Errorf("install: %w", err)
	}

	for _, p := range c.manifest {
		entry, err := c.fetchOrigin(ctx, p)
		if err == nil {
			err = c.store.Put(ctx, c.generation, p, entry)
		}
		if err != nil {
			// Partial population must not survive as a half-built generation.
			if delErr := c.store.Delete(ctx, c.generation); delErr != nil {
				log.Printf("⚠️  Failed to reclaim partial generation %s: %v", c.generation, delErr)
			}
			return fmt.Errorf("install failed at %s: %w", p, err)
		}
	}

	c.mu.Lock()
	c.phase = PhaseInstalled
	c.mu.Unlock()
	log.Printf("📥 Installed cache generation %s (%d entries)", c.generation, len(c.manifest))
	return nil
}

// Activate deletes every generation whose name is not the current one, then
// claims open pages with a controller-change event. The claim fires at most
// once per generation transition, so pages reload exactly once.
func (c *Controller) Activate(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseActive {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	old, err := c.oldGenerations(ctx)
	if err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	for _, g := range old {
		if err := c.store.Delete(ctx, g); err != nil {
			return fmt.Errorf("activate: failed to delete generation %s: %w", g, err)
		}
		log.Printf("🗑  Deleted stale cache generation %s", g)
	}

	c.mu.Lock()
	c.phase = PhaseActive
	claim := !c.claimed[c.generation]
	c.claimed[c.generation] = true
	c.mu.Unlock()

	if claim && c.notifier != nil {
		c.notifier.Broadcast(&model.WSEvent{
			Type:    model.WSEventControllerChange,
			Payload: model.ControllerChangeEvent{Generation: c.generation},
		})
	}
	log.Printf("✅ Cache generation %s is live", c.generation)
	return nil
}

// HandleMessage processes the single command pages may send: skip waiting,
// which forces an immediate takeover.
func (c *Controller) HandleMessage(ctx context.Context, event model.WSEvent) {
	if event.Type != model.WSEventSkipWaiting {
		return
	}
	if err := c.Activate(ctx); err != nil {
		log.Printf("❌ Skip-waiting activation failed: %v", err)
	}
}

// ServeHTTP applies the fetch interception policy to one request.
func (c *Controller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		c.passthrough(w, r)
		return
	}

	if strings.Contains(r.URL.Path, c.freshPath) {
		c.networkOnly(w, r)
		return
	}

	if isDocument(r.URL.Path) {
		c.networkFirst(w, r)
		return
	}

	c.cacheFirst(w, r)
}

// networkOnly serves the always-fresh content manifest. Staleness is worse
// than failure here, so a network error synthesizes a structured error body
// instead of falling back to cache.
func (c *Controller) networkOnly(w http.ResponseWriter, r *http.Request) {
	entry, err := c.fetchOrigin(r.Context(), r.URL.RequestURI())
	if err != nil {
		writeEntry(w, errorEntry())
		return
	}
	writeEntry(w, entry)
}

// networkFirst serves documents and structured data: fresh when reachable,
// with the successful response cloned into the live generation, falling back
// to cache when the origin is down.
func (c *Controller) networkFirst(w http.ResponseWriter, r *http.Request) {
	key := r.URL.RequestURI()

	entry, err := c.fetchOrigin(r.Context(), key)
	if err == nil {
		if putErr := c.store.Put(r.Context(), c.generation, key, entry); putErr != nil {
			log.Printf("⚠️  Failed to cache %s: %v", key, putErr)
		}
		writeEntry(w, entry)
		return
	}

	cached, cacheErr := c.store.Get(r.Context(), c.generation, key)
	if cacheErr != nil || cached == nil {
		writeError(w, http.StatusGatewayTimeout, "Content unavailable", "Network request failed and nothing is cached")
		return
	}
	writeEntry(w, cached)
}

// cacheFirst serves static assets: the cached entry immediately when present,
// with a concurrent refresh for next time; otherwise the live fetch.
func (c *Controller) cacheFirst(w http.ResponseWriter, r *http.Request) {
	key := r.URL.RequestURI()

	cached, err := c.store.Get(r.Context(), c.generation, key)
	if err != nil {
		log.Printf("⚠️  Cache read failed for %s: %v", key, err)
	}
	if cached != nil {
		writeEntry(w, cached)
		go c.revalidate(key)
		return
	}

	entry, err := c.fetchOrigin(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to load data", "Network request failed")
		return
	}
	if putErr := c.store.Put(r.Context(), c.generation, key, entry); putErr != nil {
		log.Printf("⚠️  Failed to cache %s: %v", key, putErr)
	}
	writeEntry(w, entry)
}

// revalidate refreshes a cached asset in the background.
func (c *Controller) revalidate(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entry, err := c.fetchOrigin(ctx, key)
	if err != nil {
		return
	}
	if err := c.store.Put(ctx, c.generation, key, entry); err != nil {
		log.Printf("⚠️  Revalidate failed for %s: %v", key, err)
	}
}

// passthrough forwards non-GET requests to the origin untouched.
func (c *Controller) passthrough(w http.ResponseWriter, r *http.Request) {
	target := c.origin.ResolveReference(&url.URL{Path: r.URL.Path, RawQuery: r.URL.RawQuery})

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Bad upstream request", err.Error())
		return
	}
	req.Header = r.Header.Clone()

	resp, err := c.client.Do(req)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Origin unreachable", err.Error())
		return
	}
	defer resp.Body.Close()

	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// fetchOrigin GETs one path from the content origin.
func (c *Controller) fetchOrigin(ctx context.Context, rawPath string) (*Entry, error) {
	ref, err := url.Parse(rawPath)
	if err != nil {
		return nil, err
	}
	target := c.origin.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Entry{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// oldGenerations returns every stored generation except the current one.
func (c *Controller) oldGenerations(ctx context.Context) ([]string, error) {
	gens, err := c.store.Generations(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, g := range gens {
		if g != c.generation {
			out = append(out, g)
		}
	}
	return out, nil
}

// isDocument reports whether a path is a page document or generic structured
// data (network-first class). Everything else is a static asset.
func isDocument(p string) bool {
	ext := path.Ext(p)
	return ext == "" || ext == ".html" || ext == ".json"
}

func writeEntry(w http.ResponseWriter, e *Entry) {
	if e.ContentType != "" {
		w.Header().Set("Content-Type", e.ContentType)
	}
	w.WriteHeader(e.StatusCode)
	w.Write(e.Body)
}

func errorEntry() *Entry {
	body, _ := json.Marshal(map[string]string{
		"error":   "Failed to load data",
		"message": "Network request failed",
	})
	return &Entry{
		StatusCode:  http.StatusBadGateway,
		ContentType: "application/json",
		Body:        body,
	}
}

func writeError(w http.ResponseWriter, status int, errMsg, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   errMsg,
		"message": detail,
	})
}
