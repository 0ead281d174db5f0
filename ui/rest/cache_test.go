package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	domainCache "github.com/AzielCF/az-qcache/domains/cache"
	pkgError "github.com/AzielCF/az-qcache/pkg/error"
	"github.com/AzielCF/az-qcache/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
)

// fakeCacheService records the last call so handler tests can verify the
// query-parameter plumbing without a real store.
type fakeCacheService struct {
	entries map[string]*domainCache.CacheEntry

	lastInvalidateID      string
	lastInvalidateCascade bool
	lastShrinkTarget      int64
	lastConfig            domainCache.CacheConfig
}

func newFakeCacheService() *fakeCacheService {
	return &fakeCacheService{entries: make(map[string]*domainCache.CacheEntry)}
}

func (f *fakeCacheService) OnComputed(_ context.Context, fingerprint string, cost float64, size int64, _ []string) error {
	f.entries[fingerprint] = &domainCache.CacheEntry{ID: fingerprint, ComputeCost: cost, SizeBytes: size}
	return nil
}

func (f *fakeCacheService) MarkComputing(context.Context, string) error { return nil }

func (f *fakeCacheService) Lookup(_ context.Context, fingerprint string) (domainCache.EntryStatus, error) {
	if _, ok := f.entries[fingerprint]; ok {
		return domainCache.StatusCached, nil
	}
	return domainCache.StatusAbsent, nil
}

func (f *fakeCacheService) RecordAccess(context.Context, string) error { return nil }

func (f *fakeCacheService) ShrinkOne(context.Context) (*domainCache.CacheEntry, error) {
	return nil, nil
}

func (f *fakeCacheService) ShrinkBelowSize(_ context.Context, target int64) (domainCache.ShrinkReport, error) {
	f.lastShrinkTarget = target
	return domainCache.ShrinkReport{TargetBytes: target, TargetReached: true}, nil
}

func (f *fakeCacheService) Invalidate(_ context.Context, fingerprint string, cascade bool) (domainCache.InvalidationReport, error) {
	f.lastInvalidateID = fingerprint
	f.lastInvalidateCascade = cascade
	if _, ok := f.entries[fingerprint]; !ok {
		return domainCache.InvalidationReport{}, pkgError.NotFoundError("cache entry " + fingerprint + " not found")
	}
	delete(f.entries, fingerprint)
	return domainCache.InvalidationReport{Removed: []string{fingerprint}, Cascade: cascade}, nil
}

func (f *fakeCacheService) Resync(context.Context) (domainCache.ResyncReport, error) {
	return domainCache.ResyncReport{Marked: len(f.entries)}, nil
}

func (f *fakeCacheService) GetEntry(_ context.Context, fingerprint string) (*domainCache.CacheEntry, error) {
	entry, ok := f.entries[fingerprint]
	if !ok {
		return nil, pkgError.NotFoundError("cache entry " + fingerprint + " not found")
	}
	return entry, nil
}

func (f *fakeCacheService) ListEntries(context.Context) ([]*domainCache.CacheEntry, error) {
	var out []*domainCache.CacheEntry
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeCacheService) Stats(context.Context) (domainCache.CacheStats, error) {
	return domainCache.CacheStats{Entries: int64(len(f.entries))}, nil
}

func (f *fakeCacheService) GetConfig(context.Context) (domainCache.CacheConfig, error) {
	return f.lastConfig, nil
}

func (f *fakeCacheService) SetConfig(_ context.Context, cfg domainCache.CacheConfig) error {
	f.lastConfig = cfg
	return nil
}

func (f *fakeCacheService) StartBackgroundShrink(context.Context) {}

func setupApp(service domainCache.ICacheUsecase) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Recovery())
	InitRestCache(app, service)
	return app
}

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Results json.RawMessage `json:"results"`
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body []byte) (int, envelope) {
	t.Helper()

	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return resp.StatusCode, env
}

func TestLookupEndpoint(t *testing.T) {
	service := newFakeCacheService()
	_ = service.OnComputed(context.Background(), "q1", 1, 100, nil)
	app := setupApp(service)

	status, env := doRequest(t, app, http.MethodGet, "/cache/lookup/q1", nil)
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if env.Code != "SUCCESS" {
		t.Fatalf("unexpected code %q", env.Code)
	}

	var results map[string]string
	if err := json.Unmarshal(env.Results, &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if results["status"] != "cached" {
		t.Errorf("expected cached, got %q", results["status"])
	}

	status, _ = doRequest(t, app, http.MethodGet, "/cache/lookup/unknown", nil)
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d for absent fingerprint", status)
	}
}

func TestGetEntryNotFoundMapsTo404(t *testing.T) {
	app := setupApp(newFakeCacheService())

	status, env := doRequest(t, app, http.MethodGet, "/cache/entries/missing", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if env.Code != "NOT_FOUND_ERROR" {
		t.Errorf("expected NOT_FOUND_ERROR, got %q", env.Code)
	}
}

func TestInvalidateEndpointCascadeFlag(t *testing.T) {
	service := newFakeCacheService()
	_ = service.OnComputed(context.Background(), "q1", 1, 100, nil)
	app := setupApp(service)

	status, _ := doRequest(t, app, http.MethodDelete, "/cache/entries/q1?cascade=true", nil)
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if service.lastInvalidateID != "q1" {
		t.Errorf("expected q1, got %q", service.lastInvalidateID)
	}
	if !service.lastInvalidateCascade {
		t.Error("expected cascade flag to be forwarded")
	}
}

func TestShrinkEndpointTargetBytes(t *testing.T) {
	service := newFakeCacheService()
	app := setupApp(service)

	status, _ := doRequest(t, app, http.MethodPost, "/cache/shrink?target_bytes=1024", nil)
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if service.lastShrinkTarget != 1024 {
		t.Errorf("expected target 1024, got %d", service.lastShrinkTarget)
	}

	status, env := doRequest(t, app, http.MethodPost, "/cache/shrink?target_bytes=nope", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if env.Code != "BAD_REQUEST" {
		t.Errorf("expected BAD_REQUEST, got %q", env.Code)
	}
}

func TestUpdateConfigEndpoint(t *testing.T) {
	service := newFakeCacheService()
	app := setupApp(service)

	payload, _ := json.Marshal(map[string]any{
		"half_life":                2,
		"cache_size_limit_bytes":   4096,
		"protected_period_seconds": 60,
	})
	status, _ := doRequest(t, app, http.MethodPut, "/cache/config", payload)
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if service.lastConfig.HalfLife != 2 || service.lastConfig.CacheSizeLimitBytes != 4096 {
		t.Errorf("expected config forwarded, got %+v", service.lastConfig)
	}
}

func TestStatsEndpoint(t *testing.T) {
	service := newFakeCacheService()
	_ = service.OnComputed(context.Background(), "q1", 1, 100, nil)
	app := setupApp(service)

	status, env := doRequest(t, app, http.MethodGet, "/cache/stats", nil)
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}

	var stats domainCache.CacheStats
	if err := json.Unmarshal(env.Results, &stats); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
}

func TestResyncEndpoint(t *testing.T) {
	service := newFakeCacheService()
	app := setupApp(service)

	status, env := doRequest(t, app, http.MethodPost, "/cache/resync", nil)
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if env.Code != "SUCCESS" {
		t.Errorf("unexpected code %q", env.Code)
	}
}
