package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	coreConfig "github.com/AzielCF/az-qcache/core/config"
	domainCache "github.com/AzielCF/az-qcache/domains/cache"
	pkgError "github.com/AzielCF/az-qcache/pkg/error"
	"github.com/AzielCF/az-qcache/validations"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// configSnapshotTTL bounds how stale a cached config read may be. Hot-path
// operations tolerate this; administrative reads always hit the store.
const configSnapshotTTL = 10 * time.Second

type cacheService struct {
	store   domainCache.ICacheStore
	tracker domainCache.IStateTracker
	graph   *DependencyGraph

	cfgMu       sync.RWMutex
	cfgSnapshot domainCache.CacheConfig
	cfgLoadedAt time.Time
}

// NewCacheService wires the cache management engine: the durable store is
// authoritative, the tracker is a best-effort mirror notified after every
// store mutation.
func NewCacheService(store domainCache.ICacheStore, tracker domainCache.IStateTracker) domainCache.ICacheUsecase {
	return &cacheService{
		store:   store,
		tracker: tracker,
		graph:   NewDependencyGraph(store),
	}
}

// config returns a possibly slightly stale snapshot of the persisted config.
func (s *cacheService) config(ctx context.Context) (domainCache.CacheConfig, error) {
	s.cfgMu.RLock()
	if time.Since(s.cfgLoadedAt) < configSnapshotTTL {
		cfg := s.cfgSnapshot
		s.cfgMu.RUnlock()
		return cfg, nil
	}
	s.cfgMu.RUnlock()

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return domainCache.CacheConfig{}, err
	}

	s.cfgMu.Lock()
	s.cfgSnapshot = cfg
	s.cfgLoadedAt = time.Now()
	s.cfgMu.Unlock()

	return cfg, nil
}

func (s *cacheService) invalidateConfigSnapshot() {
	s.cfgMu.Lock()
	s.cfgLoadedAt = time.Time{}
	s.cfgMu.Unlock()
}

// OnComputed registers a completed computation: the entry and its dependency
// edges are created atomically, then the tracker is notified.
func (s *cacheService) OnComputed(ctx context.Context, fingerprint string, costSeconds float64, sizeBytes int64, dependencyFingerprints []string) error {
	if err := validations.ValidateComputationReport(ctx, fingerprint, costSeconds, sizeBytes); err != nil {
		return err
	}

	cfg, err := s.config(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	entry := &domainCache.CacheEntry{
		ID:             fingerprint,
		ComputeCost:    costSeconds,
		SizeBytes:      sizeBytes,
		CreatedAt:      now,
		LastAccessedAt: now,
		AccessCount:    0,
		Score:          domainCache.InitialScore(costSeconds, sizeBytes),
		ProtectedUntil: now.Add(cfg.ProtectedPeriod()),
	}

	if err := s.store.CreateEntry(ctx, entry, dependencyFingerprints); err != nil {
		return err
	}

	// The tracker is derived state; a failed mark only delays a lookup until
	// the store fallback self-heals it.
	if err := s.tracker.MarkCached(ctx, fingerprint); err != nil {
		logrus.WithError(err).Warnf("[CACHE] Failed to mark %s as cached in tracker", fingerprint)
	}

	logrus.Debugf("[CACHE] Registered entry %s (cost=%.2fs size=%d deps=%d)", fingerprint, costSeconds, sizeBytes, len(dependencyFingerprints))
	return nil
}

func (s *cacheService) MarkComputing(ctx context.Context, fingerprint string) error {
	return s.tracker.MarkComputing(ctx, fingerprint)
}

// Lookup consults the tracker first and falls back to the metadata store on
// a miss. A store hit the tracker did not know about is re-marked so the
// drift heals itself.
func (s *cacheService) Lookup(ctx context.Context, fingerprint string) (domainCache.EntryStatus, error) {
	status, err := s.tracker.Status(ctx, fingerprint)
	if err != nil {
		logrus.WithError(err).Warnf("[CACHE] Tracker lookup failed for %s, falling back to store", fingerprint)
		status = domainCache.StatusAbsent
	}
	if status != domainCache.StatusAbsent {
		return status, nil
	}

	_, err = s.store.GetEntry(ctx, fingerprint)
	if err != nil {
		var notFound pkgError.NotFoundError
		if errors.As(err, &notFound) {
			return domainCache.StatusAbsent, nil
		}
		return domainCache.StatusAbsent, err
	}

	if err := s.tracker.MarkCached(ctx, fingerprint); err != nil {
		logrus.WithError(err).Warnf("[CACHE] Failed to heal tracker state for %s", fingerprint)
	}
	return domainCache.StatusCached, nil
}

func (s *cacheService) RecordAccess(ctx context.Context, fingerprint string) error {
	return s.store.RecordAccess(ctx, fingerprint)
}

func (s *cacheService) GetEntry(ctx context.Context, fingerprint string) (*domainCache.CacheEntry, error) {
	return s.store.GetEntry(ctx, fingerprint)
}

func (s *cacheService) ListEntries(ctx context.Context) ([]*domainCache.CacheEntry, error) {
	return s.store.ListEntries(ctx)
}

func (s *cacheService) Stats(ctx context.Context) (domainCache.CacheStats, error) {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return domainCache.CacheStats{}, err
	}

	var total int64
	for _, e := range entries {
		total += e.SizeBytes
	}

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return domainCache.CacheStats{}, err
	}

	return domainCache.CacheStats{
		Entries:    int64(len(entries)),
		TotalSize:  total,
		HumanSize:  humanize.Bytes(uint64(total)),
		SizeLimit:  cfg.CacheSizeLimitBytes,
		HumanLimit: humanize.Bytes(uint64(cfg.CacheSizeLimitBytes)),
	}, nil
}

// GetConfig always reads the store: administrators expect the authoritative
// value, not the hot-path snapshot.
func (s *cacheService) GetConfig(ctx context.Context) (domainCache.CacheConfig, error) {
	return s.store.GetConfig(ctx)
}

func (s *cacheService) SetConfig(ctx context.Context, cfg domainCache.CacheConfig) error {
	if err := validations.ValidateCacheConfig(ctx, cfg); err != nil {
		return err
	}
	if err := s.store.SetConfig(ctx, cfg); err != nil {
		return err
	}

	s.invalidateConfigSnapshot()
	logrus.Infof("[CACHE] Config updated: half_life=%.2f size_limit=%d protected_period=%ds", cfg.HalfLife, cfg.CacheSizeLimitBytes, cfg.ProtectedPeriodSeconds)
	return nil
}

// StartBackgroundShrink runs ShrinkBelowSize against the configured limit on
// the deployment interval until ctx is cancelled.
func (s *cacheService) StartBackgroundShrink(ctx context.Context) {
	interval := time.Hour
	if coreConfig.Global != nil && coreConfig.Global.Cache.ShrinkIntervalMinutes > 0 {
		interval = time.Duration(coreConfig.Global.Cache.ShrinkIntervalMinutes) * time.Minute
	}
	if interval < 5*time.Minute {
		interval = 5 * time.Minute
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}

			report, err := s.ShrinkBelowSize(ctx, 0)
			if err != nil {
				logrus.WithError(err).Error("[CACHE] Scheduled shrink failed")
				continue
			}
			if len(report.Evicted) > 0 {
				logrus.Infof("[CACHE] Scheduled shrink evicted %d entries (%s freed, target reached: %v)",
					len(report.Evicted), humanize.Bytes(uint64(report.BytesFreed)), report.TargetReached)
			}
		}
	}()
}
