package usecase

import (
	"context"
	"errors"
	"time"

	domainCache "github.com/AzielCF/az-qcache/domains/cache"
	pkgError "github.com/AzielCF/az-qcache/pkg/error"
	"github.com/sirupsen/logrus"
)

// selectEvictionCandidate picks the unprotected entry with the lowest score.
// Ties break on oldest created_at, then lowest id, so eviction order is
// deterministic.
func selectEvictionCandidate(entries []*domainCache.CacheEntry, now time.Time) *domainCache.CacheEntry {
	var candidate *domainCache.CacheEntry
	for _, e := range entries {
		if e.Protected(now) {
			continue
		}
		if candidate == nil {
			candidate = e
			continue
		}
		if less(e, candidate) {
			candidate = e
		}
	}
	return candidate
}

func less(a, b *domainCache.CacheEntry) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// ShrinkOne evicts the lowest-scoring unprotected entry via a non-cascading
// invalidation. Returns nil when every remaining entry is protected. A
// concurrent removal of the selected entry is benign; selection just runs
// again.
func (s *cacheService) ShrinkOne(ctx context.Context) (*domainCache.CacheEntry, error) {
	for {
		entries, err := s.store.ListEntries(ctx)
		if err != nil {
			return nil, err
		}

		candidate := selectEvictionCandidate(entries, time.Now().UTC())
		if candidate == nil {
			return nil, nil
		}

		_, err = s.Invalidate(ctx, candidate.ID, false)
		if err != nil {
			var notFound pkgError.NotFoundError
			if errors.As(err, &notFound) {
				// Lost the race against another evict/invalidate; pick again.
				logrus.Debugf("[CACHE] Eviction candidate %s vanished, reselecting", candidate.ID)
				continue
			}
			return nil, err
		}

		logrus.Infof("[CACHE] Evicted %s (score=%.6f size=%d)", candidate.ID, candidate.Score, candidate.SizeBytes)
		return candidate, nil
	}
}

// ShrinkBelowSize evicts entries until total cached bytes drop to the target
// or only protected entries remain. targetBytes <= 0 means "use the
// configured cache size limit". Each eviction is a complete atomic unit, so
// the loop can stop between steps without leaving partial state.
func (s *cacheService) ShrinkBelowSize(ctx context.Context, targetBytes int64) (domainCache.ShrinkReport, error) {
	report := domainCache.ShrinkReport{}

	if targetBytes <= 0 {
		cfg, err := s.config(ctx)
		if err != nil {
			return report, err
		}
		targetBytes = cfg.CacheSizeLimitBytes
	}
	report.TargetBytes = targetBytes

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		total, err := s.store.TotalSize(ctx)
		if err != nil {
			return report, err
		}
		if total <= targetBytes {
			report.TargetReached = true
			return report, nil
		}

		evicted, err := s.ShrinkOne(ctx)
		if err != nil {
			return report, err
		}
		if evicted == nil {
			// Everything left is protected; report rather than fail.
			logrus.Warnf("[CACHE] Shrink stopped above target: %d bytes cached, %d wanted, all remaining entries protected", total, targetBytes)
			report.TargetReached = false
			return report, nil
		}

		report.Evicted = append(report.Evicted, evicted.ID)
		report.BytesFreed += evicted.SizeBytes
	}
}
