package usecase

import (
	"context"
	"errors"

	domainCache "github.com/AzielCF/az-qcache/domains/cache"
	pkgError "github.com/AzielCF/az-qcache/pkg/error"
	"github.com/sirupsen/logrus"
)

// Invalidate forcibly removes an entry ahead of normal eviction pressure.
// With cascade, every transitive dependent is removed too, dependents
// strictly before the entries they were computed from. Each deletion is
// atomic, so a failure mid-cascade leaves a valid (if incomplete) subset,
// never a corrupt one.
func (s *cacheService) Invalidate(ctx context.Context, fingerprint string, cascade bool) (domainCache.InvalidationReport, error) {
	report := domainCache.InvalidationReport{Cascade: cascade}

	if _, err := s.store.GetEntry(ctx, fingerprint); err != nil {
		return report, err
	}

	targets := []string{fingerprint}
	if cascade {
		order, err := s.graph.DeletionOrder(ctx, fingerprint)
		if err != nil {
			return report, err
		}
		targets = order
	}

	for _, id := range targets {
		if err := s.store.DeleteEntry(ctx, id); err != nil {
			var notFound pkgError.NotFoundError
			if errors.As(err, &notFound) {
				// Already removed by a concurrent evict/invalidate.
				logrus.Debugf("[CACHE] Invalidation target %s already gone", id)
				continue
			}
			return report, err
		}
		report.Removed = append(report.Removed, id)

		if err := s.tracker.Clear(ctx, id); err != nil {
			logrus.WithError(err).Warnf("[CACHE] Failed to retract %s from tracker", id)
		}
	}

	logrus.Infof("[CACHE] Invalidated %s (cascade=%v, removed=%d)", fingerprint, cascade, len(report.Removed))
	return report, nil
}
