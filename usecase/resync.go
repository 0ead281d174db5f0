package usecase

import (
	"context"

	domainCache "github.com/AzielCF/az-qcache/domains/cache"
	"github.com/sirupsen/logrus"
)

// Resync rebuilds the tracker from the metadata store: wipe, then re-mark
// every stored entry as cached. Fingerprints in Computing state are lost, so
// callers must ensure no computation is in flight; anything found is warned
// about but cannot be fully prevented against races.
//
// Individual entries that cannot be re-marked are skipped and reported, not
// fatal.
func (s *cacheService) Resync(ctx context.Context) (domainCache.ResyncReport, error) {
	report := domainCache.ResyncReport{}

	inFlight, err := s.tracker.Computing(ctx)
	if err != nil {
		logrus.WithError(err).Warn("[RESYNC] Could not list in-flight computations before resync")
	}
	if len(inFlight) > 0 {
		logrus.Warnf("[RESYNC] %d computations in flight will lose their state: %v", len(inFlight), inFlight)
	}

	if err := s.tracker.Flush(ctx); err != nil {
		return report, err
	}

	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return report, err
	}

	for _, entry := range entries {
		if err := s.tracker.MarkCached(ctx, entry.ID); err != nil {
			logrus.WithError(err).Warnf("[RESYNC] Skipping %s: could not re-mark", entry.ID)
			report.Skipped = append(report.Skipped, entry.ID)
			continue
		}
		report.Marked++
	}

	logrus.Infof("[RESYNC] Tracker rebuilt: %d marked, %d skipped", report.Marked, len(report.Skipped))
	return report, nil
}
