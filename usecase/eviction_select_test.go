package usecase

import (
	"testing"
	"time"

	domainCache "github.com/AzielCF/az-qcache/domains/cache"
)

func entry(id string, score float64, createdAt, protectedUntil time.Time) *domainCache.CacheEntry {
	return &domainCache.CacheEntry{
		ID:             id,
		Score:          score,
		CreatedAt:      createdAt,
		ProtectedUntil: protectedUntil,
	}
}

func TestSelectEvictionCandidate(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)

	t.Run("lowest score wins", func(t *testing.T) {
		got := selectEvictionCandidate([]*domainCache.CacheEntry{
			entry("a", 2, past, past),
			entry("b", 1, past, past),
			entry("c", 3, past, past),
		}, now)
		if got == nil || got.ID != "b" {
			t.Errorf("expected b, got %+v", got)
		}
	})

	t.Run("protected entries are skipped", func(t *testing.T) {
		got := selectEvictionCandidate([]*domainCache.CacheEntry{
			entry("a", 1, past, now.Add(time.Hour)),
			entry("b", 2, past, past),
		}, now)
		if got == nil || got.ID != "b" {
			t.Errorf("expected b, got %+v", got)
		}
	})

	t.Run("nil when all protected", func(t *testing.T) {
		got := selectEvictionCandidate([]*domainCache.CacheEntry{
			entry("a", 1, past, now.Add(time.Hour)),
		}, now)
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("score tie breaks on oldest", func(t *testing.T) {
		got := selectEvictionCandidate([]*domainCache.CacheEntry{
			entry("a", 1, past, past),
			entry("b", 1, past.Add(-time.Hour), past),
		}, now)
		if got == nil || got.ID != "b" {
			t.Errorf("expected b, got %+v", got)
		}
	})

	t.Run("full tie breaks on id", func(t *testing.T) {
		got := selectEvictionCandidate([]*domainCache.CacheEntry{
			entry("b", 1, past, past),
			entry("a", 1, past, past),
		}, now)
		if got == nil || got.ID != "a" {
			t.Errorf("expected a, got %+v", got)
		}
	})
}
