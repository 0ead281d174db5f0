package usecase_test

import (
	"context"
	"testing"

	domainCache "github.com/AzielCF/az-qcache/domains/cache"
)

func TestResyncRebuildsTracker(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	_ = env.service.OnComputed(ctx, "q1", 1, 100, nil)
	_ = env.service.OnComputed(ctx, "q2", 1, 100, nil)

	// Poison the tracker with state the store knows nothing about.
	_ = env.tracker.MarkCached(ctx, "ghost")
	_ = env.tracker.Clear(ctx, "q2")

	report, err := env.service.Resync(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.Marked != 2 {
		t.Errorf("expected 2 marked, got %d", report.Marked)
	}
	if len(report.Skipped) != 0 {
		t.Errorf("expected nothing skipped, got %v", report.Skipped)
	}

	for _, id := range []string{"q1", "q2"} {
		status, _ := env.tracker.Status(ctx, id)
		if status != domainCache.StatusCached {
			t.Errorf("expected %s cached after resync, got %s", id, status)
		}
	}

	status, _ := env.tracker.Status(ctx, "ghost")
	if status != domainCache.StatusAbsent {
		t.Errorf("expected ghost flushed, got %s", status)
	}
}

func TestResyncEmptyStore(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	_ = env.tracker.MarkComputing(ctx, "in-flight")

	report, err := env.service.Resync(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.Marked != 0 {
		t.Errorf("expected nothing marked, got %d", report.Marked)
	}

	// In-flight state does not survive a resync.
	status, _ := env.tracker.Status(ctx, "in-flight")
	if status != domainCache.StatusAbsent {
		t.Errorf("expected in-flight state wiped, got %s", status)
	}
}
