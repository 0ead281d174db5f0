package usecase_test

import (
	"context"
	"testing"

	domainCache "github.com/AzielCF/az-qcache/domains/cache"
)

func TestShrinkOneEmptyCache(t *testing.T) {
	env := setupService(t)

	evicted, err := env.service.ShrinkOne(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if evicted != nil {
		t.Errorf("expected nil on empty cache, got %+v", evicted)
	}
}

func TestShrinkOneEvictsLowestScore(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	// Same cost and size, so both start with equal scores. Retrieving q1
	// twice must make q2 the eviction victim.
	_ = env.service.OnComputed(ctx, "q1", 10, 1000, nil)
	_ = env.service.OnComputed(ctx, "q2", 10, 1000, nil)

	_ = env.service.RecordAccess(ctx, "q1")
	_ = env.service.RecordAccess(ctx, "q1")

	evicted, err := env.service.ShrinkOne(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if evicted == nil || evicted.ID != "q2" {
		t.Fatalf("expected q2 evicted, got %+v", evicted)
	}

	if _, err := env.service.GetEntry(ctx, "q1"); err != nil {
		t.Errorf("expected q1 to survive, got %v", err)
	}

	status, _ := env.service.Lookup(ctx, "q2")
	if status != domainCache.StatusAbsent {
		t.Errorf("expected q2 absent after eviction, got %s", status)
	}
}

func TestShrinkOneSkipsProtected(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	cfg, _ := env.service.GetConfig(ctx)
	cfg.ProtectedPeriodSeconds = 3600
	if err := env.service.SetConfig(ctx, cfg); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_ = env.service.OnComputed(ctx, "fresh", 1, 100, nil)

	evicted, err := env.service.ShrinkOne(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if evicted != nil {
		t.Errorf("expected no eviction while everything is protected, got %+v", evicted)
	}

	if _, err := env.service.GetEntry(ctx, "fresh"); err != nil {
		t.Errorf("expected protected entry to survive, got %v", err)
	}
}

func TestShrinkBelowSize(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	_ = env.service.OnComputed(ctx, "q1", 10, 1000, nil)
	_ = env.service.OnComputed(ctx, "q2", 10, 1000, nil)
	_ = env.service.OnComputed(ctx, "q3", 10, 1000, nil)

	// Keep q3 hot so the shrink has a definite survivor.
	_ = env.service.RecordAccess(ctx, "q3")
	_ = env.service.RecordAccess(ctx, "q3")

	report, err := env.service.ShrinkBelowSize(ctx, 1500)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !report.TargetReached {
		t.Error("expected target to be reached")
	}
	if report.TargetBytes != 1500 {
		t.Errorf("expected target 1500, got %d", report.TargetBytes)
	}
	if len(report.Evicted) != 2 {
		t.Errorf("expected 2 evictions, got %v", report.Evicted)
	}
	if report.BytesFreed != 2000 {
		t.Errorf("expected 2000 bytes freed, got %d", report.BytesFreed)
	}

	if _, err := env.service.GetEntry(ctx, "q3"); err != nil {
		t.Errorf("expected q3 to survive, got %v", err)
	}
}

func TestShrinkBelowSizeAlreadyUnderTarget(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	_ = env.service.OnComputed(ctx, "q1", 1, 100, nil)

	report, err := env.service.ShrinkBelowSize(ctx, 1000)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !report.TargetReached {
		t.Error("expected target reached without evictions")
	}
	if len(report.Evicted) != 0 {
		t.Errorf("expected no evictions, got %v", report.Evicted)
	}
}

func TestShrinkBelowSizeStopsAtProtected(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	cfg, _ := env.service.GetConfig(ctx)
	cfg.ProtectedPeriodSeconds = 3600
	if err := env.service.SetConfig(ctx, cfg); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_ = env.service.OnComputed(ctx, "q1", 1, 1000, nil)
	_ = env.service.OnComputed(ctx, "q2", 1, 1000, nil)

	report, err := env.service.ShrinkBelowSize(ctx, 500)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.TargetReached {
		t.Error("expected target not reached when everything is protected")
	}
	if len(report.Evicted) != 0 {
		t.Errorf("expected no evictions, got %v", report.Evicted)
	}

	entries, _ := env.service.ListEntries(ctx)
	if len(entries) != 2 {
		t.Errorf("expected both protected entries to survive, got %d", len(entries))
	}
}
