package cache

import (
	"context"
	"time"
)

// CacheEntry is the durable metadata record for one cached, fingerprinted
// computation result. The fingerprint is the entry ID.
type CacheEntry struct {
	ID             string    `json:"id"`
	ComputeCost    float64   `json:"compute_cost"` // wall-clock seconds of the first materialization
	SizeBytes      int64     `json:"size_bytes"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	AccessCount    int64     `json:"access_count"`
	Score          float64   `json:"score"` // running cachey value, updated on access
	ProtectedUntil time.Time `json:"protected_until"`
}

// Protected reports whether the entry is still inside its protected period.
func (e *CacheEntry) Protected(now time.Time) bool {
	return e.ProtectedUntil.After(now)
}

// DependencyEdge records that Dependent was computed using Dependency's result.
type DependencyEdge struct {
	DependentID  string `json:"dependent_id"`
	DependencyID string `json:"dependency_id"`
}

// CacheConfig is the persisted, administrator-mutable cache configuration.
// Changes apply prospectively; existing entries are never invalidated by a
// config update.
type CacheConfig struct {
	HalfLife               float64 `json:"half_life"` // in retrievals, must be > 0
	CacheSizeLimitBytes    int64   `json:"cache_size_limit_bytes"`
	ProtectedPeriodSeconds int64   `json:"protected_period_seconds"`
}

// ProtectedPeriod returns the protected window as a duration.
func (c CacheConfig) ProtectedPeriod() time.Duration {
	return time.Duration(c.ProtectedPeriodSeconds) * time.Second
}

// EntryStatus is the tracker's view of one fingerprint.
type EntryStatus string

const (
	StatusCached    EntryStatus = "cached"
	StatusComputing EntryStatus = "computing"
	StatusAbsent    EntryStatus = "absent"
)

// CacheStats summarizes cache occupancy for disk-usage inspection.
type CacheStats struct {
	Entries    int64  `json:"entries"`
	TotalSize  int64  `json:"total_size"`
	HumanSize  string `json:"human_size"`
	SizeLimit  int64  `json:"size_limit"`
	HumanLimit string `json:"human_limit"`
}

// ShrinkReport describes the outcome of a shrink-below-size run. A run that
// stops because only protected entries remain is reported, not failed.
type ShrinkReport struct {
	Evicted       []string `json:"evicted"`
	BytesFreed    int64    `json:"bytes_freed"`
	TargetBytes   int64    `json:"target_bytes"`
	TargetReached bool     `json:"target_reached"`
}

// InvalidationReport lists every entry removed by an invalidation, including
// transitive dependents when cascading.
type InvalidationReport struct {
	Removed []string `json:"removed"`
	Cascade bool     `json:"cascade"`
}

// ResyncReport describes a tracker rebuild. Skipped entries could not be
// re-marked and were left out rather than aborting the whole resync.
type ResyncReport struct {
	Marked  int      `json:"marked"`
	Skipped []string `json:"skipped,omitempty"`
}

// ICacheStore is the durable, transactional metadata store. It is the single
// source of truth for entries, dependency edges and cache configuration.
type ICacheStore interface {
	// InitSchema creates the necessary tables and seeds the config row.
	InitSchema(ctx context.Context) error

	// CreateEntry atomically inserts the entry and all its dependency edges.
	// Fails with a Conflict error if the id already exists or if any
	// dependency id is not already registered.
	CreateEntry(ctx context.Context, entry *CacheEntry, dependencyIDs []string) error

	// RecordAccess atomically bumps access_count, last_accessed_at and the
	// running score. Increments never race-lose.
	RecordAccess(ctx context.Context, id string) error

	GetEntry(ctx context.Context, id string) (*CacheEntry, error)
	ListEntries(ctx context.Context) ([]*CacheEntry, error)

	// GetDependents returns the ids of entries that directly depend on id
	// (reverse-edge lookup).
	GetDependents(ctx context.Context, id string) ([]string, error)
	// GetDependencies returns the ids this entry was computed from.
	GetDependencies(ctx context.Context, id string) ([]string, error)

	// DeleteEntry removes the entry and all incident edges in one transaction.
	DeleteEntry(ctx context.Context, id string) error

	// TotalSize returns the summed size_bytes across all entries.
	TotalSize(ctx context.Context) (int64, error)

	GetConfig(ctx context.Context) (CacheConfig, error)
	SetConfig(ctx context.Context, cfg CacheConfig) error
}

// IStateTracker is the ephemeral, low-latency mirror of cache state consulted
// on the hot path. It never originates state and may be wiped at any time.
type IStateTracker interface {
	MarkCached(ctx context.Context, id string) error
	MarkComputing(ctx context.Context, id string) error
	Clear(ctx context.Context, id string) error
	Status(ctx context.Context, id string) (EntryStatus, error)

	// Computing lists every fingerprint currently marked as computing.
	Computing(ctx context.Context) ([]string, error)

	// Flush wipes the whole tracker.
	Flush(ctx context.Context) error
}

// ICacheUsecase is the cache management engine surface used by the query
// execution engine and by administrative tooling.
type ICacheUsecase interface {
	// Execution engine hooks
	OnComputed(ctx context.Context, fingerprint string, costSeconds float64, sizeBytes int64, dependencyFingerprints []string) error
	MarkComputing(ctx context.Context, fingerprint string) error
	Lookup(ctx context.Context, fingerprint string) (EntryStatus, error)
	RecordAccess(ctx context.Context, fingerprint string) error

	// Administrative operations
	ShrinkOne(ctx context.Context) (*CacheEntry, error)
	ShrinkBelowSize(ctx context.Context, targetBytes int64) (ShrinkReport, error)
	Invalidate(ctx context.Context, fingerprint string, cascade bool) (InvalidationReport, error)
	Resync(ctx context.Context) (ResyncReport, error)

	GetEntry(ctx context.Context, fingerprint string) (*CacheEntry, error)
	ListEntries(ctx context.Context) ([]*CacheEntry, error)
	Stats(ctx context.Context) (CacheStats, error)
	GetConfig(ctx context.Context) (CacheConfig, error)
	SetConfig(ctx context.Context, cfg CacheConfig) error

	// StartBackgroundShrink periodically shrinks the cache below the
	// configured size limit until ctx is cancelled.
	StartBackgroundShrink(ctx context.Context)
}
