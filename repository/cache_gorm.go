package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	domainCache "github.com/AzielCF/az-qcache/domains/cache"
	pkgError "github.com/AzielCF/az-qcache/pkg/error"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- Persistence Models ---

type cacheEntryModel struct {
	ID             string    `gorm:"primaryKey"`
	ComputeCost    float64   `gorm:"not null"`
	SizeBytes      int64     `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null;index:idx_cache_entries_created_at"`
	LastAccessedAt time.Time `gorm:"not null"`
	AccessCount    int64     `gorm:"not null;default:0"`
	Score          float64   `gorm:"not null;index:idx_cache_entries_score"`
	ProtectedUntil time.Time `gorm:"not null;index:idx_cache_entries_protected_until"`
}

func (cacheEntryModel) TableName() string {
	return "cache_entries"
}

type cacheEdgeModel struct {
	DependentID  string `gorm:"primaryKey;index:idx_cache_edges_dependent"`
	DependencyID string `gorm:"primaryKey;index:idx_cache_edges_dependency"`
}

func (cacheEdgeModel) TableName() string {
	return "cache_dependencies"
}

type cacheSettingModel struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string `gorm:"column:value"`
}

func (cacheSettingModel) TableName() string {
	return "cache_settings"
}

// Config keys persisted in cache_settings.
const (
	keyHalfLife        = "cache_half_life"
	keySizeLimitBytes  = "cache_size_limit_bytes"
	keyProtectedPeriod = "cache_protected_period_seconds"
)

// --- Repository Implementation ---

// CacheGormRepository is the durable metadata store, backed by gorm over
// SQLite or Postgres. Every mutation runs in a transaction so a partially
// applied create or delete is never observable.
type CacheGormRepository struct {
	db       *gorm.DB
	defaults domainCache.CacheConfig
}

func NewCacheGormRepository(db *gorm.DB, defaults domainCache.CacheConfig) *CacheGormRepository {
	return &CacheGormRepository{db: db, defaults: defaults}
}

// InitSchema migrates the tables and seeds the config row with the deployment
// defaults. Seeding never overwrites values an administrator already set.
func (r *CacheGormRepository) InitSchema(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&cacheEntryModel{}, &cacheEdgeModel{}, &cacheSettingModel{}); err != nil {
		return err
	}

	seed := map[string]string{
		keyHalfLife:        strconv.FormatFloat(r.defaults.HalfLife, 'g', -1, 64),
		keySizeLimitBytes:  strconv.FormatInt(r.defaults.CacheSizeLimitBytes, 10),
		keyProtectedPeriod: strconv.FormatInt(r.defaults.ProtectedPeriodSeconds, 10),
	}
	for key, value := range seed {
		err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).Create(&cacheSettingModel{Key: key, Value: value}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *CacheGormRepository) CreateEntry(ctx context.Context, entry *domainCache.CacheEntry, dependencyIDs []string) error {
	if entry.SizeBytes <= 0 {
		return pkgError.ValidationError(fmt.Sprintf("size_bytes must be positive, got %d", entry.SizeBytes))
	}
	if entry.ComputeCost < 0 {
		return pkgError.ValidationError(fmt.Sprintf("compute_cost must not be negative, got %f", entry.ComputeCost))
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&cacheEntryModel{}).Where("id = ?", entry.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return pkgError.ConflictError(fmt.Sprintf("cache entry %s already exists", entry.ID))
		}

		for _, depID := range dependencyIDs {
			if depID == entry.ID {
				return pkgError.CycleError(fmt.Sprintf("entry %s cannot depend on itself", entry.ID))
			}
		}

		if len(dependencyIDs) > 0 {
			var depCount int64
			if err := tx.Model(&cacheEntryModel{}).Where("id IN ?", dependencyIDs).Count(&depCount).Error; err != nil {
				return err
			}
			if depCount != int64(len(dependencyIDs)) {
				return pkgError.ConflictError(fmt.Sprintf("entry %s references dependencies that are not registered", entry.ID))
			}

			// Dependencies must exist before their dependents, which makes
			// cycles structurally impossible. Keep a reachability check as a
			// defensive fallback.
			if err := ensureAcyclic(tx, entry.ID, dependencyIDs); err != nil {
				return err
			}
		}

		model := toCacheEntryModel(entry)
		if err := tx.Create(&model).Error; err != nil {
			if isDuplicateErr(err) {
				return pkgError.ConflictError(fmt.Sprintf("cache entry %s already exists", entry.ID))
			}
			return err
		}

		for _, depID := range dependencyIDs {
			edge := cacheEdgeModel{DependentID: entry.ID, DependencyID: depID}
			if err := tx.Create(&edge).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ensureAcyclic walks dependency edges from the declared dependencies and
// rejects the insert if the new entry is reachable.
func ensureAcyclic(tx *gorm.DB, newID string, dependencyIDs []string) error {
	visited := make(map[string]bool)
	frontier := append([]string{}, dependencyIDs...)

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		if current == newID {
			return pkgError.CycleError(fmt.Sprintf("inserting entry %s would create a dependency cycle", newID))
		}
		if visited[current] {
			continue
		}
		visited[current] = true

		var next []string
		if err := tx.Model(&cacheEdgeModel{}).Where("dependent_id = ?", current).Pluck("dependency_id", &next).Error; err != nil {
			return err
		}
		frontier = append(frontier, next...)
	}
	return nil
}

// RecordAccess bumps the access statistics and the running score in a single
// UPDATE so concurrent accesses never lose increments.
func (r *CacheGormRepository) RecordAccess(ctx context.Context, id string) error {
	cfg, err := r.GetConfig(ctx)
	if err != nil {
		return err
	}
	multiplier := domainCache.AccessMultiplier(cfg.HalfLife)
	now := time.Now().UTC()

	result := r.db.WithContext(ctx).Model(&cacheEntryModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"access_count":     gorm.Expr("access_count + 1"),
		"last_accessed_at": now,
		"score":            gorm.Expr("score * ? + compute_cost / size_bytes", multiplier),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgError.NotFoundError(fmt.Sprintf("cache entry %s not found", id))
	}
	return nil
}

func (r *CacheGormRepository) GetEntry(ctx context.Context, id string) (*domainCache.CacheEntry, error) {
	var m cacheEntryModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgError.NotFoundError(fmt.Sprintf("cache entry %s not found", id))
		}
		return nil, err
	}
	entry := fromCacheEntryModel(m)
	return &entry, nil
}

func (r *CacheGormRepository) ListEntries(ctx context.Context) ([]*domainCache.CacheEntry, error) {
	var models []cacheEntryModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	entries := make([]*domainCache.CacheEntry, len(models))
	for i, m := range models {
		entry := fromCacheEntryModel(m)
		entries[i] = &entry
	}
	return entries, nil
}

func (r *CacheGormRepository) GetDependents(ctx context.Context, id string) ([]string, error) {
	var dependents []string
	err := r.db.WithContext(ctx).Model(&cacheEdgeModel{}).
		Where("dependency_id = ?", id).
		Order("dependent_id ASC").
		Pluck("dependent_id", &dependents).Error
	if err != nil {
		return nil, err
	}
	return dependents, nil
}

func (r *CacheGormRepository) GetDependencies(ctx context.Context, id string) ([]string, error) {
	var dependencies []string
	err := r.db.WithContext(ctx).Model(&cacheEdgeModel{}).
		Where("dependent_id = ?", id).
		Order("dependency_id ASC").
		Pluck("dependency_id", &dependencies).Error
	if err != nil {
		return nil, err
	}
	return dependencies, nil
}

// DeleteEntry removes the entry together with every incident edge. Entries
// that depended on it stay valid: correctness was captured at computation
// time, not retrieval time.
func (r *CacheGormRepository) DeleteEntry(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&cacheEntryModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgError.NotFoundError(fmt.Sprintf("cache entry %s not found", id))
		}
		return tx.Where("dependent_id = ? OR dependency_id = ?", id, id).Delete(&cacheEdgeModel{}).Error
	})
}

func (r *CacheGormRepository) TotalSize(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&cacheEntryModel{}).
		Select("COALESCE(SUM(size_bytes), 0)").
		Scan(&total).Error
	return total, err
}

func (r *CacheGormRepository) GetConfig(ctx context.Context) (domainCache.CacheConfig, error) {
	cfg := r.defaults

	var models []cacheSettingModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return cfg, err
	}

	for _, m := range models {
		value := strings.TrimSpace(m.Value)
		switch m.Key {
		case keyHalfLife:
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				cfg.HalfLife = f
			}
		case keySizeLimitBytes:
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				cfg.CacheSizeLimitBytes = n
			}
		case keyProtectedPeriod:
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				cfg.ProtectedPeriodSeconds = n
			}
		}
	}
	return cfg, nil
}

func (r *CacheGormRepository) SetConfig(ctx context.Context, cfg domainCache.CacheConfig) error {
	values := map[string]string{
		keyHalfLife:        strconv.FormatFloat(cfg.HalfLife, 'g', -1, 64),
		keySizeLimitBytes:  strconv.FormatInt(cfg.CacheSizeLimitBytes, 10),
		keyProtectedPeriod: strconv.FormatInt(cfg.ProtectedPeriodSeconds, 10),
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"value": value}),
			}).Create(&cacheSettingModel{Key: key, Value: value}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Mappers ---

func toCacheEntryModel(e *domainCache.CacheEntry) cacheEntryModel {
	return cacheEntryModel{
		ID:             e.ID,
		ComputeCost:    e.ComputeCost,
		SizeBytes:      e.SizeBytes,
		CreatedAt:      e.CreatedAt,
		LastAccessedAt: e.LastAccessedAt,
		AccessCount:    e.AccessCount,
		Score:          e.Score,
		ProtectedUntil: e.ProtectedUntil,
	}
}

func fromCacheEntryModel(m cacheEntryModel) domainCache.CacheEntry {
	return domainCache.CacheEntry{
		ID:             m.ID,
		ComputeCost:    m.ComputeCost,
		SizeBytes:      m.SizeBytes,
		CreatedAt:      m.CreatedAt,
		LastAccessedAt: m.LastAccessedAt,
		AccessCount:    m.AccessCount,
		Score:          m.Score,
		ProtectedUntil: m.ProtectedUntil,
	}
}

func isDuplicateErr(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key value")
}
