package validations

import (
	"context"

	domainCache "github.com/AzielCF/az-qcache/domains/cache"
	pkgError "github.com/AzielCF/az-qcache/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ValidateCacheConfig rejects configurations that would break scoring or
// eviction. On failure the previous configuration must be retained.
func ValidateCacheConfig(ctx context.Context, cfg domainCache.CacheConfig) error {
	err := validation.ValidateStructWithContext(ctx, &cfg,
		validation.Field(&cfg.HalfLife, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&cfg.CacheSizeLimitBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&cfg.ProtectedPeriodSeconds, validation.Min(int64(0))),
	)

	if err != nil {
		return pkgError.ConfigInvalidError(err.Error())
	}

	return nil
}

// ValidateComputationReport checks the values the execution engine reports
// when a computation completes.
func ValidateComputationReport(ctx context.Context, fingerprint string, costSeconds float64, sizeBytes int64) error {
	if err := validation.Validate(fingerprint, validation.Required); err != nil {
		return pkgError.ValidationError("fingerprint: " + err.Error())
	}
	if costSeconds < 0 {
		return pkgError.ValidationError("compute_cost must not be negative")
	}
	if sizeBytes <= 0 {
		return pkgError.ValidationError("size_bytes must be positive")
	}

	return nil
}
