package repository

import (
	"context"
	"fmt"

	valkeylib "github.com/valkey-io/valkey-go"

	domainCache "github.com/AzielCF/az-qcache/domains/cache"
	"github.com/AzielCF/az-qcache/infrastructure/valkey"
)

const scanBatchSize = 100

// ValkeyStateTracker implements IStateTracker on Valkey so every engine
// replica shares one view of what is cached or computing. Keys are plain
// strings ("cached"/"computing") under the configured prefix.
type ValkeyStateTracker struct {
	client *valkey.Client
	prefix string
}

// NewValkeyStateTracker creates a tracker on an existing Valkey client.
func NewValkeyStateTracker(client *valkey.Client) *ValkeyStateTracker {
	return &ValkeyStateTracker{
		client: client,
		prefix: client.Key("state") + ":",
	}
}

func (t *ValkeyStateTracker) fullKey(id string) string {
	return t.prefix + id
}

func (t *ValkeyStateTracker) inner() valkeylib.Client {
	return t.client.Inner()
}

func (t *ValkeyStateTracker) set(ctx context.Context, id string, status domainCache.EntryStatus) error {
	cmd := t.inner().B().Set().Key(t.fullKey(id)).Value(string(status)).Build()
	if err := t.inner().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to mark %s as %s: %w", id, status, err)
	}
	return nil
}

func (t *ValkeyStateTracker) MarkCached(ctx context.Context, id string) error {
	return t.set(ctx, id, domainCache.StatusCached)
}

func (t *ValkeyStateTracker) MarkComputing(ctx context.Context, id string) error {
	return t.set(ctx, id, domainCache.StatusComputing)
}

func (t *ValkeyStateTracker) Clear(ctx context.Context, id string) error {
	cmd := t.inner().B().Del().Key(t.fullKey(id)).Build()
	if err := t.inner().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to clear state for %s: %w", id, err)
	}
	return nil
}

func (t *ValkeyStateTracker) Status(ctx context.Context, id string) (domainCache.EntryStatus, error) {
	cmd := t.inner().B().Get().Key(t.fullKey(id)).Build()
	value, err := t.inner().Do(ctx, cmd).ToString()
	if err != nil {
		if valkeylib.IsValkeyNil(err) {
			return domainCache.StatusAbsent, nil
		}
		return domainCache.StatusAbsent, fmt.Errorf("failed to get state for %s: %w", id, err)
	}

	switch domainCache.EntryStatus(value) {
	case domainCache.StatusCached:
		return domainCache.StatusCached, nil
	case domainCache.StatusComputing:
		return domainCache.StatusComputing, nil
	default:
		// Unknown payload under our prefix; treat as absent rather than guess.
		return domainCache.StatusAbsent, nil
	}
}

// Computing scans the tracker keyspace and returns every fingerprint marked
// as computing. Uses SCAN for production safety (non-blocking).
func (t *ValkeyStateTracker) Computing(ctx context.Context) ([]string, error) {
	keys, err := t.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	cmd := t.inner().B().Mget().Key(keys...).Build()
	values, err := t.inner().Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to mget tracker states: %w", err)
	}

	var computing []string
	for i, value := range values {
		if domainCache.EntryStatus(value) == domainCache.StatusComputing {
			computing = append(computing, keys[i][len(t.prefix):])
		}
	}
	return computing, nil
}

// Flush deletes every key under the tracker prefix.
func (t *ValkeyStateTracker) Flush(ctx context.Context) error {
	keys, err := t.scanKeys(ctx)
	if err != nil {
		return err
	}

	for start := 0; start < len(keys); start += scanBatchSize {
		end := start + scanBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		cmd := t.inner().B().Del().Key(keys[start:end]...).Build()
		if err := t.inner().Do(ctx, cmd).Error(); err != nil {
			return fmt.Errorf("failed to flush tracker keys: %w", err)
		}
	}
	return nil
}

func (t *ValkeyStateTracker) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		cmd := t.inner().B().Scan().Cursor(cursor).Match(t.prefix + "*").Count(scanBatchSize).Build()
		result, err := t.inner().Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to scan tracker keys: %w", err)
		}

		keys = append(keys, result.Elements...)

		cursor = result.Cursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
