package repository

import (
	"context"
	"sync"

	domainCache "github.com/AzielCF/az-qcache/domains/cache"
)

// MemoryStateTracker implements IStateTracker with an in-process map. This is
// the default backend; state is lost on restart, which is fine because the
// tracker is a disposable projection rebuilt by resync.
type MemoryStateTracker struct {
	mu     sync.RWMutex
	states map[string]domainCache.EntryStatus
}

func NewMemoryStateTracker() *MemoryStateTracker {
	return &MemoryStateTracker{
		states: make(map[string]domainCache.EntryStatus),
	}
}

func (t *MemoryStateTracker) MarkCached(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.states[id] = domainCache.StatusCached
	return nil
}

func (t *MemoryStateTracker) MarkComputing(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.states[id] = domainCache.StatusComputing
	return nil
}

func (t *MemoryStateTracker) Clear(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.states, id)
	return nil
}

func (t *MemoryStateTracker) Status(ctx context.Context, id string) (domainCache.EntryStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	status, ok := t.states[id]
	if !ok {
		return domainCache.StatusAbsent, nil
	}
	return status, nil
}

func (t *MemoryStateTracker) Computing(ctx context.Context) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var ids []string
	for id, status := range t.states {
		if status == domainCache.StatusComputing {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (t *MemoryStateTracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.states = make(map[string]domainCache.EntryStatus)
	return nil
}
