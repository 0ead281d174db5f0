package usecase

import (
	"context"
	"sort"

	domainCache "github.com/AzielCF/az-qcache/domains/cache"
)

// DependencyGraph materializes reachability over the store's dependency
// edges. It holds no state of its own; every traversal reads the store so
// there is never a second source of truth to drift.
type DependencyGraph struct {
	store domainCache.ICacheStore
}

func NewDependencyGraph(store domainCache.ICacheStore) *DependencyGraph {
	return &DependencyGraph{store: store}
}

// TransitiveDependents returns every entry that directly or indirectly used
// id in its computation. The result does not include id itself. Traversal
// tracks visited nodes defensively even though insertion keeps the edge set
// acyclic.
func (g *DependencyGraph) TransitiveDependents(ctx context.Context, id string) ([]string, error) {
	visited := map[string]bool{id: true}
	var result []string

	frontier := []string{id}
	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		dependents, err := g.store.GetDependents(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, dep := range dependents {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			result = append(result, dep)
			frontier = append(frontier, dep)
		}
	}

	sort.Strings(result)
	return result, nil
}

// DeletionOrder returns id plus all its transitive dependents, ordered so
// that every dependent appears before anything it depends on. Deleting in
// this order keeps the store's edge invariants intact at every step of a
// cascade.
func (g *DependencyGraph) DeletionOrder(ctx context.Context, id string) ([]string, error) {
	dependents, err := g.TransitiveDependents(ctx, id)
	if err != nil {
		return nil, err
	}

	inSet := map[string]bool{id: true}
	for _, dep := range dependents {
		inSet[dep] = true
	}

	// Kahn's algorithm over the induced subgraph: a node is deletable once
	// all of its in-set dependents are gone.
	remaining := make(map[string]int, len(inSet))
	for node := range inSet {
		nodeDependents, err := g.store.GetDependents(ctx, node)
		if err != nil {
			return nil, err
		}
		count := 0
		for _, dep := range nodeDependents {
			if inSet[dep] {
				count++
			}
		}
		remaining[node] = count
	}

	var frontier []string
	for node, count := range remaining {
		if count == 0 {
			frontier = append(frontier, node)
		}
	}
	sort.Strings(frontier)

	order := make([]string, 0, len(inSet))
	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		order = append(order, current)

		dependencies, err := g.store.GetDependencies(ctx, current)
		if err != nil {
			return nil, err
		}
		sort.Strings(dependencies)
		for _, dep := range dependencies {
			if !inSet[dep] {
				continue
			}
			remaining[dep]--
			if remaining[dep] == 0 {
				frontier = append(frontier, dep)
			}
		}
	}

	return order, nil
}
