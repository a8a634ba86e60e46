// Package cluster partitions fingerprints into similarity groups. Two
// fingerprints are linked when their Hamming distance is within the scaled
// threshold; groups are the connected components of that relation.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"snappurge/types"
)

// ScaleFactor converts a threshold into the maximum Hamming distance that links
// two fingerprints
const ScaleFactor = 3

// ErrInvalidThreshold is returned for negative thresholds
var ErrInvalidThreshold = errors.New("threshold must not be negative")

// Limit returns the largest Hamming distance linked at threshold t
func Limit(t int) int {
	return ScaleFactor * t
}

type options struct {
	workers int
}

// Option configures Cluster
type Option func(*options)

// WithWorkers sets how many goroutines share the pairwise comparison.
// n <= 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// Cluster groups the index's fingerprints by transitive similarity. Each group
// holds the paths of all its fingerprints, ordered by ascending fingerprint and
// then discovery order. Groups with fewer than two paths are dropped. A
// cancelled context yields no groups at all.
func Cluster(ctx context.Context, index types.Index, threshold int, opts ...Option) ([]types.SimilarityGroup, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidThreshold, threshold)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	nodes := sortedFingerprints(index)
	forest, err := linkPairs(ctx, nodes, Limit(threshold), o.workers)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	groups := collectGroups(index, nodes, forest)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kept := groups[:0]
	for _, g := range groups {
		if len(g.Paths) >= 2 {
			kept = append(kept, g)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return kept, nil
}

func sortedFingerprints(index types.Index) []types.Fingerprint {
	nodes := make([]types.Fingerprint, 0, len(index))
	for fp := range index {
		nodes = append(nodes, fp)
	}
	slices.Sort(nodes)
	return nodes
}

// linkPairs compares every unordered pair once. Rows are striped across
// workers; each worker unions into a private forest and the forests are
// merged once all rows are done.
func linkPairs(ctx context.Context, nodes []types.Fingerprint, limit, workers int) (*UnionFind, error) {
	n := len(nodes)
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = max(n, 1)
	}

	locals := make([]*UnionFind, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			local := NewUnionFind(n)
			for i := w; i < n; i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				for j := i + 1; j < n; j++ {
					if nodes[i].Distance(nodes[j]) <= limit {
						local.Union(i, j)
					}
				}
			}
			locals[w] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	forest := NewUnionFind(n)
	for _, local := range locals {
		forest.Merge(local)
	}
	return forest, nil
}

// collectGroups walks nodes in ascending order, so a group's representative is
// its smallest fingerprint and groups come out ordered by representative
func collectGroups(index types.Index, nodes []types.Fingerprint, forest *UnionFind) []types.SimilarityGroup {
	var groups []types.SimilarityGroup
	slot := make(map[int]int)
	for i, fp := range nodes {
		root := forest.Find(i)
		pos, ok := slot[root]
		if !ok {
			pos = len(groups)
			slot[root] = pos
			groups = append(groups, types.SimilarityGroup{Representative: fp})
		}
		groups[pos].Paths = append(groups[pos].Paths, index[fp]...)
	}
	return groups
}
