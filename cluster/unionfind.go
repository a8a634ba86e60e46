package cluster

// UnionFind is a disjoint-set forest over the integers [0, n). Nodes are plain
// indexes into the parent and rank slices.
type UnionFind struct {
	parent []int
	rank   []uint8
}

// NewUnionFind creates n singleton sets
func NewUnionFind(n int) *UnionFind {
	u := &UnionFind{
		parent: make([]int, n),
		rank:   make([]uint8, n),
	}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

// Len returns the number of nodes
func (u *UnionFind) Len() int {
	return len(u.parent)
}

// Find returns the root of x's set, compressing the path it walked
func (u *UnionFind) Find(x int) int {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		next := u.parent[x]
		u.parent[x] = root
		x = next
	}
	return root
}

// Union merges the sets holding a and b by rank. It reports whether they were
// previously disjoint.
func (u *UnionFind) Union(a, b int) bool {
	ra, rb := u.Find(a), u.Find(b)
	if ra == rb {
		return false
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
	return true
}

// Merge folds every relation recorded in other into u. Both forests must have
// the same size.
func (u *UnionFind) Merge(other *UnionFind) {
	for i := range other.parent {
		if root := other.Find(i); root != i {
			u.Union(i, root)
		}
	}
}
