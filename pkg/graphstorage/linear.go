package graphstorage

import (
	"sort"
	"sync"

	"github.com/korpling/graphannis-go/pkg/gmodel"
)

// Position is the integer type a LinearGraphStorage indexes chains with;
// spec.md section 6 names both 32- and 64-bit variants
// (LinearO32V1/LinearO64V1).
type Position interface {
	~int32 | ~int64
}

type chainPos[P Position] struct {
	root int
	pos  P
}

// LinearGraphStorage exploits the invariant that every node has at most
// one outgoing and one incoming edge: it stores each chain as a flat
// vector plus a node -> (root, position) map, so FindConnected becomes a
// constant-time slice of the chain instead of a walk, per spec.md
// section 4.4. Used for Ordering and other strictly linear
// segmentations.
type LinearGraphStorage[P Position] struct {
	common
	mu     sync.RWMutex
	next   map[gmodel.NodeID]gmodel.NodeID
	prev   map[gmodel.NodeID]gmodel.NodeID
	chains [][]gmodel.NodeID
	pos    map[gmodel.NodeID]chainPos[P]
	dirty  bool
}

// NewLinearGraphStorage creates an empty, writable LinearGraphStorage.
func NewLinearGraphStorage[P Position]() *LinearGraphStorage[P] {
	l := &LinearGraphStorage[P]{
		next: make(map[gmodel.NodeID]gmodel.NodeID),
		prev: make(map[gmodel.NodeID]gmodel.NodeID),
		pos:  make(map[gmodel.NodeID]chainPos[P]),
	}
	l.common = common{self: l}
	return l
}

func (l *LinearGraphStorage[P]) AddEdge(edge gmodel.Edge) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next[edge.Source] = edge.Target
	l.prev[edge.Target] = edge.Source
	l.dirty = true
	return nil
}

func (l *LinearGraphStorage[P]) DeleteEdge(edge gmodel.Edge) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.next[edge.Source] == edge.Target {
		delete(l.next, edge.Source)
	}
	if l.prev[edge.Target] == edge.Source {
		delete(l.prev, edge.Target)
	}
	l.dirty = true
	return nil
}

func (l *LinearGraphStorage[P]) DeleteNode(node gmodel.NodeID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.prev[node]; ok {
		delete(l.next, p)
	}
	if n, ok := l.next[node]; ok {
		delete(l.prev, n)
	}
	delete(l.next, node)
	delete(l.prev, node)
	l.dirty = true
	return nil
}

func (l *LinearGraphStorage[P]) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next = make(map[gmodel.NodeID]gmodel.NodeID)
	l.prev = make(map[gmodel.NodeID]gmodel.NodeID)
	l.chains = nil
	l.pos = make(map[gmodel.NodeID]chainPos[P])
	l.dirty = false
	return nil
}

// rebuildLocked recomputes the chain index. Callers must hold l.mu.
func (l *LinearGraphStorage[P]) rebuildLocked() {
	if !l.dirty {
		return
	}
	l.chains = nil
	l.pos = make(map[gmodel.NodeID]chainPos[P])

	var roots []gmodel.NodeID
	seen := make(map[gmodel.NodeID]bool)
	for n := range l.next {
		seen[n] = true
	}
	for n := range l.prev {
		seen[n] = true
	}
	for n := range seen {
		if _, hasPrev := l.prev[n]; !hasPrev {
			roots = append(roots, n)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	for _, root := range roots {
		chainIdx := len(l.chains)
		var chain []gmodel.NodeID
		node := root
		var p P
		visitedInChain := make(map[gmodel.NodeID]bool)
		for {
			if visitedInChain[node] {
				break // defensive: a cycle snuck into what should be acyclic
			}
			visitedInChain[node] = true
			chain = append(chain, node)
			l.pos[node] = chainPos[P]{root: chainIdx, pos: p}
			next, ok := l.next[node]
			if !ok {
				break
			}
			node = next
			p++
		}
		l.chains = append(l.chains, chain)
	}
	l.dirty = false
}

func (l *LinearGraphStorage[P]) GetOutgoingEdges(node gmodel.NodeID) ([]gmodel.NodeID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n, ok := l.next[node]; ok {
		return []gmodel.NodeID{n}, nil
	}
	return nil, nil
}

func (l *LinearGraphStorage[P]) GetIngoingEdges(node gmodel.NodeID) ([]gmodel.NodeID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if p, ok := l.prev[node]; ok {
		return []gmodel.NodeID{p}, nil
	}
	return nil, nil
}

func (l *LinearGraphStorage[P]) HasOutgoingEdges(node gmodel.NodeID) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.next[node]
	return ok, nil
}

func (l *LinearGraphStorage[P]) SourceNodes() ([]gmodel.NodeID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]gmodel.NodeID, 0, len(l.next))
	for n := range l.next {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (l *LinearGraphStorage[P]) GetStatistics() Statistics {
	stats, _ := ComputeStatistics(l)
	return stats
}

func (l *LinearGraphStorage[P]) SerializationID() string { return "LinearV1" }

func (l *LinearGraphStorage[P]) InverseHasSameCost() bool { return true }

// FindConnected exploits the chain invariant directly: once a node's
// (root, position) is known, every node within range is a contiguous
// slice of its chain, so no walk is needed.
func (l *LinearGraphStorage[P]) FindConnected(node gmodel.NodeID, minDist int, maxDist Bound) ([]gmodel.NodeID, error) {
	l.mu.Lock()
	l.rebuildLocked()
	cp, ok := l.pos[node]
	if !ok {
		l.mu.Unlock()
		return nil, nil
	}
	chain := l.chains[cp.root]
	l.mu.Unlock()

	start := int(cp.pos) + minDist
	if start < 0 {
		start = 0
	}
	var end int
	switch maxDist.Kind {
	case Unbounded:
		end = len(chain)
	case Included:
		end = int(cp.pos) + maxDist.Value + 1
	case Excluded:
		end = int(cp.pos) + maxDist.Value
	}
	if end > len(chain) {
		end = len(chain)
	}
	if start >= end {
		return nil, nil
	}
	out := make([]gmodel.NodeID, end-start)
	copy(out, chain[start:end])
	return out, nil
}

func (l *LinearGraphStorage[P]) CopyFrom(other GraphStorage) error {
	if err := l.Clear(); err != nil {
		return err
	}
	sources, err := other.SourceNodes()
	if err != nil {
		return err
	}
	for _, src := range sources {
		targets, err := other.GetOutgoingEdges(src)
		if err != nil {
			return err
		}
		for _, tgt := range targets {
			if err := l.AddEdge(gmodel.Edge{Source: src, Target: tgt}); err != nil {
				return err
			}
		}
	}
	return nil
}
