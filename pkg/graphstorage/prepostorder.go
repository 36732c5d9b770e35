package graphstorage

import (
	"sort"
	"sync"

	"github.com/korpling/graphannis-go/pkg/gmodel"
)

// Order is the integer type pre/post order numbers are held in.
type Order interface {
	~int32 | ~int64
}

// Level is the integer type depth levels are held in.
type Level interface {
	~int32 | ~int64
}

type prepost[O Order, L Level] struct {
	pre, post O
	level     L
}

// PrePostOrderStorage assigns each node a pre/post-order pair and a
// depth level in one DFS pass, so IsConnected becomes an interval
// containment check in constant time instead of a walk, per spec.md
// section 4.4. Used for tree-shaped Dominance and Coverage components;
// callers must only add edges that keep the component a forest (see
// pkg/annograph.GetOrCreateWritable, which copies into an AdjacencyList
// before any write that could violate this).
type PrePostOrderStorage[O Order, L Level] struct {
	common
	mu       sync.RWMutex
	children map[gmodel.NodeID][]gmodel.NodeID
	parent   map[gmodel.NodeID]gmodel.NodeID
	order    map[gmodel.NodeID]prepost[O, L]
	dirty    bool
}

// NewPrePostOrderStorage creates an empty, writable PrePostOrderStorage.
func NewPrePostOrderStorage[O Order, L Level]() *PrePostOrderStorage[O, L] {
	p := &PrePostOrderStorage[O, L]{
		children: make(map[gmodel.NodeID][]gmodel.NodeID),
		parent:   make(map[gmodel.NodeID]gmodel.NodeID),
		order:    make(map[gmodel.NodeID]prepost[O, L]),
	}
	p.common = common{self: p}
	return p
}

func (p *PrePostOrderStorage[O, L]) AddEdge(edge gmodel.Edge) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.children[edge.Source] = append(p.children[edge.Source], edge.Target)
	p.parent[edge.Target] = edge.Source
	p.dirty = true
	return nil
}

func (p *PrePostOrderStorage[O, L]) DeleteEdge(edge gmodel.Edge) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	children := p.children[edge.Source]
	for i, c := range children {
		if c == edge.Target {
			p.children[edge.Source] = append(children[:i], children[i+1:]...)
			break
		}
	}
	if p.parent[edge.Target] == edge.Source {
		delete(p.parent, edge.Target)
	}
	p.dirty = true
	return nil
}

func (p *PrePostOrderStorage[O, L]) DeleteNode(node gmodel.NodeID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if parent, ok := p.parent[node]; ok {
		children := p.children[parent]
		for i, c := range children {
			if c == node {
				p.children[parent] = append(children[:i], children[i+1:]...)
				break
			}
		}
	}
	delete(p.children, node)
	delete(p.parent, node)
	p.dirty = true
	return nil
}

func (p *PrePostOrderStorage[O, L]) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.children = make(map[gmodel.NodeID][]gmodel.NodeID)
	p.parent = make(map[gmodel.NodeID]gmodel.NodeID)
	p.order = make(map[gmodel.NodeID]prepost[O, L])
	p.dirty = false
	return nil
}

// rebuildLocked recomputes the pre/post/level index. Callers must hold
// p.mu.
func (p *PrePostOrderStorage[O, L]) rebuildLocked() {
	if !p.dirty {
		return
	}
	p.order = make(map[gmodel.NodeID]prepost[O, L])

	seen := make(map[gmodel.NodeID]bool)
	for n := range p.children {
		seen[n] = true
	}
	for n := range p.parent {
		seen[n] = true
	}
	var roots []gmodel.NodeID
	for n := range seen {
		if _, hasParent := p.parent[n]; !hasParent {
			roots = append(roots, n)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	var counter O
	var visit func(node gmodel.NodeID, level L)
	onPath := make(map[gmodel.NodeID]bool)
	visit = func(node gmodel.NodeID, level L) {
		if onPath[node] {
			return
		}
		onPath[node] = true
		defer delete(onPath, node)

		pre := counter
		counter++
		for _, child := range p.children[node] {
			visit(child, level+1)
		}
		post := counter
		counter++
		p.order[node] = prepost[O, L]{pre: pre, post: post, level: level}
	}
	for _, root := range roots {
		visit(root, 0)
	}
	p.dirty = false
}

func (p *PrePostOrderStorage[O, L]) GetOutgoingEdges(node gmodel.NodeID) ([]gmodel.NodeID, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]gmodel.NodeID, len(p.children[node]))
	copy(out, p.children[node])
	return out, nil
}

func (p *PrePostOrderStorage[O, L]) GetIngoingEdges(node gmodel.NodeID) ([]gmodel.NodeID, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if parent, ok := p.parent[node]; ok {
		return []gmodel.NodeID{parent}, nil
	}
	return nil, nil
}

func (p *PrePostOrderStorage[O, L]) HasOutgoingEdges(node gmodel.NodeID) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.children[node]) > 0, nil
}

func (p *PrePostOrderStorage[O, L]) SourceNodes() ([]gmodel.NodeID, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]gmodel.NodeID, 0, len(p.children))
	for n, c := range p.children {
		if len(c) > 0 {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (p *PrePostOrderStorage[O, L]) GetStatistics() Statistics {
	stats, _ := ComputeStatistics(p)
	return stats
}

func (p *PrePostOrderStorage[O, L]) SerializationID() string { return "PrePostOrderV1" }

func (p *PrePostOrderStorage[O, L]) InverseHasSameCost() bool { return true }

// IsConnected exploits the interval-containment invariant directly:
// source is an ancestor of target exactly when target's pre/post
// interval is nested inside source's.
func (p *PrePostOrderStorage[O, L]) IsConnected(source, target gmodel.NodeID, minDist int, maxBound Bound) (bool, error) {
	p.mu.Lock()
	p.rebuildLocked()
	so, ok1 := p.order[source]
	to, ok2 := p.order[target]
	p.mu.Unlock()
	if !ok1 || !ok2 {
		return false, nil
	}
	if source == target {
		return minDist <= 0 && maxBound.Allows(0), nil
	}
	if !(so.pre <= to.pre && to.post <= so.post) {
		return false, nil
	}
	dist := int(to.level) - int(so.level)
	return dist >= minDist && maxBound.Allows(dist), nil
}

func (p *PrePostOrderStorage[O, L]) CopyFrom(other GraphStorage) error {
	if err := p.Clear(); err != nil {
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
			if err := p.AddEdge(gmodel.Edge{Source: src, Target: tgt}); err != nil {
				return err
			}
		}
	}
	return nil
}
