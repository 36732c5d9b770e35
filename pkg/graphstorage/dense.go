package graphstorage

import (
	"sort"
	"sync"

	"github.com/korpling/graphannis-go/pkg/gmodel"
)

// DenseAdjacencyList exploits densely packed node ids: out-edges are a
// slice indexed directly by id (offset from the lowest id seen), and the
// inverse is a single sorted vector of edges searched by binary search,
// per spec.md section 4.4. It reduces per-edge overhead for components
// where almost every id in a contiguous range participates.
type DenseAdjacencyList struct {
	common
	mu      sync.RWMutex
	base    gmodel.NodeID
	hasBase bool
	out     [][]gmodel.NodeID
	inverse []gmodel.Edge // sorted by (Target, Source)
}

// NewDenseAdjacencyList creates an empty, writable DenseAdjacencyList.
func NewDenseAdjacencyList() *DenseAdjacencyList {
	d := &DenseAdjacencyList{}
	d.common = common{self: d}
	return d
}

func (d *DenseAdjacencyList) indexFor(node gmodel.NodeID) (int, bool) {
	if !d.hasBase {
		return 0, false
	}
	if node < d.base {
		return 0, false
	}
	idx := int(node - d.base)
	if idx >= len(d.out) {
		return 0, false
	}
	return idx, true
}

func (d *DenseAdjacencyList) ensureIndexFor(node gmodel.NodeID) int {
	if !d.hasBase {
		d.base = node
		d.hasBase = true
		d.out = make([][]gmodel.NodeID, 1)
		return 0
	}
	if node < d.base {
		shift := int(d.base - node)
		grown := make([][]gmodel.NodeID, len(d.out)+shift)
		copy(grown[shift:], d.out)
		d.out = grown
		d.base = node
		return 0
	}
	idx := int(node - d.base)
	if idx >= len(d.out) {
		grown := make([][]gmodel.NodeID, idx+1)
		copy(grown, d.out)
		d.out = grown
	}
	return idx
}

func (d *DenseAdjacencyList) AddEdge(edge gmodel.Edge) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := d.ensureIndexFor(edge.Source)
	d.out[idx] = insertSorted(d.out[idx], edge.Target)

	i := sort.Search(len(d.inverse), func(i int) bool { return !edgeLess(d.inverse[i], edge) })
	if i >= len(d.inverse) || d.inverse[i] != edge {
		d.inverse = append(d.inverse, gmodel.Edge{})
		copy(d.inverse[i+1:], d.inverse[i:])
		d.inverse[i] = edge
	}
	return nil
}

func edgeLess(a, b gmodel.Edge) bool {
	if a.Target != b.Target {
		return a.Target < b.Target
	}
	return a.Source < b.Source
}

func (d *DenseAdjacencyList) DeleteEdge(edge gmodel.Edge) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if idx, ok := d.indexFor(edge.Source); ok {
		d.out[idx] = removeSorted(d.out[idx], edge.Target)
	}
	for i, e := range d.inverse {
		if e == edge {
			d.inverse = append(d.inverse[:i], d.inverse[i+1:]...)
			break
		}
	}
	return nil
}

func (d *DenseAdjacencyList) DeleteNode(node gmodel.NodeID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if idx, ok := d.indexFor(node); ok {
		d.out[idx] = nil
	}
	filtered := d.inverse[:0]
	for _, e := range d.inverse {
		if e.Source != node && e.Target != node {
			filtered = append(filtered, e)
		}
	}
	d.inverse = filtered
	return nil
}

func (d *DenseAdjacencyList) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.out = nil
	d.inverse = nil
	d.hasBase = false
	return nil
}

func (d *DenseAdjacencyList) GetOutgoingEdges(node gmodel.NodeID) ([]gmodel.NodeID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	idx, ok := d.indexFor(node)
	if !ok {
		return nil, nil
	}
	out := make([]gmodel.NodeID, len(d.out[idx]))
	copy(out, d.out[idx])
	return out, nil
}

func (d *DenseAdjacencyList) GetIngoingEdges(node gmodel.NodeID) ([]gmodel.NodeID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	lo := sort.Search(len(d.inverse), func(i int) bool { return d.inverse[i].Target >= node })
	var out []gmodel.NodeID
	for i := lo; i < len(d.inverse) && d.inverse[i].Target == node; i++ {
		out = append(out, d.inverse[i].Source)
	}
	return out, nil
}

func (d *DenseAdjacencyList) HasOutgoingEdges(node gmodel.NodeID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	idx, ok := d.indexFor(node)
	return ok && len(d.out[idx]) > 0, nil
}

func (d *DenseAdjacencyList) SourceNodes() ([]gmodel.NodeID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []gmodel.NodeID
	for i, targets := range d.out {
		if len(targets) > 0 {
			out = append(out, d.base+gmodel.NodeID(i))
		}
	}
	return out, nil
}

func (d *DenseAdjacencyList) GetStatistics() Statistics {
	stats, _ := ComputeStatistics(d)
	return stats
}

func (d *DenseAdjacencyList) SerializationID() string { return "DenseAdjacencyListV1" }

func (d *DenseAdjacencyList) CopyFrom(other GraphStorage) error {
	if err := d.Clear(); err != nil {
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
			if err := d.AddEdge(gmodel.Edge{Source: src, Target: tgt}); err != nil {
				return err
			}
		}
	}
	return nil
}
