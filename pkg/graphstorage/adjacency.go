package graphstorage

import (
	"sort"
	"sync"

	"github.com/korpling/graphannis-go/pkg/gmodel"
)

// AdjacencyList is the general-purpose default GraphStorage: for every
// source, a sorted vector of targets, with a symmetric inverse map, per
// spec.md section 4.4.
type AdjacencyList struct {
	common
	mu       sync.RWMutex
	out      map[gmodel.NodeID][]gmodel.NodeID
	in       map[gmodel.NodeID][]gmodel.NodeID
	stats    Statistics
	statsSet bool
}

// NewAdjacencyList creates an empty, writable AdjacencyList.
func NewAdjacencyList() *AdjacencyList {
	a := &AdjacencyList{out: make(map[gmodel.NodeID][]gmodel.NodeID), in: make(map[gmodel.NodeID][]gmodel.NodeID)}
	a.common = common{self: a}
	return a
}

func insertSorted(list []gmodel.NodeID, n gmodel.NodeID) []gmodel.NodeID {
	i := sort.Search(len(list), func(i int) bool { return list[i] >= n })
	if i < len(list) && list[i] == n {
		return list
	}
	list = append(list, 0)
	copy(list[i+1:], list[i:])
	list[i] = n
	return list
}

func removeSorted(list []gmodel.NodeID, n gmodel.NodeID) []gmodel.NodeID {
	i := sort.Search(len(list), func(i int) bool { return list[i] >= n })
	if i < len(list) && list[i] == n {
		return append(list[:i], list[i+1:]...)
	}
	return list
}

func (a *AdjacencyList) AddEdge(edge gmodel.Edge) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.out[edge.Source] = insertSorted(a.out[edge.Source], edge.Target)
	a.in[edge.Target] = insertSorted(a.in[edge.Target], edge.Source)
	a.statsSet = false
	return nil
}

func (a *AdjacencyList) DeleteEdge(edge gmodel.Edge) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.out[edge.Source] = removeSorted(a.out[edge.Source], edge.Target)
	a.in[edge.Target] = removeSorted(a.in[edge.Target], edge.Source)
	a.statsSet = false
	return nil
}

func (a *AdjacencyList) DeleteNode(node gmodel.NodeID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, target := range a.out[node] {
		a.in[target] = removeSorted(a.in[target], node)
	}
	for _, source := range a.in[node] {
		a.out[source] = removeSorted(a.out[source], node)
	}
	delete(a.out, node)
	delete(a.in, node)
	a.statsSet = false
	return nil
}

func (a *AdjacencyList) Clear() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.out = make(map[gmodel.NodeID][]gmodel.NodeID)
	a.in = make(map[gmodel.NodeID][]gmodel.NodeID)
	a.statsSet = false
	return nil
}

func (a *AdjacencyList) GetOutgoingEdges(node gmodel.NodeID) ([]gmodel.NodeID, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]gmodel.NodeID, len(a.out[node]))
	copy(out, a.out[node])
	return out, nil
}

func (a *AdjacencyList) GetIngoingEdges(node gmodel.NodeID) ([]gmodel.NodeID, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]gmodel.NodeID, len(a.in[node]))
	copy(out, a.in[node])
	return out, nil
}

func (a *AdjacencyList) HasOutgoingEdges(node gmodel.NodeID) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.out[node]) > 0, nil
}

func (a *AdjacencyList) SourceNodes() ([]gmodel.NodeID, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]gmodel.NodeID, 0, len(a.out))
	for n, targets := range a.out {
		if len(targets) > 0 {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (a *AdjacencyList) GetStatistics() Statistics {
	a.mu.RLock()
	if a.statsSet {
		defer a.mu.RUnlock()
		return a.stats
	}
	a.mu.RUnlock()

	stats, err := ComputeStatistics(a)
	if err != nil {
		return Statistics{}
	}
	a.mu.Lock()
	a.stats = stats
	a.statsSet = true
	a.mu.Unlock()
	return stats
}

func (a *AdjacencyList) SerializationID() string { return "AdjacencyListV1" }

// CopyFrom rebuilds this storage from any other GraphStorage, used when
// switching representations after statistics reveal a better fit.
func (a *AdjacencyList) CopyFrom(other GraphStorage) error {
	if err := a.Clear(); err != nil {
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
			if err := a.AddEdge(gmodel.Edge{Source: src, Target: tgt}); err != nil {
				return err
			}
		}
	}
	return nil
}
