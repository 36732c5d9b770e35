// Package graphstorage implements the edge containers and graph
// storages of spec.md section 4.4: the representations one component's
// worth of edges can be held in, and the traversal, distance and
// statistics operations every one of them supports uniformly.
package graphstorage

import (
	"github.com/korpling/graphannis-go/pkg/gmodel"
)

// BoundKind selects how a traversal's upper distance bound is
// interpreted.
type BoundKind int

const (
	// Unbounded means there is no maximum distance.
	Unbounded BoundKind = iota
	// Included means the bound's Value is itself reachable.
	Included
	// Excluded means the bound's Value is one step past the last
	// reachable distance.
	Excluded
)

// Bound is a traversal's upper distance bound.
type Bound struct {
	Kind  BoundKind
	Value int
}

// Allows reports whether depth is within the bound.
func (b Bound) Allows(depth int) bool {
	switch b.Kind {
	case Unbounded:
		return true
	case Included:
		return depth <= b.Value
	case Excluded:
		return depth < b.Value
	default:
		return false
	}
}

// Statistics summarizes the shape of one component's edges, computed by
// ComputeStatistics and returned by each storage's GetStatistics to drive
// both the query planner's cost model and OptimizeGSImpl's storage
// choice.
type Statistics struct {
	NumberOfEdges  int64
	NumberOfRoots  int64
	MaxDepth       int64
	MaxFanOut      int64
	AvgFanOut      float64
	FanOut99Percentile int64
	Cyclic         bool
	RootedTree     bool
}

// EdgeContainer is the read-only contract every component representation
// supports, regardless of which GraphStorage implementation backs it.
type EdgeContainer interface {
	GetOutgoingEdges(node gmodel.NodeID) ([]gmodel.NodeID, error)
	GetIngoingEdges(node gmodel.NodeID) ([]gmodel.NodeID, error)
	HasOutgoingEdges(node gmodel.NodeID) (bool, error)
	SourceNodes() ([]gmodel.NodeID, error)
	GetStatistics() Statistics
}

// GraphStorage is the full read contract for one component's edges:
// containment plus traversal, distance, and the housekeeping operations
// the annotation graph needs when switching representations.
type GraphStorage interface {
	EdgeContainer

	// FindConnected yields, at most once each, every node reachable
	// forward from node within [minDist, maxDist], via a cycle-safe DFS.
	FindConnected(node gmodel.NodeID, minDist int, maxDist Bound) ([]gmodel.NodeID, error)
	// FindConnectedInverse is FindConnected walked over incoming edges.
	FindConnectedInverse(node gmodel.NodeID, minDist int, maxDist Bound) ([]gmodel.NodeID, error)
	// Distance returns the length of the shortest path from source to
	// target, or false if target is unreachable.
	Distance(source, target gmodel.NodeID) (int, bool, error)
	// IsConnected reports whether target is reachable from source within
	// [minDist, maxBound].
	IsConnected(source, target gmodel.NodeID, minDist int, maxBound Bound) (bool, error)
	// InverseHasSameCost reports whether a backward walk costs no more
	// than a forward walk, used by the planner to pick a join direction.
	InverseHasSameCost() bool
	// SerializationID names the on-disk implementation tag for this
	// storage, mirroring spec.md section 6's impl.cfg tags.
	SerializationID() string
}

// WritableGraphStorage is the mutation contract. Every storage in this
// package implements it; the owning annotation graph's
// GetOrCreateWritable copies a component into an adjacency list before
// mutating it unless it is already an AdjacencyList, DenseAdjacencyList
// or AdjacencyListDisk.
type WritableGraphStorage interface {
	GraphStorage
	AddEdge(edge gmodel.Edge) error
	DeleteEdge(edge gmodel.Edge) error
	DeleteNode(node gmodel.NodeID) error
	Clear() error
}

// Copyable lets a storage rebuild itself from any other GraphStorage,
// used when OptimizeGSImpl decides a different representation fits
// better.
type Copyable interface {
	CopyFrom(other GraphStorage) error
}
