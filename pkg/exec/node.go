// Package exec implements the execution-node layer of spec.md section
// 4.7: a tree of pull iterators over match vectors, built by pkg/plan
// and driven to completion by pkg/corpusstorage.
package exec

import (
	"context"
	"iter"

	"github.com/korpling/graphannis-go/pkg/gmodel"
)

// EstimationType distinguishes how an operator's selectivity estimate
// was derived, per spec.md section 4.7.
type EstimationType int

const (
	EstSelectivity EstimationType = iota
	EstMin
	EstMax
)

// Cost is an execution node's estimated output size and work, per
// spec.md section 4.7: output is the number of rows the node is
// expected to produce, intermediate_sum accumulates the processed
// figure across the whole plan so far (what the hill-climbing pass
// minimises), processed is this node's own contribution to it.
type Cost struct {
	Output          int64
	IntermediateSum int64
	Processed       int64
}

// Descriptor documents one execution node for plan inspection and
// planning bookkeeping: which union-find component it belongs to, the
// index mapping from conjunction position to this node's match-vector
// position, its children, a human-readable plan fragment and its cost
// estimate.
type Descriptor struct {
	Component int
	NodePos   map[int]int
	Children  []*Descriptor
	Plan      string
	Cost      Cost
}

// MatchElement is one bound node in a match row: the node itself and
// the annotation key it was matched under (the zero AnnoKey for an
// any-node/any-token search that bound no particular key).
type MatchElement struct {
	Node gmodel.NodeID
	Key  gmodel.AnnoKey
}

// Match is one result row. Its columns are not in conjunction order:
// the producing node's Descriptor.NodePos maps each conjunction position
// to its column.
type Match []MatchElement

// Node is the execution-node contract of spec.md section 4.7: a pull
// iterator of match vectors, each paired with an error so iteration can
// stop cleanly at the first failure instead of panicking or silently
// truncating results.
type Node interface {
	Descriptor() *Descriptor
	Matches(ctx context.Context) iter.Seq2[Match, error]
}
