package exec

import (
	"context"
	"fmt"
	"iter"

	"github.com/korpling/graphannis-go/pkg/annostorage"
	"github.com/korpling/graphannis-go/pkg/gerr"
	"github.com/korpling/graphannis-go/pkg/gmodel"
)

// BaseNode is a leaf execution node: one node-search spec, producing a
// single-column Match for every item the underlying annotation-storage
// search yields.
type BaseNode struct {
	desc    *Descriptor
	matches iter.Seq[annostorage.AnnoMatch[gmodel.NodeID]]
}

// NewBaseNode wraps an annotation-storage search as a leaf Node.
// component is this node's initial union-find component (its own
// conjunction position, before any joins merge it with another).
func NewBaseNode(component int, plan string, cost Cost, matches iter.Seq[annostorage.AnnoMatch[gmodel.NodeID]]) *BaseNode {
	return &BaseNode{
		desc: &Descriptor{
			Component: component,
			NodePos:   map[int]int{component: 0},
			Plan:      plan,
			Cost:      cost,
		},
		matches: matches,
	}
}

func (b *BaseNode) Descriptor() *Descriptor { return b.desc }

func (b *BaseNode) Matches(ctx context.Context) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		for m := range b.matches {
			select {
			case <-ctx.Done():
				yield(nil, fmt.Errorf("%w: %w", gerr.ErrTimeout, ctx.Err()))
				return
			default:
			}
			if !yield(Match{{Node: m.Item, Key: m.Key}}, nil) {
				return
			}
		}
	}
}
