package exec

import (
	"context"
	"iter"

	"github.com/korpling/graphannis-go/pkg/gmodel"
)

// Predicate tests whether an operator holds between two already-bound
// nodes.
type Predicate func(left, right gmodel.NodeID) (bool, error)

// BinaryFilter implements spec.md section 4.7's third join shape: both
// operands already appear in the same partial result, so the operator
// only filters existing rows rather than producing new ones.
type BinaryFilter struct {
	desc              *Descriptor
	child             Node
	leftPos, rightPos int
	predicate         Predicate
}

// NewBinaryFilter builds a filter over child's rows, applying predicate
// to the nodes bound at leftPos and rightPos (positions within child's
// emitted Match, resolved from the two operands' conjunction positions
// via child's Descriptor.NodePos).
func NewBinaryFilter(child Node, leftPos, rightPos int, predicate Predicate, plan string, cost Cost) *BinaryFilter {
	return &BinaryFilter{
		desc: &Descriptor{
			Component: child.Descriptor().Component,
			NodePos:   child.Descriptor().NodePos,
			Children:  []*Descriptor{child.Descriptor()},
			Plan:      plan,
			Cost:      cost,
		},
		child:   child,
		leftPos: leftPos, rightPos: rightPos,
		predicate: predicate,
	}
}

func (f *BinaryFilter) Descriptor() *Descriptor { return f.desc }

func (f *BinaryFilter) Matches(ctx context.Context) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		for m, err := range f.child.Matches(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			ok, perr := f.predicate(m[f.leftPos].Node, m[f.rightPos].Node)
			if perr != nil {
				yield(nil, perr)
				return
			}
			if !ok {
				continue
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}
