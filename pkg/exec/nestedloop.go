package exec

import (
	"context"
	"fmt"
	"iter"

	"github.com/korpling/graphannis-go/pkg/gerr"
)

// NestedLoopJoin buffers one operand's full result set and iterates the
// other against it, per spec.md section 4.7. The planner decides which
// side to buffer by cost; this node just does what it is told.
type NestedLoopJoin struct {
	desc                   *Descriptor
	buffered, probe        Node
	bufferedPos, probePos  int
	predicate              Predicate
}

// NewNestedLoopJoin builds a join of buffered and probe, applying
// predicate to the nodes bound at bufferedPos (within buffered's Match)
// and probePos (within probe's Match).
func NewNestedLoopJoin(buffered, probe Node, bufferedPos, probePos int, predicate Predicate, plan string, cost Cost) *NestedLoopJoin {
	return &NestedLoopJoin{
		desc: &Descriptor{
			Component: buffered.Descriptor().Component,
			NodePos:   mergeNodePos(buffered.Descriptor().NodePos, probe.Descriptor().NodePos),
			Children:  []*Descriptor{buffered.Descriptor(), probe.Descriptor()},
			Plan:      plan,
			Cost:      cost,
		},
		buffered: buffered, probe: probe,
		bufferedPos: bufferedPos, probePos: probePos,
		predicate: predicate,
	}
}

func (j *NestedLoopJoin) Descriptor() *Descriptor { return j.desc }

func (j *NestedLoopJoin) Matches(ctx context.Context) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		var buffered []Match
		for m, err := range j.buffered.Matches(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			buffered = append(buffered, m)
		}

		for m, err := range j.probe.Matches(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			select {
			case <-ctx.Done():
				yield(nil, fmt.Errorf("%w: %w", gerr.ErrTimeout, ctx.Err()))
				return
			default:
			}
			for _, b := range buffered {
				ok, perr := j.predicate(b[j.bufferedPos].Node, m[j.probePos].Node)
				if perr != nil {
					yield(nil, perr)
					return
				}
				if !ok {
					continue
				}
				row := make(Match, 0, len(b)+len(m))
				row = append(row, b...)
				row = append(row, m...)
				if !yield(row, nil) {
					return
				}
			}
		}
	}
}

// mergeNodePos combines two children's index maps into the concatenated
// row this join produces (buffered's columns first, then probe's,
// offset by how many columns buffered contributes).
func mergeNodePos(buffered, probe map[int]int) map[int]int {
	offset := len(buffered)
	out := make(map[int]int, len(buffered)+len(probe))
	for conjPos, vecPos := range buffered {
		out[conjPos] = vecPos
	}
	for conjPos, vecPos := range probe {
		out[conjPos] = offset + vecPos
	}
	return out
}
