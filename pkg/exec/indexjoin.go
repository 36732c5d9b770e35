package exec

import (
	"context"
	"iter"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/korpling/graphannis-go/pkg/gmodel"
)

// DefaultBatchSize bounds how many left-hand rows are probed together
// before their candidates are fanned out across the parallel worker
// pool, per spec.md section 4.7/5.
const DefaultBatchSize = 512

type parallelKey struct{}

// WithParallel records whether IndexJoin may fan a batch's row probes
// out across a worker pool, the context-carried knob behind the CLI's
// "use_parallel on|off" command (spec.md section 6). Unset contexts
// default to parallel, matching the engine's normal operating mode.
func WithParallel(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, parallelKey{}, enabled)
}

func parallelEnabled(ctx context.Context) bool {
	enabled, ok := ctx.Value(parallelKey{}).(bool)
	return !ok || enabled
}

// CandidateFunc enumerates, for one left-hand node, the right-hand
// candidates an operator connects it to (e.g. a Precedence operator's
// candidates are the tokens within the configured distance window on
// the Ordering chain).
type CandidateFunc func(ctx context.Context, left gmodel.NodeID) iter.Seq2[gmodel.NodeID, error]

// ProbeFunc checks one candidate against the right-hand node-search
// spec directly (a single annotation-storage lookup), returning the key
// it matched under.
type ProbeFunc func(candidate gmodel.NodeID) (gmodel.AnnoKey, bool, error)

// IndexJoin implements spec.md section 4.7's first join shape: for each
// left row, retrieve candidates from the operator and probe the
// annotation storage for the right-hand node spec, rather than
// materialising the right side's full result set. Batches of left rows
// are probed concurrently across a bounded worker pool.
type IndexJoin struct {
	desc       *Descriptor
	left       Node
	leftPos    int
	candidates CandidateFunc
	probe      ProbeFunc
	reflexive  bool
	batchSize  int
}

// NewIndexJoin builds an index join over left, probing candidates of the
// node bound at leftPos. When reflexive is false, a candidate equal to
// the left-hand node is dropped (spec.md section 4.7: "when the
// operator is not reflexive, drops rows where left and right refer to
// the same (node, key)").
func NewIndexJoin(left Node, leftPos int, rightConjPos int, candidates CandidateFunc, probe ProbeFunc, reflexive bool, plan string, cost Cost) *IndexJoin {
	nodePos := make(map[int]int, len(left.Descriptor().NodePos)+1)
	for k, v := range left.Descriptor().NodePos {
		nodePos[k] = v
	}
	nodePos[rightConjPos] = len(left.Descriptor().NodePos)

	return &IndexJoin{
		desc: &Descriptor{
			Component: left.Descriptor().Component,
			NodePos:   nodePos,
			Children:  []*Descriptor{left.Descriptor()},
			Plan:      plan,
			Cost:      cost,
		},
		left: left, leftPos: leftPos,
		candidates: candidates, probe: probe,
		reflexive: reflexive,
		batchSize: DefaultBatchSize,
	}
}

func (j *IndexJoin) Descriptor() *Descriptor { return j.desc }

func (j *IndexJoin) Matches(ctx context.Context) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		next, stop := iter.Pull2(j.left.Matches(ctx))
		defer stop()

		for {
			batch := make([]Match, 0, j.batchSize)
			for len(batch) < j.batchSize {
				m, err, ok := next()
				if !ok {
					break
				}
				if err != nil {
					yield(nil, err)
					return
				}
				batch = append(batch, m)
			}
			if len(batch) == 0 {
				return
			}

			results := make([][]Match, len(batch))
			g, gctx := errgroup.WithContext(ctx)
			limit := 1
			if parallelEnabled(ctx) {
				limit = max(1, runtime.GOMAXPROCS(0))
			}
			g.SetLimit(limit)
			for i, row := range batch {
				g.Go(func() error {
					return j.probeRow(gctx, row, &results[i])
				})
			}
			if err := g.Wait(); err != nil {
				yield(nil, err)
				return
			}

			for _, rows := range results {
				for _, row := range rows {
					if !yield(row, nil) {
						return
					}
				}
			}
		}
	}
}

func (j *IndexJoin) probeRow(ctx context.Context, row Match, out *[]Match) error {
	leftNode := row[j.leftPos].Node
	for cand, err := range j.candidates(ctx, leftNode) {
		if err != nil {
			return err
		}
		key, ok, err := j.probe(cand)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !j.reflexive && cand == leftNode {
			continue
		}
		extended := make(Match, 0, len(row)+1)
		extended = append(extended, row...)
		extended = append(extended, MatchElement{Node: cand, Key: key})
		*out = append(*out, extended)
	}
	return nil
}
