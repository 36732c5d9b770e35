package exec

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpling/graphannis-go/pkg/annostorage"
	"github.com/korpling/graphannis-go/pkg/gmodel"
)

func seqOf(items ...annostorage.AnnoMatch[gmodel.NodeID]) iter.Seq[annostorage.AnnoMatch[gmodel.NodeID]] {
	return func(yield func(annostorage.AnnoMatch[gmodel.NodeID]) bool) {
		for _, it := range items {
			if !yield(it) {
				return
			}
		}
	}
}

func collect(t *testing.T, n Node) []Match {
	t.Helper()
	var out []Match
	for m, err := range n.Matches(context.Background()) {
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

func TestBaseNodeEmitsSingleColumnMatches(t *testing.T) {
	key := gmodel.AnnoKey{Namespace: "annis", Name: "tok"}
	seq := seqOf(
		annostorage.AnnoMatch[gmodel.NodeID]{Item: 1, Key: key, Value: "cat"},
		annostorage.AnnoMatch[gmodel.NodeID]{Item: 2, Key: key, Value: "mat"},
	)
	n := NewBaseNode(0, "tok", Cost{Output: 2}, seq)
	matches := collect(t, n)
	require.Len(t, matches, 2)
	assert.Equal(t, gmodel.NodeID(1), matches[0][0].Node)
	assert.Equal(t, gmodel.NodeID(2), matches[1][0].Node)
	assert.Equal(t, map[int]int{0: 0}, n.Descriptor().NodePos)
}

func TestBinaryFilterDropsNonMatchingRows(t *testing.T) {
	key := gmodel.AnnoKey{Name: "x"}
	left := NewBaseNode(0, "left", Cost{}, seqOf(
		annostorage.AnnoMatch[gmodel.NodeID]{Item: 1, Key: key},
		annostorage.AnnoMatch[gmodel.NodeID]{Item: 2, Key: key},
	))
	// Simulate a two-column child by joining left with right via nested loop first.
	right := NewBaseNode(1, "right", Cost{}, seqOf(
		annostorage.AnnoMatch[gmodel.NodeID]{Item: 10, Key: key},
		annostorage.AnnoMatch[gmodel.NodeID]{Item: 20, Key: key},
	))
	joined := NewNestedLoopJoin(left, right, 0, 0, func(l, r gmodel.NodeID) (bool, error) {
		return true, nil
	}, "nestedloop", Cost{})

	filtered := NewBinaryFilter(joined, 0, 1, func(l, r gmodel.NodeID) (bool, error) {
		return l == 1 && r == 10, nil
	}, "filter", Cost{})

	matches := collect(t, filtered)
	require.Len(t, matches, 1)
	assert.Equal(t, gmodel.NodeID(1), matches[0][0].Node)
	assert.Equal(t, gmodel.NodeID(10), matches[0][1].Node)
}

func TestNestedLoopJoinCrossProduct(t *testing.T) {
	key := gmodel.AnnoKey{Name: "x"}
	left := NewBaseNode(0, "left", Cost{}, seqOf(
		annostorage.AnnoMatch[gmodel.NodeID]{Item: 1, Key: key},
		annostorage.AnnoMatch[gmodel.NodeID]{Item: 2, Key: key},
	))
	right := NewBaseNode(1, "right", Cost{}, seqOf(
		annostorage.AnnoMatch[gmodel.NodeID]{Item: 10, Key: key},
	))
	joined := NewNestedLoopJoin(left, right, 0, 0, func(l, r gmodel.NodeID) (bool, error) {
		return true, nil
	}, "nestedloop", Cost{})

	matches := collect(t, joined)
	require.Len(t, matches, 2)
	for _, m := range matches {
		require.Len(t, m, 2)
		assert.Equal(t, gmodel.NodeID(10), m[1].Node)
	}
}

func TestIndexJoinProbesCandidatesAndDropsReflexive(t *testing.T) {
	key := gmodel.AnnoKey{Name: "x"}
	left := NewBaseNode(0, "left", Cost{}, seqOf(
		annostorage.AnnoMatch[gmodel.NodeID]{Item: 1, Key: key},
	))

	candidates := func(ctx context.Context, l gmodel.NodeID) iter.Seq2[gmodel.NodeID, error] {
		return func(yield func(gmodel.NodeID, error) bool) {
			for _, c := range []gmodel.NodeID{l, l + 1, l + 2} {
				if !yield(c, nil) {
					return
				}
			}
		}
	}
	probe := func(c gmodel.NodeID) (gmodel.AnnoKey, bool, error) {
		if c == l3 {
			return gmodel.AnnoKey{}, false, nil
		}
		return key, true, nil
	}

	join := NewIndexJoin(left, 0, 1, candidates, probe, false, "indexjoin", Cost{})
	matches := collect(t, join)

	var rhs []gmodel.NodeID
	for _, m := range matches {
		rhs = append(rhs, m[1].Node)
	}
	assert.ElementsMatch(t, []gmodel.NodeID{2}, rhs)
}

const l3 = gmodel.NodeID(3)
