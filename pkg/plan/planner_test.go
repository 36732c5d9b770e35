package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpling/graphannis-go/pkg/annograph"
	"github.com/korpling/graphannis-go/pkg/aql"
	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/korpling/graphannis-go/pkg/updatelog"
)

// buildTokenChain builds a graph with one token per word in words, named
// "tokN" in order, connected by an Ordering chain in the annis layer,
// the fixture spec.md section 8 scenario 1/2 describes.
func buildTokenChain(t *testing.T, words ...string) *annograph.Graph {
	t.Helper()
	g := annograph.New()

	var batch []updatelog.Event
	var prev string
	for i, w := range words {
		name := "tok" + string(rune('1'+i))
		batch = append(batch,
			updatelog.Event{Kind: updatelog.AddNode, Node: updatelog.NodeRef{Name: name}, NodeType: "node"},
			updatelog.Event{Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: name}, AnnoNamespace: gmodel.AnnisNamespace, AnnoName: "tok", AnnoValue: w},
		)
		if prev != "" {
			batch = append(batch, updatelog.Event{
				Kind: updatelog.AddEdge,
				Edge: updatelog.EdgeRef{Source: prev, Target: name, ComponentType: string(gmodel.Ordering), Layer: gmodel.AnnisNamespace},
			})
		}
		prev = name
	}
	require.NoError(t, g.ApplyUpdate(batch, nil))
	return g
}

func matchNames(t *testing.T, g *annograph.Graph, rows [][]gmodel.NodeID) [][]string {
	t.Helper()
	out := make([][]string, len(rows))
	for i, row := range rows {
		names := make([]string, len(row))
		for j, id := range row {
			name, ok := g.NodeName(id)
			require.True(t, ok)
			names[j] = name
		}
		out[i] = names
	}
	return out
}

func collectMatches(t *testing.T, g *annograph.Graph, conj aql.Conjunction) [][]string {
	t.Helper()
	tree, err := Plan(g, conj)
	require.NoError(t, err)

	var rows [][]gmodel.NodeID
	for m, err := range tree.Matches(context.Background()) {
		require.NoError(t, err)
		row := make([]gmodel.NodeID, len(m))
		for i, el := range m {
			row[i] = el.Node
		}
		rows = append(rows, row)
	}
	return matchNames(t, g, rows)
}

func TestPlanSingleTokenSearch(t *testing.T) {
	g := buildTokenChain(t, "The", "cat", "sits", "on", "the", "mat", ".")

	conj := aql.Conjunction{
		Nodes: []aql.NodeSearchSpec{{Kind: aql.ExactTokenValue, Value: "cat"}},
	}
	rows := collectMatches(t, g, conj)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"tok2"}, rows[0])
}

func TestPlanPrecedenceAdjacent(t *testing.T) {
	g := buildTokenChain(t, "The", "cat", "sits", "on", "the", "mat", ".")

	conj := aql.Conjunction{
		Nodes: []aql.NodeSearchSpec{
			{Kind: aql.ExactTokenValue, Value: "cat"},
			{Kind: aql.ExactTokenValue, Value: "sits"},
		},
		Operators: []aql.OperatorSpec{
			{Op: aql.Precedence, Left: 0, Right: 1, Min: 1, Max: 1},
		},
	}
	rows := collectMatches(t, g, conj)
	require.Len(t, rows, 1)
	assert.ElementsMatch(t, []string{"tok2", "tok3"}, rows[0])
}

func TestPlanPrecedenceWithinDistanceRange(t *testing.T) {
	g := buildTokenChain(t, "The", "cat", "sits", "on", "the", "mat", ".")

	conj := aql.Conjunction{
		Nodes: []aql.NodeSearchSpec{
			{Kind: aql.ExactTokenValue, Value: "cat"},
			{Kind: aql.ExactTokenValue, Value: "mat"},
		},
		Operators: []aql.OperatorSpec{
			{Op: aql.Precedence, Left: 0, Right: 1, Min: 2, Max: 4},
		},
	}
	rows := collectMatches(t, g, conj)
	require.Len(t, rows, 1)
	assert.ElementsMatch(t, []string{"tok2", "tok6"}, rows[0])
}

func TestPlanPrecedenceWrongOrderYieldsNoMatch(t *testing.T) {
	g := buildTokenChain(t, "The", "cat", "sits", "on", "the", "mat", ".")

	conj := aql.Conjunction{
		Nodes: []aql.NodeSearchSpec{
			{Kind: aql.ExactTokenValue, Value: "mat"},
			{Kind: aql.ExactTokenValue, Value: "cat"},
		},
		Operators: []aql.OperatorSpec{
			{Op: aql.Precedence, Left: 0, Right: 1, Min: 1, Max: 1},
		},
	}
	rows := collectMatches(t, g, conj)
	assert.Empty(t, rows)
}

func TestPlanReordersOperatorsWithoutChangingMatchSet(t *testing.T) {
	g := buildTokenChain(t, "The", "cat", "sits", "on", "the", "mat", ".")

	forward := aql.Conjunction{
		Nodes: []aql.NodeSearchSpec{
			{Kind: aql.ExactTokenValue, Value: "cat"},
			{Kind: aql.ExactTokenValue, Value: "sits"},
			{Kind: aql.ExactTokenValue, Value: "on"},
		},
		Operators: []aql.OperatorSpec{
			{Op: aql.Precedence, Left: 0, Right: 1, Min: 1, Max: 1},
			{Op: aql.Precedence, Left: 1, Right: 2, Min: 1, Max: 1},
		},
	}
	reversed := forward
	reversed.Operators = []aql.OperatorSpec{forward.Operators[1], forward.Operators[0]}

	rowsForward := collectMatches(t, g, forward)
	rowsReversed := collectMatches(t, g, reversed)
	assert.ElementsMatch(t, rowsForward, rowsReversed)
	require.Len(t, rowsForward, 1)
	assert.ElementsMatch(t, []string{"tok2", "tok3", "tok4"}, rowsForward[0])
}

func TestPlanEmptyConjunctionFails(t *testing.T) {
	g := annograph.New()
	_, err := Plan(g, aql.Conjunction{})
	assert.Error(t, err)
}
