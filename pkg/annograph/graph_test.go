package annograph

import (
	"testing"

	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/korpling/graphannis-go/pkg/updatelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokEvent(name, value string) updatelog.Event {
	return updatelog.Event{Kind: updatelog.AddNode, Node: updatelog.NodeRef{Name: name}, NodeType: "node"}
}

func TestApplyUpdateAddNodeAndLabel(t *testing.T) {
	g := New()
	batch := []updatelog.Event{
		tokEvent("tok1", "node"),
		{Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: "tok1"}, AnnoNamespace: "annis", AnnoName: "tok", AnnoValue: "hello"},
	}
	require.NoError(t, g.ApplyUpdate(batch, nil))

	id, ok := g.resolve("tok1")
	require.True(t, ok)

	v, ok, err := g.Nodes.GetValueForItem(id, gmodel.TokKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", v)
}

func TestApplyUpdateAddEdge(t *testing.T) {
	g := New()
	batch := []updatelog.Event{
		tokEvent("span1", "node"),
		tokEvent("tok1", "node"),
		{Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: "tok1"}, AnnoNamespace: "annis", AnnoName: "tok", AnnoValue: "hi"},
		{Kind: updatelog.AddEdge, Edge: updatelog.EdgeRef{Source: "span1", Target: "tok1", ComponentType: string(gmodel.Coverage), Layer: "annis", Name: ""}},
	}
	require.NoError(t, g.ApplyUpdate(batch, nil))

	spanID, _ := g.resolve("span1")
	tokID, _ := g.resolve("tok1")

	coverage, ok := g.GraphStorage(gmodel.AnnisComponent(gmodel.Coverage, ""))
	require.True(t, ok)
	out, err := coverage.GetOutgoingEdges(spanID)
	require.NoError(t, err)
	assert.Equal(t, []gmodel.NodeID{tokID}, out)
}

func TestApplyUpdateRebuildsInheritedCoverage(t *testing.T) {
	g := New()
	batch := []updatelog.Event{
		tokEvent("doc", "node"),
		tokEvent("span1", "node"),
		tokEvent("tok1", "node"),
		tokEvent("tok2", "node"),
		{Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: "tok1"}, AnnoNamespace: "annis", AnnoName: "tok", AnnoValue: "a"},
		{Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: "tok2"}, AnnoNamespace: "annis", AnnoName: "tok", AnnoValue: "b"},
		{Kind: updatelog.AddEdge, Edge: updatelog.EdgeRef{Source: "span1", Target: "tok1", ComponentType: string(gmodel.Coverage)}},
		{Kind: updatelog.AddEdge, Edge: updatelog.EdgeRef{Source: "span1", Target: "tok2", ComponentType: string(gmodel.Coverage)}},
	}
	require.NoError(t, g.ApplyUpdate(batch, nil))

	spanID, _ := g.resolve("span1")
	tok1, _ := g.resolve("tok1")
	tok2, _ := g.resolve("tok2")

	inherited, ok := g.GraphStorage(gmodel.AnnisComponent(gmodel.Coverage, gmodel.InheritedCoverageName))
	require.True(t, ok)
	out, err := inherited.GetOutgoingEdges(spanID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []gmodel.NodeID{tok1, tok2}, out)
}

func TestApplyUpdateDeleteNode(t *testing.T) {
	g := New()
	batch := []updatelog.Event{tokEvent("n1", "node")}
	require.NoError(t, g.ApplyUpdate(batch, nil))
	id, _ := g.resolve("n1")

	require.NoError(t, g.ApplyUpdate([]updatelog.Event{{Kind: updatelog.DeleteNode, Node: updatelog.NodeRef{Name: "n1"}}}, nil))

	_, ok := g.resolve("n1")
	assert.False(t, ok)
	keys, err := g.Nodes.GetAllKeysForItem(id)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestGetOrCreateWritableCopiesFromReadOnlyRepresentation(t *testing.T) {
	g := New()
	gs, err := g.GetOrCreateWritable(gmodel.AnnisComponent(gmodel.Dominance, ""))
	require.NoError(t, err)
	require.NoError(t, gs.AddEdge(gmodel.Edge{Source: 1, Target: 2}))

	out, err := gs.GetOutgoingEdges(1)
	require.NoError(t, err)
	assert.Equal(t, []gmodel.NodeID{2}, out)
}
