package subgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpling/graphannis-go/pkg/annograph"
	"github.com/korpling/graphannis-go/pkg/annostorage"
	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/korpling/graphannis-go/pkg/updatelog"
)

// buildSentence builds the corpus fixture of spec.md section 8 scenario
// 3: a document/root corpus structure, seven ordered tokens, and a
// span2 node covering tok4 alone.
func buildSentence(t *testing.T) *annograph.Graph {
	t.Helper()
	g := annograph.New()

	words := []string{"The", "cat", "sits", "on", "the", "mat", "."}
	var batch []updatelog.Event
	batch = append(batch,
		updatelog.Event{Kind: updatelog.AddNode, Node: updatelog.NodeRef{Name: "root"}, NodeType: "corpus"},
		updatelog.Event{Kind: updatelog.AddNode, Node: updatelog.NodeRef{Name: "doc1"}, NodeType: "corpus"},
		updatelog.Event{Kind: updatelog.AddEdge, Edge: updatelog.EdgeRef{Source: "doc1", Target: "root", ComponentType: string(gmodel.PartOf), Layer: gmodel.AnnisNamespace}},
	)

	var prev string
	for i, w := range words {
		name := "tok" + string(rune('1'+i))
		batch = append(batch,
			updatelog.Event{Kind: updatelog.AddNode, Node: updatelog.NodeRef{Name: name}, NodeType: "node"},
			updatelog.Event{Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: name}, AnnoNamespace: gmodel.AnnisNamespace, AnnoName: "tok", AnnoValue: w},
			updatelog.Event{Kind: updatelog.AddEdge, Edge: updatelog.EdgeRef{Source: name, Target: "doc1", ComponentType: string(gmodel.PartOf), Layer: gmodel.AnnisNamespace}},
		)
		if prev != "" {
			batch = append(batch, updatelog.Event{
				Kind: updatelog.AddEdge,
				Edge: updatelog.EdgeRef{Source: prev, Target: name, ComponentType: string(gmodel.Ordering), Layer: gmodel.AnnisNamespace},
			})
		}
		prev = name
	}

	batch = append(batch,
		updatelog.Event{Kind: updatelog.AddNode, Node: updatelog.NodeRef{Name: "span2"}, NodeType: "span"},
		updatelog.Event{Kind: updatelog.AddEdge, Edge: updatelog.EdgeRef{Source: "span2", Target: "tok4", ComponentType: string(gmodel.Coverage), Layer: gmodel.AnnisNamespace}},
		updatelog.Event{Kind: updatelog.AddEdge, Edge: updatelog.EdgeRef{Source: "span2", Target: "doc1", ComponentType: string(gmodel.PartOf), Layer: gmodel.AnnisNamespace}},
	)

	require.NoError(t, g.ApplyUpdate(batch, nil))
	return g
}

func nodeNames(t *testing.T, g *annograph.Graph) map[string]bool {
	t.Helper()
	out := make(map[string]bool)
	for m := range g.Nodes.ExactAnnoSearch(gmodel.NodeNameKey, annostorage.ValueSearch{Kind: annostorage.Any}) {
		out[m.Value] = true
	}
	return out
}

func TestExtractContextWindow(t *testing.T) {
	g := buildSentence(t)

	result, err := Extract(g, Request{
		NodeNames: []string{"tok3"},
		CtxLeft:   2,
		CtxRight:  2,
	})
	require.NoError(t, err)

	names := nodeNames(t, result)
	for _, want := range []string{"tok1", "tok2", "tok3", "tok4", "tok5", "span2", "doc1", "root"} {
		assert.Truef(t, names[want], "expected %s in extracted subgraph, got %v", want, names)
	}
	assert.False(t, names["tok6"], "tok6 is outside the ctx_right=2 window from tok3")
	assert.False(t, names["tok7"])
}

func TestExtractUnknownNodeFails(t *testing.T) {
	g := buildSentence(t)
	_, err := Extract(g, Request{NodeNames: []string{"no-such-node"}, CtxLeft: 1, CtxRight: 1})
	assert.Error(t, err)
}

func TestExtractEmptyRequestFails(t *testing.T) {
	g := buildSentence(t)
	_, err := Extract(g, Request{})
	assert.Error(t, err)
}

func TestExtractComponentTypeFilterExcludesPartOf(t *testing.T) {
	g := buildSentence(t)

	result, err := Extract(g, Request{
		NodeNames:      []string{"tok3"},
		CtxLeft:        0,
		CtxRight:       0,
		ComponentTypes: []gmodel.ComponentType{gmodel.Ordering},
	})
	require.NoError(t, err)

	partOf, ok := result.GraphStorage(gmodel.AnnisComponent(gmodel.PartOf, ""))
	if ok {
		src, err := partOf.SourceNodes()
		require.NoError(t, err)
		assert.Empty(t, src, "PartOf edges should have been filtered out by the component-type filter")
	}
}
