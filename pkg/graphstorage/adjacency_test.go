package graphstorage

import (
	"testing"

	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildChain(t *testing.T, g WritableGraphStorage, n int) {
	t.Helper()
	for i := 0; i < n-1; i++ {
		require.NoError(t, g.AddEdge(gmodel.Edge{Source: gmodel.NodeID(i), Target: gmodel.NodeID(i + 1)}))
	}
}

func TestAdjacencyListBasic(t *testing.T) {
	a := NewAdjacencyList()
	require.NoError(t, a.AddEdge(gmodel.Edge{Source: 1, Target: 2}))
	require.NoError(t, a.AddEdge(gmodel.Edge{Source: 1, Target: 3}))

	out, err := a.GetOutgoingEdges(1)
	require.NoError(t, err)
	assert.Equal(t, []gmodel.NodeID{2, 3}, out)

	in, err := a.GetIngoingEdges(2)
	require.NoError(t, err)
	assert.Equal(t, []gmodel.NodeID{1}, in)

	has, err := a.HasOutgoingEdges(1)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestAdjacencyListDeleteEdge(t *testing.T) {
	a := NewAdjacencyList()
	require.NoError(t, a.AddEdge(gmodel.Edge{Source: 1, Target: 2}))
	require.NoError(t, a.DeleteEdge(gmodel.Edge{Source: 1, Target: 2}))

	out, err := a.GetOutgoingEdges(1)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFindConnectedIsCycleSafe(t *testing.T) {
	a := NewAdjacencyList()
	require.NoError(t, a.AddEdge(gmodel.Edge{Source: 1, Target: 2}))
	require.NoError(t, a.AddEdge(gmodel.Edge{Source: 2, Target: 3}))
	require.NoError(t, a.AddEdge(gmodel.Edge{Source: 3, Target: 1})) // cycle

	result, err := a.FindConnected(1, 1, Bound{Kind: Unbounded})
	require.NoError(t, err)
	assert.ElementsMatch(t, []gmodel.NodeID{2, 3}, result)
}

func TestDistanceAndIsConnected(t *testing.T) {
	a := NewAdjacencyList()
	buildChain(t, a, 5)

	dist, found, err := a.Distance(0, 4)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 4, dist)

	ok, err := a.IsConnected(0, 4, 1, Bound{Kind: Included, Value: 4})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.IsConnected(0, 4, 1, Bound{Kind: Excluded, Value: 4})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestComputeStatisticsTreeShape(t *testing.T) {
	a := NewAdjacencyList()
	require.NoError(t, a.AddEdge(gmodel.Edge{Source: 1, Target: 2}))
	require.NoError(t, a.AddEdge(gmodel.Edge{Source: 1, Target: 3}))
	require.NoError(t, a.AddEdge(gmodel.Edge{Source: 2, Target: 4}))

	stats := a.GetStatistics()
	assert.True(t, stats.RootedTree)
	assert.False(t, stats.Cyclic)
	assert.Equal(t, int64(1), stats.NumberOfRoots)
	assert.Equal(t, int64(2), stats.MaxDepth)
}

func TestComputeStatisticsDetectsCycle(t *testing.T) {
	a := NewAdjacencyList()
	require.NoError(t, a.AddEdge(gmodel.Edge{Source: 1, Target: 2}))
	require.NoError(t, a.AddEdge(gmodel.Edge{Source: 2, Target: 1}))

	stats := a.GetStatistics()
	assert.True(t, stats.Cyclic)
}

func TestComputeStatisticsNotRootedWhenMultipleParents(t *testing.T) {
	a := NewAdjacencyList()
	require.NoError(t, a.AddEdge(gmodel.Edge{Source: 1, Target: 3}))
	require.NoError(t, a.AddEdge(gmodel.Edge{Source: 2, Target: 3}))

	stats := a.GetStatistics()
	assert.False(t, stats.RootedTree)
}

func TestDenseAdjacencyListBasic(t *testing.T) {
	d := NewDenseAdjacencyList()
	require.NoError(t, d.AddEdge(gmodel.Edge{Source: 10, Target: 11}))
	require.NoError(t, d.AddEdge(gmodel.Edge{Source: 10, Target: 12}))

	out, err := d.GetOutgoingEdges(10)
	require.NoError(t, err)
	assert.Equal(t, []gmodel.NodeID{11, 12}, out)

	in, err := d.GetIngoingEdges(11)
	require.NoError(t, err)
	assert.Equal(t, []gmodel.NodeID{10}, in)
}

func TestLinearGraphStorageFindConnectedIsSliceOfChain(t *testing.T) {
	l := NewLinearGraphStorage[int32]()
	buildChain(t, l, 6)

	result, err := l.FindConnected(0, 1, Bound{Kind: Included, Value: 3})
	require.NoError(t, err)
	assert.Equal(t, []gmodel.NodeID{1, 2, 3}, result)
}

func TestPrePostOrderStorageIsConnectedAncestor(t *testing.T) {
	p := NewPrePostOrderStorage[int32, int32]()
	require.NoError(t, p.AddEdge(gmodel.Edge{Source: 1, Target: 2}))
	require.NoError(t, p.AddEdge(gmodel.Edge{Source: 2, Target: 3}))
	require.NoError(t, p.AddEdge(gmodel.Edge{Source: 1, Target: 4}))

	ok, err := p.IsConnected(1, 3, 0, Bound{Kind: Unbounded})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.IsConnected(4, 3, 0, Bound{Kind: Unbounded})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdjacencyListDiskRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a, err := OpenAdjacencyListDisk(dir)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.AddEdge(gmodel.Edge{Source: 1, Target: 2}))
	require.NoError(t, a.AddEdge(gmodel.Edge{Source: 1, Target: 3}))

	out, err := a.GetOutgoingEdges(1)
	require.NoError(t, err)
	assert.Equal(t, []gmodel.NodeID{2, 3}, out)

	in, err := a.GetIngoingEdges(3)
	require.NoError(t, err)
	assert.Equal(t, []gmodel.NodeID{1}, in)
}

func TestCopyFromRebuildsStorage(t *testing.T) {
	src := NewAdjacencyList()
	require.NoError(t, src.AddEdge(gmodel.Edge{Source: 1, Target: 2}))
	require.NoError(t, src.AddEdge(gmodel.Edge{Source: 2, Target: 3}))

	dst := NewDenseAdjacencyList()
	require.NoError(t, dst.CopyFrom(src))

	out, err := dst.GetOutgoingEdges(1)
	require.NoError(t, err)
	assert.Equal(t, []gmodel.NodeID{2}, out)
}
