package updatelog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndIterPreservesOrder(t *testing.T) {
	l := Memory()
	defer l.Close()

	id1, err := l.Append(Event{Kind: AddNode, Node: NodeRef{Name: "n1"}, NodeType: "node"})
	require.NoError(t, err)
	id2, err := l.Append(Event{Kind: AddNodeLabel, Node: NodeRef{Name: "n1"}, AnnoNamespace: "default", AnnoName: "pos", AnnoValue: "NN"})
	require.NoError(t, err)

	assert.Equal(t, uint64(0), id1)
	assert.Equal(t, uint64(1), id2)

	entries, err := l.Iter()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, AddNode, entries[0].Event.Kind)
	assert.Equal(t, AddNodeLabel, entries[1].Event.Kind)
}

func TestOpenRestoresSequenceCounter(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir)
	require.NoError(t, err)
	_, err = l.Append(Event{Kind: AddNode, Node: NodeRef{Name: "n1"}})
	require.NoError(t, err)
	_, err = l.Append(Event{Kind: AddNode, Node: NodeRef{Name: "n2"}})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	id, err := reopened.Append(Event{Kind: AddNode, Node: NodeRef{Name: "n3"}})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)

	entries, err := reopened.Iter()
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
