package annostorage

import (
	"testing"

	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStorageSurvivesCloseAndReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open[gmodel.NodeID](dir, NodeItemCodec{})
	require.NoError(t, err)

	_, _, err = s.Insert(1, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	require.NoError(t, err)
	_, _, err = s.Insert(2, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	require.NoError(t, err)
	_, _, err = s.Insert(2, gmodel.Anno{Key: annoKey("lemma"), Value: "dog"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open[gmodel.NodeID](dir, NodeItemCodec{})
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.GetValueForItem(1, annoKey("pos"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "NN", v)

	keys, err := reopened.GetAllKeysForItem(2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []gmodel.AnnoKey{annoKey("pos"), annoKey("lemma")}, keys)

	stats := reopened.CalculateStatistics(annoKey("pos"))
	assert.Equal(t, int64(2), stats.Count)

	assert.Equal(t, []gmodel.AnnoKey{annoKey("pos"), annoKey("lemma")}, reopened.AnnotationKeys())
}

func TestDiskStorageReopenAllowsFurtherInserts(t *testing.T) {
	dir := t.TempDir()

	s, err := Open[gmodel.NodeID](dir, NodeItemCodec{})
	require.NoError(t, err)
	_, _, err = s.Insert(1, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open[gmodel.NodeID](dir, NodeItemCodec{})
	require.NoError(t, err)
	defer reopened.Close()

	_, _, err = reopened.Insert(3, gmodel.Anno{Key: annoKey("pos"), Value: "VB"})
	require.NoError(t, err)

	var items []gmodel.NodeID
	for m := range reopened.ExactAnnoSearch(annoKey("pos"), ValueSearch{Kind: Any}) {
		items = append(items, m.Item)
	}
	assert.ElementsMatch(t, []gmodel.NodeID{1, 3}, items)
}
