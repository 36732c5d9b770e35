package annostorage

import (
	"testing"

	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func annoKey(name string) gmodel.AnnoKey {
	return gmodel.AnnoKey{Namespace: "default", Name: name}
}

func TestInsertAndGetValueForItem(t *testing.T) {
	s := Memory[gmodel.NodeID](NodeItemCodec{})
	_, existed, err := s.Insert(1, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	require.NoError(t, err)
	assert.False(t, existed)

	v, ok, err := s.GetValueForItem(1, annoKey("pos"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "NN", v)
}

func TestInsertReplacesPreviousValue(t *testing.T) {
	s := Memory[gmodel.NodeID](NodeItemCodec{})
	_, _, err := s.Insert(1, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	require.NoError(t, err)

	prev, existed, err := s.Insert(1, gmodel.Anno{Key: annoKey("pos"), Value: "VB"})
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, "NN", prev)

	v, ok, _ := s.GetValueForItem(1, annoKey("pos"))
	require.True(t, ok)
	assert.Equal(t, "VB", v)
}

func TestRemoveAnnotationForItem(t *testing.T) {
	s := Memory[gmodel.NodeID](NodeItemCodec{})
	_, _, err := s.Insert(1, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	require.NoError(t, err)

	require.NoError(t, s.RemoveAnnotationForItem(1, annoKey("pos")))
	_, ok, err := s.GetValueForItem(1, annoKey("pos"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveItemDropsAllAnnotations(t *testing.T) {
	s := Memory[gmodel.NodeID](NodeItemCodec{})
	_, _, _ = s.Insert(1, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	_, _, _ = s.Insert(1, gmodel.Anno{Key: annoKey("lemma"), Value: "cat"})

	require.NoError(t, s.RemoveItem(1))
	keys, err := s.GetAllKeysForItem(1)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestByItemAndByAnnoAgree(t *testing.T) {
	s := Memory[gmodel.NodeID](NodeItemCodec{})
	_, _, _ = s.Insert(1, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	_, _, _ = s.Insert(2, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	_, _, _ = s.Insert(3, gmodel.Anno{Key: annoKey("pos"), Value: "VB"})

	var nnItems []gmodel.NodeID
	for m := range s.ExactAnnoSearch(annoKey("pos"), ValueSearch{Kind: Some, Value: "NN"}) {
		nnItems = append(nnItems, m.Item)
	}
	assert.ElementsMatch(t, []gmodel.NodeID{1, 2}, nnItems)

	for _, item := range nnItems {
		v, ok, err := s.GetValueForItem(item, annoKey("pos"))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "NN", v)
	}
}

func TestExactAnnoSearchNotSome(t *testing.T) {
	s := Memory[gmodel.NodeID](NodeItemCodec{})
	_, _, _ = s.Insert(1, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	_, _, _ = s.Insert(2, gmodel.Anno{Key: annoKey("pos"), Value: "VB"})

	var items []gmodel.NodeID
	for m := range s.ExactAnnoSearch(annoKey("pos"), ValueSearch{Kind: NotSome, Value: "NN"}) {
		items = append(items, m.Item)
	}
	assert.Equal(t, []gmodel.NodeID{2}, items)
}

func TestRegexAnnoSearch(t *testing.T) {
	s := Memory[gmodel.NodeID](NodeItemCodec{})
	_, _, _ = s.Insert(1, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	_, _, _ = s.Insert(2, gmodel.Anno{Key: annoKey("pos"), Value: "NNS"})
	_, _, _ = s.Insert(3, gmodel.Anno{Key: annoKey("pos"), Value: "VB"})

	seq, err := s.RegexAnnoSearch(annoKey("pos"), "NN.*")
	require.NoError(t, err)
	var items []gmodel.NodeID
	for m := range seq {
		items = append(items, m.Item)
	}
	assert.ElementsMatch(t, []gmodel.NodeID{1, 2}, items)
}

func TestExactAnnoSearchEarlyTermination(t *testing.T) {
	s := Memory[gmodel.NodeID](NodeItemCodec{})
	for i := gmodel.NodeID(1); i <= 10; i++ {
		_, _, _ = s.Insert(i, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	}

	count := 0
	for range s.ExactAnnoSearch(annoKey("pos"), ValueSearch{Kind: Any}) {
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}

func TestGuessMaxCountNeverReturnsZero(t *testing.T) {
	s := Memory[gmodel.NodeID](NodeItemCodec{})
	_, _, _ = s.Insert(1, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})

	assert.Equal(t, int64(1), s.GuessMaxCount(annoKey("pos"), "does-not-exist"))
}

func TestCalculateStatisticsCounts(t *testing.T) {
	s := Memory[gmodel.NodeID](NodeItemCodec{})
	_, _, _ = s.Insert(1, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	_, _, _ = s.Insert(2, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	_, _, _ = s.Insert(3, gmodel.Anno{Key: annoKey("pos"), Value: "VB"})

	stats := s.CalculateStatistics(annoKey("pos"))
	assert.Equal(t, int64(3), stats.Count)
	assert.Equal(t, int64(2), stats.DistinctCount)
}

func TestAnnotationKeysPreservesFirstSeenOrder(t *testing.T) {
	s := Memory[gmodel.NodeID](NodeItemCodec{})
	_, _, _ = s.Insert(1, gmodel.Anno{Key: annoKey("lemma"), Value: "cat"})
	_, _, _ = s.Insert(1, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	_, _, _ = s.Insert(2, gmodel.Anno{Key: annoKey("lemma"), Value: "dog"})

	assert.Equal(t, []gmodel.AnnoKey{annoKey("lemma"), annoKey("pos")}, s.AnnotationKeys())
}

func TestGetLargestItem(t *testing.T) {
	s := Memory[gmodel.NodeID](NodeItemCodec{})
	_, _, _ = s.Insert(5, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	_, _, _ = s.Insert(42, gmodel.Anno{Key: annoKey("pos"), Value: "VB"})
	_, _, _ = s.Insert(7, gmodel.Anno{Key: annoKey("pos"), Value: "JJ"})

	largest, ok, err := s.GetLargestItem()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, gmodel.NodeID(42), largest)
}

func TestClearRemovesEverything(t *testing.T) {
	s := Memory[gmodel.NodeID](NodeItemCodec{})
	_, _, _ = s.Insert(1, gmodel.Anno{Key: annoKey("pos"), Value: "NN"})
	require.NoError(t, s.Clear())

	_, ok, err := s.GetValueForItem(1, annoKey("pos"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s.AnnotationKeys())
}
