package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertReusesExistingSymbol(t *testing.T) {
	tab := New[string]()
	a := tab.Insert("hello")
	b := tab.Insert("hello")
	assert.Equal(t, a, b)
	assert.Equal(t, uint32(2), tab.RefCount(a))
}

func TestRemoveFreesAtZeroRefcount(t *testing.T) {
	tab := New[string]()
	id := tab.Insert("x")
	tab.InsertShared(id)
	assert.Equal(t, uint32(2), tab.RefCount(id))

	tab.Remove(id)
	_, ok := tab.GetValue(id)
	require.True(t, ok, "still referenced once")

	tab.Remove(id)
	_, ok = tab.GetValue(id)
	assert.False(t, ok, "should be freed")
}

func TestFreedSymbolsAreReused(t *testing.T) {
	tab := New[string]()
	a := tab.Insert("a")
	tab.Remove(a)
	b := tab.Insert("b")
	assert.Equal(t, a, b, "freed id should be reused")
}

func TestRemoveUnknownSymbolIsNoOp(t *testing.T) {
	tab := New[string]()
	assert.NotPanics(t, func() { tab.Remove(Symbol(999)) })
}
