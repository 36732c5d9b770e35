package corpusstorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpling/graphannis-go/pkg/gerr"
)

func TestNewStoreCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "corpora")

	store, err := NewStore(StoreConfig{Root: root})
	require.NoError(t, err)
	defer store.Close()

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewStoreRejectsEmptyRoot(t *testing.T) {
	_, err := NewStore(StoreConfig{})
	assert.Error(t, err)
}

func TestListOnFreshStoreIsEmpty(t *testing.T) {
	store, err := NewStore(StoreConfig{Root: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()

	corpora, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, corpora)
}

func TestDeleteUnknownCorpusFails(t *testing.T) {
	store, err := NewStore(StoreConfig{Root: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()

	err = store.Delete("no-such-corpus")
	assert.ErrorIs(t, err, gerr.ErrNoSuchCorpus)
}

func TestCountAgainstUnknownCorpusFails(t *testing.T) {
	store, err := NewStore(StoreConfig{Root: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Count(context.Background(), []string{"no-such-corpus"}, `tok="cat"`)
	assert.Error(t, err)
}
