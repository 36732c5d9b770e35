package relannis

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCorpusTabBuildsPreorderTree(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, filepath.Join(dir, "corpus.tab"),
		"1\troot\tCORPUS\tNULL\t0\t3\n"+
			"2\tdoc1\tDOCUMENT\tNULL\t1\t2\n")

	table, err := parseCorpusTab(dir, false)
	require.NoError(t, err)
	assert.Equal(t, "root", table.toplevelName)

	path, err := table.corpusPath(2)
	require.NoError(t, err)
	assert.Equal(t, "root/doc1", path)

	parent, err := table.parentPath(1)
	require.NoError(t, err)
	assert.Equal(t, "", parent)
}

func TestParseCorpusTabDisambiguatesDuplicateDocumentNames(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, filepath.Join(dir, "corpus.tab"),
		"1\troot\tCORPUS\tNULL\t0\t5\n"+
			"2\tdoc\tDOCUMENT\tNULL\t1\t2\n"+
			"3\tdoc\tDOCUMENT\tNULL\t3\t4\n")

	table, err := parseCorpusTab(dir, false)
	require.NoError(t, err)

	assert.Equal(t, "doc", table.byID[2].name)
	assert.Equal(t, "doc_duplicated_document_name_2", table.byID[3].name)
}

func TestParseCorpusTabMissingFileFails(t *testing.T) {
	_, err := parseCorpusTab(t.TempDir(), false)
	assert.Error(t, err)
}

func TestParseCorpusAnnotationTab(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, filepath.Join(dir, "corpus_annotation.tab"),
		"1\tannis\tcorpus-name\tmycorp\n"+
			"1\tdefault_ns\tgenre\tNULL\n")

	annos, err := parseCorpusAnnotationTab(dir, false)
	require.NoError(t, err)

	assert.Equal(t, "mycorp", annos[corpusAnnoKey{id: 1, ns: "annis", name: "corpus-name"}])
	assert.Equal(t, invalidString, annos[corpusAnnoKey{id: 1, ns: "default_ns", name: "genre"}])
}

func TestParseTextTab32HasNoCorpusRef(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, filepath.Join(dir, "text.tab"), "1\ttext1\tThe cat sits.\n")

	texts, err := parseTextTab(dir, false)
	require.NoError(t, err)

	v, ok := texts[textKey{id: 1}]
	require.True(t, ok)
	assert.Equal(t, "text1", v.name)
	assert.Equal(t, "The cat sits.", v.val)
}

func TestParseTextTab33CarriesCorpusRef(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, filepath.Join(dir, "text.annis"), "1\t2\ttext1\tThe cat sits.\n")

	texts, err := parseTextTab(dir, true)
	require.NoError(t, err)

	v, ok := texts[textKey{id: 2, corpusRef: 1, hasCorpusRef: true}]
	require.True(t, ok)
	assert.Equal(t, "text1", v.name)
}
