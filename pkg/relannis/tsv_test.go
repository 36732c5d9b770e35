package relannis

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnescapeField(t *testing.T) {
	assert.Equal(t, "a\tb", unescapeField(`a\tb`))
	assert.Equal(t, "a\nb", unescapeField(`a\nb`))
	assert.Equal(t, "it's", unescapeField(`it\'s`))
	assert.Equal(t, `back\slash`, unescapeField(`back\slash`))
	assert.Equal(t, "plain", unescapeField("plain"))
}

func TestTsvReaderSplitsOnTabAndNull(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.tab")
	writeTable(t, path, "1\tfoo\tNULL\tba\\tr\n2\tbaz\tqux\t\n")

	r, closeFn, err := openTSV(path)
	require.NoError(t, err)
	defer closeFn()

	row, err := r.next()
	require.NoError(t, err)
	require.Len(t, row, 4)
	v0, err := row.getNotNull(0, "id")
	require.NoError(t, err)
	assert.Equal(t, "1", v0)
	assert.Nil(t, row.get(2))
	v3, err := row.getNotNull(3, "val")
	require.NoError(t, err)
	assert.Equal(t, "ba\tr", v3)

	row, err = r.next()
	require.NoError(t, err)
	require.Len(t, row, 4)

	_, err = r.next()
	assert.Equal(t, io.EOF, err)
}

func TestTsvRowGetNotNullMissingColumn(t *testing.T) {
	row := tsvRow{}
	_, err := row.getNotNull(0, "id")
	assert.Error(t, err)
}

func writeTable(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
