package relannis

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/korpling/graphannis-go/pkg/gerr"
)

// tsvRow is one line of a relANNIS table, already split on tabs with the
// PostgreSQL text-format escape sequences resolved. A nil entry marks a
// literal NULL field, mirroring get_field's Option return.
type tsvRow []*string

func (r tsvRow) get(i int) *string {
	if i < 0 || i >= len(r) {
		return nil
	}
	return r[i]
}

// getNotNull returns the column value or gerr.ErrIO wrapped with the
// column name if the field is absent or NULL; relANNIS never leaves a
// primary-key or type column null.
func (r tsvRow) getNotNull(i int, name string) (string, error) {
	v := r.get(i)
	if v == nil {
		return "", &missingColumnError{name: name, pos: i}
	}
	return *v, nil
}

type missingColumnError struct {
	name string
	pos  int
}

func (e *missingColumnError) Error() string {
	return "relannis: missing or null column " + e.name + " at position " + itoa(e.pos)
}

func (e *missingColumnError) Unwrap() error { return gerr.ErrIO }

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// tsvReader streams a tab-separated relANNIS table. Quoting is disabled
// (relANNIS' own Postgres COPY dumps never quote fields) and escape
// sequences use a backslash, matching postgresql_import_reader/
// escape_field in the original loader.
type tsvReader struct {
	scanner *bufio.Scanner
}

func openTSV(path string) (*tsvReader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &tsvReader{scanner: scanner}, f.Close, nil
}

// next returns the next row, or io.EOF once the file is exhausted.
func (r *tsvReader) next() (tsvRow, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	fields := strings.Split(r.scanner.Text(), "\t")
	row := make(tsvRow, len(fields))
	for i, f := range fields {
		if f == "NULL" {
			continue
		}
		unescaped := unescapeField(f)
		row[i] = &unescaped
	}
	return row, nil
}

func (r *tsvReader) forEach(fn func(tsvRow) error) error {
	for {
		row, err := r.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// unescapeField resolves the small set of backslash escapes relANNIS'
// Postgres dumps use, per escape_field in the original loader: \\, \',
// \`, \$ collapse to the literal character and \n, \r, \t become their
// control characters. Any other backslash sequence is left untouched.
func unescapeField(val string) string {
	if !strings.ContainsRune(val, '\\') {
		return val
	}
	var b strings.Builder
	b.Grow(len(val))
	runes := []rune(val)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '\\' || i+1 >= len(runes) {
			b.WriteRune(c)
			continue
		}
		next := runes[i+1]
		switch next {
		case '\\', '\'', '`', '$':
			b.WriteRune(next)
			i++
		case 'n':
			b.WriteRune('\n')
			i++
		case 'r':
			b.WriteRune('\r')
			i++
		case 't':
			b.WriteRune('\t')
			i++
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}
