package parsers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_CastAndRename(t *testing.T) {
	data := "library_id,total_reads,mean_q,note\n" +
		"lib-1,1200,35.5,ok\n" +
		"lib-2,n/a,bad,\n"

	rows, err := Parse(strings.NewReader(data), Options{
		IntFields:   []string{"total_reads"},
		FloatFields: []string{"mean_q"},
		Rename:      map[string]string{"total_reads": "reads", "library_id": "library"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, map[string]any{"library": "lib-1", "reads": 1200, "mean_q": 35.5, "note": "ok"}, rows[0])
	assert.Nil(t, rows[1]["reads"])
	assert.Nil(t, rows[1]["mean_q"])
	assert.Contains(t, rows[1], "reads")
	assert.NotContains(t, rows[1], "total_reads")
}

func TestParse_TabDelimited(t *testing.T) {
	rows, err := Parse(strings.NewReader("a\tb\n1\t2\n"), Options{Delimiter: '\t', IntFields: []string{"b"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0]["a"])
	assert.Equal(t, 2, rows[0]["b"])
}

func TestParse_EmptyAndBOM(t *testing.T) {
	rows, err := Parse(strings.NewReader(""), Options{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = Parse(strings.NewReader("\ufeffid\nx\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "x", rows[0]["id"])
}

func TestParse_ShortRow(t *testing.T) {
	rows, err := Parse(strings.NewReader("a,b,c\n1,2\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "1", "b": "2"}, rows[0])
}

func TestParseCSV_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run-A_summary.csv")
	require.NoError(t, os.WriteFile(path, []byte("id\nlib-1\n"), 0o644))

	rows, err := ParseCSV(path, Options{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = ParseCSV(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
