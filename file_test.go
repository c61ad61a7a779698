package lroi

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFileType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		expected FileType
	}{
		{name: "XLSX file", path: "export.xlsx", expected: FileTypeXLSX},
		{name: "CSV file", path: "export.csv", expected: FileTypeCSV},
		{name: "TSV file", path: "export.tsv", expected: FileTypeTSV},
		{name: "gzip-compressed CSV", path: "export.csv.gz", expected: FileTypeCSV},
		{name: "bzip2-compressed TSV", path: "export.tsv.bz2", expected: FileTypeTSV},
		{name: "xz-compressed XLSX", path: "export.xlsx.xz", expected: FileTypeXLSX},
		{name: "zstd-compressed CSV", path: "export.csv.zst", expected: FileTypeCSV},
		{name: "uppercase extension", path: "EXPORT.XLSX", expected: FileTypeXLSX},
		{name: "unsupported", path: "export.txt", expected: FileTypeUnsupported},
		{name: "legacy xls unsupported", path: "export.xls", expected: FileTypeUnsupported},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, detectFileType(tt.path))
			assert.Equal(t, tt.expected != FileTypeUnsupported, IsSupportedFile(tt.path))
		})
	}
}

func TestReadSheetXLSX(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeXLSXFixture(t, dir, "export.xlsx", [][]any{
		{" PatientID ", "Score"},
		{"P001", "45"},
		{"P002"},
	})

	s, err := readSheet(path)
	require.NoError(t, err)
	require.False(t, s.empty())

	assert.Equal(t, []string{"PatientID", "Score"}, s.headers)
	require.Len(t, s.rows, 2)
	assert.Equal(t, "45", s.rows[0]["Score"].String())
	assert.True(t, s.rows[1]["Score"].IsEmpty(), "short rows padded with empty cells")
}

func TestReadSheetCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "export.csv")
	content := "PatientID,Score\nP001,45\nP002,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := readSheet(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"PatientID", "Score"}, s.headers)
	require.Len(t, s.rows, 2)
	assert.Equal(t, CellNumber, s.rows[0]["Score"].Kind())
	assert.True(t, s.rows[1]["Score"].IsEmpty())
}

func TestReadSheetTSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "export.tsv")
	content := "PatientID\tScore\nP001\t45\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := readSheet(path)
	require.NoError(t, err)
	assert.Equal(t, "P001", s.rows[0]["PatientID"].String())
}

func TestReadSheetCompressedCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "export.csv.gz")

	file, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(file)
	_, err = gz.Write([]byte("PatientID,Score\nP001,45\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, file.Close())

	s, err := readSheet(path)
	require.NoError(t, err)
	assert.Equal(t, "P001", s.rows[0]["PatientID"].String())
	assert.Equal(t, "45", s.rows[0]["Score"].String())
}

func TestReadSheetUnsupported(t *testing.T) {
	t.Parallel()

	_, err := readSheet("export.txt")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadSheetMissingFile(t *testing.T) {
	t.Parallel()

	_, err := readSheet(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestNewSheetEmpty(t *testing.T) {
	t.Parallel()

	s := newSheet(nil)
	assert.True(t, s.empty())
	assert.Empty(t, s.rows)
}
