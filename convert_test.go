package lroi

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const convertTestConfig = `
[defaults]
hospital = 1234

[lut]
join_column = "PatientID"

[PROM.TYPE_A]
detection_column = "ScoreTotal"

[PROM.TYPE_A.UPNNUM]
column = "PatientID"

[PROM.TYPE_A.DATUMINVUL]
column = "EntryDate"

[[PROM.TYPE_A.DATUMINVUL.value]]
match = '(\d{2})/(\d{2})/(\d{4})'
replace = '\3-\2-\1'
`

// convertTestPROMs patches the schema order for the synthetic TYPE_A used
// in these tests.
func withTypeASchema(t *testing.T) {
	t.Helper()

	schemaElementOrder["TYPE_A"] = []string{"DATUMINVUL", "HOSPITAL", "UPNNUM", "GENDER"}
	t.Cleanup(func() {
		delete(schemaElementOrder, "TYPE_A")
	})
}

func TestConvert(t *testing.T) {
	withTypeASchema(t)

	cfg, err := ParseConfig([]byte(convertTestConfig))
	require.NoError(t, err)

	dir := t.TempDir()
	input := writeXLSXFixture(t, dir, "export.xlsx", [][]any{
		{"ScoreTotal", "PatientID", "EntryDate"},
		{"45", "P001", "15/03/2024"},
	})

	result, err := Convert([]string{input}, cfg, WithLogger(testLogger()))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Converted)
	assert.Equal(t, 0, result.Skipped)
	assert.Contains(t, result.XML, "<DATUMINVUL>2024-03-15</DATUMINVUL>")
	assert.Contains(t, result.XML, "<UPNNUM>P001</UPNNUM>")
	assert.Contains(t, result.XML, "<HOSPITAL>1234</HOSPITAL>")
}

func TestConvertSkipsRows(t *testing.T) {
	withTypeASchema(t)

	cfg, err := ParseConfig([]byte(convertTestConfig))
	require.NoError(t, err)

	dir := t.TempDir()
	input := writeXLSXFixture(t, dir, "export.xlsx", [][]any{
		{"ScoreTotal", "PatientID", "EntryDate", "Unrelated"},
		{"45", "P001", "15/03/2024", ""},  // converts
		{"", "", "", "x"},                 // no PROM type detected
		{"45", "", "15/03/2024", ""},      // missing UPNNUM
		{"45", "P002", "", ""},            // missing DATUMINVUL
		{"", "", "", ""},                  // blank row, not counted at all
	})

	result, err := Convert([]string{input}, cfg, WithLogger(testLogger()))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Converted)
	assert.Equal(t, 3, result.Skipped)
	assert.Equal(t, 1, strings.Count(result.XML, "<questionaire>"))
}

func TestConvertWithLUT(t *testing.T) {
	schemaElementOrder["TYPE_A"] = []string{"DATUMINVUL", "HOSPITAL", "UPNNUM", "GENDER", "DATBIRTH"}
	t.Cleanup(func() {
		delete(schemaElementOrder, "TYPE_A")
	})

	lutConfig := convertTestConfig + `
[PROM.TYPE_A.lookup]
required = true
join_column = "PatientID"
add_columns = ["Gender", "DOB"]

[PROM.TYPE_A.GENDER]
column = "__LUT__Gender"

[PROM.TYPE_A.DATBIRTH]
column = "__LUT__DOB"
`
	cfg, err := ParseConfig([]byte(lutConfig))
	require.NoError(t, err)

	dir := t.TempDir()
	lut := writeXLSXFixture(t, dir, "demographics.xlsx", [][]any{
		{"PatientID", "Gender", "DOB"},
		{"P001", "1", "1970-01-01"},
	})
	input := writeXLSXFixture(t, dir, "export.xlsx", [][]any{
		{"ScoreTotal", "PatientID", "EntryDate"},
		{"45", "P001", "15/03/2024"},
		{"45", "P002", "15/03/2024"}, // join key absent from LUT
	})

	result, err := Convert([]string{input, lut}, cfg,
		WithLUTFile(lut), WithLogger(testLogger()))
	require.NoError(t, err)

	// The LUT file itself must not be processed as an input.
	assert.Equal(t, 2, result.Converted)
	assert.Contains(t, result.XML, "<GENDER>1</GENDER>")
	assert.Contains(t, result.XML, "<DATBIRTH>1970-01-01</DATBIRTH>")

	// The LUT miss for P002 is non-fatal: the row converts without
	// auxiliary fields, GENDER is emitted empty.
	assert.Contains(t, result.XML, "<UPNNUM>P002</UPNNUM>")
	assert.Equal(t, 0, result.Skipped)
}

func TestConvertLUTJoinColumnMissingAborts(t *testing.T) {
	withTypeASchema(t)

	cfg, err := ParseConfig([]byte(convertTestConfig))
	require.NoError(t, err)

	dir := t.TempDir()
	lut := writeXLSXFixture(t, dir, "demographics.xlsx", [][]any{
		{"WrongColumn"},
		{"P001"},
	})
	input := writeXLSXFixture(t, dir, "export.xlsx", [][]any{
		{"ScoreTotal", "PatientID", "EntryDate"},
		{"45", "P001", "15/03/2024"},
	})

	_, err = Convert([]string{input}, cfg, WithLUTFile(lut), WithLogger(testLogger()))
	require.ErrorIs(t, err, ErrJoinColumnNotFound)
}

func TestConvertWritesOutputFile(t *testing.T) {
	withTypeASchema(t)

	cfg, err := ParseConfig([]byte(convertTestConfig))
	require.NoError(t, err)

	dir := t.TempDir()
	input := writeXLSXFixture(t, dir, "export.xlsx", [][]any{
		{"ScoreTotal", "PatientID", "EntryDate"},
		{"45", "P001", "15/03/2024"},
	})
	output := filepath.Join(dir, "output.xml")

	result, err := Convert([]string{input}, cfg,
		WithOutputFile(output), WithLogger(testLogger()))
	require.NoError(t, err)

	written, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, result.XML, string(written))
}

func TestConvertEmptyInputFile(t *testing.T) {
	withTypeASchema(t)

	cfg, err := ParseConfig([]byte(convertTestConfig))
	require.NoError(t, err)

	dir := t.TempDir()
	empty := writeXLSXFixture(t, dir, "empty.xlsx", nil)

	result, err := Convert([]string{empty}, cfg, WithLogger(testLogger()))
	require.NoError(t, err, "empty input file is a warning, not an error")
	assert.Equal(t, 0, result.Converted)
}

func TestConvertNilConfig(t *testing.T) {
	t.Parallel()

	_, err := Convert([]string{"whatever.xlsx"}, nil)
	require.ErrorIs(t, err, ErrNoConfig)
}

func TestConvertValidatedOutput(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
[defaults]
hospital = 1234

[PROM.OKS]
detection_column = "ScoreTotal"

[PROM.OKS.UPNNUM]
column = "PatientID"

[PROM.OKS.DATUMINVUL]
column = "EntryDate"
`))
	require.NoError(t, err)

	dir := t.TempDir()
	input := writeXLSXFixture(t, dir, "export.xlsx", [][]any{
		{"ScoreTotal", "PatientID", "EntryDate"},
		{"45", "P001", "2024-03-15"},
	})

	result, err := Convert([]string{input}, cfg, WithLogger(testLogger()))
	require.NoError(t, err)
	require.Equal(t, 1, result.Converted)

	issues, err := ValidateDocument([]byte(result.XML))
	require.NoError(t, err)
	assert.Empty(t, issues)
}
