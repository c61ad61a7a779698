package lroi

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FileType represents supported spreadsheet file types
type FileType int

const (
	// FileTypeXLSX represents Excel XLSX file type
	FileTypeXLSX FileType = iota
	// FileTypeCSV represents CSV file type
	FileTypeCSV
	// FileTypeTSV represents TSV file type
	FileTypeTSV
	// FileTypeUnsupported represents unsupported file type
	FileTypeUnsupported
)

// File extensions
const (
	// extXLSX is the Excel XLSX file extension
	extXLSX = ".xlsx"
	// extCSV is the CSV file extension
	extCSV = ".csv"
	// extTSV is the TSV file extension
	extTSV = ".tsv"
)

// File format delimiters
const (
	// csvDelimiter is the delimiter for CSV files
	csvDelimiter = ','
	// tsvDelimiter is the delimiter for TSV files
	tsvDelimiter = '\t'
)

// detectFileType determines the base file type after removing any
// compression extension.
func detectFileType(path string) FileType {
	basePath := removeCompressionExtension(path)
	switch strings.ToLower(filepath.Ext(basePath)) {
	case extXLSX:
		return FileTypeXLSX
	case extCSV:
		return FileTypeCSV
	case extTSV:
		return FileTypeTSV
	default:
		return FileTypeUnsupported
	}
}

// IsSupportedFile checks whether the file name has a supported spreadsheet
// extension, with or without a trailing compression extension.
func IsSupportedFile(fileName string) bool {
	return detectFileType(fileName) != FileTypeUnsupported
}

// sheet holds the raw contents of one tabular input: the trimmed header
// row plus every subsequent row with cell kinds resolved.
type sheet struct {
	headers []string
	rows    []Row
}

// readSheet loads the first sheet of a tabular file into memory. The file
// handle is closed before readSheet returns, success or failure.
func readSheet(path string) (*sheet, error) {
	switch detectFileType(path) {
	case FileTypeXLSX:
		return readXLSXSheet(path)
	case FileTypeCSV:
		return readDelimitedSheet(path, csvDelimiter)
	case FileTypeTSV:
		return readDelimitedSheet(path, tsvDelimiter)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// readXLSXSheet parses the first worksheet of an XLSX file.
// Compressed files are read fully into memory first, since excelize needs
// a file path or random-access bytes.
func readXLSXSheet(path string) (*sheet, error) {
	var xlsxFile *excelize.File

	if detectCompressionType(path) != CompressionNone {
		reader, cleanup, err := openDecompressingReader(path)
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(reader)
		if cleanupErr := cleanup(); err == nil {
			err = cleanupErr
		}
		if err != nil {
			return nil, err
		}
		xlsxFile, err = excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		xlsxFile, err = excelize.OpenFile(path)
		if err != nil {
			return nil, err
		}
	}
	defer func() {
		_ = xlsxFile.Close() // Ignore close error
	}()

	sheetNames := xlsxFile.GetSheetList()
	if len(sheetNames) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file: %s", path)
	}

	rows, err := xlsxFile.GetRows(sheetNames[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetNames[0], err)
	}
	return newSheet(rows), nil
}

// readDelimitedSheet parses a CSV or TSV file with the given delimiter,
// decompressing transparently when the path carries a compression suffix.
func readDelimitedSheet(path string, delimiter rune) (*sheet, error) {
	reader, cleanup, err := openDecompressingReader(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cleanup()
	}()

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.FieldsPerRecord = -1 // Allow short rows; padding happens per row

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return newSheet(records), nil
}

// newSheet converts raw rows into a sheet: row 1 becomes the trimmed
// header row, the remainder become classified Rows.
func newSheet(raw [][]string) *sheet {
	if len(raw) == 0 {
		return &sheet{}
	}

	s := &sheet{headers: trimHeaders(raw[0])}
	s.rows = make([]Row, 0, len(raw)-1)
	for _, record := range raw[1:] {
		s.rows = append(s.rows, newRow(s.headers, record))
	}
	return s
}

// empty reports whether the sheet has no header row at all.
func (s *sheet) empty() bool {
	return len(s.headers) == 0
}
