package lroi

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateOnlyFormat is the calendar-date layout mandated for xs:date elements.
const dateOnlyFormat = "2006-01-02"

// CellKind identifies the resolved kind of a spreadsheet cell value.
// Every cell is classified exactly once, when the row is parsed, so that
// downstream conversion logic never re-checks value kind ad hoc.
type CellKind int

const (
	// CellEmpty represents a missing or blank cell
	CellEmpty CellKind = iota
	// CellText represents a free-text cell
	CellText
	// CellNumber represents an integer or decimal cell
	CellNumber
	// CellDate represents a date or datetime cell
	CellDate
)

// String returns a human-readable kind name.
func (k CellKind) String() string {
	switch k {
	case CellEmpty:
		return "empty"
	case CellText:
		return "text"
	case CellNumber:
		return "number"
	case CellDate:
		return "date"
	default:
		return "unknown"
	}
}

// Cell is one spreadsheet value with its kind resolved at parse time.
type Cell struct {
	kind CellKind
	text string    // trimmed textual form as read from the file
	date time.Time // valid only when kind == CellDate
}

// newCell classifies a raw cell string into a Cell.
func newCell(raw string) Cell {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Cell{kind: CellEmpty}
	}
	if t, ok := parseDatetime(trimmed); ok {
		return Cell{kind: CellDate, text: trimmed, date: t}
	}
	if isNumeric(trimmed) {
		return Cell{kind: CellNumber, text: trimmed}
	}
	return Cell{kind: CellText, text: trimmed}
}

// Kind returns the resolved kind of the cell.
func (c Cell) Kind() CellKind {
	return c.kind
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool {
	return c.kind == CellEmpty
}

// String returns the textual form used by the conversion pipeline.
// Date cells yield the calendar date only (YYYY-MM-DD, no time component),
// as required by the xs:date elements of the LROI schema.
func (c Cell) String() string {
	if c.kind == CellDate {
		return c.date.Format(dateOnlyFormat)
	}
	return c.text
}

// Row maps trimmed column headers to classified cell values. Rows are
// ephemeral: one is built per input record and discarded after conversion.
type Row map[string]Cell

// newRow builds a Row from trimmed headers and a raw record, padding short
// records with empty cells so every declared column is present.
func newRow(headers []string, record []string) Row {
	row := make(Row, len(headers))
	for i, h := range headers {
		if i < len(record) {
			row[h] = newCell(record[i])
		} else {
			row[h] = Cell{kind: CellEmpty}
		}
	}
	return row
}

// isBlank reports whether every cell in the row is empty.
func (r Row) isBlank() bool {
	for _, c := range r {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// trimHeaders normalizes a header row: trimmed strings, blank header
// becomes the empty string.
func trimHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	for i, h := range raw {
		headers[i] = strings.TrimSpace(h)
	}
	return headers
}

// datetimePattern pairs a quick regex filter with parse layouts.
type datetimePattern struct {
	pattern *regexp.Regexp
	formats []string
}

// Cached datetime patterns, most common first for early termination.
var cachedDatetimePatterns = []datetimePattern{
	// ISO8601 date and time (T or space separated)
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?$`),
		[]string{"2006-01-02T15:04:05", "2006-01-02T15:04:05.000"},
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(\.\d+)?$`),
		[]string{"2006-01-02 15:04:05", "2006-01-02 15:04:05.000"},
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{1,2}:\d{2}$`),
		[]string{"2006-01-02 15:04", "2006-01-02 3:04"},
	},
	// ISO8601 date only
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		[]string{"2006-01-02"},
	},
	// US formats with time
	{
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4} \d{1,2}:\d{2}(:\d{2})?( (AM|PM))?$`),
		[]string{"1/2/2006 15:04:05", "1/2/2006 15:04", "1/2/2006 3:04:05 PM", "1/2/2006 3:04 PM"},
	},
	// European formats with dots
	{
		regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4}( \d{1,2}:\d{2}:\d{2})?$`),
		[]string{"2.1.2006 15:04:05", "2.1.2006"},
	},
}

// Datetime length bounds used for quick pre-filtering.
const (
	minDatetimeLength = 8
	maxDatetimeLength = 35
)

// parseDatetime reports whether value is a recognizable date or datetime
// and returns the parsed time. Bare slash dates (e.g. 15/03/2024) are
// deliberately not classified here: regional day/month order is ambiguous,
// so they stay text and are handled by configured conversion rules instead.
func parseDatetime(value string) (time.Time, bool) {
	valueLen := len(value)
	if valueLen < minDatetimeLength || valueLen > maxDatetimeLength {
		return time.Time{}, false
	}

	// Datetime values always contain at least one digit and one separator.
	hasDigit := false
	hasSeparator := false
	for _, r := range value {
		if r >= '0' && r <= '9' {
			hasDigit = true
		} else if r == '-' || r == '/' || r == '.' || r == ':' || r == 'T' || r == ' ' {
			hasSeparator = true
		}
		if hasDigit && hasSeparator {
			break
		}
	}
	if !hasDigit || !hasSeparator {
		return time.Time{}, false
	}

	for _, dp := range cachedDatetimePatterns {
		if !dp.pattern.MatchString(value) {
			continue
		}
		for _, format := range dp.formats {
			if t, err := time.Parse(format, value); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// isNumeric reports whether value parses as an integer or a float.
func isNumeric(value string) bool {
	if value == "" {
		return false
	}
	first := value[0]
	if first != '+' && first != '-' && first != '.' && (first < '0' || first > '9') {
		return false
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return true
	}
	_, err := strconv.ParseFloat(value, 64)
	return err == nil
}
