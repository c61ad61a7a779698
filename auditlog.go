package lroi

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

// Audit log layout
const (
	auditSheetName = "Log"
	// auditSaveInterval batches workbook saves to reduce I/O; the final
	// Close always saves.
	auditSaveInterval = 10
)

// auditColumnWidths maps worksheet columns to display widths.
var auditColumnWidths = map[string]float64{
	"A": 20,  // Timestamp
	"B": 10,  // Level
	"C": 15,  // Admission ID
	"D": 100, // Message
}

// admissionIDPatterns extract the admission identifier from a log message
// so clinical staff can filter the audit log per patient record.
var admissionIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)admission_id[=:]?\s*['"]?(\w+)`),
	regexp.MustCompile(`(?i)Admission ID[=:]?\s*['"]?(\w+)`),
}

// xlsxSink is the workbook state shared by an XLSXHandler and every
// derived handler (WithAttrs clones append to the same worksheet).
type xlsxSink struct {
	mu      sync.Mutex
	file    *excelize.File
	path    string
	nextRow int

	headerStyle int
	errorStyle  int
	warnStyle   int
}

// XLSXHandler is a slog.Handler that writes log records to an Excel
// workbook: bold filterable header row, frozen top row, color-coded ERROR
// and WARN rows. The file opens directly in Excel with no delimiter or
// encoding issues, which is what healthcare data-entry staff expect from
// an audit log.
type XLSXHandler struct {
	sink  *xlsxSink
	level slog.Level
	attrs []slog.Attr
}

// NewXLSXHandler creates the workbook at path with its formatted header
// row and returns a handler that appends one worksheet row per record at
// or above level.
func NewXLSXHandler(path string, level slog.Level) (*XLSXHandler, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", auditSheetName); err != nil {
		return nil, fmt.Errorf("lroi: create audit log: %w", err)
	}

	sink := &xlsxSink{file: f, path: path, nextRow: 2}
	if err := sink.writeHeader(); err != nil {
		return nil, fmt.Errorf("lroi: create audit log: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("lroi: create audit log: %w", err)
	}
	return &XLSXHandler{sink: sink, level: level}, nil
}

// writeHeader lays out the header row, styles, column widths, freeze pane,
// and auto-filter.
func (h *xlsxSink) writeHeader() error {
	headers := []string{"Timestamp", "Level", "Admission ID", "Message"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := h.file.SetCellValue(auditSheetName, cell, header); err != nil {
			return err
		}
	}

	var err error
	h.headerStyle, err = h.file.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"D3D3D3"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	h.errorStyle, err = h.file.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFE6E6"}, Pattern: 1},
		Font: &excelize.Font{Color: "CC0000", Bold: true},
	})
	if err != nil {
		return err
	}
	h.warnStyle, err = h.file.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFF4E6"}, Pattern: 1},
		Font: &excelize.Font{Color: "FF8800"},
	})
	if err != nil {
		return err
	}

	if err := h.file.SetCellStyle(auditSheetName, "A1", "D1", h.headerStyle); err != nil {
		return err
	}
	for col, width := range auditColumnWidths {
		if err := h.file.SetColWidth(auditSheetName, col, col, width); err != nil {
			return err
		}
	}
	if err := h.file.SetPanes(auditSheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	return h.file.AutoFilter(auditSheetName, "A1:D1", nil)
}

// Enabled implements slog.Handler.
func (h *XLSXHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle implements slog.Handler by appending one worksheet row.
func (h *XLSXHandler) Handle(_ context.Context, record slog.Record) error {
	message := formatRecordMessage(record, h.attrs)

	s := h.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.nextRow
	values := []any{
		record.Time.Format("2006-01-02 15:04:05"),
		record.Level.String(),
		extractAdmissionID(message),
		message,
	}
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := s.file.SetCellValue(auditSheetName, cell, value); err != nil {
			return err
		}
	}

	var style int
	switch {
	case record.Level >= slog.LevelError:
		style = s.errorStyle
	case record.Level >= slog.LevelWarn:
		style = s.warnStyle
	}
	if style != 0 {
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(values), row)
		if err := s.file.SetCellStyle(auditSheetName, first, last, style); err != nil {
			return err
		}
	}

	s.nextRow++
	if s.nextRow%auditSaveInterval == 0 {
		return s.file.SaveAs(s.path)
	}
	return nil
}

// WithAttrs implements slog.Handler. Derived handlers share the workbook.
func (h *XLSXHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &XLSXHandler{sink: h.sink, level: h.level, attrs: merged}
}

// WithGroup implements slog.Handler. Groups are flattened into the message
// column; an audit spreadsheet has no nesting to offer.
func (h *XLSXHandler) WithGroup(string) slog.Handler {
	return h
}

// Close extends the auto-filter over every written row, saves, and closes
// the workbook.
func (h *XLSXHandler) Close() error {
	s := h.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	lastRow := s.nextRow - 1
	if lastRow < 1 {
		lastRow = 1
	}
	filterRange := fmt.Sprintf("A1:D%d", lastRow)
	if err := s.file.AutoFilter(auditSheetName, filterRange, nil); err != nil {
		return err
	}
	if err := s.file.SaveAs(s.path); err != nil {
		return err
	}
	return s.file.Close()
}

// formatRecordMessage renders a record's message plus its attributes as a
// single text cell.
func formatRecordMessage(record slog.Record, base []slog.Attr) string {
	var b strings.Builder
	b.WriteString(record.Message)
	for _, attr := range base {
		fmt.Fprintf(&b, " %s=%v", attr.Key, attr.Value)
	}
	record.Attrs(func(attr slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", attr.Key, attr.Value)
		return true
	})
	return b.String()
}

// extractAdmissionID pulls an admission identifier out of a log message,
// if one is present.
func extractAdmissionID(message string) string {
	for _, pattern := range admissionIDPatterns {
		if match := pattern.FindStringSubmatch(message); match != nil {
			return match[1]
		}
	}
	return ""
}

// MultiHandler fans one log record out to several handlers, so a run can
// log to console, a plain-text file, and the Excel audit log at once.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a handler delegating to each given handler.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Enabled implements slog.Handler; a record is enabled when any delegate
// accepts it.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler, delivering the record to every enabled
// delegate and returning the first error.
func (m *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WithAttrs implements slog.Handler.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: handlers}
}

// WithGroup implements slog.Handler.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: handlers}
}
