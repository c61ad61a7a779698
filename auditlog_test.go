package lroi

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestXLSXHandler(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "audit.xlsx")

	handler, err := NewXLSXHandler(path, slog.LevelInfo)
	require.NoError(t, err)

	logger := slog.New(handler)
	logger.Info("LUT loaded", "records", 10)
	logger.Warn("row skipped: missing UPNNUM")
	logger.Error("no LUT record found", "admission_id", "A123")
	logger.Debug("should be filtered out")

	require.NoError(t, handler.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	rows, err := f.GetRows("Log")
	require.NoError(t, err)
	require.Len(t, rows, 4, "header plus three records")

	assert.Equal(t, []string{"Timestamp", "Level", "Admission ID", "Message"}, rows[0][:4])

	assert.Equal(t, "INFO", rows[1][1])
	assert.Contains(t, rows[1][3], "LUT loaded")
	assert.Contains(t, rows[1][3], "records=10")

	assert.Equal(t, "WARN", rows[2][1])

	assert.Equal(t, "ERROR", rows[3][1])
	assert.Equal(t, "A123", rows[3][2], "admission id extracted into its own column")
}

func TestXLSXHandlerWithAttrs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "audit.xlsx")

	handler, err := NewXLSXHandler(path, slog.LevelInfo)
	require.NoError(t, err)

	logger := slog.New(handler).With("run", "r1")
	logger.Info("processing input")
	require.NoError(t, handler.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	rows, err := f.GetRows("Log")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[1][3], "run=r1")
}

func TestExtractAdmissionID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		message  string
		expected string
	}{
		{name: "attr style", message: "lookup miss admission_id=A42", expected: "A42"},
		{name: "prose style", message: "Admission ID: B7 not found", expected: "B7"},
		{name: "absent", message: "conversion complete", expected: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, extractAdmissionID(tt.message))
		})
	}
}

func TestMultiHandler(t *testing.T) {
	t.Parallel()

	var bufA, bufB bytes.Buffer
	handlerA := slog.NewTextHandler(&bufA, &slog.HandlerOptions{Level: slog.LevelDebug})
	handlerB := slog.NewTextHandler(&bufB, &slog.HandlerOptions{Level: slog.LevelError})

	logger := slog.New(NewMultiHandler(handlerA, handlerB))
	logger.Info("info message")
	logger.Error("error message")

	assert.Contains(t, bufA.String(), "info message")
	assert.Contains(t, bufA.String(), "error message")
	assert.NotContains(t, bufB.String(), "info message")
	assert.Contains(t, bufB.String(), "error message")
}

func TestMultiHandlerWithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)

	logger := slog.New(NewMultiHandler(base)).With("component", "converter")
	logger.Info("started")

	assert.Contains(t, buf.String(), "component=converter")
	assert.Contains(t, buf.String(), "started")
}
