package lroi

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// LUTIndex maps trimmed join-key strings to their lookup-table rows. It is
// built once per run and read-only afterwards, shared by reference across
// every row of the run.
type LUTIndex map[string]Row

// LoadLUT loads the first sheet of a lookup-table file into an index keyed
// by the trimmed string form of the join column.
//
// A join column missing from the header row is a configuration-level
// failure and aborts the run. Rows with a missing or empty join key are
// counted as skipped; duplicate keys are resolved last-wins.
func LoadLUT(path, joinColumn string, logger *slog.Logger) (LUTIndex, error) {
	logger.Info("loading LUT", "path", path)

	s, err := readSheet(path)
	if err != nil {
		return nil, configError("load LUT", err)
	}
	if s.empty() {
		logger.Warn("LUT file appears to be empty", "path", path)
		return LUTIndex{}, nil
	}

	if !slices.Contains(s.headers, joinColumn) {
		return nil, fmt.Errorf("%w: %q not in %v (%s)",
			ErrJoinColumnNotFound, joinColumn, s.headers, path)
	}

	index := LUTIndex{}
	loaded := 0
	skipped := 0

	for _, row := range s.rows {
		if row.isBlank() {
			continue
		}
		key := strings.TrimSpace(row[joinColumn].String())
		if key == "" {
			skipped++
			continue
		}
		index[key] = row
		loaded++
	}

	logger.Info("LUT loaded",
		"records", loaded, "join_column", joinColumn, "skipped", skipped)
	return index, nil
}

// mergeLUT merges lookup-table columns into row under prefix, per the PROM
// type's lookup spec. Every failure path here is recoverable: the row is
// returned unmerged and downstream extraction simply lacks the prefixed
// columns.
func mergeLUT(row Row, index LUTIndex, spec *LookupSpec, prefix string, logger *slog.Logger) Row {
	if spec == nil || !spec.Required {
		return row // LUT not required for this PROM type
	}

	if spec.JoinColumn == "" {
		logger.Warn("LUT required but join_column not specified")
		return row
	}

	joinValue := strings.TrimSpace(row[spec.JoinColumn].String())
	if joinValue == "" {
		logger.Warn("join column not found or empty in row", "join_column", spec.JoinColumn)
		return row
	}

	lutRow, ok := index[joinValue]
	if !ok {
		logger.Error("no LUT record found",
			"join_column", spec.JoinColumn, "key", joinValue)
		return row
	}

	if len(spec.AddColumns) > 0 && len(spec.LegacyColumns) > 0 {
		logger.Warn("lookup declares both add_columns and legacy element mappings; add_columns wins")
	}

	merged := make(Row, len(row)+len(spec.AddColumns))
	for name, cell := range row {
		merged[name] = cell
	}

	for _, column := range spec.mergeColumns() {
		cell, ok := lutRow[column]
		if !ok {
			continue
		}
		prefixed := prefix + column
		merged[prefixed] = cell
		logger.Debug("merged LUT column",
			"column", column, "as", prefixed, "value", cell.String())
	}
	return merged
}

// mergeColumns resolves which LUT columns to merge. The modern add_columns
// list wins over the legacy element-to-column mapping when both are set.
func (s *LookupSpec) mergeColumns() []string {
	if len(s.AddColumns) > 0 {
		return s.AddColumns
	}
	columns := make([]string, 0, len(s.LegacyColumns))
	for _, column := range s.LegacyColumns {
		columns = append(columns, column)
	}
	slices.Sort(columns)
	return columns
}
