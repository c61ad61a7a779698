package lroi

import (
	"errors"
	"log/slog"
)

// detectPROMType returns the key of the first PROM section, in declaration
// order, whose detection column is present in the row with a non-empty
// value. This is a deliberate first-match policy: when a row satisfies the
// detection columns of several PROM types, the first-declared type wins
// and the others are ignored for that row.
func detectPROMType(row Row, cfg *Config) (string, bool) {
	for _, key := range cfg.PROMOrder() {
		prom := cfg.PROMs[key]
		if prom.DetectionColumn == "" {
			continue
		}
		cell, ok := row[prom.DetectionColumn]
		if !ok || cell.IsEmpty() {
			continue
		}
		return key, true
	}
	return "", false
}

// extractElements walks the PROM type's element mappings and produces the
// converted output value for each. Elements whose source column is missing
// or empty are omitted; a failed validation rule omits only that element
// (partial records are permitted, the mandatory-element check happens at
// the orchestrator). Date cells reach the conversion pipeline as calendar
// dates with no time component.
func extractElements(row Row, prom *PROMConfig, logger *slog.Logger) map[string]string {
	elements := make(map[string]string, len(prom.Elements))

	for name, element := range prom.Elements {
		cell, ok := row[element.Column]
		if !ok || cell.IsEmpty() {
			continue
		}

		raw := cell.String()
		if cell.Kind() == CellDate {
			logger.Debug("normalized datetime to date", "element", name, "value", raw)
		}

		converted, err := applyConversions(raw, element.Conversions, name, logger)
		if err != nil {
			var validationErr *ValidationError
			if errors.As(err, &validationErr) {
				logger.Error("skipping element", "element", name, "error", err)
				continue
			}
			logger.Error("conversion failed", "element", name, "error", err)
			continue
		}
		elements[name] = converted
	}
	return elements
}
