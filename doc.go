// Package lroi converts PROMs questionnaire spreadsheet exports into a
// single LROI-compliant XML document, driven by a declarative TOML mapping
// configuration.
//
// The engine is a single-pass batch converter: it loads an optional
// demographics lookup table (LUT) once, then walks every row of every input
// spreadsheet, detects which questionnaire variant (PROM type) the row
// belongs to, merges LUT columns under a configurable prefix, applies
// regex-based match/replace conversions to each mapped column, and emits
// one <questionaire> element per convertible row in the fixed element order
// the LROI schema mandates.
//
// # Features
//
//   - XLSX, CSV, and TSV inputs, with transparent decompression of
//     gzip, bzip2, xz, and zstandard packed files
//   - Configuration-driven column mappings: one [PROM.<key>] section per
//     questionnaire variant, first matching detection_column wins
//   - LUT merge with configurable column prefix and last-wins indexing
//   - Ordered match/replace conversion rules with validation-only patterns
//   - Structured, leveled logging through a caller-supplied slog.Logger,
//     including an Excel audit-log handler for clinical data-entry staff
//
// # Basic Usage
//
//	cfg, err := lroi.LoadConfig("config.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := lroi.Convert([]string{"OKS.xlsx"}, cfg,
//	    lroi.WithLUTFile("Demographics.xlsx"),
//	    lroi.WithOutputFile("output.xml"),
//	    lroi.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("converted %d, skipped %d\n", result.Converted, result.Skipped)
//
// Row-level problems (unknown PROM type, failed validation rules, missing
// mandatory elements) never abort a run; such rows are logged and counted
// in Result.Skipped. Only configuration-level problems, such as a LUT file
// that lacks the configured join column, are fatal.
package lroi
