package lroi

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
)

// Result holds the outcome of one conversion run.
type Result struct {
	// XML is the serialized output document
	XML string
	// Converted counts rows that produced a questionnaire
	Converted int
	// Skipped counts rows that were dropped (no PROM type, failed
	// extraction, or missing mandatory elements)
	Skipped int
}

// options holds run configuration assembled from Option values.
type options struct {
	lutPath    string
	outputPath string
	logger     *slog.Logger
}

// Option configures a conversion run.
type Option func(*options)

// WithLUTFile sets the lookup-table (demographics) file for the run. The
// path is excluded from the input list if it also appears there.
func WithLUTFile(path string) Option {
	return func(o *options) {
		o.lutPath = path
	}
}

// WithOutputFile makes Convert write the serialized document to path.
// A compression extension (.gz, .xz, .zst) on the path compresses the
// output transparently. Without this option the caller owns persistence.
func WithOutputFile(path string) Option {
	return func(o *options) {
		o.outputPath = path
	}
}

// WithLogger sets the event sink that receives the run's leveled log
// events. The engine has no package-level logger: collaborators (CLI, GUI)
// pass their own and decide how records are displayed or persisted.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Convert processes the given input spreadsheets into a single LROI PROMs
// XML document, per the mapping configuration.
//
// Row-level failures are recovered locally and counted in Result.Skipped;
// the run aborts only for configuration-level failures such as a missing
// LUT join column. A run that converts zero rows still returns a valid
// (empty) document; callers wanting a failure signal for that case check
// Result.Converted.
func Convert(inputs []string, cfg *Config, opts ...Option) (*Result, error) {
	if cfg == nil {
		return nil, ErrNoConfig
	}

	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	var lutIndex LUTIndex
	if o.lutPath != "" {
		var err error
		lutIndex, err = LoadLUT(o.lutPath, cfg.LUT.JoinColumn, logger)
		if err != nil {
			return nil, err
		}
		inputs = excludePath(inputs, o.lutPath)
	}

	doc, collection := newDocument()
	converted := 0
	skipped := 0

	// Detection is logged once per change, not per row.
	currentPROM := ""

	for _, input := range inputs {
		logger.Info("processing input", "path", input)

		s, err := readSheet(input)
		if err != nil {
			logger.Error("input file skipped", "path", input, "error", err)
			continue
		}
		if s.empty() {
			logger.Warn("input file appears to be empty", "path", input)
			continue
		}

		for _, row := range s.rows {
			if row.isBlank() {
				continue
			}

			promKey, ok := detectPROMType(row, cfg)
			if !ok {
				logger.Warn("no PROM type detected for row")
				skipped++
				continue
			}
			if promKey != currentPROM {
				currentPROM = promKey
				logger.Info("detected PROM type", "prom", promKey)
			}

			prom := cfg.PROMs[promKey]
			if len(lutIndex) > 0 {
				row = mergeLUT(row, lutIndex, prom.Lookup, cfg.Defaults.LUTColumnPrefix, logger)
			}

			elements := extractElements(row, prom, logger)

			if elements[elementUPN] == "" {
				logger.Warn("row skipped: missing UPNNUM")
				skipped++
				continue
			}
			if elements[elementEntryDate] == "" {
				logger.Warn("row skipped: missing DATUMINVUL")
				skipped++
				continue
			}

			collection.AddChild(buildQuestionnaire(elements, promKey, cfg.Defaults.Hospital))
			converted++
			logger.Info("converted questionnaire",
				"prom", promKey, "upnnum", elements[elementUPN])
		}
	}

	logger.Info("conversion complete", "converted", converted)
	if skipped > 0 {
		logger.Warn("questionnaires skipped", "skipped", skipped)
	}

	xml, err := serializeDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("lroi: serialize document: %w", err)
	}

	if o.outputPath != "" {
		if err := writeDocument(o.outputPath, xml); err != nil {
			return nil, err
		}
		logger.Info("XML written", "path", o.outputPath)
	}

	return &Result{XML: xml, Converted: converted, Skipped: skipped}, nil
}

// writeDocument persists the serialized document, compressing when the
// path carries a compression extension.
func writeDocument(path, xml string) error {
	writer, cleanup, err := createCompressingWriter(path)
	if err != nil {
		return fmt.Errorf("lroi: write document: %w", err)
	}
	_, writeErr := io.WriteString(writer, xml)
	if cleanupErr := cleanup(); writeErr == nil {
		writeErr = cleanupErr
	}
	if writeErr != nil {
		return fmt.Errorf("lroi: write document: %w", writeErr)
	}
	return nil
}

// excludePath removes lutPath from inputs, comparing absolute forms so a
// LUT file listed among the inputs is not double-processed.
func excludePath(inputs []string, lutPath string) []string {
	lutAbs, err := filepath.Abs(lutPath)
	if err != nil {
		lutAbs = lutPath
	}

	kept := make([]string, 0, len(inputs))
	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			abs = input
		}
		if abs == lutAbs {
			continue
		}
		kept = append(kept, input)
	}
	return kept
}
