// Command lroi-converter converts PROMs questionnaire spreadsheet exports
// into an LROI-compliant XML document for upload to the LROI Databroker
// platform.
//
// Usage examples:
//
//	# Convert one export with a demographics lookup table:
//	lroi-converter -xls OKS.xlsx -lut Demographics.xlsx -output output.xml -hospital 1234
//
//	# Convert every spreadsheet in a folder, logging to an auto-named file:
//	lroi-converter -xls ./exports -log 1
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lroi "github.com/tom08zehn/lroi-proms-converter"
)

// Exit codes
const (
	exitOK = 0
	// exitConfigError signals a fatal configuration or I/O problem
	exitConfigError = 1
	// exitNothingConverted signals a run in which zero rows converted
	exitNothingConverted = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// stringList collects repeated flag values.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("lroi-converter", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var inputs stringList
	flags.Var(&inputs, "xls", "input XLS/XLSX/CSV file or folder (repeatable; folders are scanned recursively)")
	lutPath := flags.String("lut", "", "optional lookup-table (demographics) Excel file")
	outputPath := flags.String("output", "", "output XML file path (default: templated name in the configured output directory)")
	logArg := flags.String("log", "", "log file path, or '1' for the auto-named template from config.toml")
	hospital := flags.Int("hospital", -1, "hospital number (overrides config.toml)")
	logLevel := flags.String("loglevel", "INFO", "log level: DEBUG (shows PII/PHI), INFO, WARNING, ERROR")
	cfgPath := flags.String("cfg", defaultConfigPath(), "path to config.toml")

	if err := flags.Parse(args); err != nil {
		return exitConfigError
	}

	if len(inputs) == 0 {
		fmt.Fprintln(stderr, "at least one -xls file or folder is required")
		flags.Usage()
		return exitConfigError
	}

	cfg, err := lroi.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		fmt.Fprintf(stderr, "expected configuration at: %s (use -cfg to point elsewhere)\n", *cfgPath)
		return exitConfigError
	}
	if *hospital >= 0 {
		cfg.Defaults.Hospital = *hospital
	}

	paths, err := expandInputs(inputs, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitConfigError
	}

	level := parseLevel(*logLevel)
	logPath := resolveLogPath(*logArg, cfg)
	xlsxLogPath := resolveXLSXLogPath(*logArg, cfg)
	output := resolveOutputPath(*outputPath, cfg)

	logger, closeLog, err := setupLogger(stdout, logPath, xlsxLogPath, level)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitConfigError
	}
	defer closeLog()

	logger.Info("LROI PROMs Converter starting")
	if cfg.Defaults.Hospital <= 0 {
		logger.Warn("hospital number is not set; use -hospital or config.toml")
	}
	logger.Info("run parameters",
		"config", *cfgPath, "inputs", paths, "lut", *lutPath, "output", output)

	opts := []lroi.Option{lroi.WithLogger(logger), lroi.WithOutputFile(output)}
	if *lutPath != "" {
		opts = append(opts, lroi.WithLUTFile(*lutPath))
	}

	result, err := lroi.Convert(paths, cfg, opts...)
	if err != nil {
		logger.Error("conversion aborted", "error", err)
		return exitConfigError
	}

	logger.Info("output file", "path", output)
	if result.Converted == 0 {
		logger.Error("run finished without output", "error", lroi.ErrNothingConverted)
		return exitNothingConverted
	}
	return exitOK
}

// defaultConfigPath locates config.toml next to the executable, falling
// back to the working directory.
func defaultConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(filepath.Dir(exe), "config.toml")
}

// expandInputs expands a mixed list of file and folder paths into a
// deduplicated list of supported spreadsheet files. Folders are scanned
// recursively with their matches sorted alphabetically; explicit file
// paths pass through untouched so the converter can report a clear error
// for unsupported files rather than silently dropping them.
func expandInputs(raw []string, stderr io.Writer) ([]string, error) {
	seen := map[string]bool{}
	var result []string

	appendPath := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if !seen[abs] {
			seen[abs] = true
			result = append(result, p)
		}
	}

	for _, path := range raw {
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(stderr, "WARNING: path not found, skipping: %s\n", path)
			continue
		}
		if !info.IsDir() {
			appendPath(path)
			continue
		}

		var found []string
		walkErr := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && lroi.IsSupportedFile(p) {
				found = append(found, p)
			}
			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("scan folder %s: %w", path, walkErr)
		}
		if len(found) == 0 {
			fmt.Fprintf(stderr, "WARNING: no supported spreadsheet files found in folder: %s\n", path)
		}
		sort.Strings(found)
		for _, f := range found {
			appendPath(f)
		}
	}
	return result, nil
}

// parseLevel maps the -loglevel argument onto slog levels.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING", "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// resolveLogPath resolves the -log argument: empty means console only,
// '1' means the auto-named template from configuration, anything else is
// a literal path.
func resolveLogPath(logArg string, cfg *lroi.Config) string {
	switch logArg {
	case "":
		return ""
	case "1":
		return expandTemplate(cfg.Defaults.LogFileTemplate)
	default:
		return logArg
	}
}

// resolveXLSXLogPath resolves the Excel audit-log path. An empty template
// in configuration disables Excel logging.
func resolveXLSXLogPath(logArg string, cfg *lroi.Config) string {
	if logArg == "" {
		return ""
	}
	template := strings.TrimSpace(cfg.Defaults.XLSXLogFileTemplate)
	if template == "" {
		return ""
	}
	return expandTemplate(template)
}

// resolveOutputPath applies the configured template when no explicit
// output path was given.
func resolveOutputPath(outputArg string, cfg *lroi.Config) string {
	if outputArg != "" {
		return outputArg
	}
	return filepath.Join(cfg.Defaults.OutputDir, expandTemplate(cfg.Defaults.XMLFileTemplate))
}

// expandTemplate replaces datetime and appname placeholders in template.
func expandTemplate(template string) string {
	now := time.Now()
	name := strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))

	replacer := strings.NewReplacer(
		"{yyyy}", now.Format("2006"),
		"{mm}", now.Format("01"),
		"{dd}", now.Format("02"),
		"{HH}", now.Format("15"),
		"{MM}", now.Format("04"),
		"{SS}", now.Format("05"),
		"{appname}", name,
	)
	return replacer.Replace(template)
}

// setupLogger wires the console handler plus optional text-file and Excel
// audit-log handlers into one fan-out logger. The returned close function
// flushes and releases the optional sinks.
func setupLogger(stdout io.Writer, logPath, xlsxLogPath string, level slog.Level) (*slog.Logger, func(), error) {
	handlers := []slog.Handler{
		slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: level}),
	}
	var closers []func()

	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{Level: level}))
		closers = append(closers, func() { _ = file.Close() })
	}

	if xlsxLogPath != "" {
		if err := os.MkdirAll(filepath.Dir(xlsxLogPath), 0o750); err != nil {
			return nil, nil, fmt.Errorf("create audit log directory: %w", err)
		}
		xlsxHandler, err := lroi.NewXLSXHandler(xlsxLogPath, level)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, xlsxHandler)
		closers = append(closers, func() { _ = xlsxHandler.Close() })
	}

	logger := slog.New(lroi.NewMultiHandler(handlers...))
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	return logger, closeAll, nil
}
