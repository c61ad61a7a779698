package lroi

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// Configuration defaults
const (
	// DefaultLUTColumnPrefix disambiguates merged LUT columns from source columns
	DefaultLUTColumnPrefix = "__LUT__"
	// DefaultLUTJoinColumn is the join column used when the config omits one
	DefaultLUTJoinColumn = "PatientRecordID"
)

// Config is the in-memory form of the declarative mapping configuration
// (config.toml). It is loaded once per run and read-only thereafter.
type Config struct {
	Defaults Defaults
	LUT      LUTConfig
	PROMs    map[string]*PROMConfig

	promOrder []string
}

// Defaults holds run-level constants and file-name templates.
type Defaults struct {
	Hospital            int
	LUTColumnPrefix     string
	OutputDir           string
	XMLFileTemplate     string
	LogFileTemplate     string
	XLSXLogFileTemplate string
}

// LUTConfig configures the lookup-table file.
type LUTConfig struct {
	JoinColumn string
}

// PROMConfig defines one questionnaire variant: its detection rule, an
// optional LUT join, and the mapping for each output element.
type PROMConfig struct {
	DetectionColumn string
	Lookup          *LookupSpec
	Elements        map[string]*ElementConfig
}

// ElementConfig maps one output XML element to a source column plus an
// ordered list of conversion rules.
type ElementConfig struct {
	Column      string
	Conversions []ConversionRule
}

// ConversionRule is one pattern-based transformation or validation step.
// With Replace set it is a substitution; without, the value must fully
// match Match or extraction of the element fails.
type ConversionRule struct {
	Match   string
	Replace *string
	Flags   string
}

// LookupSpec configures the LUT join for one PROM type. AddColumns is the
// modern form; LegacyColumns (output element name to LUT column) is kept
// for old configurations. When both are present AddColumns wins.
type LookupSpec struct {
	Required      bool
	JoinColumn    string
	AddColumns    []string
	LegacyColumns map[string]string
}

// PROMOrder returns PROM keys in configuration declaration order. The
// row-type detector iterates in this order: first satisfied detection
// column wins.
func (c *Config) PROMOrder() []string {
	return c.promOrder
}

// Meta keys that are part of the configuration grammar, not mappings.
var (
	promMetaKeys   = map[string]bool{"detection_column": true, "lookup": true}
	lookupMetaKeys = map[string]bool{"required": true, "join_column": true, "add_columns": true}
)

// promHeaderRe matches [PROM.<key>] table headers in the raw TOML text.
// go-toml decodes into unordered maps, but detector precedence is defined
// by declaration order, so the order is recovered from the document itself.
var promHeaderRe = regexp.MustCompile(`(?m)^\s*\[\s*PROM\.([A-Za-z0-9_-]+)\s*\]`)

// LoadConfig reads and parses a config.toml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided path is necessary for file operations
	if err != nil {
		return nil, configError("read configuration", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses raw TOML configuration bytes into a validated Config.
// Unknown meta keys are enumerated and skipped, never silently treated as
// element mappings; structural problems are rejected here, once, so the
// engine never re-validates configuration mid-run.
func ParseConfig(data []byte) (*Config, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, configError("parse configuration", err)
	}

	cfg := &Config{
		Defaults: Defaults{LUTColumnPrefix: DefaultLUTColumnPrefix},
		LUT:      LUTConfig{JoinColumn: DefaultLUTJoinColumn},
		PROMs:    map[string]*PROMConfig{},
	}

	if defaults, ok := asTable(raw["defaults"]); ok {
		cfg.Defaults.Hospital = asInt(defaults["hospital"], 0)
		cfg.Defaults.LUTColumnPrefix = asString(defaults["lut_column_prefix"], DefaultLUTColumnPrefix)
		cfg.Defaults.OutputDir = asString(defaults["output_dir"], ".")
		cfg.Defaults.XMLFileTemplate = asString(defaults["xml_file_template"], "{yyyy}-{mm}-{dd}_{appname}_output.xml")
		cfg.Defaults.LogFileTemplate = asString(defaults["log_file_template"], "{yyyy}-{mm}-{dd}_{appname}.log")
		cfg.Defaults.XLSXLogFileTemplate = asString(defaults["xlsx_log_file_template"], "")
	} else {
		cfg.Defaults.OutputDir = "."
		cfg.Defaults.XMLFileTemplate = "{yyyy}-{mm}-{dd}_{appname}_output.xml"
		cfg.Defaults.LogFileTemplate = "{yyyy}-{mm}-{dd}_{appname}.log"
	}

	if lut, ok := asTable(raw["lut"]); ok {
		cfg.LUT.JoinColumn = asString(lut["join_column"], DefaultLUTJoinColumn)
	}

	promSection, ok := asTable(raw["PROM"])
	if !ok || len(promSection) == 0 {
		return nil, ErrNoPROMSections
	}

	for key, value := range promSection {
		section, ok := asTable(value)
		if !ok {
			return nil, configError("parse configuration",
				fmt.Errorf("[PROM.%s] is not a table", key))
		}
		prom, err := parsePROMSection(key, section)
		if err != nil {
			return nil, err
		}
		cfg.PROMs[key] = prom
	}

	cfg.promOrder = promOrderFromDocument(data, cfg.PROMs)
	return cfg, nil
}

// parsePROMSection builds one PROMConfig from its decoded TOML table.
func parsePROMSection(key string, section map[string]any) (*PROMConfig, error) {
	prom := &PROMConfig{
		DetectionColumn: asString(section["detection_column"], ""),
		Elements:        map[string]*ElementConfig{},
	}

	if lookupTable, ok := asTable(section["lookup"]); ok {
		prom.Lookup = parseLookupSpec(lookupTable)
	}

	for name, value := range section {
		if promMetaKeys[name] {
			continue
		}
		table, ok := asTable(value)
		if !ok {
			// Scalar keys at PROM level are meta noise, not mappings.
			continue
		}
		element, err := parseElement(key, name, table)
		if err != nil {
			return nil, err
		}
		prom.Elements[name] = element
	}
	return prom, nil
}

// parseElement builds one ElementConfig, rejecting mappings without a
// source column.
func parseElement(promKey, name string, table map[string]any) (*ElementConfig, error) {
	element := &ElementConfig{Column: asString(table["column"], "")}
	if element.Column == "" {
		return nil, configError("parse configuration",
			fmt.Errorf("[PROM.%s.%s] has no column", promKey, name))
	}

	conversions, ok := table["value"].([]any)
	if !ok {
		return element, nil
	}
	for _, entry := range conversions {
		conv, ok := asTable(entry)
		if !ok {
			continue
		}
		rule := ConversionRule{
			Match: asString(conv["match"], ""),
			Flags: asString(conv["flags"], ""),
		}
		if replace, ok := conv["replace"].(string); ok {
			rule.Replace = &replace
		}
		element.Conversions = append(element.Conversions, rule)
	}
	return element, nil
}

// parseLookupSpec builds a LookupSpec. Keys other than the three meta keys
// form the legacy output-element-to-LUT-column mapping.
func parseLookupSpec(table map[string]any) *LookupSpec {
	spec := &LookupSpec{
		JoinColumn:    asString(table["join_column"], ""),
		LegacyColumns: map[string]string{},
	}
	if required, ok := table["required"].(bool); ok {
		spec.Required = required
	}
	if columns, ok := table["add_columns"].([]any); ok {
		for _, col := range columns {
			if s, ok := col.(string); ok {
				spec.AddColumns = append(spec.AddColumns, s)
			}
		}
	}
	for name, value := range table {
		if lookupMetaKeys[name] {
			continue
		}
		if s, ok := value.(string); ok {
			spec.LegacyColumns[name] = s
		}
	}
	return spec
}

// promOrderFromDocument recovers PROM declaration order by scanning the
// raw TOML for [PROM.<key>] headers. Keys that never appear as headers
// (e.g. declared inline) are appended alphabetically for determinism.
func promOrderFromDocument(data []byte, proms map[string]*PROMConfig) []string {
	order := make([]string, 0, len(proms))
	seen := make(map[string]bool, len(proms))

	for _, match := range promHeaderRe.FindAllSubmatch(data, -1) {
		key := string(match[1])
		if _, known := proms[key]; known && !seen[key] {
			order = append(order, key)
			seen[key] = true
		}
	}

	var rest []string
	for key := range proms {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// asTable converts a decoded TOML value to a table.
func asTable(value any) (map[string]any, bool) {
	table, ok := value.(map[string]any)
	return table, ok
}

// asString converts a decoded TOML value to a string with a fallback.
func asString(value any, fallback string) string {
	if s, ok := value.(string); ok && s != "" {
		return s
	}
	return fallback
}

// asInt converts a decoded TOML value to an int with a fallback.
// go-toml decodes TOML integers as int64.
func asInt(value any, fallback int) int {
	switch v := value.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}
