package lroi

import (
	"log/slog"
	"regexp"
	"strings"
)

// backrefRe matches legacy \1..\9 back-references in replacement strings.
var backrefRe = regexp.MustCompile(`\\([1-9])`)

// compileRule compiles a conversion rule's pattern with its flags mapped
// to Go inline flags. Case-insensitive matching defaults on; m and s are
// opt-in, matching the behavior of older mapping configurations. With
// anchored set the pattern must cover the whole value (validation rules).
func compileRule(rule ConversionRule, anchored bool) (*regexp.Regexp, error) {
	flags := strings.ToLower(rule.Flags)
	if rule.Flags == "" {
		flags = "i"
	}

	var prefix strings.Builder
	if strings.Contains(flags, "i") {
		prefix.WriteString("i")
	}
	if strings.Contains(flags, "m") {
		prefix.WriteString("m")
	}
	if strings.Contains(flags, "s") {
		prefix.WriteString("s")
	}

	pattern := rule.Match
	if anchored {
		pattern = `\A(?:` + pattern + `)\z`
	}
	if prefix.Len() > 0 {
		pattern = "(?" + prefix.String() + ")" + pattern
	}
	return regexp.Compile(pattern)
}

// translateReplacement rewrites a legacy replacement string (backslash
// back-references, literal dollars) into Go template syntax.
func translateReplacement(replace string) string {
	escaped := strings.ReplaceAll(replace, "$", "$$")
	return backrefRe.ReplaceAllStringFunc(escaped, func(m string) string {
		return "${" + m[1:] + "}"
	})
}

// applyConversions runs the ordered conversion-rule list for one element
// against a raw value.
//
// Substitution rules (match + replace) apply in order; the first one whose
// substitution actually changes the value wins and later rules are not
// tried. Validation-only rules (match without replace) require the value
// to fully match or the pipeline fails with a *ValidationError. A rule
// with an unparsable pattern is logged and skipped, never fatal. When no
// rule is effective the trimmed original value is returned unchanged.
func applyConversions(raw string, rules []ConversionRule, element string, logger *slog.Logger) (string, error) {
	value := strings.TrimSpace(raw)
	if len(rules) == 0 {
		return value, nil
	}

	for _, rule := range rules {
		if rule.Match == "" {
			continue
		}

		re, err := compileRule(rule, rule.Replace == nil)
		if err != nil {
			logger.Warn("invalid regex in conversion, rule skipped",
				"element", element, "pattern", rule.Match, "error", err)
			continue
		}

		if rule.Replace != nil {
			result := re.ReplaceAllString(value, translateReplacement(*rule.Replace))
			if result != value {
				logger.Debug("converted element",
					"element", element, "from", value, "to", result, "pattern", rule.Match)
				return result, nil
			}
			continue
		}

		// Validation-only rule: the whole value must match.
		if !re.MatchString(value) {
			logger.Error("validation failed",
				"element", element, "value", value, "pattern", rule.Match)
			return "", &ValidationError{Element: element, Value: value, Pattern: rule.Match}
		}
		// Matched; continue to later rules, which might still replace.
	}

	return value, nil
}
