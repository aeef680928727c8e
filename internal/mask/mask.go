// Package mask applies regex-based masking to warehouse result rows before
// they are handed back to the calling agent, so configured patterns
// (credentials, emails, account identifiers) never leave the server.
package mask

import (
	"fmt"
	"regexp"
)

// Rule is the masker's own rule type.
type Rule struct {
	Pattern     string
	Replacement string
}

type compiledRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Masker rewrites string field values that match any configured pattern.
type Masker struct {
	rules []compiledRule
}

// New creates a Masker. Returns an error on invalid regex patterns.
func New(rules []Rule) (*Masker, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("mask: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, replacement: r.Replacement}
	}
	return &Masker{rules: compiled}, nil
}

// HasRules returns true if any rules are configured.
func (m *Masker) HasRules() bool {
	return len(m.rules) > 0
}

// MaskRows applies every rule to each field value, recursing into nested
// structures produced by VARIANT/ARRAY columns.
func (m *Masker) MaskRows(rows []map[string]interface{}) []map[string]interface{} {
	if !m.HasRules() {
		return rows
	}
	for _, row := range rows {
		for k, v := range row {
			row[k] = m.maskValue(v)
		}
	}
	return rows
}

func (m *Masker) maskValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		result := val
		for _, rule := range m.rules {
			result = rule.pattern.ReplaceAllString(result, rule.replacement)
		}
		return result
	case map[string]interface{}:
		for k, item := range val {
			val[k] = m.maskValue(item)
		}
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = m.maskValue(item)
		}
		return val
	default:
		// Numeric, bool, nil, time values pass through untouched.
		return v
	}
}
