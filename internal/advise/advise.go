// Package advise maps warehouse error messages to guidance prompts for the
// calling agent. A small set of built-in rules covers common Snowflake
// failure modes; callers can layer their own rules on top.
package advise

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule is the advisor's own rule type.
type Rule struct {
	Pattern string
	Message string
}

type compiledRule struct {
	pattern *regexp.Regexp
	message string
}

// Advisor checks error messages against rules and returns guidance prompts.
type Advisor struct {
	rules []compiledRule
}

// builtinRules cover Snowflake errors an agent can usually recover from on
// its own. Custom rules are evaluated after these.
var builtinRules = []Rule{
	{
		Pattern: `(?i)does not exist or not authorized`,
		Message: "The object may be misspelled or your role may lack privileges. Use list_databases, list_schemas, or list_tables to discover accessible objects, and fully qualify names as database.schema.table.",
	},
	{
		Pattern: `(?i)no active warehouse`,
		Message: "No warehouse is active for this session. Configure a default warehouse (SNOWFLAKE_WAREHOUSE); USE WAREHOUSE statements are blocked by the read-only guard.",
	},
	{
		Pattern: `(?i)syntax error`,
		Message: "Snowflake rejected the SQL syntax. Check quoting and Snowflake-specific functions before retrying.",
	},
}

// New creates an Advisor from the built-in rules plus the given custom rules.
// Returns an error on invalid regex patterns.
func New(custom []Rule) (*Advisor, error) {
	all := make([]Rule, 0, len(builtinRules)+len(custom))
	all = append(all, builtinRules...)
	all = append(all, custom...)

	compiled := make([]compiledRule, len(all))
	for i, r := range all {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("advise: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, message: r.Message}
	}
	return &Advisor{rules: compiled}, nil
}

// Advise checks the error message against all rules (top to bottom) and
// returns matching guidance messages joined with newlines, or "" if none.
func (a *Advisor) Advise(errMsg string) string {
	var matches []string
	for _, rule := range a.rules {
		if rule.pattern.MatchString(errMsg) {
			matches = append(matches, rule.message)
		}
	}
	return strings.Join(matches, "\n")
}

// MatchedPatterns returns the patterns that matched the given error message,
// for structured logging. Returns nil if no match.
func (a *Advisor) MatchedPatterns(errMsg string) []string {
	var patterns []string
	for _, rule := range a.rules {
		if rule.pattern.MatchString(errMsg) {
			patterns = append(patterns, rule.pattern.String())
		}
	}
	return patterns
}
