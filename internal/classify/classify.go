// Package classify decides whether a SQL query text is safe to run
// against the warehouse as a read-only statement.
//
// It is a lexical guard, not a parser: queries are normalized (comments
// stripped, whitespace collapsed, uppercased) and checked against a fixed
// allow-set of statement prefixes and a fixed deny-set of keywords. It cannot
// detect forbidden SQL hidden inside string literals, and it is not a
// security boundary against a malicious caller; the warehouse role should
// still be read-only.
package classify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// allowedStatements are the statement prefixes accepted as read-only.
var allowedStatements = []string{
	"SELECT", "WITH", "SHOW", "DESCRIBE", "DESC", "EXPLAIN",
}

// forbiddenKeywords are keywords that indicate write, DDL, or
// session-switching operations. Scanned in lexicographic order so the
// rejection reason is stable across runs.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE",
	"REPLACE", "MERGE", "COPY", "PUT", "GET", "REMOVE", "GRANT", "REVOKE",
	"USE ROLE", "USE WAREHOUSE", "USE DATABASE", "USE SCHEMA",
}

var (
	lineCommentRe  = regexp.MustCompile(`--[^\n]*`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	selectTokenRe  = regexp.MustCompile(`\bSELECT\b`)

	sortedAllowed   []string
	sortedForbidden []string
	forbiddenRes    []*regexp.Regexp
)

func init() {
	sortedAllowed = append(sortedAllowed, allowedStatements...)
	sort.Strings(sortedAllowed)

	sortedForbidden = append(sortedForbidden, forbiddenKeywords...)
	sort.Strings(sortedForbidden)

	forbiddenRes = make([]*regexp.Regexp, len(sortedForbidden))
	for i, kw := range sortedForbidden {
		forbiddenRes[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	}
}

// RejectionError is returned by Check when a query fails a classification rule.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return "query validation failed: " + e.Reason
}

// Check classifies the query and returns nil if it is allowed to run.
// A non-nil error is always a *RejectionError naming the rule that failed.
// The query text is only normalized for analysis; callers must send the
// original text to the warehouse.
func Check(query string) error {
	if strings.TrimSpace(query) == "" {
		return &RejectionError{Reason: "Query cannot be empty"}
	}

	normalized := Normalize(query)
	if normalized == "" {
		return &RejectionError{Reason: "Query cannot be empty"}
	}

	if !startsWithAllowedStatement(normalized) {
		return &RejectionError{
			Reason: fmt.Sprintf("Query must start with one of: %s", strings.Join(sortedAllowed, ", ")),
		}
	}

	if kw := containsForbiddenKeyword(normalized); kw != "" {
		return &RejectionError{
			Reason: fmt.Sprintf("Query contains forbidden operation: %s", kw),
		}
	}

	if strings.HasPrefix(normalized, "WITH") && !cteEndsWithSelect(normalized) {
		return &RejectionError{Reason: "CTE query must end with a SELECT statement"}
	}

	return nil
}

// Normalize strips line and block comments, collapses whitespace runs to
// single spaces, trims, and uppercases. Normalize is idempotent.
func Normalize(query string) string {
	query = lineCommentRe.ReplaceAllString(query, " ")
	query = blockCommentRe.ReplaceAllString(query, " ")
	query = whitespaceRe.ReplaceAllString(query, " ")
	return strings.ToUpper(strings.TrimSpace(query))
}

// startsWithAllowedStatement checks the leading token against the allow-set.
// The keyword must be the whole first token, not a prefix of a longer
// identifier ("SELECTION..." does not match SELECT).
func startsWithAllowedStatement(normalized string) bool {
	for _, stmt := range sortedAllowed {
		if normalized == stmt || strings.HasPrefix(normalized, stmt+" ") {
			return true
		}
	}
	return false
}

// containsForbiddenKeyword returns the first deny-set keyword found as a
// whole word, or "" if none. Keywords are scanned in lexicographic order.
func containsForbiddenKeyword(normalized string) string {
	for i, re := range forbiddenRes {
		if re.MatchString(normalized) {
			return sortedForbidden[i]
		}
	}
	return ""
}

// cteEndsWithSelect requires a SELECT token somewhere after the leading WITH,
// so the CTE chain terminates in a SELECT rather than a bare definition.
func cteEndsWithSelect(normalized string) bool {
	loc := selectTokenRe.FindStringIndex(normalized)
	return loc != nil && loc[0] > 0
}
