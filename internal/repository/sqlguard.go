package repository

import (
	"fmt"
	"regexp"
	"strings"
)

// blockedSQLPatterns rejects multi-statement, comment, DDL and DML
// constructs in LLM-generated queries. The model only ever needs a
// single SELECT over the penalties table; anything else is an injection
// attempt or a hallucination.
var blockedSQLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`;\s*\w`),
	regexp.MustCompile(`--`),
	regexp.MustCompile(`/\*`),
	regexp.MustCompile(`(?i)\bDROP\b`),
	regexp.MustCompile(`(?i)\bDELETE\b`),
	regexp.MustCompile(`(?i)\bINSERT\b`),
	regexp.MustCompile(`(?i)\bUPDATE\b`),
	regexp.MustCompile(`(?i)\bALTER\b`),
	regexp.MustCompile(`(?i)\bCREATE\b`),
	regexp.MustCompile(`(?i)\bTRUNCATE\b`),
	regexp.MustCompile(`(?i)\bEXEC\b`),
	regexp.MustCompile(`(?i)\bGRANT\b`),
	regexp.MustCompile(`(?i)\bCOPY\b`),
	regexp.MustCompile(`(?i)\bVACUUM\b`),
	regexp.MustCompile(`(?i)\bREINDEX\b`),
	regexp.MustCompile(`(?i)\bREPLACE\b`),
	regexp.MustCompile(`(?i)\bpg_catalog\b`),
	regexp.MustCompile(`(?i)\binformation_schema\b`),
}

var selectPrefix = regexp.MustCompile(`(?i)^SELECT\s+`)

// tableRefPattern extracts table identifiers after FROM or JOIN,
// quoted or bare.
var tableRefPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+(?:"([^"]+)"|'([^']+)'|` + "`([^`]+)`" + `|([a-zA-Z_][a-zA-Z0-9_]*))`)

// allowedTables is the whitelist of tables ad-hoc queries may touch.
var allowedTables = map[string]bool{"penalties": true}

// ValidateReadOnlySQL checks that a query is a single SELECT over
// whitelisted tables, free of injection-shaped constructs. Returns an
// error wrapping ErrUnsafeSQL otherwise.
func ValidateReadOnlySQL(query string) error {
	trimmed := strings.TrimSpace(query)

	if !selectPrefix.MatchString(trimmed) {
		return fmt.Errorf("%w: only SELECT queries are allowed", ErrUnsafeSQL)
	}

	for _, pattern := range blockedSQLPatterns {
		if pattern.MatchString(trimmed) {
			return fmt.Errorf("%w: blocked pattern %q", ErrUnsafeSQL, pattern.String())
		}
	}

	matches := tableRefPattern.FindAllStringSubmatch(trimmed, -1)
	if len(matches) == 0 {
		return fmt.Errorf("%w: query must reference an allowed table", ErrUnsafeSQL)
	}
	for _, m := range matches {
		var table string
		for _, g := range m[1:] {
			if g != "" {
				table = g
				break
			}
		}
		if !allowedTables[strings.ToLower(table)] {
			return fmt.Errorf("%w: table %q is not allowed", ErrUnsafeSQL, table)
		}
	}
	return nil
}
