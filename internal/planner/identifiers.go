package planner

import (
	"regexp"
	"strings"
)

var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
var fromJoinRe = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// stripLiteralsAndComments removes string literals and -- line comments
// from sql so identifier extraction never matches text that only appears
// inside them (spec §4.2 point 5).
func stripLiteralsAndComments(sql string) string {
	var b strings.Builder
	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case c == '\'' || c == '"':
			quote := c
			b.WriteByte(' ')
			i++
			for i < len(sql) && sql[i] != quote {
				i++
			}
			if i < len(sql) {
				i++
			}
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// extractIdentifiers returns every bare identifier-shaped token in sql,
// outside of string literals and line comments.
func extractIdentifiers(sql string) []string {
	cleaned := stripLiteralsAndComments(sql)
	return identRe.FindAllString(cleaned, -1)
}

// extractFromReferences returns the identifiers immediately following FROM
// or JOIN keywords, used to validate that every referenced table is known
// to the plan (spec §4.2 point 6, "missing_tables").
func extractFromReferences(sql string) []string {
	cleaned := stripLiteralsAndComments(sql)
	matches := fromJoinRe.FindAllStringSubmatch(cleaned, -1)
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, m[1])
	}
	return refs
}

// referencesIdentifier reports whether name appears as a standalone
// identifier anywhere in sql's non-literal, non-comment text.
func referencesIdentifier(sql, name string) bool {
	for _, id := range extractIdentifiers(sql) {
		if strings.EqualFold(id, name) {
			return true
		}
	}
	return false
}
