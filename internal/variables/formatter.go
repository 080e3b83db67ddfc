package variables

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// sqlPassthroughKeywords are the bare keywords that pass through the sql
// formatter unquoted (spec §9 Open Question, resolved in SPEC_FULL.md §12).
var sqlPassthroughKeywords = map[string]bool{
	"NULL":              true,
	"CURRENT_DATE":      true,
	"CURRENT_TIME":      true,
	"CURRENT_TIMESTAMP": true,
	"NOW()":             true,
	"SYSDATE":           true,
}

var callShape = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\([^)]*\)$`)

var numericString = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Format renders v for ctx, following the table in spec §4.1.
func Format(v any, ctx Context) string {
	switch ctx {
	case ContextSQL:
		return formatSQL(v)
	case ContextAST:
		return formatAST(v)
	case ContextJSON:
		return formatJSON(v)
	default:
		return formatText(v)
	}
}

func formatSQL(v any) string {
	if v == nil {
		return "NULL"
	}
	switch t := v.(type) {
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case string:
		upper := strings.ToUpper(strings.TrimSpace(t))
		if sqlPassthroughKeywords[upper] || callShape.MatchString(t) {
			return t
		}
		if numericString.MatchString(t) {
			return t
		}
		if isAlreadyQuoted(t) {
			return t
		}
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	default:
		return fmt.Sprintf("%v", t)
	}
}

func isAlreadyQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	return (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"')
}

func formatText(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case bool:
		if t {
			return "True"
		}
		return "False"
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func formatAST(v any) string {
	if v == nil {
		return "None"
	}
	switch t := v.(type) {
	case bool:
		if t {
			return "True"
		}
		return "False"
	case string:
		if numericString.MatchString(t) {
			return t
		}
		return pyRepr(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// pyRepr produces a Python-literal-equivalent quoted string: single-quoted,
// with embedded single quotes and backslashes escaped.
func pyRepr(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func formatJSON(v any) string {
	if v == nil {
		return "null"
	}
	switch t := v.(type) {
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		if numericString.MatchString(t) {
			return t
		}
		encoded, err := json.Marshal(t)
		if err != nil {
			return strconv.Quote(t)
		}
		return string(encoded)
	default:
		return fmt.Sprintf("%v", t)
	}
}
