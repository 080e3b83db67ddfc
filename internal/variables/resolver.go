// Package variables implements the Variable Resolver (spec §4.1): layered
// priority resolution and context-aware formatting of ${name} / ${name|default}
// tokens, plus the restricted boolean expression evaluator used for IF
// conditions.
package variables

import "strings"

// Context selects which formatter renders a resolved value.
type Context string

const (
	ContextSQL  Context = "sql"
	ContextText Context = "text"
	ContextAST  Context = "ast"
	ContextJSON Context = "json"
)

// Outcome records whether a single variable reference resolved, and from
// which priority layer, so the Error Handler (C8) can act on misses.
type Outcome struct {
	Name     string
	Found    bool
	Layer    string // "cli" | "profile" | "set" | "env" | "default" | ""
	RawValue any
}

// Resolver layers CLI, profile, SET, and environment variables over a
// literal-default fallback, per spec §4.1's fixed priority order.
type Resolver struct {
	CLI     map[string]any
	Profile map[string]any
	Set     map[string]any
	Lookup  func(string) (string, bool) // environment lookup, injectable for tests
}

// NewResolver builds a Resolver backed by os.Environ via the supplied
// lookup function (normally os.LookupEnv).
func NewResolver(cli, profile, set map[string]any, envLookup func(string) (string, bool)) *Resolver {
	if envLookup == nil {
		envLookup = func(string) (string, bool) { return "", false }
	}
	return &Resolver{CLI: cli, Profile: profile, Set: set, Lookup: envLookup}
}

// Resolve looks up name across the priority chain CLI > profile > SET > env,
// returning the raw (unformatted) value and an Outcome for diagnostics.
func (r *Resolver) Resolve(name string) (any, Outcome) {
	if v, ok := r.CLI[name]; ok {
		return v, Outcome{Name: name, Found: true, Layer: "cli", RawValue: v}
	}
	if v, ok := r.Profile[name]; ok {
		return v, Outcome{Name: name, Found: true, Layer: "profile", RawValue: v}
	}
	if v, ok := r.Set[name]; ok {
		return v, Outcome{Name: name, Found: true, Layer: "set", RawValue: v}
	}
	if v, ok := r.Lookup(name); ok {
		return v, Outcome{Name: name, Found: true, Layer: "env", RawValue: v}
	}
	return nil, Outcome{Name: name, Found: false}
}

// Substitute walks s looking for ${name} / ${name|default} tokens and
// replaces each with its formatted value for ctx. It returns the rendered
// string and one Outcome per token encountered (in order), so callers can
// feed misses to an error policy.
func (r *Resolver) Substitute(s string, ctx Context) (string, []Outcome) {
	var out strings.Builder
	var outcomes []Outcome

	i := 0
	for i < len(s) {
		start := strings.Index(s[i:], "${")
		if start < 0 {
			out.WriteString(s[i:])
			break
		}
		start += i
		out.WriteString(s[i:start])

		end := strings.Index(s[start:], "}")
		if end < 0 {
			// Unterminated token: emit verbatim and stop scanning.
			out.WriteString(s[start:])
			break
		}
		end += start

		token := s[start+2 : end]
		name, def, hasDefault := splitDefault(token)

		var rendered string
		var outcome Outcome
		if v, oc := r.Resolve(name); oc.Found {
			rendered = Format(v, ctx)
			outcome = oc
		} else if hasDefault {
			rendered = Format(def, ctx)
			outcome = Outcome{Name: name, Found: true, Layer: "default", RawValue: def}
		} else {
			rendered = Format(nil, ctx)
			outcome = Outcome{Name: name, Found: false}
		}
		outcomes = append(outcomes, outcome)
		out.WriteString(rendered)

		i = end + 1
	}

	return out.String(), outcomes
}

func splitDefault(token string) (name, def string, hasDefault bool) {
	idx := strings.IndexByte(token, '|')
	if idx < 0 {
		return token, "", false
	}
	return token[:idx], token[idx+1:], true
}
