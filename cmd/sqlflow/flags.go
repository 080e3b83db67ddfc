package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sqlflow/sqlflow/internal/profile"
)

// parseVariables accepts either a single JSON object ("--variables
// '{"env":"prod"}'") or repeated "key=value" flags and merges them into one
// map, later entries overriding earlier ones (spec §6.5).
func parseVariables(values []string) (map[string]any, error) {
	if len(values) == 0 {
		return nil, nil
	}

	out := make(map[string]any)
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "{") {
			var obj map[string]any
			if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
				return nil, fmt.Errorf("parsing --variables JSON: %w", err)
			}
			for k, val := range obj {
				out[k] = val
			}
			continue
		}

		key, val, ok := strings.Cut(trimmed, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --variables entry %q, want key=value or a JSON object", v)
		}
		out[key] = val
	}
	return out, nil
}

// loadProfile loads path (if non-empty) and returns the parsed profile, or
// nil if no profile was given.
func loadProfile(path string) (*profile.Profile, error) {
	if path == "" {
		return nil, nil
	}
	return profile.Load(path)
}
