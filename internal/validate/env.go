package validate

import (
	"os"
	"regexp"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(string) (string, bool)

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// ExpandEnv resolves ${VAR} and ${VAR:-default} placeholders in s. Variables
// that are unset and have no default expand to the empty string and are
// reported in the second return value.
func ExpandEnv(s string, lookup LookupFunc) (string, []string) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var unresolved []string
	out := envPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := envPattern.FindStringSubmatch(m)
		if v, ok := lookup(sub[1]); ok && v != "" {
			return v
		}
		if sub[2] != "" {
			return sub[3]
		}
		unresolved = append(unresolved, sub[1])
		return ""
	})
	return out, unresolved
}

// ExpandEnvValue applies ExpandEnv to every string inside value, walking
// slices and maps. It returns a new structure.
func ExpandEnvValue(value any, lookup LookupFunc) (any, []string) {
	var unresolved []string
	var walk func(any) any
	walk = func(v any) any {
		switch t := v.(type) {
		case string:
			s, missing := ExpandEnv(t, lookup)
			unresolved = append(unresolved, missing...)
			return s
		case []any:
			out := make([]any, len(t))
			for i, item := range t {
				out[i] = walk(item)
			}
			return out
		case []string:
			out := make([]string, len(t))
			for i, item := range t {
				out[i] = walk(item).(string)
			}
			return out
		case map[string]any:
			out := make(map[string]any, len(t))
			for k, item := range t {
				out[k] = walk(item)
			}
			return out
		case map[string]string:
			out := make(map[string]string, len(t))
			for k, item := range t {
				out[k] = walk(item).(string)
			}
			return out
		default:
			return v
		}
	}
	return walk(value), unresolved
}
