package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"

	apperrors "github.com/bobmcallan/toolgate/internal/errors"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Placeholders returns the distinct placeholder names in template, in order of first use.
func Placeholders(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	return names
}

// Substitute replaces every {name} placeholder with the stringified value of args[name].
// Substituted values are not scanned again for placeholders.
func Substitute(template string, args map[string]any) (string, error) {
	return SubstituteFunc(template, args, nil)
}

// SubstituteFunc is Substitute with an optional transform applied to each
// stringified value before it is inserted (for example shell quoting).
func SubstituteFunc(template string, args map[string]any, transform func(string) string) (string, error) {
	var missing string
	out := placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := args[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return m
		}
		s := Stringify(v)
		if transform != nil {
			s = transform(s)
		}
		return s
	})
	if missing != "" {
		return "", apperrors.Newf(apperrors.CodeMissingArgument, "missing argument: %s", missing)
	}
	return out, nil
}

// Stringify renders an argument value for insertion into a command string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return Stringify(float64(t))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t)
	case json.Number:
		return t.String()
	case []any, map[string]any, []string, map[string]string:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
