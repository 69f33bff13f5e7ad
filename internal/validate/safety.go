// Package validate holds the pure checks and rewrites applied to tool
// definitions and call arguments: static safety, placeholder substitution,
// rule evaluation, path prefix rewriting and environment expansion.
package validate

import (
	"strings"

	apperrors "github.com/bobmcallan/toolgate/internal/errors"
)

// dangerousChars may not appear in static shell configuration.
const dangerousChars = ";|&><$`\n\r"

// CheckStaticSafety fails with an unsafe_template error if any value contains
// a shell metacharacter. Values are trusted configuration, so this runs once
// when an executor is built, never per call.
func CheckStaticSafety(values ...string) error {
	for _, v := range values {
		if i := strings.IndexAny(v, dangerousChars); i >= 0 {
			return apperrors.Newf(apperrors.CodeUnsafeTemplate,
				"unsafe character %q in static value %q", v[i], v)
		}
	}
	return nil
}
