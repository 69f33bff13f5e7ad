package validate

import (
	"fmt"
	"regexp"

	apperrors "github.com/bobmcallan/toolgate/internal/errors"
)

// Rule rejects any value matching Pattern with Message.
type Rule struct {
	Pattern *regexp.Regexp
	Message string
}

// CompileRule compiles a (pattern, message) pair. An empty message defaults
// to naming the pattern.
func CompileRule(pattern, message string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, apperrors.Wrap(apperrors.CodeConfig, fmt.Sprintf("invalid validation pattern %q", pattern), err)
	}
	if message == "" {
		message = fmt.Sprintf("value matches forbidden pattern %q", pattern)
	}
	return Rule{Pattern: re, Message: message}, nil
}

// CheckRules returns a validation error carrying the message of the first
// rule that matches value. Later rules are not evaluated.
func CheckRules(value string, rules []Rule) error {
	for _, r := range rules {
		if r.Pattern != nil && r.Pattern.MatchString(value) {
			return apperrors.New(apperrors.CodeValidation, r.Message)
		}
	}
	return nil
}
