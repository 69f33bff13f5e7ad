package backend

import "strings"

// shellSpecial lists characters that force quoting when an argument is
// embedded in a shell command line.
const shellSpecial = " \t\n\r'\"\\$`;&|<>(){}*?[]#~!"

// ShellQuote wraps s in single quotes, escaping embedded single quotes.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// QuoteArg quotes s only when it is empty or contains whitespace, quotes or
// other shell syntax.
func QuoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, shellSpecial) {
		return ShellQuote(s)
	}
	return s
}

// JoinArgs renders argv as a single shell command line.
func JoinArgs(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = QuoteArg(a)
	}
	return strings.Join(quoted, " ")
}
