// Package shellquote quotes values for interpolation into POSIX shell command lines.
//
// Values are wrapped in double quotes, inside which a POSIX shell only treats
// backslash, dollar, double quote and backtick specially. Only those four
// characters are escaped; everything else, including newlines and single quotes,
// is passed through verbatim.
package shellquote

import "strings"

// special lists the characters that keep their meaning inside double quotes.
const special = "\\$\"`"

// Quote returns s wrapped in double quotes with shell-special characters escaped.
func Quote(s string) string {
	var sb strings.Builder

	sb.Grow(len(s) + 2) //nolint:mnd
	sb.WriteByte('"')

	for i := range len(s) {
		c := s[i]
		if strings.IndexByte(special, c) >= 0 {
			sb.WriteByte('\\')
		}

		sb.WriteByte(c)
	}

	sb.WriteByte('"')

	return sb.String()
}

// QuoteAll quotes each value and joins the results with single spaces.
func QuoteAll(values ...string) string {
	quoted := make([]string, len(values))

	for i, v := range values {
		quoted[i] = Quote(v)
	}

	return strings.Join(quoted, " ")
}
