// Package listing parses the long-format, byte-escaped output of "ls -bAll" into fs.Metadata.
package listing

import "strings"

// TokenCount is the number of fields in a listing line; the last one holds the verbatim remainder.
const TokenCount = 9

const totalPrefix = "total"

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

// Tokenize splits line into n fields separated by runs of blanks. The last field captures the
// remainder of the line verbatim. The second result is false when the line has fewer than n fields.
func Tokenize(line string, n int) ([]string, bool) {
	tokens := make([]string, 0, n)
	pos := 0

	for len(tokens) < n {
		for pos < len(line) && isBlank(line[pos]) {
			pos++
		}

		if pos >= len(line) {
			return tokens, false
		}

		if len(tokens) == n-1 {
			tokens = append(tokens, line[pos:])
			break
		}

		start := pos
		for pos < len(line) && !isBlank(line[pos]) {
			pos++
		}

		tokens = append(tokens, line[start:pos])
	}

	return tokens, true
}

// Qualifies returns true if the line should be handed to ParseLine: it is not blank, not the
// "total" summary and has at least TokenCount fields.
func Qualifies(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}

	if strings.HasPrefix(line, totalPrefix) {
		return false
	}

	_, ok := Tokenize(line, TokenCount)

	return ok
}
