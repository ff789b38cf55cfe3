package listing

// simpleEscapes maps the character following a backslash to the byte it represents.
//
//nolint:gochecknoglobals
var simpleEscapes = map[byte]byte{
	'\\': '\\',
	'a':  '\a',
	'b':  '\b',
	'e':  0x1b,
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'v':  '\v',
	' ':  ' ',
}

func isOctalDigit(c byte) bool {
	return c >= '0' && c <= '7'
}

// DecodeEscapes reverses the escaping applied by "ls -b". Backslash sequences outside of the
// recognized set are left untouched.
func DecodeEscapes(s string) string {
	out := make([]byte, 0, len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			out = append(out, c)
			continue
		}

		next := s[i+1]

		if v, ok := simpleEscapes[next]; ok {
			out = append(out, v)
			i++

			continue
		}

		if i+3 < len(s) && isOctalDigit(next) && isOctalDigit(s[i+2]) && isOctalDigit(s[i+3]) {
			v := int(next-'0')<<6 | int(s[i+2]-'0')<<3 | int(s[i+3]-'0')
			if v <= 0xff {
				out = append(out, byte(v))
				i += 3

				continue
			}
		}

		out = append(out, c)
	}

	return string(out)
}
