package utils

import "strings"

const hextable = "0123456789abcdef"

// JoinHex renders bytes as 2 character lowercase hex values separated by sep. Example: `23.00.10.00`
func JoinHex(b []byte, sep string) string {
	buf := strings.Builder{}
	buf.Grow(len(b) * (2 + len(sep)))
	for i, v := range b {
		if i > 0 {
			buf.WriteString(sep)
		}
		buf.WriteByte(hextable[v>>4])
		buf.WriteByte(hextable[v&0x0f])
	}
	return buf.String()
}

// FormatSpaces escapes whitespace control characters so raw line based adapter output can be printed on single line.
func FormatSpaces(s []byte) string {
	buf := strings.Builder{}
	for _, c := range s {
		switch c {
		case '\t':
			buf.WriteString(`\t`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\v':
			buf.WriteString(`\v`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.String()
}
