// Package normalize maps raw catalog strings to the keys stored in the trie.
package normalize

// String keeps ASCII letters, digits, '-', '.' and ' ', lowercasing letters.
// Every other byte is dropped, which also drops every byte of a multi-byte
// UTF-8 sequence. The result is always valid ASCII.
func String(s string) string {
	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			buf = append(buf, c+('a'-'A'))
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '.', c == ' ':
			buf = append(buf, c)
		}
	}
	return string(buf)
}

// Strings normalizes every element of words into a new slice.
func Strings(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = String(w)
	}
	return out
}
