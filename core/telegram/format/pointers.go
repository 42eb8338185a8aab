package format

// DerefString returns *s, or def when s is nil or empty.
func DerefString(s *string, def string) string {
	if s != nil && *s != "" {
		return *s
	}
	return def
}

// Preview returns the first n runes of s, adding "..." when s is longer.
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
