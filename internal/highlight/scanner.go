package highlight

// line is one line segment in rune offsets: content is [start, end) and the
// terminator, if any, is [end, next).
type line struct {
	start int
	end   int
	next  int
}

// splitLines cuts text on "\r\n", "\r" and "\n". The final segment is always
// returned, so text ending in a terminator yields a trailing empty line.
func splitLines(text []rune) []line {
	var lines []line
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, line{start: start, end: i, next: i + 1})
			start = i + 1
		case '\r':
			next := i + 1
			if next < len(text) && text[next] == '\n' {
				next++
			}
			lines = append(lines, line{start: start, end: i, next: next})
			start = next
			i = next - 1
		}
	}
	return append(lines, line{start: start, end: len(text), next: len(text)})
}
