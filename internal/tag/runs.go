package tag

// Run is a maximal stretch of text under one set of open spans.
type Run struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`

	// Style is the innermost highlight style covering the run, or "".
	Style string `json:"style,omitempty"`

	// Href is set when the innermost link covering the run has a target.
	Href string `json:"href,omitempty"`

	// Stack lists the labels of the covering spans, outermost first.
	Stack []string `json:"stack,omitempty"`
}

// Runs cuts text at every tag boundary. Empty stretches are skipped, so the
// concatenated run texts always equal text.
func Runs(text string, tags []Tag) ([]Run, error) {
	byteAt := ByteOffsets(text)
	n := len(byteAt) - 1
	if err := Validate(tags, n); err != nil {
		return nil, err
	}

	var runs []Run
	var stack []Tag
	cur := 0

	flush := func(end int) {
		if end <= cur {
			return
		}
		r := Run{Start: cur, End: end, Text: text[byteAt[cur]:byteAt[end]]}
		for _, t := range stack {
			r.Stack = append(r.Stack, t.Label())
			if t.Style != "" {
				r.Style = t.Style
			}
			if href, ok := t.Attr("href"); ok {
				r.Href = href
			}
		}
		runs = append(runs, r)
		cur = end
	}

	for _, t := range tags {
		flush(t.Pos)
		if t.Kind == Open {
			stack = append(stack, t)
		} else {
			stack = stack[:len(stack)-1]
		}
	}
	flush(n)
	return runs, nil
}

// ByteOffsets maps rune positions in text to byte offsets. The result has one
// entry per rune plus a final len(text), so text[b[i]:b[j]] is the slice
// between rune positions i and j. Invalid UTF-8 bytes count as one rune each
// and are kept as they are.
func ByteOffsets(text string) []int {
	offsets := make([]int, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	return append(offsets, len(text))
}
