package tag

import (
	"fmt"

	"github.com/zjrosen/shine/internal/log"
)

const (
	srcOriginal = iota
	srcHighlight
)

type openSpan struct {
	tag Tag
	src int
}

// cursor walks one input stream.
type cursor struct {
	tags []Tag
	i    int
}

func (c *cursor) done() bool { return c.i >= len(c.tags) }

func (c *cursor) peek() Tag { return c.tags[c.i] }

// closesAt consumes the run of close tags at pos and returns how many there were.
func (c *cursor) closesAt(pos int) int {
	n := 0
	for !c.done() && c.peek().Pos == pos && c.peek().Kind == Close {
		c.i++
		n++
	}
	return n
}

// Merge interleaves the original markup stream with the highlight stream.
//
// At each position the close tags of both streams are handled first, as one
// batch: the deepest span due to close is found, everything above it is
// closed in stack order, and the spans above it that were not due to close are
// re-opened as clones at the same position. Open tags follow, original stream
// first. The result is well-formed and covers every position with the same
// set of spans as the two inputs together.
func Merge(original, highlight []Tag) ([]Tag, error) {
	if err := Validate(original, -1); err != nil {
		return nil, fmt.Errorf("original stream: %w", err)
	}
	if err := Validate(highlight, -1); err != nil {
		return nil, fmt.Errorf("highlight stream: %w", err)
	}

	srcs := [2]*cursor{
		srcOriginal:  {tags: original},
		srcHighlight: {tags: highlight},
	}
	out := make([]Tag, 0, len(original)+len(highlight))
	var stack []openSpan
	splits := 0

	for !srcs[srcOriginal].done() || !srcs[srcHighlight].done() {
		pos := nextPos(srcs)

		var closing [2]int
		for s, c := range srcs {
			closing[s] = c.closesAt(pos)
		}

		if closing[srcOriginal]+closing[srcHighlight] > 0 {
			var reopened int
			out, stack, reopened = closeBatch(out, stack, closing, pos)
			splits += reopened
			continue
		}

		s := srcHighlight
		if c := srcs[srcOriginal]; !c.done() && c.peek().Pos == pos {
			s = srcOriginal
		}
		t := srcs[s].peek()
		srcs[s].i++
		out = append(out, t)
		stack = append(stack, openSpan{tag: t, src: s})
	}

	out = dropEmptyClones(out)
	log.Debug(log.CatMerge, "merged tag streams",
		"original", len(original), "highlight", len(highlight), "out", len(out), "splits", splits)
	return out, nil
}

func nextPos(srcs [2]*cursor) int {
	pos := -1
	for _, c := range srcs {
		if c.done() {
			continue
		}
		if p := c.peek().Pos; pos < 0 || p < pos {
			pos = p
		}
	}
	return pos
}

// closeBatch closes closing[src] innermost spans of each source. Every span
// stacked above the deepest closed one is closed too; those not due to close
// are re-opened afterwards in their original order.
func closeBatch(out []Tag, stack []openSpan, closing [2]int, pos int) ([]Tag, []openSpan, int) {
	due := make([]bool, len(stack))
	deepest := len(stack)
	for s, n := range closing {
		for k := len(stack) - 1; k >= 0 && n > 0; k-- {
			if stack[k].src != s {
				continue
			}
			due[k] = true
			n--
			if k < deepest {
				deepest = k
			}
		}
	}

	var reopen []openSpan
	for k := len(stack) - 1; k >= deepest; k-- {
		out = append(out, NewClose(pos))
		if !due[k] {
			reopen = append(reopen, stack[k])
		}
	}
	stack = stack[:deepest]

	for k := len(reopen) - 1; k >= 0; k-- {
		span := openSpan{tag: reopen[k].tag.cloneAt(pos), src: reopen[k].src}
		out = append(out, span.tag)
		stack = append(stack, span)
	}
	return out, stack, len(reopen)
}

// dropEmptyClones removes clone spans that open and close at the same
// position with nothing inside.
func dropEmptyClones(tags []Tag) []Tag {
	out := tags[:0:0]
	for _, t := range tags {
		if t.Kind == Close && len(out) > 0 {
			prev := out[len(out)-1]
			if prev.Kind == Open && prev.Clone && prev.Pos == t.Pos {
				out = out[:len(out)-1]
				continue
			}
		}
		out = append(out, t)
	}
	return out
}
