// Package tag defines the start/end markers exchanged between the highlighter,
// the tree extractor and the tree inserter, and the merge that splices two
// marker streams into one well-formed stream.
//
// Positions are rune offsets into the flattened text. A stream is well-formed
// when it is sorted by position and its opens and closes balance. Closes carry
// no identity: a close always ends the innermost open span, so a sorted,
// balanced stream can never cross.
package tag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned when a tag stream is unsorted or unbalanced.
var ErrMalformed = errors.New("malformed tag stream")

// Kind tells an open marker from a close marker.
type Kind uint8

const (
	Open Kind = iota
	Close
)

func (k Kind) String() string {
	if k == Close {
		return "close"
	}
	return "open"
}

// Attr is one element attribute. Order is preserved.
type Attr struct {
	Key string `json:"key"`
	Val string `json:"val"`
}

// Tag is a single marker.
type Tag struct {
	Pos  int  `json:"pos"`
	Kind Kind `json:"kind"`

	// Name is the element name for open tags ("span", "a", "b", ...).
	Name string `json:"name,omitempty"`

	// Style is the highlight style that produced the tag. Empty for markup
	// that came from an existing document.
	Style string `json:"style,omitempty"`

	Attrs []Attr `json:"attrs,omitempty"`

	// Clone marks an open tag re-emitted by Merge after a split.
	Clone bool `json:"clone,omitempty"`
}

// NewOpen returns an open tag for element name.
func NewOpen(pos int, name string, attrs ...Attr) Tag {
	return Tag{Pos: pos, Kind: Open, Name: name, Attrs: attrs}
}

// NewClose returns a close tag.
func NewClose(pos int) Tag {
	return Tag{Pos: pos, Kind: Close}
}

// Attr returns the value of attribute key.
func (t Tag) Attr(key string) (string, bool) {
	for _, a := range t.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Label is a short identity for diagnostics: the style if set, else the
// element name.
func (t Tag) Label() string {
	if t.Style != "" {
		return t.Style
	}
	return t.Name
}

// cloneAt copies t to pos, marking it as a clone. Attrs are copied so the
// two tags never share a backing array.
func (t Tag) cloneAt(pos int) Tag {
	c := t
	c.Pos = pos
	c.Clone = true
	if t.Attrs != nil {
		c.Attrs = append([]Attr(nil), t.Attrs...)
	}
	return c
}

func (t Tag) String() string {
	if t.Kind == Close {
		return fmt.Sprintf("</>%d", t.Pos)
	}
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(t.Label())
	if t.Clone {
		b.WriteByte('\'')
	}
	b.WriteByte('>')
	fmt.Fprintf(&b, "%d", t.Pos)
	return b.String()
}

// Format renders a stream compactly, e.g. "<b>0 <comment>5 </>10 </>10".
func Format(tags []Tag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// Validate reports whether tags is well-formed. textLen, when non-negative,
// bounds every position.
func Validate(tags []Tag, textLen int) error {
	depth := 0
	last := 0
	for i, t := range tags {
		switch {
		case t.Pos < 0:
			return fmt.Errorf("%w: tag %d at negative position %d", ErrMalformed, i, t.Pos)
		case textLen >= 0 && t.Pos > textLen:
			return fmt.Errorf("%w: tag %d at %d past end of text (%d)", ErrMalformed, i, t.Pos, textLen)
		case t.Pos < last:
			return fmt.Errorf("%w: tag %d at %d precedes previous tag at %d", ErrMalformed, i, t.Pos, last)
		}
		last = t.Pos

		switch t.Kind {
		case Open:
			depth++
		case Close:
			if depth == 0 {
				return fmt.Errorf("%w: close at %d has no open span", ErrMalformed, t.Pos)
			}
			depth--
		default:
			return fmt.Errorf("%w: tag %d has unknown kind %d", ErrMalformed, i, t.Kind)
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: %d span(s) left open", ErrMalformed, depth)
	}
	return nil
}

// Span is an open tag paired with its close position.
type Span struct {
	Start int
	End   int
	Depth int
	Tag   Tag
}

// Spans pairs every open tag with its close. Spans are returned in the order
// their open tags appear.
func Spans(tags []Tag) ([]Span, error) {
	if err := Validate(tags, -1); err != nil {
		return nil, err
	}

	var spans []Span
	var stack []int
	for _, t := range tags {
		if t.Kind == Open {
			stack = append(stack, len(spans))
			spans = append(spans, Span{Start: t.Pos, Depth: len(stack) - 1, Tag: t})
			continue
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		spans[top].End = t.Pos
	}
	return spans, nil
}
