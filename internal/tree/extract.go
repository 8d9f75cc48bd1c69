// Package tree converts between HTML node trees and (text, tag stream) pairs.
package tree

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/zjrosen/shine/internal/tag"
)

// Extract flattens the children of n into text plus the tag stream of the
// elements that structure it. <br> contributes a line break and no tag;
// comments and doctypes are skipped.
func Extract(n *html.Node) (string, []tag.Tag) {
	x := &extractor{}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		x.walk(c)
	}
	return x.text.String(), x.tags
}

type extractor struct {
	text strings.Builder
	pos  int
	tags []tag.Tag
}

func (x *extractor) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		x.text.WriteString(n.Data)
		x.pos += utf8.RuneCountInString(n.Data)
	case html.ElementNode:
		if n.DataAtom == atom.Br {
			x.text.WriteByte('\n')
			x.pos++
			return
		}
		var attrs []tag.Attr
		for _, a := range n.Attr {
			attrs = append(attrs, tag.Attr{Key: a.Key, Val: a.Val})
		}
		x.tags = append(x.tags, tag.NewOpen(x.pos, n.Data, attrs...))
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			x.walk(c)
		}
		x.tags = append(x.tags, tag.NewClose(x.pos))
	}
}
