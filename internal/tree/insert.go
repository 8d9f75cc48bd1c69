package tree

import (
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/zjrosen/shine/internal/log"
	"github.com/zjrosen/shine/internal/tag"
)

// Insert rebuilds a forest from text and a well-formed tag stream in one
// left-to-right pass. The returned nodes have no parent.
func Insert(text string, tags []tag.Tag) ([]*html.Node, error) {
	byteAt := tag.ByteOffsets(text)
	n := len(byteAt) - 1
	if err := tag.Validate(tags, n); err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}

	root := &html.Node{Type: html.DocumentNode}
	cur := root
	cursor, i := 0, 0

	for i < len(tags) || cursor < n {
		if i < len(tags) && tags[i].Pos <= cursor {
			t := tags[i]
			i++
			if t.Kind == tag.Open {
				el := newElement(t)
				cur.AppendChild(el)
				cur = el
			} else {
				cur = cur.Parent
			}
			continue
		}

		end := n
		if i < len(tags) {
			end = tags[i].Pos
		}
		cur.AppendChild(&html.Node{Type: html.TextNode, Data: text[byteAt[cursor]:byteAt[end]]})
		cursor = end
	}

	var nodes []*html.Node
	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		root.RemoveChild(c)
		nodes = append(nodes, c)
		c = next
	}

	log.Debug(log.CatTree, "inserted tags", "runes", n, "tags", len(tags), "roots", len(nodes))
	return nodes, nil
}

func newElement(t tag.Tag) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     t.Name,
		DataAtom: atom.Lookup([]byte(t.Name)),
	}
	for _, a := range t.Attrs {
		n.Attr = append(n.Attr, html.Attribute{Key: a.Key, Val: a.Val})
	}
	return n
}
