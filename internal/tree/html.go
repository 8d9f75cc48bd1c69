package tree

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses an HTML fragment into the children of a detached
// <div> container.
func ParseFragment(r io.Reader) (*html.Node, error) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(r, container)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, nil
}

// Render serializes nodes in order.
func Render(w io.Writer, nodes ...*html.Node) error {
	for _, n := range nodes {
		if err := html.Render(w, n); err != nil {
			return fmt.Errorf("render %s: %w", n.Data, err)
		}
	}
	return nil
}

// RenderString serializes nodes into a string.
func RenderString(nodes ...*html.Node) (string, error) {
	var b strings.Builder
	if err := Render(&b, nodes...); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderChildren serializes the children of n.
func RenderChildren(n *html.Node) (string, error) {
	var kids []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		kids = append(kids, c)
	}
	return RenderString(kids...)
}

// ReplaceChildren detaches every child of n and appends nodes in its place.
func ReplaceChildren(n *html.Node, nodes []*html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
}

// FindAll returns the elements below n, in document order, for which match
// reports true. Matched elements are not searched further.
func FindAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && match(c) {
				found = append(found, c)
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return found
}

// Classes returns the entries of n's class attribute.
func Classes(n *html.Node) []string {
	for _, a := range n.Attr {
		if a.Key == "class" {
			return strings.Fields(a.Val)
		}
	}
	return nil
}

// AddClass appends class to n's class attribute unless already present.
func AddClass(n *html.Node, class string) {
	for i, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return
			}
		}
		n.Attr[i].Val = strings.TrimSpace(a.Val + " " + class)
		return
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
}

// ParseDocument parses a complete HTML document.
func ParseDocument(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}
