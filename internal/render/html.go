package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/zjrosen/shine/internal/tag"
	"github.com/zjrosen/shine/internal/tree"
)

// HTML renders text as an HTML fragment with the tags inserted.
func HTML(text string, tags []tag.Tag) (string, error) {
	nodes, err := tree.Insert(text, tags)
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return tree.RenderString(nodes...)
}

// Tags renders the tag stream in its compact text form, one line.
func Tags(tags []tag.Tag) string {
	return tag.Format(tags)
}

// RunsJSON writes the styled runs of text as an indented JSON array.
func RunsJSON(w io.Writer, text string, tags []tag.Tag) error {
	runs, err := tag.Runs(text, tags)
	if err != nil {
		return fmt.Errorf("render runs: %w", err)
	}
	if runs == nil {
		runs = []tag.Run{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(runs)
}
