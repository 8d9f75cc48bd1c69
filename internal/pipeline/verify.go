package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/zjrosen/shine/internal/tag"
	"github.com/zjrosen/shine/internal/tree"
)

// Report is the outcome of a round-trip check on an HTML fragment.
type Report struct {
	// Elements is how many elements were highlighted.
	Elements int
	// Before and After are the flattened text of the fragment.
	Before string
	After  string
	// Diff marks deletions as [-x-] and insertions as {+x+}; empty when the
	// text survived unchanged.
	Diff string
	// HighlightErr collects per-element failures from document mode.
	HighlightErr error
}

// OK reports whether the round trip kept the text.
func (r Report) OK() bool { return r.Diff == "" }

// Verify highlights an HTML fragment and checks that its flattened text is
// unchanged and its markup well formed. With language set the whole fragment
// is highlighted in that language; otherwise each <pre> names its own.
func (h *Highlighter) Verify(ctx context.Context, src, language string) (Report, error) {
	root, err := tree.ParseFragment(strings.NewReader(src))
	if err != nil {
		return Report{}, err
	}
	before, _ := tree.Extract(root)

	var rep Report
	if language != "" {
		if err := h.HighlightNode(ctx, language, root); err != nil {
			return Report{}, err
		}
		rep.Elements = 1
	} else {
		rep.Elements, rep.HighlightErr = h.HighlightDocument(ctx, root)
	}

	after, tags := tree.Extract(root)
	if err := tag.Validate(tags, len([]rune(after))); err != nil {
		return Report{}, fmt.Errorf("verify: rebuilt markup: %w", err)
	}

	rep.Before, rep.After = before, after
	if before != after {
		rep.Diff = textDiff(before, after)
	}
	return rep, nil
}

func textDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(d.Text)
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		}
	}
	return b.String()
}
