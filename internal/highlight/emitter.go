package highlight

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/zjrosen/shine/internal/tag"
)

var schemePrefix = regexp2.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*:`, regexp2.ECMAScript)

// emitter turns styled spans into tags, coalescing neighbours of equal style.
type emitter struct {
	opts  Options
	text  []rune
	links map[string]bool
	tags  []tag.Tag

	cur     string // style of the open run, "" when none is open
	openIdx int    // index of the open run's tag in tags
}

func newEmitter(text []rune, opts Options) *emitter {
	links := make(map[string]bool, len(opts.LinkStyles))
	for _, s := range opts.LinkStyles {
		links[s] = true
	}
	return &emitter{opts: opts, text: text, links: links}
}

// emit records [start, end) under style. Empty spans are dropped.
func (e *emitter) emit(start, end int, style string) {
	if end <= start || style == e.cur {
		return
	}
	e.closeRun(start)
	if style == "" {
		return
	}

	t := tag.Tag{Pos: start, Kind: tag.Open, Name: "span", Style: style,
		Attrs: []tag.Attr{{Key: "class", Val: e.opts.ClassPrefix + style}}}
	if e.links[style] {
		t.Name = "a"
	}
	e.openIdx = len(e.tags)
	e.tags = append(e.tags, t)
	e.cur = style
}

// closeRun ends the open run at pos, resolving link targets now that the
// run's text is known.
func (e *emitter) closeRun(pos int) {
	if e.cur == "" {
		return
	}
	if e.links[e.cur] {
		open := &e.tags[e.openIdx]
		open.Attrs = append(open.Attrs, tag.Attr{Key: "href", Val: e.linkTarget(open.Pos, pos)})
	}
	e.tags = append(e.tags, tag.NewClose(pos))
	e.cur = ""
}

func (e *emitter) linkTarget(start, end int) string {
	target := string(e.text[start:end])
	if len(target) >= 2 && strings.HasPrefix(target, "<") && strings.HasSuffix(target, ">") {
		target = target[1 : len(target)-1]
	}
	if e.opts.MailLinks && strings.Contains(target, "@") && !hasScheme(target) {
		return "mailto:" + target
	}
	return target
}

func hasScheme(s string) bool {
	ok, err := schemePrefix.MatchString(s)
	return err == nil && ok
}
