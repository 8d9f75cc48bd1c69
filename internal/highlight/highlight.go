// Package highlight runs a language definition over text and produces a
// well-formed tag stream of style runs.
//
// Text is processed line by line. Each line gets a fresh match cache while
// the pattern stack carries over, so constructs such as block comments can
// span lines. Style runs never cross a line break.
package highlight

import (
	"errors"
	"fmt"

	"github.com/zjrosen/shine/internal/lang"
	"github.com/zjrosen/shine/internal/log"
	"github.com/zjrosen/shine/internal/tag"
)

// ErrNoProgress is returned when a line stops advancing, which only a
// pathological definition can cause.
var ErrNoProgress = errors.New("highlighter made no progress")

// DefaultClassPrefix is prepended to style names in class attributes.
const DefaultClassPrefix = "sh_"

// Options controls tag generation.
type Options struct {
	// ClassPrefix is prepended to the style name in each tag's class.
	ClassPrefix string

	// LinkStyles are styles whose runs become <a> elements with an href.
	LinkStyles []string

	// MailLinks turns link text containing '@' and no URI scheme into a
	// mailto: target.
	MailLinks bool
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		ClassPrefix: DefaultClassPrefix,
		LinkStyles:  []string{"url"},
		MailLinks:   true,
	}
}

// Option mutates Options.
type Option func(*Options)

func WithClassPrefix(prefix string) Option {
	return func(o *Options) { o.ClassPrefix = prefix }
}

func WithLinkStyles(styles ...string) Option {
	return func(o *Options) { o.LinkStyles = styles }
}

func WithMailLinks(enabled bool) Option {
	return func(o *Options) { o.MailLinks = enabled }
}

// lineIterationLimit bounds the scan loop for a line of n runes. Every
// iteration either advances or consumes the single zero-width match allowed
// at a position, so a correct scan stays well below it.
var lineIterationLimit = func(n int) int { return 4*(n+1) + 16 }

// Highlight tokenizes text with def and returns the highlight tag stream.
// Positions are rune offsets into text.
func Highlight(def *lang.Definition, text string, opts ...Option) ([]tag.Tag, error) {
	if def == nil || len(def.States) == 0 {
		return nil, fmt.Errorf("%w: definition has no states", lang.ErrInvalidDefinition)
	}

	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	runes := []rune(text)
	h := &highlighter{
		def:     def,
		text:    runes,
		machine: &machine{def: def},
		em:      newEmitter(runes, o),
	}

	lines := splitLines(runes)
	for n, ln := range lines {
		if err := h.scanLine(ln); err != nil {
			return nil, fmt.Errorf("highlight %s line %d: %w", def.Name, n+1, err)
		}
	}

	log.Debug(log.CatHighlight, "highlighted text",
		"lang", def.Name, "runes", len(runes), "lines", len(lines),
		"tags", len(h.em.tags), "depth", h.machine.depth())
	return h.em.tags, nil
}

type highlighter struct {
	def     *lang.Definition
	text    []rune
	machine *machine
	em      *emitter
}

func (h *highlighter) scanLine(ln line) error {
	content := h.text[ln.start:ln.end]
	mt := newMatcher(h.def, content)
	limit := lineIterationLimit(len(content))
	pos := 0

	for iter := 0; ; iter++ {
		if iter >= limit {
			return fmt.Errorf("%w: stuck at column %d after %d iterations", ErrNoProgress, pos+1, iter)
		}

		state := h.machine.state()
		m, err := mt.find(state, pos)
		if err != nil {
			return fmt.Errorf("state %s: %w", h.def.States[state].Name, err)
		}
		env := h.machine.environment()
		if m == nil {
			h.em.emit(ln.start+pos, ln.end, env)
			break
		}

		h.em.emit(ln.start+pos, ln.start+m.start, env)
		p := &h.def.States[state].Patterns[m.pattern]
		h.emitMatch(ln.start, m, p, env)

		mt.accept(m)
		h.machine.apply(p)
		pos = m.end
	}

	h.em.closeRun(ln.end)
	return nil
}

// emitMatch emits the matched text. Per-group styles cover their groups;
// text around the groups, and groups with an empty style, take env.
func (h *highlighter) emitMatch(base int, m *match, p *lang.Pattern, env string) {
	switch p.Style.Kind {
	case lang.StyleSingle:
		h.em.emit(base+m.start, base+m.end, p.Style.Name)
	case lang.StylePerGroup:
		cursor := m.start
		for i, g := range m.groups {
			if i >= len(p.Style.Groups) || !g.ok {
				continue
			}
			start, end := max(g.start, cursor), min(g.end, m.end)
			if end <= start {
				continue
			}
			style := p.Style.Groups[i]
			if style == "" {
				style = env
			}
			h.em.emit(base+cursor, base+start, env)
			h.em.emit(base+start, base+end, style)
			cursor = end
		}
		h.em.emit(base+cursor, base+m.end, env)
	default:
		h.em.emit(base+m.start, base+m.end, env)
	}
}
