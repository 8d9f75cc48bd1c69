package highlight

import (
	"fmt"

	"github.com/zjrosen/shine/internal/lang"
)

// span is a capture group's extent within the line. ok is false for groups
// that did not participate in the match.
type span struct {
	start, end int
	ok         bool
}

// match is a pattern hit within the current line, in line-relative rune
// offsets.
type match struct {
	pattern    int
	start, end int
	groups     []span
}

func (m *match) zeroWidth() bool { return m.start == m.end }

// cached is the last result of one pattern's regex. A nil m with valid set
// records that the pattern cannot match anywhere in the rest of the line.
type cached struct {
	valid bool
	m     *match
}

// matcher finds the best pattern hit for a state within one line. It owns
// the per-line match cache and is discarded when the line ends.
type matcher struct {
	def   *lang.Definition
	line  []rune
	cache map[int][]cached

	// zeroAt is the position of the last accepted zero-width match, or -1.
	zeroAt int
}

func newMatcher(def *lang.Definition, line []rune) *matcher {
	return &matcher{
		def:    def,
		line:   line,
		cache:  make(map[int][]cached),
		zeroAt: -1,
	}
}

// accept records that m was consumed by the state machine.
func (mt *matcher) accept(m *match) {
	if m.zeroWidth() {
		mt.zeroAt = m.start
	}
}

// find returns the earliest match among state's patterns at or after pos.
// Ties go to the earlier pattern; a match starting at pos ends the search.
// A nil match means nothing in the state matches the rest of the line.
func (mt *matcher) find(state, pos int) (*match, error) {
	patterns := mt.def.States[state].Patterns
	entries, ok := mt.cache[state]
	if !ok {
		entries = make([]cached, len(patterns))
		mt.cache[state] = entries
	}

	var best *match
	for i := range patterns {
		e := &entries[i]
		if !e.valid || (e.m != nil && e.m.start < pos) {
			m, err := mt.exec(i, &patterns[i], pos)
			if err != nil {
				return nil, err
			}
			*e = cached{valid: true, m: m}
		}

		// At most one zero-width match per position: a second one is
		// searched for again one rune further on.
		if e.m != nil && e.m.zeroWidth() && e.m.start == mt.zeroAt {
			var m *match
			if next := mt.zeroAt + 1; next <= len(mt.line) {
				var err error
				if m, err = mt.exec(i, &patterns[i], next); err != nil {
					return nil, err
				}
			}
			*e = cached{valid: true, m: m}
		}

		if e.m == nil {
			continue
		}
		if best == nil || e.m.start < best.start {
			best = e.m
		}
		if best.start == pos {
			break
		}
	}
	return best, nil
}

func (mt *matcher) exec(idx int, p *lang.Pattern, from int) (*match, error) {
	rm, err := p.Regex.FindRunesMatchStartingAt(mt.line, from)
	if err != nil {
		return nil, fmt.Errorf("pattern %d %q: %w", idx, p.Expr, err)
	}
	if rm == nil {
		return nil, nil
	}

	m := &match{pattern: idx, start: rm.Index, end: rm.Index + rm.Length}
	if p.Style.Kind == lang.StylePerGroup {
		groups := rm.Groups()
		m.groups = make([]span, 0, len(groups))
		for _, g := range groups[1:] {
			if len(g.Captures) == 0 {
				m.groups = append(m.groups, span{})
				continue
			}
			m.groups = append(m.groups, span{start: g.Index, end: g.Index + g.Length, ok: true})
		}
	}
	return m, nil
}
