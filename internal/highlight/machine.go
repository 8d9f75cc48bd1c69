package highlight

import "github.com/zjrosen/shine/internal/lang"

// machine owns the pattern stack. It persists across lines.
type machine struct {
	def   *lang.Definition
	stack []*lang.Pattern
}

// state returns the active state: the target of the innermost entered
// pattern, or 0 with an empty stack.
func (m *machine) state() int {
	if len(m.stack) == 0 {
		return 0
	}
	return m.stack[len(m.stack)-1].Target
}

// environment is the style inherited by unstyled text.
func (m *machine) environment() string {
	if len(m.stack) == 0 {
		return ""
	}
	return m.stack[len(m.stack)-1].Environment
}

func (m *machine) apply(p *lang.Pattern) {
	switch p.Transition {
	case lang.Enter:
		m.stack = append(m.stack, p)
	case lang.ExitOne:
		if len(m.stack) > 0 {
			m.stack = m.stack[:len(m.stack)-1]
		}
	case lang.ExitAll:
		m.stack = m.stack[:0]
	}
}

func (m *machine) depth() int { return len(m.stack) }
